package io

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/ecopia-map/geotile_transform/internal/coords/mat4"
	"github.com/ecopia-map/geotile_transform/internal/data"
	"github.com/ecopia-map/geotile_transform/internal/octree"
	"github.com/ecopia-map/geotile_transform/internal/ply"
	"github.com/ecopia-map/geotile_transform/internal/tiler"
	"github.com/ecopia-map/geotile_transform/tools"
)

var identityTransform = mat4.Identity().Array()

// StandardConsumer turns WorkUnits into content.pnts and tileset.json
// files. Every point it writes is already expressed in the dataset's
// local ENU frame; rootTransform (the enu_to_ecef matrix) is stamped
// only onto the tileset.json generated for the tree's true root node —
// nested tileset.json files carry an identity transform, since 3D Tiles
// composes a tile's transform with every ancestor's on load and the ENU
// placement must apply exactly once.
type StandardConsumer struct {
	refineMode       tiler.RefineMode
	rootTransform    [16]float64
	draco            bool
	dracoEncoderPath string
}

func NewStandardConsumer(rootTransform mat4.Mat4, refineMode tiler.RefineMode, draco bool, dracoEncoderPath string) *StandardConsumer {
	return &StandardConsumer{
		refineMode:       refineMode,
		rootTransform:    rootTransform.Array(),
		draco:            draco,
		dracoEncoderPath: dracoEncoderPath,
	}
}

// intermediateData stores a node's points in an intermediate, column-split
// format convenient for both the legacy binary layout and the PLY/Draco
// path.
type intermediateData struct {
	coords          []float64
	colors          []uint8
	intensities     []uint8
	classifications []uint8
	numPoints       int
}

// Consume continually pulls WorkUnits off workchan until it is closed,
// producing the corresponding content.pnts and tileset.json files. On
// error it reports to errchan and stops.
func (c *StandardConsumer) Consume(workchan chan *WorkUnit, errchan chan error, waitGroup *sync.WaitGroup) {
	defer waitGroup.Done()

	for {
		work, ok := <-workchan
		if !ok {
			break
		}

		if err := c.doWork(work); err != nil {
			errchan <- err
			break
		}
	}
}

func (c *StandardConsumer) doWork(workUnit *WorkUnit) error {
	if c.draco {
		if err := c.writeBinaryPntsFileWithDraco(*workUnit); err != nil {
			return err
		}
	} else {
		if err := c.writeBinaryPntsFile(*workUnit); err != nil {
			return err
		}
	}

	if !workUnit.Node.IsLeaf() || workUnit.Node.IsRoot() {
		if err := c.writeTilesetJsonFile(*workUnit); err != nil {
			return err
		}
	}
	return nil
}

func (c *StandardConsumer) invokeDracoEncoder(programLocation, plyInputFileLocation, outputFileLocation string, compressionLevel int) error {
	cmdParams := []string{
		"-point_cloud",
		"-i", plyInputFileLocation,
		"-o", outputFileLocation,
		"-qp", strconv.Itoa(11),
		"-cl", strconv.Itoa(compressionLevel),
	}

	runCmd := exec.Command(programLocation, cmdParams...)

	var cmdStdout, cmdStderr bytes.Buffer
	runCmd.Stdout = &cmdStdout
	runCmd.Stderr = &cmdStderr

	if err := runCmd.Run(); err != nil {
		log.Println("run failed", runCmd.String(), "cmd-stdout", cmdStdout.String(), "cmd-stderr", cmdStderr.String(), err.Error())
		return err
	}
	return nil
}

func (c *StandardConsumer) writeBinaryPntsFileWithDraco(workUnit WorkUnit) error {
	parentFolder := workUnit.BasePath
	node := workUnit.Node

	if err := tools.CreateDirectoryIfDoesNotExist(parentFolder); err != nil {
		return err
	}

	intermediatePointData := c.generateIntermediateDataForPnts(node)

	averageXYZ := c.computeAverageXYZ(intermediatePointData)
	c.subtractXYZFromIntermediateDataCoords(intermediatePointData, averageXYZ)

	plyFileName := "content.ply"
	plyFilePath := path.Join(parentFolder, plyFileName)
	if err := c.writePlyFile(plyFilePath, intermediatePointData); err != nil {
		log.Println("wrote PLY failed.", err.Error())
		return err
	}

	programLocation := c.dracoEncoderPath
	outputFileName := "content.drc"
	drcFilePath := path.Join(parentFolder, outputFileName)
	compressionLevel := 7
	if err := c.invokeDracoEncoder(programLocation, plyFilePath, drcFilePath, compressionLevel); err != nil {
		log.Println("invokeDracoEncoder failed.", err.Error())
		return err
	}

	dracoContent, err := os.ReadFile(drcFilePath)
	if err != nil {
		return fmt.Errorf("read draco output: %w", err)
	}

	featureTableStr := c.generateFeatureTableJsonContentWithDraco(
		averageXYZ[0], averageXYZ[1], averageXYZ[2], intermediatePointData.numPoints, 0, len(dracoContent),
	)
	featureTableLen := len(featureTableStr)
	outputByte := c.generatePntsByteArrayWithDraco([]byte(featureTableStr), featureTableLen, []byte{}, 0, dracoContent, len(dracoContent))

	pntsFilePath := path.Join(parentFolder, "content.pnts")
	if err := os.WriteFile(pntsFilePath, outputByte, 0777); err != nil {
		return err
	}

	if err := os.Remove(plyFilePath); err != nil {
		log.Println("delete temporary ply file failed.", err.Error())
	}
	if err := os.Remove(drcFilePath); err != nil {
		log.Println("delete temporary drc file failed.", err.Error())
	}

	return nil
}

func (c *StandardConsumer) writePlyFile(filePath string, intermediatePointData *intermediateData) error {
	verts := make([]ply.Vertex, intermediatePointData.numPoints)
	for i := 0; i < intermediatePointData.numPoints; i++ {
		verts[i] = ply.Vertex{
			X: float32(intermediatePointData.coords[i*3]),
			Y: float32(intermediatePointData.coords[i*3+1]),
			Z: float32(intermediatePointData.coords[i*3+2]),
			R: intermediatePointData.colors[i*3],
			G: intermediatePointData.colors[i*3+1],
			B: intermediatePointData.colors[i*3+2],
		}
	}

	return ply.WritePlyFile(filePath, verts)
}

// writeBinaryPntsFile writes a content.pnts file for workUnit.
func (c *StandardConsumer) writeBinaryPntsFile(workUnit WorkUnit) error {
	parentFolder := workUnit.BasePath
	node := workUnit.Node

	if err := tools.CreateDirectoryIfDoesNotExist(parentFolder); err != nil {
		return err
	}

	intermediatePointData := c.generateIntermediateDataForPnts(node)

	averageXYZ := c.computeAverageXYZ(intermediatePointData)
	c.subtractXYZFromIntermediateDataCoords(intermediatePointData, averageXYZ)

	positionBytes := tools.ConvertTruncateFloat64ToFloat32ByteArray(intermediatePointData.coords)

	featureTableBytes, featureTableLen := c.generateFeatureTable(averageXYZ[0], averageXYZ[1], averageXYZ[2], intermediatePointData.numPoints)
	batchTableBytes, batchTableLen := c.generateBatchTable(intermediatePointData.numPoints)

	outputByte := c.generatePntsByteArray(intermediatePointData, positionBytes, featureTableBytes, featureTableLen, batchTableBytes, batchTableLen)

	pntsFilePath := path.Join(parentFolder, "content.pnts")
	return os.WriteFile(pntsFilePath, outputByte, 0777)
}

// generateIntermediateDataForPnts reads a node's points, already in the
// dataset's local ENU frame, into column-split arrays.
func (c *StandardConsumer) generateIntermediateDataForPnts(node octree.INode) *intermediateData {
	points := node.GetPoints()

	if c.refineMode == tiler.RefineModeReplace {
		points = appendParentPoints(node, points)
	}

	numPoints := len(points)
	out := intermediateData{
		coords:          make([]float64, numPoints*3),
		colors:          make([]uint8, numPoints*3),
		intensities:     make([]uint8, numPoints),
		classifications: make([]uint8, numPoints),
		numPoints:       numPoints,
	}

	for i, point := range points {
		out.coords[i*3] = point.X
		out.coords[i*3+1] = point.Y
		out.coords[i*3+2] = point.Z

		out.colors[i*3] = point.R
		out.colors[i*3+1] = point.G
		out.colors[i*3+2] = point.B

		out.intensities[i] = point.Intensity
		out.classifications[i] = point.Classification
	}

	return &out
}

func appendParentPoints(node octree.INode, points []*data.Point) []*data.Point {
	parent := node.GetParent()
	boundingBox := node.GetBoundingBox()
	isContained := func(point *data.Point) bool {
		return point.X >= boundingBox.Xmin && point.X <= boundingBox.Xmax &&
			point.Y >= boundingBox.Ymin && point.Y <= boundingBox.Ymax &&
			point.Z >= boundingBox.Zmin && point.Z <= boundingBox.Zmax
	}

	for parent != nil {
		for _, point := range parent.GetPoints() {
			if isContained(point) {
				points = append(points, point)
			}
		}
		parent = parent.GetParent()
	}

	return points
}

func (c *StandardConsumer) generateFeatureTable(avgX, avgY, avgZ float64, numPoints int) ([]byte, int) {
	featureTableStr := c.generateFeatureTableJsonContent(avgX, avgY, avgZ, numPoints, 0)
	return []byte(featureTableStr), len(featureTableStr)
}

func (c *StandardConsumer) generateBatchTable(numPoints int) ([]byte, int) {
	batchTableStr := c.generateBatchTableJsonContent(numPoints, 0)
	return []byte(batchTableStr), len(batchTableStr)
}

func (c *StandardConsumer) generatePntsByteArray(data *intermediateData, positionBytes, featureTableBytes []byte, featureTableLen int, batchTableBytes []byte, batchTableLen int) []byte {
	outputByte := make([]byte, 0)
	outputByte = append(outputByte, []byte("pnts")...)
	outputByte = append(outputByte, tools.ConvertIntToByteArray(1)...)
	byteLength := 28 + featureTableLen + len(positionBytes) + len(data.colors)
	outputByte = append(outputByte, tools.ConvertIntToByteArray(byteLength)...)
	outputByte = append(outputByte, tools.ConvertIntToByteArray(featureTableLen)...)
	outputByte = append(outputByte, tools.ConvertIntToByteArray(len(positionBytes)+len(data.colors))...)
	outputByte = append(outputByte, tools.ConvertIntToByteArray(batchTableLen)...)
	outputByte = append(outputByte, tools.ConvertIntToByteArray(len(data.intensities)+len(data.classifications))...)
	outputByte = append(outputByte, featureTableBytes...)
	outputByte = append(outputByte, positionBytes...)
	outputByte = append(outputByte, data.colors...)
	outputByte = append(outputByte, batchTableBytes...)
	outputByte = append(outputByte, data.intensities...)
	outputByte = append(outputByte, data.classifications...)

	return outputByte
}

func (c *StandardConsumer) generatePntsByteArrayWithDraco(featureTableBytes []byte, featureTableLen int, batchTableBytes []byte, batchTableLen int, dracoBytes []byte, dracoByteLength int) []byte {
	outputByte := make([]byte, 0)
	outputByte = append(outputByte, []byte("pnts")...)
	outputByte = append(outputByte, tools.ConvertIntToByteArray(1)...)
	byteLength := 28 + featureTableLen + dracoByteLength
	outputByte = append(outputByte, tools.ConvertIntToByteArray(byteLength)...)
	outputByte = append(outputByte, tools.ConvertIntToByteArray(featureTableLen)...)
	outputByte = append(outputByte, tools.ConvertIntToByteArray(dracoByteLength)...)
	outputByte = append(outputByte, tools.ConvertIntToByteArray(batchTableLen)...)
	outputByte = append(outputByte, tools.ConvertIntToByteArray(0)...)
	outputByte = append(outputByte, featureTableBytes...)
	outputByte = append(outputByte, batchTableBytes...)
	outputByte = append(outputByte, dracoBytes...)

	return outputByte
}

func (c *StandardConsumer) computeAverageXYZ(intermediatePointData *intermediateData) []float64 {
	var avgX, avgY, avgZ float64

	for i := 0; i < intermediatePointData.numPoints; i++ {
		avgX += intermediatePointData.coords[i*3]
		avgY += intermediatePointData.coords[i*3+1]
		avgZ += intermediatePointData.coords[i*3+2]
	}
	avgX /= float64(intermediatePointData.numPoints)
	avgY /= float64(intermediatePointData.numPoints)
	avgZ /= float64(intermediatePointData.numPoints)

	return []float64{avgX, avgY, avgZ}
}

func (c *StandardConsumer) subtractXYZFromIntermediateDataCoords(intermediatePointData *intermediateData, xyz []float64) {
	for i := 0; i < intermediatePointData.numPoints; i++ {
		intermediatePointData.coords[i*3] -= xyz[0]
		intermediatePointData.coords[i*3+1] -= xyz[1]
		intermediatePointData.coords[i*3+2] -= xyz[2]
	}
}

func (c *StandardConsumer) generateFeatureTableJsonContentWithDraco(x, y, z float64, pointNo, spaceNo, dracoByteLength int) string {
	sb := ""
	sb += "{\"POINTS_LENGTH\":" + strconv.Itoa(pointNo) + ","
	sb += "\"RTC_CENTER\":[" + fmt.Sprintf("%f", x) + strings.Repeat("0", spaceNo)
	sb += "," + fmt.Sprintf("%f", y) + "," + fmt.Sprintf("%f", z) + "],"
	sb += "\"POSITION\":" + "{\"byteOffset\":" + "0" + "},"
	sb += "\"RGB\":" + "{\"byteOffset\":" + "0" + "},"
	sb += "\"extensions\":" + "{\"3DTILES_draco_point_compression\":{\"byteLength\":" + strconv.Itoa(dracoByteLength) + ",\"byteOffset\":0,\"properties\":{\"POSITION\":0,\"RGB\":1}}}}"
	headerByteLength := len([]byte(sb))
	paddingSize := headerByteLength % 4
	if paddingSize != 0 {
		return c.generateFeatureTableJsonContentWithDraco(x, y, z, pointNo, 4-paddingSize, dracoByteLength)
	}
	return sb
}

func (c *StandardConsumer) generateFeatureTableJsonContent(x, y, z float64, pointNo, spaceNo int) string {
	sb := ""
	sb += "{\"POINTS_LENGTH\":" + strconv.Itoa(pointNo) + ","
	sb += "\"RTC_CENTER\":[" + fmt.Sprintf("%f", x) + strings.Repeat("0", spaceNo)
	sb += "," + fmt.Sprintf("%f", y) + "," + fmt.Sprintf("%f", z) + "],"
	sb += "\"POSITION\":" + "{\"byteOffset\":" + "0" + "},"
	sb += "\"RGB\":" + "{\"byteOffset\":" + strconv.Itoa(pointNo*12) + "}}"
	headerByteLength := len([]byte(sb))
	paddingSize := headerByteLength % 4
	if paddingSize != 0 {
		return c.generateFeatureTableJsonContent(x, y, z, pointNo, 4-paddingSize)
	}
	return sb
}

func (c *StandardConsumer) generateBatchTableJsonContent(pointNumber, spaceNumber int) string {
	sb := ""
	sb += "{\"INTENSITY\":" + "{\"byteOffset\":" + "0" + ", \"componentType\":\"UNSIGNED_BYTE\", \"type\":\"SCALAR\"},"
	sb += "\"CLASSIFICATION\":" + "{\"byteOffset\":" + strconv.Itoa(pointNumber) + ", \"componentType\":\"UNSIGNED_BYTE\", \"type\":\"SCALAR\"}}"
	sb += strings.Repeat(" ", spaceNumber)
	headerByteLength := len([]byte(sb))
	paddingSize := headerByteLength % 4
	if paddingSize != 0 {
		return c.generateBatchTableJsonContent(pointNumber, 4-paddingSize)
	}
	return sb
}

func (c *StandardConsumer) writeTilesetJsonFile(workUnit WorkUnit) error {
	parentFolder := workUnit.BasePath
	node := workUnit.Node

	if err := tools.CreateDirectoryIfDoesNotExist(parentFolder); err != nil {
		return err
	}

	file := path.Join(parentFolder, "tileset.json")
	jsonData, err := c.generateTilesetJson(node)
	if err != nil {
		return err
	}

	return os.WriteFile(file, jsonData, 0666)
}

func (c *StandardConsumer) generateTilesetJson(node octree.INode) ([]byte, error) {
	if !node.IsLeaf() || node.IsRoot() {
		root, err := c.generateTilesetRoot(node)
		if err != nil {
			return nil, err
		}

		tileset := *c.generateTileset(node, root)

		return json.MarshalIndent(tileset, "", "\t")
	}

	return nil, errors.New("this node is a leaf, cannot create a tileset json for it")
}

func (c *StandardConsumer) generateTilesetRoot(node octree.INode) (*Root, error) {
	children, err := c.generateTilesetChildren(node)
	if err != nil {
		return nil, err
	}

	transform := identityTransform
	if node.IsRoot() {
		transform = c.rootTransform
	}

	root := Root{
		Content:        Content{"content.pnts"},
		BoundingVolume: BoundingVolume{node.GetBoundingBox().GetAsBoxArray()},
		GeometricError: node.ComputeGeometricError(),
		Refine:         c.refineMode.String(),
		Transform:      transform,
		Children:       children,
	}

	return &root, nil
}

func (c *StandardConsumer) generateTileset(node octree.INode, root *Root) *Tileset {
	return &Tileset{
		Asset:          Asset{Version: "1.0"},
		GeometricError: node.ComputeGeometricError(),
		Root:           *root,
	}
}

func (c *StandardConsumer) generateTilesetChildren(node octree.INode) ([]Child, error) {
	var children []Child
	for i, child := range node.GetChildren() {
		if c.nodeContainsPoints(child) {
			childJson, err := c.generateTilesetChild(child, i)
			if err != nil {
				return nil, err
			}
			children = append(children, *childJson)
		}
	}
	return children, nil
}

func (c *StandardConsumer) nodeContainsPoints(node octree.INode) bool {
	return node != nil && node.TotalNumberOfPoints() > 0
}

func (c *StandardConsumer) generateTilesetChild(child octree.INode, childIndex int) (*Child, error) {
	filename := "tileset.json"
	if child.IsLeaf() {
		filename = "content.pnts"
	}

	return &Child{
		Content:        Content{Url: strconv.Itoa(childIndex) + "/" + filename},
		BoundingVolume: BoundingVolume{child.GetBoundingBox().GetAsBoxArray()},
		GeometricError: child.ComputeGeometricError(),
		Refine:         c.refineMode.String(),
	}, nil
}
