package tools

import (
	"flag"
	"log"
)

const (
	CommandIndex = "index"
)

type FlagsGlobal struct {
	Help    *bool `json:"help"`
	Version *bool `json:"version"`
}

// FlagsForCommandIndex holds every flag the index command accepts: where
// to read from and write to, how to interpret the source coordinate
// system, and how to shape the resulting tileset.
type FlagsForCommandIndex struct {
	Input                     *string
	Output                    *string
	FolderProcessing          *bool
	RecursiveFolderProcessing *bool

	EPSGCode       *int
	WKT            *string
	ZUp            *bool
	OriginLon      *float64
	OriginLat      *float64
	OriginHeight   *float64

	ENU             *bool
	ENUOriginLon    *float64
	ENUOriginLat    *float64
	ENUOriginHeight *float64
	ENUOffsetX      *float64
	ENUOffsetY      *float64
	ENUOffsetZ      *float64

	GeoidCorrection *bool
	GeoidModel      *string
	GeoidDataPath   *string

	EightBitColors *bool
	ZOffset        *float64

	MinNumPoints    *int
	MaxNumPoints    *int
	GridCellMaxSize *float64
	GridCellMinSize *float64
	RefineMode      *string

	Draco            *bool
	DracoEncoderPath *string

	UseEdgeCalculateGeometricError *bool
	Silent                         *bool
	LogTimestamp                   *bool
	Help                           *bool
	Version                        *bool
}

func ParseFlagsGlobal() FlagsGlobal {
	help := defineBoolFlag("help", "h", false, "Displays this help.")
	version := defineBoolFlag("version", "v", false, "Displays the version of geotile_transform.")

	flag.Parse()

	return FlagsGlobal{
		Help:    help,
		Version: version,
	}
}

func ParseFlagsForCommandIndex(args []string) FlagsForCommandIndex {
	log.Println(FmtJSONString(args))

	flagCommand := flag.NewFlagSet("command-index", flag.ExitOnError)

	input := defineStringFlagCommand(flagCommand, "input", "i", "", "Specifies the input point source file/folder.")
	output := defineStringFlagCommand(flagCommand, "output", "o", "", "Specifies the output folder where to write the tileset data.")
	folderProcessing := defineBoolFlagCommand(flagCommand, "folder", "f", false, "Enables processing of all point source files from the input folder. Input must be a folder if specified")
	recursiveFolderProcessing := defineBoolFlagCommand(flagCommand, "recursive", "r", false, "Enables recursive lookup for point source files inside the input folder's subfolders")

	epsgCode := defineIntFlagCommand(flagCommand, "epsg", "e", 0, "EPSG srid code of the input points' coordinate system. 0 means the input is already a local Cartesian frame.")
	wkt := defineStringFlagCommand(flagCommand, "wkt", "", "", "WKT definition of the input points' coordinate system. Takes precedence over -epsg if both are set.")
	zUp := defineBoolFlagCommand(flagCommand, "zup", "", false, "Assumes the input's local Cartesian frame is Z-up instead of the default Y-up.")
	originLon := defineFloat64FlagCommand(flagCommand, "origin-lon", "", 0, "Longitude, in degrees, of the tileset's local ENU tangent-plane origin.")
	originLat := defineFloat64FlagCommand(flagCommand, "origin-lat", "", 0, "Latitude, in degrees, of the tileset's local ENU tangent-plane origin.")
	originHeight := defineFloat64FlagCommand(flagCommand, "origin-height", "", 0, "Ellipsoidal height, in meters, of the tileset's local ENU tangent-plane origin.")

	enu := defineBoolFlagCommand(flagCommand, "enu", "", false, "Treats the input as already expressed in a local ENU tangent-plane frame, anchored at -enu-origin-lon/-lat/-height with an -enu-offset-x/-y/-z SRSOrigin translation. Takes precedence over -wkt and -epsg.")
	enuOriginLon := defineFloat64FlagCommand(flagCommand, "enu-origin-lon", "", 0, "Longitude, in degrees, of the input ENU frame's origin. Only used when -enu is set.")
	enuOriginLat := defineFloat64FlagCommand(flagCommand, "enu-origin-lat", "", 0, "Latitude, in degrees, of the input ENU frame's origin. Only used when -enu is set.")
	enuOriginHeight := defineFloat64FlagCommand(flagCommand, "enu-origin-height", "", 0, "Ellipsoidal height, in meters, of the input ENU frame's origin. Only used when -enu is set.")
	enuOffsetX := defineFloat64FlagCommand(flagCommand, "enu-offset-x", "", 0, "SRSOrigin X translation, in meters, baked into the input ENU frame. Only used when -enu is set.")
	enuOffsetY := defineFloat64FlagCommand(flagCommand, "enu-offset-y", "", 0, "SRSOrigin Y translation, in meters, baked into the input ENU frame. Only used when -enu is set.")
	enuOffsetZ := defineFloat64FlagCommand(flagCommand, "enu-offset-z", "", 0, "SRSOrigin Z translation, in meters, baked into the input ENU frame. Only used when -enu is set.")

	geoidCorrection := defineBoolFlagCommand(flagCommand, "geoid", "g", false, "Enables geoid-to-ellipsoid height correction. Use this flag if your input has Z coordinates specified relative to the Earth geoid rather than to the WGS84 ellipsoid.")
	geoidModel := defineStringFlagCommand(flagCommand, "geoid-model", "", "egm2008", "Geoid undulation model to use when -geoid is set. One of egm2008, egm96, egm84.")
	geoidDataPath := defineStringFlagCommand(flagCommand, "geoid-data", "", "", "Path to the geoid undulation grid file for -geoid-model, or to a directory holding <model>.grid. Defaults to $GEOID_DATA_PATH, then a platform default geoid data directory.")

	eightBit := defineBoolFlagCommand(flagCommand, "8bit", "b", false, "Accepted but has no effect: CSV colors are always read as eight bit (0-255) values.")
	zOffset := defineFloat64FlagCommand(flagCommand, "zoffset", "z", 0, "Vertical offset to apply to points, in meters, before reprojection.")

	minNumPointsPerNode := defineIntFlagCommand(flagCommand, "points-min-num", "m", 10000, "Minimum number of points per node used when merging: sibling leaves are merged while the smaller holds at most 4 times this value and the pair at most 8 times it.")
	maxNumPointsPerNode := defineIntFlagCommand(flagCommand, "points-max-num", "M", 50000, "Maximum allowed number of points per node. Oversized leaves are resplit until each is under this ceiling. Must be at least 8 times -points-min-num.")
	gridCellMaxSize := defineFloat64FlagCommand(flagCommand, "grid-max-size", "x", 5.0, "Max cell size in meters for the grid algorithm. Roughly the max spacing between any two samples.")
	gridCellMinSize := defineFloat64FlagCommand(flagCommand, "grid-min-size", "n", 0.15, "Min cell size in meters for the grid algorithm. Roughly the minimum possible size of a 3D tile.")
	refineMode := defineStringFlagCommand(flagCommand, "refine-mode", "", "ADD", "Type of refine mode, can be 'ADD' or 'REPLACE'. 'ADD' means that child tiles will not contain the parent tiles points. 'REPLACE' means that they will. ADD implies less disk space but more network overhead when fetching the data, REPLACE is the opposite.")
	draco := defineBoolFlagCommand(flagCommand, "draco", "", false, "Use the Draco algorithm to compress point positions and colors.")
	dracoEncoderPath := defineStringFlagCommand(flagCommand, "draco-encoder", "", "draco_encoder", "Path to the draco_encoder executable, used when -draco is set.")

	useEdgeCalculateGeometricError := defineBoolFlagCommand(flagCommand, "use-edge-calculate", "d", true, "Uses the chunk's edge x/y/z extent to compute the tileset's geometricError instead of a per-node estimate.")
	silent := defineBoolFlagCommand(flagCommand, "silent", "s", false, "Use to suppress all the non-error messages.")
	logTimestamp := defineBoolFlagCommand(flagCommand, "timestamp", "t", false, "Adds timestamp to log messages.")
	help := defineBoolFlagCommand(flagCommand, "help", "h", false, "Displays this help.")
	version := defineBoolFlagCommand(flagCommand, "version", "v", false, "Displays the version of geotile_transform.")

	flagCommand.Parse(args)

	return FlagsForCommandIndex{
		Input:                          input,
		Output:                         output,
		FolderProcessing:               folderProcessing,
		RecursiveFolderProcessing:      recursiveFolderProcessing,
		EPSGCode:                       epsgCode,
		WKT:                            wkt,
		ZUp:                            zUp,
		OriginLon:                      originLon,
		OriginLat:                      originLat,
		OriginHeight:                   originHeight,
		ENU:                            enu,
		ENUOriginLon:                   enuOriginLon,
		ENUOriginLat:                   enuOriginLat,
		ENUOriginHeight:                enuOriginHeight,
		ENUOffsetX:                     enuOffsetX,
		ENUOffsetY:                     enuOffsetY,
		ENUOffsetZ:                     enuOffsetZ,
		GeoidCorrection:                geoidCorrection,
		GeoidModel:                     geoidModel,
		GeoidDataPath:                  geoidDataPath,
		EightBitColors:                 eightBit,
		ZOffset:                        zOffset,
		MinNumPoints:                   minNumPointsPerNode,
		MaxNumPoints:                   maxNumPointsPerNode,
		GridCellMaxSize:                gridCellMaxSize,
		GridCellMinSize:                gridCellMinSize,
		RefineMode:                     refineMode,
		Draco:                          draco,
		DracoEncoderPath:               dracoEncoderPath,
		UseEdgeCalculateGeometricError: useEdgeCalculateGeometricError,
		Silent:                         silent,
		LogTimestamp:                   logTimestamp,
		Help:                           help,
		Version:                        version,
	}
}

func defineStringFlag(name string, shortHand string, defaultValue string, usage string) *string {
	var output string
	flag.StringVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flag.StringVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineBoolFlag(name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flag.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name {
		flag.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineStringFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue string, usage string) *string {
	var output string
	flagCommand.StringVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.StringVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineIntFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue int, usage string) *int {
	var output int
	flagCommand.IntVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.IntVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineFloat64FlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue float64, usage string) *float64 {
	var output float64
	flagCommand.Float64Var(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.Float64Var(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineBoolFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flagCommand.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}
