// Package ply writes the binary little-endian PLY point clouds the Draco
// encoder reads as its input format.
package ply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// Vertex is one point of a PLY point cloud: a position and a color.
type Vertex struct {
	X, Y, Z float32
	R, G, B uint8
}

// WritePlyFile writes verts to filePath as a binary_little_endian PLY
// file with x/y/z float properties and red/green/blue uchar properties,
// the layout the draco_encoder point cloud CLI expects.
func WritePlyFile(filePath string, verts []Vertex) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("ply: create %s: %w", filePath, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)

	header := fmt.Sprintf(
		"ply\nformat binary_little_endian 1.0\nelement vertex %d\n"+
			"property float x\nproperty float y\nproperty float z\n"+
			"property uchar red\nproperty uchar green\nproperty uchar blue\n"+
			"end_header\n",
		len(verts),
	)
	if _, err := w.WriteString(header); err != nil {
		return fmt.Errorf("ply: write header: %w", err)
	}

	for _, v := range verts {
		if err := binary.Write(w, binary.LittleEndian, v.X); err != nil {
			return fmt.Errorf("ply: write vertex: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, v.Y); err != nil {
			return fmt.Errorf("ply: write vertex: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, v.Z); err != nil {
			return fmt.Errorf("ply: write vertex: %w", err)
		}
		if _, err := w.Write([]byte{v.R, v.G, v.B}); err != nil {
			return fmt.Errorf("ply: write vertex: %w", err)
		}
	}

	return w.Flush()
}
