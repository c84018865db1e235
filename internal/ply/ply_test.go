package ply

import (
	"encoding/binary"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestWritePlyFileHeaderDeclaresVertexCount(t *testing.T) {
	path := filepath(t)
	defer os.Remove(path)

	verts := []Vertex{
		{X: 1, Y: 2, Z: 3, R: 10, G: 20, B: 30},
		{X: 4, Y: 5, Z: 6, R: 40, G: 50, B: 60},
	}
	assert.NoError(t, WritePlyFile(path, verts))

	data, err := os.ReadFile(path)
	assert.NoError(t, err)

	headerEnd := strings.Index(string(data), "end_header\n") + len("end_header\n")
	header := string(data[:headerEnd])
	assert.True(t, strings.Contains(header, "format binary_little_endian 1.0"))
	assert.True(t, strings.Contains(header, "element vertex 2"))

	body := data[headerEnd:]
	assert.Equal(t, 2*(4*3+3), len(body))

	x := math.Float32frombits(binary.LittleEndian.Uint32(body[0:4]))
	y := math.Float32frombits(binary.LittleEndian.Uint32(body[4:8]))
	z := math.Float32frombits(binary.LittleEndian.Uint32(body[8:12]))
	assert.Equal(t, float32(1), x)
	assert.Equal(t, float32(2), y)
	assert.Equal(t, float32(3), z)
	assert.Equal(t, uint8(10), body[12])
	assert.Equal(t, uint8(20), body[13])
	assert.Equal(t, uint8(30), body[14])
}

func filepath(t *testing.T) string {
	file, err := os.CreateTemp("", "ply-*.ply")
	assert.NoError(t, err)
	assert.NoError(t, file.Close())
	return file.Name()
}
