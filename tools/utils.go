package tools

import (
	"encoding/binary"
	"encoding/json"
	"math"
)

const (
	ChunkTilesetFilePrefix = "chunk-tileset-"
)

func FmtJSONString(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "marshal data fail"
	}
	return string(data)
}

const (
	FloatMin  = 0.000001
	RadiusMin = float64(0.0000000001)
)

func IsFloatEqual(f1, f2 float64) bool {
	return math.Dim(f1, f2) < FloatMin
}

func IsRadiusEqual(r1, r2 float64) bool {
	return math.Dim(r1, r2) < RadiusMin
}

// ConvertIntToByteArray encodes v as a 4-byte little-endian uint32, the
// layout every pnts/b3dm header and feature-table length field uses.
func ConvertIntToByteArray(v int) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(v))
	return out
}

// ConvertTruncateFloat64ToFloat32ByteArray truncates each float64 in
// coords to float32 and packs them as consecutive little-endian
// float32s, the layout a pnts POSITION buffer expects.
func ConvertTruncateFloat64ToFloat32ByteArray(coords []float64) []byte {
	out := make([]byte, 4*len(coords))
	for i, c := range coords {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(c)))
	}
	return out
}
