package tools

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestConvertIntToByteArray(t *testing.T) {
	out := ConvertIntToByteArray(42)
	assert.Equal(t, 4, len(out))
	assert.Equal(t, uint32(42), binary.LittleEndian.Uint32(out))
}

func TestConvertTruncateFloat64ToFloat32ByteArrayPacksEachValue(t *testing.T) {
	out := ConvertTruncateFloat64ToFloat32ByteArray([]float64{1.5, -2.25, 3})
	assert.Equal(t, 12, len(out))

	assert.Equal(t, float32(1.5), math.Float32frombits(binary.LittleEndian.Uint32(out[0:4])))
	assert.Equal(t, float32(-2.25), math.Float32frombits(binary.LittleEndian.Uint32(out[4:8])))
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(out[8:12])))
}

func TestIsFloatEqual(t *testing.T) {
	assert.True(t, IsFloatEqual(1.0000001, 1.0))
	assert.False(t, IsFloatEqual(2.0, 1.0))
}
