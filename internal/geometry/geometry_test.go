package geometry

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestNewBoundingBoxMidpoint(t *testing.T) {
	box := NewBoundingBox(-2, 2, 0, 10, -5, 5)
	assert.Equal(t, 0.0, box.Xmid)
	assert.Equal(t, 5.0, box.Ymid)
	assert.Equal(t, 0.0, box.Zmid)
}

func TestGetAsBoxArray(t *testing.T) {
	box := NewBoundingBox(-2, 2, 0, 10, -5, 5)
	array := box.GetAsBoxArray()

	assert.Equal(t, [12]float64{
		0, 5, 0,
		2, 0, 0,
		0, 5, 0,
		0, 0, 5,
	}, array)
}

func TestNewBoundingBoxFromParentOctants(t *testing.T) {
	parent := NewBoundingBox(0, 10, 0, 10, 0, 10)

	lowOctant := uint8(0)
	low := NewBoundingBoxFromParent(parent, &lowOctant)
	assert.Equal(t, 0.0, low.Xmin)
	assert.Equal(t, 5.0, low.Xmax)

	highOctant := uint8(7)
	high := NewBoundingBoxFromParent(parent, &highOctant)
	assert.Equal(t, 5.0, high.Xmin)
	assert.Equal(t, 10.0, high.Xmax)
	assert.Equal(t, 5.0, high.Zmin)
	assert.Equal(t, 10.0, high.Zmax)
}
