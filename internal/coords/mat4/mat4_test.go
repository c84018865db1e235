package mat4

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func approxEqual(t *testing.T, want, got Mat4, tol float64) {
	t.Helper()
	for i := 0; i < 16; i++ {
		assert.True(t, math.Abs(want[i]-got[i]) <= tol, "index %d: want %v got %v", i, want[i], got[i])
	}
}

func TestIdentityMultiply(t *testing.T) {
	id := Identity()
	m := Mat4{
		1, 2, 3, 0,
		4, 5, 6, 0,
		7, 8, 9, 0,
		10, 11, 12, 1,
	}
	assert.Equal(t, m, Multiply(id, m))
	assert.Equal(t, m, Multiply(m, id))
}

func TestMultiplyVecTranslation(t *testing.T) {
	m := Identity()
	m.SetCol(3, [4]float64{10, 20, 30, 1})
	got := MultiplyVec(m, Vec3{1, 2, 3})
	assert.Equal(t, Vec3{11, 22, 33}, got)
}

func TestInverseOfIdentity(t *testing.T) {
	approxEqual(t, Identity(), Inverse(Identity()), 1e-12)
}

func TestInverseRoundTrip(t *testing.T) {
	// A rotation (about Z by 90deg) composed with a translation: a typical
	// rigid-body transform like the ones CalcEnuToEcefMatrix produces.
	m := Mat4{
		0, 1, 0, 0,
		-1, 0, 0, 0,
		0, 0, 1, 0,
		5, -7, 3, 1,
	}
	inv := Inverse(m)
	approxEqual(t, Identity(), Multiply(m, inv), 1e-9)
	approxEqual(t, Identity(), Multiply(inv, m), 1e-9)
}

func TestInverseUndoesMultiplyVec(t *testing.T) {
	m := Mat4{
		0, 1, 0, 0,
		-1, 0, 0, 0,
		0, 0, 1, 0,
		5, -7, 3, 1,
	}
	p := Vec3{1, 2, 3}
	ecef := MultiplyVec(m, p)
	back := MultiplyVec(Inverse(m), ecef)
	assert.True(t, math.Abs(back.X-p.X) < 1e-9)
	assert.True(t, math.Abs(back.Y-p.Y) < 1e-9)
	assert.True(t, math.Abs(back.Z-p.Z) < 1e-9)
}

func TestInverseSingularPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on singular matrix")
		}
	}()
	Inverse(Mat4{})
}
