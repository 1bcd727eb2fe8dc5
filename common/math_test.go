package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestFixQuaternionContinuity(t *testing.T) {
	keys := []float32{
		0, 0, 0, 1,
		0, 0, 0, -1,
		0, 0.7071068, 0, 0.7071068,
		0, -0.7071068, 0, -0.7071068,
	}
	FixQuaternionContinuity(keys)
	assert.Equal(t, []float32{
		0, 0, 0, 1,
		0, 0, 0, 1,
		0, 0.7071068, 0, 0.7071068,
		0, 0.7071068, 0, 0.7071068,
	}, keys)

	short := []float32{1, 0, 0}
	FixQuaternionContinuity(short)
	assert.Equal(t, []float32{1, 0, 0}, short)
}

func TestDecomposeMatrix(t *testing.T) {
	rot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	m := mgl32.Translate3D(1, 2, 3).Mul4(rot.Mat4()).Mul4(mgl32.Scale3D(2, 3, 4))

	tr, q, s := DecomposeMatrix(m)
	assert.InDeltaSlice(t, []float32{1, 2, 3}, tr[:], 1e-5)
	assert.InDeltaSlice(t, []float32{2, 3, 4}, s[:], 1e-5)
	assert.True(t, q.ApproxEqualThreshold(rot, 1e-5) || q.ApproxEqualThreshold(rot.Scale(-1), 1e-5))

	_, _, mirrored := DecomposeMatrix(mgl32.Scale3D(-1, 1, 1))
	assert.InDeltaSlice(t, []float32{-1, 1, 1}, mirrored[:], 1e-6)
}

func TestCalculateNormals(t *testing.T) {
	positions := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0, 5, 5, 5}
	normals := CalculateNormals(positions, []uint32{0, 1, 2, 0, 1, 9})
	assert.Len(t, normals, 12)
	for v := 0; v < 3; v++ {
		assert.InDeltaSlice(t, []float32{0, 0, 1}, normals[v*3:v*3+3], 1e-6)
	}
	assert.Equal(t, []float32{0, 1, 0}, normals[9:], "untouched vertices point up")
}

func TestGammaAndClamp(t *testing.T) {
	g := Gamma([3]float32{0, 1, 0.5})
	assert.Equal(t, float32(0), g[0])
	assert.Equal(t, float32(1), g[1])
	assert.InDelta(t, 0.7297401, g[2], 1e-5)

	assert.Equal(t, float32(2), Clamp(7, 0, 2))
	assert.Equal(t, float32(0), Clamp(-1, 0, 2))
	assert.Equal(t, float32(1.5), Clamp(1.5, 0, 2))
}

func TestUtils(t *testing.T) {
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce[int]())

	v := 3
	assert.Equal(t, 3, ValueOr(&v, 9))
	assert.Equal(t, 9, ValueOr[int](nil, 9))

	assert.Equal(t, 8, AlignUp(5, 4))
	assert.Equal(t, 8, AlignUp(8, 4))
	assert.Equal(t, 0, AlignUp(0, 4))

	assert.Equal(t, []byte{1, 0, 2, 0}, SliceToBytes([]uint16{1, 2}))
	assert.Nil(t, SliceToBytes([]uint16{}))
}
