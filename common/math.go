package common

import (
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// GammaExponent converts linear color factors into the sRGB-ish space the materials are authored in.
const GammaExponent = 1.0 / 2.2

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Gamma applies the 1/2.2 gamma curve to each of the first three components of a color.
// The fourth component (if present) is left untouched by callers that need alpha.
//
// Parameters:
//   - c: the linear RGB color
//
// Returns:
//   - mgl32.Vec3: the gamma-corrected color
func Gamma(c [3]float32) mgl32.Vec3 {
	return mgl32.Vec3{
		math32.Pow(c[0], GammaExponent),
		math32.Pow(c[1], GammaExponent),
		math32.Pow(c[2], GammaExponent),
	}
}

// Clamp limits v to the closed range [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(v, hi))
}

// DecomposeMatrix splits a column-major affine matrix into translation, rotation and scale.
// A negative determinant is folded into the X scale so the rotation stays proper.
//
// Parameters:
//   - m: the column-major 4x4 matrix
//
// Returns:
//   - mgl32.Vec3: translation
//   - mgl32.Quat: rotation (normalized)
//   - mgl32.Vec3: scale
func DecomposeMatrix(m mgl32.Mat4) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	translation := m.Col(3).Vec3()

	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	if m.Mat3().Det() < 0 {
		sx = -sx
	}
	scale := mgl32.Vec3{sx, sy, sz}

	// Avoid division by zero
	if math32.Abs(sx) < 0.0001 {
		sx = 1
	}
	if sy < 0.0001 {
		sy = 1
	}
	if sz < 0.0001 {
		sz = 1
	}

	var r mgl32.Mat4
	r.SetCol(0, m.Col(0).Mul(1/sx))
	r.SetCol(1, m.Col(1).Mul(1/sy))
	r.SetCol(2, m.Col(2).Mul(1/sz))
	r.SetCol(3, mgl32.Vec4{0, 0, 0, 1})

	return translation, mgl32.Mat4ToQuat(r).Normalize(), scale
}

// CalculateNormals accumulates face normals for every triangle referenced by indices and
// normalizes the per-vertex sums. Vertices not touched by any non-degenerate triangle get (0, 1, 0).
//
// Parameters:
//   - positions: tightly packed xyz positions
//   - indices: triangle list indices into positions
//
// Returns:
//   - []float32: tightly packed xyz normals, one per position
func CalculateNormals(positions []float32, indices []uint32) []float32 {
	numVertices := len(positions) / 3
	acc := make([]mgl32.Vec3, numVertices)

	at := func(i uint32) mgl32.Vec3 {
		return mgl32.Vec3{positions[i*3], positions[i*3+1], positions[i*3+2]}
	}

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if int(i0) >= numVertices || int(i1) >= numVertices || int(i2) >= numVertices {
			continue
		}
		p0, p1, p2 := at(i0), at(i1), at(i2)
		face := p1.Sub(p0).Cross(p2.Sub(p0))
		acc[i0] = acc[i0].Add(face)
		acc[i1] = acc[i1].Add(face)
		acc[i2] = acc[i2].Add(face)
	}

	normals := make([]float32, numVertices*3)
	for i, n := range acc {
		l := n.Len()
		if l < 1e-12 {
			n = mgl32.Vec3{0, 1, 0}
		} else {
			n = n.Mul(1 / l)
		}
		normals[i*3], normals[i*3+1], normals[i*3+2] = n[0], n[1], n[2]
	}
	return normals
}

// FixQuaternionContinuity walks packed xyzw keys and negates every key whose dot product with the
// previous (already corrected) key is negative, so interpolation takes the short path.
//
// Parameters:
//   - keys: packed quaternions, modified in place
func FixQuaternionContinuity(keys []float32) {
	for j := 0; j+8 <= len(keys); j += 4 {
		prev := mgl32.Vec4{keys[j], keys[j+1], keys[j+2], keys[j+3]}
		next := mgl32.Vec4{keys[j+4], keys[j+5], keys[j+6], keys[j+7]}
		if prev.Dot(next) < 0 {
			keys[j+4], keys[j+5], keys[j+6], keys[j+7] = -next[0], -next[1], -next[2], -next[3]
		}
	}
}
