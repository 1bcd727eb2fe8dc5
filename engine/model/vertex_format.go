package model

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/Carmen-Shannon/oxy-glb/common"
)

// --- Vertex Format ---

// VertexElementDesc describes one attribute before it is placed in a vertex format.
type VertexElementDesc struct {
	Semantic   VertexSemantic
	Components int
	Type       ComponentType
	Normalized bool
}

// VertexElement is a placed attribute inside an interleaved vertex buffer.
type VertexElement struct {
	Semantic   VertexSemantic
	Components int
	Type       ComponentType
	Normalized bool

	// Offset is the byte offset of the element inside one vertex.
	Offset int

	// Stride is the byte distance between consecutive vertices (the format size).
	Stride int

	// Size is Components * Type.Size(), before 4-byte alignment.
	Size int
}

// VertexFormat is the interleaved layout of a vertex buffer.
type VertexFormat struct {
	Elements []VertexElement

	// Stride is the size of one vertex in bytes.
	Stride int

	// Interleaved is always true for formats produced by NewVertexFormat.
	Interleaved bool
}

// NewVertexFormat lays out the described elements in canonical semantic order.
// Each element starts on a 4-byte boundary; the stride is the sum of the aligned element sizes.
//
// Parameters:
//   - descs: the element descriptions, in any order
//
// Returns:
//   - VertexFormat: the interleaved layout
func NewVertexFormat(descs []VertexElementDesc) VertexFormat {
	sorted := slices.Clone(descs)
	slices.SortStableFunc(sorted, func(a, b VertexElementDesc) int {
		return a.Semantic.Order() - b.Semantic.Order()
	})

	elements := make([]VertexElement, len(sorted))
	offset := 0
	for i, d := range sorted {
		size := d.Components * d.Type.Size()
		elements[i] = VertexElement{
			Semantic:   d.Semantic,
			Components: d.Components,
			Type:       d.Type,
			Normalized: d.Normalized,
			Offset:     offset,
			Size:       size,
		}
		offset += common.AlignUp(size, 4)
	}
	for i := range elements {
		elements[i].Stride = offset
	}

	return VertexFormat{
		Elements:    elements,
		Stride:      offset,
		Interleaved: true,
	}
}

// Element looks up an element by semantic.
//
// Parameters:
//   - semantic: the semantic to find
//
// Returns:
//   - VertexElement: the element
//   - bool: false when the format has no such element
func (f VertexFormat) Element(semantic VertexSemantic) (VertexElement, bool) {
	for _, e := range f.Elements {
		if e.Semantic == semantic {
			return e, true
		}
	}
	return VertexElement{}, false
}

// Has reports whether the format carries the semantic.
func (f VertexFormat) Has(semantic VertexSemantic) bool {
	_, ok := f.Element(semantic)
	return ok
}

// --- Vertex Buffer ---

// VertexBuffer is CPU-side interleaved vertex data ready for upload.
type VertexBuffer struct {
	// ID is unique per buffer; meshes sharing a buffer share the ID.
	ID          string
	Format      VertexFormat
	NumVertices int
	Data        []byte
}

// Float32 extracts a float32 element as a tightly packed slice.
//
// Parameters:
//   - semantic: the element to read
//
// Returns:
//   - []float32: Components values per vertex
//   - bool: false when the element is missing or not float32
func (vb *VertexBuffer) Float32(semantic VertexSemantic) ([]float32, bool) {
	e, ok := vb.Format.Element(semantic)
	if !ok || e.Type != ComponentFloat32 {
		return nil, false
	}
	out := make([]float32, 0, vb.NumVertices*e.Components)
	for v := 0; v < vb.NumVertices; v++ {
		base := v*vb.Format.Stride + e.Offset
		for c := 0; c < e.Components; c++ {
			p := base + c*4
			if p+4 > len(vb.Data) {
				return out, true
			}
			out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(vb.Data[p:])))
		}
	}
	return out, true
}

// SetFloat32 overwrites one component of one vertex of a float32 element.
func (vb *VertexBuffer) SetFloat32(semantic VertexSemantic, vertex, component int, value float32) bool {
	e, ok := vb.Format.Element(semantic)
	if !ok || e.Type != ComponentFloat32 || component >= e.Components {
		return false
	}
	p := vertex*vb.Format.Stride + e.Offset + component*4
	if p+4 > len(vb.Data) {
		return false
	}
	binary.LittleEndian.PutUint32(vb.Data[p:], math.Float32bits(value))
	return true
}

// --- Index Buffer helpers ---

// Indices decodes the index buffer into uint32 values.
func (ib *IndexBuffer) Indices() []uint32 {
	out := make([]uint32, ib.Count)
	for i := range out {
		switch ib.Format {
		case IndexFormatUint8:
			out[i] = uint32(ib.Data[i])
		case IndexFormatUint16:
			out[i] = uint32(binary.LittleEndian.Uint16(ib.Data[i*2:]))
		default:
			out[i] = binary.LittleEndian.Uint32(ib.Data[i*4:])
		}
	}
	return out
}

// NewIndexBuffer encodes indices with the given width. Values that do not fit are truncated.
//
// Parameters:
//   - format: the index width
//   - indices: the index values
//
// Returns:
//   - *IndexBuffer: the encoded buffer
func NewIndexBuffer(format IndexFormat, indices []uint32) *IndexBuffer {
	data := make([]byte, len(indices)*format.Size())
	for i, idx := range indices {
		switch format {
		case IndexFormatUint8:
			data[i] = byte(idx)
		case IndexFormatUint16:
			binary.LittleEndian.PutUint16(data[i*2:], uint16(idx))
		default:
			binary.LittleEndian.PutUint32(data[i*4:], idx)
		}
	}
	return &IndexBuffer{Format: format, Count: len(indices), Data: data}
}
