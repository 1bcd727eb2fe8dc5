package loader

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sharedAttributesGLB holds two meshes whose primitives reference the same POSITION and TEXCOORD_0 accessors.
func sharedAttributesGLB() []byte {
	var bin binBuilder
	posOff, posLen := bin.write([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	uvOff, uvLen := bin.write([]float32{0, 0, 1, 0, 0, 0.25})
	data := bin.Bytes()

	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": %d}],
		"bufferViews": [
			{"buffer": 0, "byteOffset": %d, "byteLength": %d},
			{"buffer": 0, "byteOffset": %d, "byteLength": %d}
		],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
			{"bufferView": 1, "componentType": 5126, "count": 3, "type": "VEC2"}
		],
		"meshes": [
			{"name": "a", "primitives": [{"attributes": {"POSITION": 0, "TEXCOORD_0": 1}}]},
			{"name": "b", "primitives": [{"attributes": {"TEXCOORD_0": 1, "POSITION": 0}}]}
		],
		"nodes": [{"name": "a", "mesh": 0}, {"name": "b", "mesh": 1}],
		"scenes": [{"nodes": [0, 1]}]
	}`, len(data), posOff, posLen, uvOff, uvLen)
	return encodeGLB(doc, data)
}

func TestVertexBufferDeduplication(t *testing.T) {
	bundle, err := importGLB(t, sharedAttributesGLB(), DefaultConfig())
	require.NoError(t, err)
	require.Len(t, bundle.Meshes, 2)

	a, b := bundle.Meshes[0][0], bundle.Meshes[1][0]
	assert.Same(t, a.VertexBuffer, b.VertexBuffer)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "a", a.Name)
	assert.Equal(t, "b", b.Name)
}

func TestAttributeSignature(t *testing.T) {
	sig := attributeSignature(map[string]int{"TEXCOORD_0": 4, "POSITION": 2, "_CUSTOM": 9})
	assert.Equal(t, "POSITION:2,TEXCOORD_0:4", sig)
}

func TestVertexBufferGeneratesNormals(t *testing.T) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: map[string]int{gltf.POSITION: pos},
		}},
	}}
	doc.Nodes = []*gltf.Node{{Name: "tri", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = []int{0}

	bundle, err := importGLB(t, encodeDocument(t, doc), DefaultConfig())
	require.NoError(t, err)

	mesh := bundle.Meshes[0][0]
	vb := mesh.VertexBuffer
	require.True(t, vb.Format.Has(model.SemanticNormal))

	positions, ok := vb.Float32(model.SemanticPosition)
	require.True(t, ok)
	normals, ok := vb.Float32(model.SemanticNormal)
	require.True(t, ok)
	assert.Equal(t, len(positions), len(normals))
	for v := 0; v < 3; v++ {
		assert.InDelta(t, 1, normals[v*3+2], 1e-5)
	}

	assert.Equal(t, model.PrimitiveTriangles, mesh.Primitive.Type)
	assert.True(t, mesh.Primitive.Indexed)
	assert.Equal(t, 3, mesh.Primitive.Count)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.IndexBuffer.Indices())
}

func TestVertexBufferLayout(t *testing.T) {
	var bin binBuilder
	posOff, posLen := bin.write([]uint16{0, 65535, 0, 65535, 0, 0, 0, 0, 65535})
	colOff, colLen := bin.write([]uint8{255, 0, 0, 255, 0, 255, 0, 255, 0, 0, 255, 255})
	uvOff, uvLen := bin.write([]float32{0, 0, 1, 0, 0, 0.25})
	data := bin.Bytes()

	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": %d}],
		"bufferViews": [
			{"buffer": 0, "byteOffset": %d, "byteLength": %d},
			{"buffer": 0, "byteOffset": %d, "byteLength": %d},
			{"buffer": 0, "byteOffset": %d, "byteLength": %d}
		],
		"accessors": [
			{"bufferView": 0, "componentType": 5123, "normalized": true, "count": 3, "type": "VEC3"},
			{"bufferView": 1, "componentType": 5121, "count": 3, "type": "VEC4"},
			{"bufferView": 2, "componentType": 5126, "count": 3, "type": "VEC2"}
		],
		"meshes": [{"primitives": [{"attributes": {"TEXCOORD_0": 2, "COLOR_0": 1, "POSITION": 0}}]}]
	}`, len(data), posOff, posLen, colOff, colLen, uvOff, uvLen)

	d := parseDocument(t, doc)
	views, err := resolveBufferViews(d, [][]byte{data})
	require.NoError(t, err)
	reader := newAccessorReader(d, views, false, testLogger())
	builder := newVertexBufferBuilder(reader, [][]byte{data}, true, testLogger())

	vb, err := builder.FromAttributes(d.Meshes[0].Primitives[0].Attributes, nil)
	require.NoError(t, err)

	semantics := make([]model.VertexSemantic, len(vb.Format.Elements))
	for i, e := range vb.Format.Elements {
		semantics[i] = e.Semantic
		assert.Zero(t, e.Offset%4, e.Semantic)
	}
	assert.Equal(t, []model.VertexSemantic{
		model.SemanticPosition, model.SemanticNormal, model.SemanticColor, model.SemanticTexCoord0,
	}, semantics)

	pos, _ := vb.Format.Element(model.SemanticPosition)
	assert.Equal(t, 4, pos.Components, "6-byte elements are widened")
	assert.True(t, pos.Normalized)
	format, ok := pos.WGPUFormat()
	assert.True(t, ok)
	assert.NotZero(t, format)

	col, _ := vb.Format.Element(model.SemanticColor)
	assert.True(t, col.Normalized, "unsigned colors default to normalized")
	assert.Equal(t, 4, col.Components)

	// first vertex position bytes are copied verbatim with zero padding
	assert.Equal(t, uint16(65535), binary.LittleEndian.Uint16(vb.Data[pos.Offset+2:]))
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(vb.Data[pos.Offset+6:]))

	uvs, ok := vb.Float32(model.SemanticTexCoord0)
	require.True(t, ok)
	assert.Equal(t, []float32{0, 1, 1, 1, 0, 0.75}, uvs, "V is flipped")

	layout, err := vb.Format.Layout()
	require.NoError(t, err)
	assert.Equal(t, uint64(vb.Format.Stride), layout.ArrayStride)
	assert.Len(t, layout.Attributes, 4)
}

func TestVertexBufferBulkCopy(t *testing.T) {
	// interleaved position, normal and uv: 32-byte stride
	var bin binBuilder
	off, n := bin.write([]float32{
		0, 0, 0, 0, 0, 1, 0, 0,
		1, 0, 0, 0, 0, 1, 1, 0,
		0, 1, 0, 0, 0, 1, 0, 1,
	})
	data := bin.Bytes()
	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": %d}],
		"bufferViews": [{"buffer": 0, "byteOffset": %d, "byteLength": %d, "byteStride": 32}],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 0, "byteOffset": 12, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 0, "byteOffset": 24, "componentType": 5126, "count": 3, "type": "VEC2"}
		]
	}`, len(data), off, n)

	d := parseDocument(t, doc)
	views, err := resolveBufferViews(d, [][]byte{data})
	require.NoError(t, err)
	reader := newAccessorReader(d, views, false, testLogger())
	builder := newVertexBufferBuilder(reader, [][]byte{data}, false, testLogger())

	vb, err := builder.FromAttributes(map[string]int{"TEXCOORD_0": 2, "NORMAL": 1, "POSITION": 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, 32, vb.Format.Stride)
	assert.Equal(t, data[off:off+96], vb.Data)

	uvs, ok := vb.Float32(model.SemanticTexCoord0)
	require.True(t, ok)
	assert.Equal(t, []float32{0, 0, 1, 0, 0, 1}, uvs)

	again, err := builder.FromAttributes(map[string]int{"POSITION": 0, "NORMAL": 1, "TEXCOORD_0": 2}, nil)
	require.NoError(t, err)
	assert.Same(t, vb, again)
}

func TestResize(t *testing.T) {
	assert.Equal(t, []float32{1, 2, 0, 3, 4, 0}, resize([]float32{1, 2, 3, 4}, 2, 3))
	assert.Equal(t, []float32{1, 2, 4, 5}, resize([]float32{1, 2, 3, 4, 5, 6}, 3, 2))
}
