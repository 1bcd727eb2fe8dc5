package loader

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGLBContainerRoundTrip(t *testing.T) {
	data := encodeGLB(`{"asset":{"version":"2.0"}}`, []byte{1, 2, 3, 4, 5})

	c, err := readGLBContainer(data, "model.glb")
	require.NoError(t, err)
	require.Len(t, c.Chunks, 2)
	assert.False(t, c.Bare)
	assert.Equal(t, glbMagic, c.Header.Magic)
	assert.Equal(t, uint32(len(data)), c.Header.Length)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 0, 0, 0}, c.Binary())

	again, err := readGLBContainer(c.Encode(), "")
	require.NoError(t, err)
	assert.Equal(t, c.Chunks, again.Chunks)
	assert.Equal(t, data, again.Encode())
}

func TestGLBContainerJSONPadding(t *testing.T) {
	data := encodeGLB(`{"a":1}`, nil)
	c, err := readGLBContainer(data, "")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1} `, string(c.JSON()))
	assert.Nil(t, c.Binary())
	assert.Zero(t, len(data)%4)
}

func TestGLBContainerBareJSON(t *testing.T) {
	doc := []byte(`{"asset":{"version":"2.0"}}`)
	c, err := readGLBContainer(doc, "scene.gltf")
	require.NoError(t, err)
	assert.True(t, c.Bare)
	assert.Equal(t, doc, c.JSON())
	assert.Nil(t, c.Binary())
}

func TestGLBContainerErrors(t *testing.T) {
	valid := encodeGLB(`{"asset":{"version":"2.0"}}`, []byte{0, 0, 0, 0})

	withVersion := func(v uint32) []byte {
		b := append([]byte(nil), valid...)
		binary.LittleEndian.PutUint32(b[4:], v)
		return b
	}
	withMagic := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(withMagic[0:], 0xdeadbeef)

	overrun := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(overrun[12:], 4096)

	binFirst := encodeGLB(`{}`, nil)
	binary.LittleEndian.PutUint32(binFirst[16:], glbChunkBIN)

	threeChunks := (&glbContainer{Chunks: []glbChunk{
		{Type: glbChunkJSON, Data: []byte(`{}  `)},
		{Type: glbChunkBIN, Data: []byte{0, 0, 0, 0}},
		{Type: glbChunkBIN, Data: []byte{0, 0, 0, 0}},
	}}).Encode()

	secondJSON := (&glbContainer{Chunks: []glbChunk{
		{Type: glbChunkJSON, Data: []byte(`{}  `)},
		{Type: glbChunkJSON, Data: []byte(`{}  `)},
	}}).Encode()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"version 3", withVersion(3), ErrUnsupportedContainerVersion},
		{"version 1", withVersion(1), ErrUnsupportedContainerVersion},
		{"bad magic", withMagic, ErrInvalidMagic},
		{"short header", valid[:8], ErrTruncatedContainer},
		{"length beyond data", valid[:len(valid)-4], ErrTruncatedContainer},
		{"chunk overrun", overrun, ErrChunkOverrun},
		{"first chunk not json", binFirst, ErrMissingJSONChunk},
		{"three chunks", threeChunks, ErrInvalidChunkCount},
		{"second chunk not bin", secondJSON, ErrUnexpectedChunkType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := readGLBContainer(tt.data, "model.glb")
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, c)
		})
	}
}

func TestImportRejectsContainerVersion3(t *testing.T) {
	data := encodeGLB(`{"asset":{"version":"2.0"}}`, nil)
	binary.LittleEndian.PutUint32(data[4:], 3)

	bundle, err := importGLB(t, data, DefaultConfig())
	require.ErrorIs(t, err, ErrUnsupportedContainerVersion)
	assert.Nil(t, bundle)
}
