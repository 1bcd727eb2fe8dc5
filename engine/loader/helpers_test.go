package loader

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-glb/engine/draco"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"github.com/charmbracelet/log"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// binBuilder accumulates a little-endian BIN chunk. Every write starts on a 4-byte boundary.
type binBuilder struct {
	buf bytes.Buffer
}

func (b *binBuilder) align() int {
	for b.buf.Len()%4 != 0 {
		b.buf.WriteByte(0)
	}
	return b.buf.Len()
}

func (b *binBuilder) write(v any) (offset, length int) {
	offset = b.align()
	_ = binary.Write(&b.buf, binary.LittleEndian, v)
	return offset, b.buf.Len() - offset
}

func (b *binBuilder) Bytes() []byte {
	b.align()
	return b.buf.Bytes()
}

// encodeGLB wraps a JSON document and an optional BIN chunk in a GLB container.
func encodeGLB(doc string, bin []byte) []byte {
	c := &glbContainer{Chunks: []glbChunk{{Type: glbChunkJSON, Data: []byte(doc)}}}
	if bin != nil {
		c.Chunks = append(c.Chunks, glbChunk{Type: glbChunkBIN, Data: bin})
	}
	return c.Encode()
}

// encodeDocument serializes a qmuntal document as GLB.
func encodeDocument(t *testing.T, doc *gltf.Document) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	require.NoError(t, enc.Encode(doc))
	return buf.Bytes()
}

// parseDocument unmarshals a JSON document for component level tests.
func parseDocument(t *testing.T, doc string) *gltfDocument {
	t.Helper()
	var d gltfDocument
	require.NoError(t, json.Unmarshal([]byte(doc), &d))
	return &d
}

// testImporter builds an importer with no byte source, no texture factory and inline fan-out.
func testImporter(cfg Config, module *draco.Module) gltfImporter {
	return newGLTFImporter(cfg, nil, nil, module, materialExtensionHandlers(), nil, nil, testLogger())
}

func importGLB(t *testing.T, data []byte, cfg Config) (*model.ResourceBundle, error) {
	t.Helper()
	return testImporter(cfg, nil).Import(context.Background(), "test.glb", "", data)
}

// float32At reads a little-endian float32.
func float32At(b []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[offset:]))
}
