package loader

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-glb/engine/fetch"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONOnlyContainer(t *testing.T) {
	bundle := importJSON(t, `{"asset": {"version": "2.0", "generator": "hand"}, "buffers": []}`)
	assert.Equal(t, "hand", bundle.Generator)
	assert.Empty(t, bundle.Meshes)
	assert.Empty(t, bundle.Nodes)
	assert.NotEmpty(t, bundle.ID)
	assert.Equal(t, "test.glb", bundle.Name)
}

func TestResolveBuffers(t *testing.T) {
	var fetched []string
	source := fetch.Func(func(ctx context.Context, url string) ([]byte, error) {
		fetched = append(fetched, url)
		return []byte("external"), nil
	})
	doc := parseDocument(t, `{
		"asset": {"version": "2.0"},
		"buffers": [
			{"byteLength": 4},
			{"uri": "data:application/octet-stream;base64,AQID", "byteLength": 3},
			{"uri": "data:,a%20b", "byteLength": 3},
			{"uri": "mesh.bin", "byteLength": 8}
		]
	}`)

	buffers, err := resolveBuffers(context.Background(), doc, []byte{9, 9, 9, 9}, source, "models/robot", nil)
	require.NoError(t, err)
	require.Len(t, buffers, 4)
	assert.Equal(t, []byte{9, 9, 9, 9}, buffers[0])
	assert.Equal(t, []byte{1, 2, 3}, buffers[1])
	assert.Equal(t, []byte("a b"), buffers[2])
	assert.Equal(t, []byte("external"), buffers[3])
	assert.Equal(t, []string{"models/robot/mesh.bin"}, fetched)
}

func TestResolveBuffersErrors(t *testing.T) {
	boom := errors.New("boom")
	failing := fetch.Func(func(context.Context, string) ([]byte, error) { return nil, boom })

	tests := []struct {
		name   string
		doc    string
		bin    []byte
		source fetch.ByteSource
		want   error
	}{
		{"missing bin chunk", `{"buffers": [{"byteLength": 4}]}`, nil, nil, ErrMissingBinaryChunk},
		{"bad data uri", `{"buffers": [{"uri": "data:;base64,!!!", "byteLength": 4}]}`, nil, nil, ErrInvalidDataURI},
		{"fetch failure", `{"buffers": [{"uri": "a.bin", "byteLength": 4}]}`, nil, failing, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveBuffers(context.Background(), parseDocument(t, tt.doc), tt.bin, tt.source, "", nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := resolveBuffers(context.Background(), parseDocument(t, `{"buffers": [{"uri": "a.bin"}]}`), nil, nil, "", nil)
	assert.ErrorContains(t, err, "no byte source")
}

func TestResolveBufferViews(t *testing.T) {
	doc := parseDocument(t, `{
		"bufferViews": [
			{"buffer": 0, "byteOffset": 2, "byteLength": 4, "byteStride": 8},
			{"buffer": 0, "byteOffset": 6, "byteLength": 4}
		]
	}`)
	views, err := resolveBufferViews(doc, [][]byte{{0, 1, 2, 3, 4, 5, 6, 7}})
	require.ErrorIs(t, err, ErrBufferViewOverrun)
	assert.Nil(t, views)

	views, err = resolveBufferViews(doc, [][]byte{{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}})
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3, 4, 5}, views[0].Data)
	assert.Equal(t, 8, views[0].ByteStride)
	assert.Equal(t, 0, views[1].ByteStride)
	assert.Equal(t, 4, cap(views[0].Data), "views cannot grow into their neighbours")

	_, err = resolveBufferViews(parseDocument(t, `{"bufferViews": [{"buffer": 3, "byteLength": 1}]}`), nil)
	assert.ErrorIs(t, err, errIndexOutOfRange)
}

func TestResolveURI(t *testing.T) {
	tests := []struct {
		base, uri, want string
	}{
		{"", "a.bin", "a.bin"},
		{"models", "a.bin", "models/a.bin"},
		{"models", "../tex/a.png", "tex/a.png"},
		{"models", "/abs/a.bin", "/abs/a.bin"},
		{"https://cdn.example.com/assets", "a.bin", "https://cdn.example.com/assets/a.bin"},
		{"https://cdn.example.com/assets/", "sub/a.bin", "https://cdn.example.com/assets/sub/a.bin"},
		{"models", "https://other.example.com/a.bin", "https://other.example.com/a.bin"},
		{"models", "data:,x", "data:,x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveURI(tt.base, tt.uri), fmt.Sprintf("%s + %s", tt.base, tt.uri))
	}
}

func TestFanOut(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(4, 16, time.Second)
	defer pool.Stop()

	var sum atomic.Int64
	err := fanOut(pool, 100, func(i int) error {
		sum.Add(int64(i))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4950), sum.Load())

	boom := errors.New("boom")
	err = fanOut(pool, 10, func(i int) error {
		if i == 7 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)

	var inline []int
	require.NoError(t, fanOut(nil, 3, func(i int) error {
		inline = append(inline, i)
		return nil
	}))
	assert.Equal(t, []int{0, 1, 2}, inline)
}
