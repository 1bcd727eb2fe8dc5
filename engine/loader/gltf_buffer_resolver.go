package loader

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-glb/engine/fetch"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// --- Fan-out ---

// fanOut runs job(0..n-1) on the pool and blocks until every job finished.
// The first error reported wins; later errors are dropped. Jobs must not submit jobs.
// A nil pool runs the jobs inline.
//
// Parameters:
//   - pool: the worker pool
//   - n: the number of jobs
//   - job: the work for index i
//
// Returns:
//   - error: the first job error
func fanOut(pool worker.DynamicWorkerPool, n int, job func(i int) error) error {
	if pool == nil {
		for i := 0; i < n; i++ {
			if err := job(i); err != nil {
				return err
			}
		}
		return nil
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		first error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		id := i
		pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				err := job(id)
				if err != nil {
					mu.Lock()
					if first == nil {
						first = err
					}
					mu.Unlock()
				}
				return nil, err
			},
		})
	}
	wg.Wait()
	return first
}

// --- URIs ---

// resolveURI joins a relative uri onto base. Absolute URLs, absolute paths and data URIs are returned as is.
func resolveURI(base, uri string) string {
	if base == "" || fetch.Scheme(uri) != "" || filepath.IsAbs(uri) || strings.HasPrefix(uri, "/") {
		return uri
	}
	if fetch.Scheme(base) != "" {
		b, err := url.Parse(base)
		if err != nil {
			return uri
		}
		if !strings.HasSuffix(b.Path, "/") {
			b.Path += "/"
		}
		ref, err := url.Parse(uri)
		if err != nil {
			return b.String() + uri
		}
		return b.ResolveReference(ref).String()
	}
	return path.Join(filepath.ToSlash(base), uri)
}

// decodeDataURI decodes data:[<mediatype>][;base64],<data>.
//
// Parameters:
//   - uri: the data URI
//
// Returns:
//   - []byte: the payload
//   - string: the media type, "" when absent
//   - error: ErrInvalidDataURI if the URI is malformed
func decodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURI)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing comma", ErrInvalidDataURI)
	}

	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
		}
		return data, mime, nil
	}

	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return []byte(text), mime, nil
}

// --- Buffers ---

// resolveBuffers produces the bytes of every buffer. External URIs are fetched in parallel on the pool.
//
// Parameters:
//   - ctx: passed to the byte source
//   - doc: the document
//   - bin: the BIN chunk, nil when absent
//   - source: resolves external URIs
//   - baseURL: the base relative URIs resolve against
//   - pool: the worker pool
//
// Returns:
//   - [][]byte: one payload per buffer
//   - error: the first failure
func resolveBuffers(ctx context.Context, doc *gltfDocument, bin []byte, source fetch.ByteSource, baseURL string, pool worker.DynamicWorkerPool) ([][]byte, error) {
	buffers := make([][]byte, len(doc.Buffers))
	var external []int

	for i, b := range doc.Buffers {
		switch {
		case b.URI == "":
			if bin == nil {
				return nil, fmt.Errorf("buffer %d: %w", i, ErrMissingBinaryChunk)
			}
			buffers[i] = bin
		case strings.HasPrefix(b.URI, "data:"):
			data, _, err := decodeDataURI(b.URI)
			if err != nil {
				return nil, fmt.Errorf("buffer %d: %w", i, err)
			}
			buffers[i] = data
		default:
			external = append(external, i)
		}
	}

	if len(external) > 0 && source == nil {
		return nil, fmt.Errorf("buffer %d references %q but no byte source is configured", external[0], doc.Buffers[external[0]].URI)
	}

	err := fanOut(pool, len(external), func(j int) error {
		i := external[j]
		target := resolveURI(baseURL, doc.Buffers[i].URI)
		data, err := source.Fetch(ctx, target)
		if err != nil {
			return fmt.Errorf("failed to fetch buffer %d (%s): %w", i, target, err)
		}
		buffers[i] = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buffers, nil
}

// --- Buffer Views ---

// bufferViewData is a non-copying window into a buffer.
type bufferViewData struct {
	Data       []byte
	Buffer     int
	ByteOffset int

	// ByteStride is 0 when the view is tightly packed.
	ByteStride int
}

// resolveBufferViews slices every bufferView out of its buffer.
//
// Parameters:
//   - doc: the document
//   - buffers: the resolved buffers
//
// Returns:
//   - []bufferViewData: one view per bufferView
//   - error: errIndexOutOfRange or ErrBufferViewOverrun
func resolveBufferViews(doc *gltfDocument, buffers [][]byte) ([]bufferViewData, error) {
	views := make([]bufferViewData, len(doc.BufferViews))
	for i, bv := range doc.BufferViews {
		if bv.Buffer < 0 || bv.Buffer >= len(buffers) {
			return nil, fmt.Errorf("bufferView %d: buffer %d: %w", i, bv.Buffer, errIndexOutOfRange)
		}
		buf := buffers[bv.Buffer]
		end := bv.ByteOffset + bv.ByteLength
		if bv.ByteOffset < 0 || bv.ByteLength < 0 || end > len(buf) {
			return nil, fmt.Errorf("bufferView %d: [%d:%d] of %d bytes: %w", i, bv.ByteOffset, end, len(buf), ErrBufferViewOverrun)
		}
		stride := 0
		if bv.ByteStride != nil {
			stride = *bv.ByteStride
		}
		views[i] = bufferViewData{
			Data:       buf[bv.ByteOffset:end:end],
			Buffer:     bv.Buffer,
			ByteOffset: bv.ByteOffset,
			ByteStride: stride,
		}
	}
	return views, nil
}
