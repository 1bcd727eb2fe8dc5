// Package draco defines the mesh decompressor contract used for KHR_draco_mesh_compression primitives
// and a lazily initialized, process-wide decoder module.
package draco

import (
	"context"
	"errors"
	"sync"

	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"golang.org/x/sync/singleflight"
)

// ErrNoDecoder is returned by Ready when the module has no factory.
var ErrNoDecoder = errors.New("no draco decoder registered")

// Attribute is one decoded point attribute, tightly packed little-endian values.
type Attribute struct {
	UniqueID      int
	NumComponents int
	ComponentType model.ComponentType
	Normalized    bool
	Data          []byte
}

// Geometry is a decoded mesh.
type Geometry struct {
	NumPoints int

	// Indices is nil for point clouds.
	Indices []uint32

	// Attributes is keyed by the attribute unique id referenced from the primitive extension.
	Attributes map[int]*Attribute
}

// Decoder decompresses one bufferView worth of compressed mesh data.
// Implementations must be safe for concurrent use.
type Decoder interface {
	// Decode decompresses data.
	//
	// Parameters:
	//   - data: the compressed bytes
	//
	// Returns:
	//   - *Geometry: the decoded mesh
	//   - error: error if the data cannot be decoded
	Decode(data []byte) (*Geometry, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(data []byte) (*Geometry, error)

func (f DecoderFunc) Decode(data []byte) (*Geometry, error) {
	return f(data)
}

// Factory creates a decoder. It may be slow (e.g. instantiating a wasm runtime).
type Factory func(ctx context.Context) (Decoder, error)

// Module initializes a decoder once and hands it to every caller.
// Concurrent Ready calls share a single factory invocation. A failed initialization is not cached,
// so a later Ready retries.
type Module struct {
	factory Factory

	group   singleflight.Group
	mu      sync.RWMutex
	decoder Decoder
}

// NewModule creates a module backed by factory. A nil factory makes Ready return ErrNoDecoder.
//
// Parameters:
//   - factory: creates the decoder on first use
//
// Returns:
//   - *Module: the module
func NewModule(factory Factory) *Module {
	return &Module{factory: factory}
}

// NewStaticModule creates a module that is immediately ready with decoder.
func NewStaticModule(decoder Decoder) *Module {
	return &Module{decoder: decoder}
}

var (
	defaultMu     sync.Mutex
	defaultModule = NewModule(nil)
)

// Default returns the process-wide module.
func Default() *Module {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultModule
}

// SetDefaultFactory replaces the process-wide module with one backed by factory.
// Loaders created before the call keep the module they captured.
func SetDefaultFactory(factory Factory) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultModule = NewModule(factory)
}

// Ready returns the decoder, initializing it on first use.
//
// Parameters:
//   - ctx: bounds the wait; the shared initialization keeps running for other callers
//
// Returns:
//   - Decoder: the decoder
//   - error: ErrNoDecoder, the factory error, or ctx.Err()
func (m *Module) Ready(ctx context.Context) (Decoder, error) {
	m.mu.RLock()
	d := m.decoder
	m.mu.RUnlock()
	if d != nil {
		return d, nil
	}
	if m.factory == nil {
		return nil, ErrNoDecoder
	}

	ch := m.group.DoChan("init", func() (any, error) {
		m.mu.RLock()
		existing := m.decoder
		m.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}
		// detached so one caller's cancellation does not fail the others
		dec, err := m.factory(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.decoder = dec
		m.mu.Unlock()
		return dec, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Decoder), nil
	}
}

// Initialized reports whether a decoder is ready without triggering initialization.
func (m *Module) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.decoder != nil
}
