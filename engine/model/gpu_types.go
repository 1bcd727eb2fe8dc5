package model

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// --- Vertex Layout ---

// WGPUFormat maps the element to the matching WebGPU vertex format.
// 8- and 16-bit elements only map with 2 or 4 components; NewVertexFormat callers widen 3-component ones beforehand.
//
// Returns:
//   - wgpu.VertexFormat: the vertex format
//   - bool: false when WebGPU has no matching format
func (e VertexElement) WGPUFormat() (wgpu.VertexFormat, bool) {
	type key struct {
		t          ComponentType
		n          int
		normalized bool
	}
	formats := map[key]wgpu.VertexFormat{
		{ComponentFloat32, 1, false}: wgpu.VertexFormatFloat32,
		{ComponentFloat32, 2, false}: wgpu.VertexFormatFloat32x2,
		{ComponentFloat32, 3, false}: wgpu.VertexFormatFloat32x3,
		{ComponentFloat32, 4, false}: wgpu.VertexFormatFloat32x4,
		{ComponentUint32, 1, false}:  wgpu.VertexFormatUint32,
		{ComponentUint32, 2, false}:  wgpu.VertexFormatUint32x2,
		{ComponentUint32, 3, false}:  wgpu.VertexFormatUint32x3,
		{ComponentUint32, 4, false}:  wgpu.VertexFormatUint32x4,
		{ComponentInt32, 1, false}:   wgpu.VertexFormatSint32,
		{ComponentInt32, 2, false}:   wgpu.VertexFormatSint32x2,
		{ComponentInt32, 3, false}:   wgpu.VertexFormatSint32x3,
		{ComponentInt32, 4, false}:   wgpu.VertexFormatSint32x4,
		{ComponentUint8, 2, false}:   wgpu.VertexFormatUint8x2,
		{ComponentUint8, 4, false}:   wgpu.VertexFormatUint8x4,
		{ComponentUint8, 2, true}:    wgpu.VertexFormatUnorm8x2,
		{ComponentUint8, 4, true}:    wgpu.VertexFormatUnorm8x4,
		{ComponentInt8, 2, false}:    wgpu.VertexFormatSint8x2,
		{ComponentInt8, 4, false}:    wgpu.VertexFormatSint8x4,
		{ComponentInt8, 2, true}:     wgpu.VertexFormatSnorm8x2,
		{ComponentInt8, 4, true}:     wgpu.VertexFormatSnorm8x4,
		{ComponentUint16, 2, false}:  wgpu.VertexFormatUint16x2,
		{ComponentUint16, 4, false}:  wgpu.VertexFormatUint16x4,
		{ComponentUint16, 2, true}:   wgpu.VertexFormatUnorm16x2,
		{ComponentUint16, 4, true}:   wgpu.VertexFormatUnorm16x4,
		{ComponentInt16, 2, false}:   wgpu.VertexFormatSint16x2,
		{ComponentInt16, 4, false}:   wgpu.VertexFormatSint16x4,
		{ComponentInt16, 2, true}:    wgpu.VertexFormatSnorm16x2,
		{ComponentInt16, 4, true}:    wgpu.VertexFormatSnorm16x4,
	}
	normalized := e.Normalized && e.Type != ComponentFloat32 && e.Type != ComponentInt32 && e.Type != ComponentUint32
	f, ok := formats[key{e.Type, e.Components, normalized}]
	if !ok {
		return wgpu.VertexFormatUndefined, false
	}
	return f, true
}

// Layout builds the WebGPU vertex buffer layout for the format.
// Shader locations follow CanonicalSemanticOrder.
//
// Returns:
//   - wgpu.VertexBufferLayout: the layout
//   - error: error if an element has no WebGPU vertex format
func (f VertexFormat) Layout() (wgpu.VertexBufferLayout, error) {
	attrs := make([]wgpu.VertexAttribute, 0, len(f.Elements))
	for _, e := range f.Elements {
		format, ok := e.WGPUFormat()
		if !ok {
			return wgpu.VertexBufferLayout{}, fmt.Errorf("no vertex format for %s %s x%d", e.Semantic, e.Type, e.Components)
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         format,
			Offset:         uint64(e.Offset),
			ShaderLocation: uint32(e.Semantic.Order()),
		})
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: uint64(f.Stride),
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, nil
}

// --- Index & Topology ---

// WGPU maps the index width to a WebGPU index format. 8-bit indices have no WebGPU format.
//
// Returns:
//   - wgpu.IndexFormat: the index format
//   - bool: false for 8-bit indices
func (f IndexFormat) WGPU() (wgpu.IndexFormat, bool) {
	switch f {
	case IndexFormatUint16:
		return wgpu.IndexFormatUint16, true
	case IndexFormatUint32:
		return wgpu.IndexFormatUint32, true
	}
	return wgpu.IndexFormatUndefined, false
}

// WGPUTopology maps the primitive type to a WebGPU topology.
// Line loops and triangle fans have no native topology and report false.
//
// Returns:
//   - wgpu.PrimitiveTopology: the topology
//   - bool: false when WebGPU cannot draw the type directly
func (p PrimitiveType) WGPUTopology() (wgpu.PrimitiveTopology, bool) {
	switch p {
	case PrimitivePoints:
		return wgpu.PrimitiveTopologyPointList, true
	case PrimitiveLines:
		return wgpu.PrimitiveTopologyLineList, true
	case PrimitiveLineStrip:
		return wgpu.PrimitiveTopologyLineStrip, true
	case PrimitiveTriangles:
		return wgpu.PrimitiveTopologyTriangleList, true
	case PrimitiveTriStrip:
		return wgpu.PrimitiveTopologyTriangleStrip, true
	}
	return wgpu.PrimitiveTopologyTriangleList, false
}

// --- Textures ---

// Sampler holds WebGPU sampler state decoded from the document.
type Sampler struct {
	MinFilter    wgpu.FilterMode
	MagFilter    wgpu.FilterMode
	MipmapFilter wgpu.MipmapFilterMode

	// Mipmaps is false when the minification filter does not sample mip levels.
	Mipmaps  bool
	AddressU wgpu.AddressMode
	AddressV wgpu.AddressMode
}

// DefaultSampler is linear filtering with linear mipmaps and repeat wrapping.
func DefaultSampler() Sampler {
	return Sampler{
		MinFilter:    wgpu.FilterModeLinear,
		MagFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeLinear,
		Mipmaps:      true,
		AddressU:     wgpu.AddressModeRepeat,
		AddressV:     wgpu.AddressModeRepeat,
	}
}

// Descriptor builds a WebGPU sampler descriptor.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - *wgpu.SamplerDescriptor: the descriptor
func (s Sampler) Descriptor(label string) *wgpu.SamplerDescriptor {
	lodMax := float32(32)
	if !s.Mipmaps {
		lodMax = 0
	}
	return &wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  s.AddressU,
		AddressModeV:  s.AddressV,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     s.MagFilter,
		MinFilter:     s.MinFilter,
		MipmapFilter:  s.MipmapFilter,
		LodMinClamp:   0,
		LodMaxClamp:   lodMax,
		MaxAnisotropy: 1,
	}
}

// TextureImage is decoded RGBA8 pixel data.
type TextureImage struct {
	Width  int
	Height int
	Format wgpu.TextureFormat
	Pixels []byte
}

// Image is an image resource of the document.
type Image struct {
	Name     string
	URI      string
	MimeType string

	// Data is the encoded image file.
	Data []byte

	// SRGB is true when any texture using this image samples color.
	SRGB bool

	// Decoded is nil when no texture factory produced pixels.
	Decoded *TextureImage
}

// Texture pairs an image with sampler state.
type Texture struct {
	Name string

	// Image is an index into ResourceBundle.Images.
	Image   int
	Sampler Sampler
	SRGB    bool
}
