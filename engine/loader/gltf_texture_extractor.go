package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/fetch"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"
	"github.com/Carmen-Shannon/oxy-glb/engine/texture"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"
)

// gltfTextureExtractorImpl is the implementation of the gltfTextureExtractor interface.
type gltfTextureExtractorImpl struct {
	doc     *gltfDocument
	views   []bufferViewData
	source  fetch.ByteSource
	baseURL string
	factory texture.Factory
	pool    worker.DynamicWorkerPool
	logger  *log.Logger
}

// gltfTextureExtractor resolves textures, samplers and images.
type gltfTextureExtractor interface {
	// ExtractTextures builds every texture and its sampler state.
	//
	// Parameters:
	//   - srgb: textures sampled as color
	//
	// Returns:
	//   - []*model.Texture: one entry per glTF texture
	ExtractTextures(srgb map[int]bool) []*model.Texture

	// ExtractImages loads every image in parallel and decodes it with the texture factory.
	// An image is sRGB when any texture sampling it is.
	//
	// Parameters:
	//   - ctx: passed to the byte source and the texture factory
	//   - textures: the extracted textures
	//
	// Returns:
	//   - []*model.Image: one entry per glTF image
	//   - error: the first load or decode failure
	ExtractImages(ctx context.Context, textures []*model.Texture) ([]*model.Image, error)
}

var _ gltfTextureExtractor = &gltfTextureExtractorImpl{}

// newGLTFTextureExtractor creates a texture extractor.
//
// Parameters:
//   - doc: the document
//   - views: the resolved buffer views
//   - source: resolves external image URIs
//   - baseURL: the base relative URIs resolve against
//   - factory: decodes images, nil to keep them encoded
//   - pool: the worker pool image loads run on
//   - logger: the load logger
//
// Returns:
//   - gltfTextureExtractor: the texture extractor
func newGLTFTextureExtractor(doc *gltfDocument, views []bufferViewData, source fetch.ByteSource, baseURL string,
	factory texture.Factory, pool worker.DynamicWorkerPool, logger *log.Logger) gltfTextureExtractor {
	return &gltfTextureExtractorImpl{
		doc:     doc,
		views:   views,
		source:  source,
		baseURL: baseURL,
		factory: factory,
		pool:    pool,
		logger:  logger,
	}
}

// --- Textures ---

func (e *gltfTextureExtractorImpl) ExtractTextures(srgb map[int]bool) []*model.Texture {
	textures := make([]*model.Texture, len(e.doc.Textures))
	for i := range e.doc.Textures {
		gt := &e.doc.Textures[i]
		tex := &model.Texture{
			Name:    gt.Name,
			Image:   e.textureSource(gt),
			Sampler: model.DefaultSampler(),
			SRGB:    srgb[i],
		}
		if gt.Sampler != nil && *gt.Sampler >= 0 && *gt.Sampler < len(e.doc.Samplers) {
			tex.Sampler = gltfSamplerState(&e.doc.Samplers[*gt.Sampler])
		}
		textures[i] = tex
	}
	return textures
}

// textureSource picks the image of a texture, preferring KHR_texture_basisu and EXT_texture_webp sources.
func (e *gltfTextureExtractorImpl) textureSource(gt *gltfTexture) int {
	for _, ext := range []string{extTextureBasisu, extTextureWebp} {
		var src gltfTextureSource
		if ok, err := gt.Extensions.decode(ext, &src); err == nil && ok && src.Source != nil {
			return *src.Source
		}
	}
	return common.ValueOr(gt.Source, -1)
}

// gltfSamplerState maps a glTF sampler onto WebGPU sampler state.
func gltfSamplerState(gs *gltfSampler) model.Sampler {
	s := model.DefaultSampler()

	switch common.ValueOr(gs.MinFilter, gltfFilterLinearMipmapLinear) {
	case gltfFilterNearest:
		s.MinFilter, s.MipmapFilter, s.Mipmaps = wgpu.FilterModeNearest, wgpu.MipmapFilterModeNearest, false
	case gltfFilterLinear:
		s.MinFilter, s.MipmapFilter, s.Mipmaps = wgpu.FilterModeLinear, wgpu.MipmapFilterModeNearest, false
	case gltfFilterNearestMipmapNearest:
		s.MinFilter, s.MipmapFilter = wgpu.FilterModeNearest, wgpu.MipmapFilterModeNearest
	case gltfFilterLinearMipmapNearest:
		s.MinFilter, s.MipmapFilter = wgpu.FilterModeLinear, wgpu.MipmapFilterModeNearest
	case gltfFilterNearestMipmapLinear:
		s.MinFilter, s.MipmapFilter = wgpu.FilterModeNearest, wgpu.MipmapFilterModeLinear
	}

	if common.ValueOr(gs.MagFilter, gltfFilterLinear) == gltfFilterNearest {
		s.MagFilter = wgpu.FilterModeNearest
	}

	s.AddressU = gltfAddressMode(gs.WrapS)
	s.AddressV = gltfAddressMode(gs.WrapT)
	return s
}

func gltfAddressMode(wrap *int) wgpu.AddressMode {
	switch common.ValueOr(wrap, gltfWrapRepeat) {
	case gltfWrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case gltfWrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	}
	return wgpu.AddressModeRepeat
}

// --- Images ---

func (e *gltfTextureExtractorImpl) ExtractImages(ctx context.Context, textures []*model.Texture) ([]*model.Image, error) {
	images := make([]*model.Image, len(e.doc.Images))
	for i, gi := range e.doc.Images {
		images[i] = &model.Image{Name: gi.Name, URI: gi.URI, MimeType: gi.MimeType}
	}
	for _, tex := range textures {
		if tex.SRGB && tex.Image >= 0 && tex.Image < len(images) {
			images[tex.Image].SRGB = true
		}
	}

	err := fanOut(e.pool, len(images), func(i int) error {
		img := images[i]
		data, err := e.imageData(ctx, i)
		if err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
		img.Data = data
		if img.MimeType == "" && strings.HasPrefix(img.URI, "data:") {
			img.MimeType = dataURIMimeType(img.URI)
		}

		if e.factory == nil {
			return nil
		}
		decoded, err := e.factory.Create(ctx, texture.Source{
			Name:     img.Name,
			URI:      img.URI,
			MimeType: img.MimeType,
			Data:     img.Data,
			SRGB:     img.SRGB,
		})
		if errors.Is(err, texture.ErrUnsupportedImage) {
			e.logger.Warn("keeping image encoded", "image", i, "mime", img.MimeType, "err", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
		img.Decoded = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}

// imageData returns the encoded bytes of image i.
func (e *gltfTextureExtractorImpl) imageData(ctx context.Context, i int) ([]byte, error) {
	gi := &e.doc.Images[i]
	switch {
	case gi.URI != "" && strings.HasPrefix(gi.URI, "data:"):
		data, _, err := decodeDataURI(gi.URI)
		return data, err
	case gi.URI != "":
		if e.source == nil {
			return nil, fmt.Errorf("image references %q but no byte source is configured", gi.URI)
		}
		target := resolveURI(e.baseURL, gi.URI)
		data, err := e.source.Fetch(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch image (%s): %w", target, err)
		}
		return data, nil
	case gi.BufferView != nil && gi.MimeType != "":
		if *gi.BufferView < 0 || *gi.BufferView >= len(e.views) {
			return nil, fmt.Errorf("bufferView %d: %w", *gi.BufferView, errIndexOutOfRange)
		}
		return e.views[*gi.BufferView].Data, nil
	}
	return nil, ErrInvalidImage
}

// dataURIMimeType extracts the media type of a data URI.
func dataURIMimeType(uri string) string {
	header, _, _ := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	mime, _, _ := strings.Cut(header, ";")
	return mime
}
