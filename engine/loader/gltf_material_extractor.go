package loader

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// srgbSlots are the slots whose textures hold color data.
var srgbSlots = []model.MapSlot{model.MapDiffuse, model.MapEmissive, model.MapSheen, model.MapSpecular}

// defaultAlphaCutoff applies to MASK materials without alphaCutoff.
const defaultAlphaCutoff = 0.5

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	doc      *gltfDocument
	handlers map[string]MaterialExtensionHandler
	logger   *log.Logger

	// srgb collects the textures sampled as color by any material.
	srgb map[int]bool
}

// gltfMaterialExtractor converts glTF materials into standard materials.
type gltfMaterialExtractor interface {
	// ExtractMaterial builds one material, then applies its extensions through the handler registry.
	//
	// Parameters:
	//   - materialIndex: the index of the material in the document
	//
	// Returns:
	//   - *model.Material: the material
	//   - error: error if an extension object is malformed
	ExtractMaterial(materialIndex int) (*model.Material, error)

	// ExtractAllMaterials builds every material of the document.
	//
	// Returns:
	//   - []*model.Material: all materials
	//   - error: the first failure
	ExtractAllMaterials() ([]*model.Material, error)

	// SRGBTextures returns the textures bound to color slots by the materials extracted so far.
	SRGBTextures() map[int]bool
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a material extractor.
//
// Parameters:
//   - doc: the document
//   - handlers: material extension handlers by extension name
//   - logger: the load logger
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(doc *gltfDocument, handlers map[string]MaterialExtensionHandler, logger *log.Logger) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{
		doc:      doc,
		handlers: handlers,
		logger:   logger,
		srgb:     make(map[int]bool),
	}
}

func (e *gltfMaterialExtractorImpl) SRGBTextures() map[int]bool {
	return e.srgb
}

func (e *gltfMaterialExtractorImpl) ExtractAllMaterials() ([]*model.Material, error) {
	materials := make([]*model.Material, len(e.doc.Materials))
	for i := range e.doc.Materials {
		mat, err := e.ExtractMaterial(i)
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
		materials[i] = mat
	}
	return materials, nil
}

func (e *gltfMaterialExtractorImpl) ExtractMaterial(materialIndex int) (*model.Material, error) {
	if materialIndex < 0 || materialIndex >= len(e.doc.Materials) {
		return nil, fmt.Errorf("material %d: %w", materialIndex, errIndexOutOfRange)
	}
	gm := &e.doc.Materials[materialIndex]
	m := model.NewMaterial(gm.Name)
	binder := &materialBinder{extractor: e, material: m}

	if pbr := gm.PbrMetallicRoughness; pbr != nil {
		if c := pbr.BaseColorFactor; c != nil {
			m.Diffuse = common.Gamma([3]float32{c[0], c[1], c[2]})
			m.Opacity = c[3]
		}
		if pbr.BaseColorTexture != nil {
			binder.Bind(pbr.BaseColorTexture, "rgb", model.MapDiffuse)
			binder.Bind(pbr.BaseColorTexture, "a", model.MapOpacity)
		}
		m.UseMetalness = true
		m.Specular = mgl32.Vec3{1, 1, 1}
		m.Metalness = common.ValueOr(pbr.MetallicFactor, 1)
		m.Gloss = common.ValueOr(pbr.RoughnessFactor, 1)
		m.GlossInvert = true
		if pbr.MetallicRoughnessTexture != nil {
			binder.Bind(pbr.MetallicRoughnessTexture, "b", model.MapMetalness)
			binder.Bind(pbr.MetallicRoughnessTexture, "g", model.MapGloss)
		}
	}

	if gm.NormalTexture != nil {
		binder.Bind(gm.NormalTexture, "", model.MapNormal)
		m.Bumpiness = common.ValueOr(gm.NormalTexture.Scale, m.Bumpiness)
	}
	if gm.OcclusionTexture != nil {
		binder.Bind(gm.OcclusionTexture, "r", model.MapAO)
	}

	if gm.EmissiveFactor != nil {
		m.Emissive = common.Gamma(*gm.EmissiveFactor)
		m.EmissiveTint = true
	}
	if gm.EmissiveTexture != nil {
		binder.Bind(gm.EmissiveTexture, "", model.MapEmissive)
	}

	switch gm.AlphaMode {
	case "MASK":
		m.Blend = model.BlendNone
		m.AlphaTest = common.ValueOr(gm.AlphaCutoff, defaultAlphaCutoff)
	case "BLEND":
		m.Blend = model.BlendNormal
		m.DepthWrite = false
	default:
		m.Blend = model.BlendNone
	}

	m.TwoSidedLighting = gm.DoubleSided
	m.Cull = wgpu.CullModeBack
	if gm.DoubleSided {
		m.Cull = wgpu.CullModeNone
	}

	if err := e.applyExtensions(gm, m, binder); err != nil {
		return nil, fmt.Errorf("material %q: %w", gm.Name, err)
	}
	return m, nil
}

// applyExtensions runs the registered handler of each extension in name order. Unknown extensions are skipped.
func (e *gltfMaterialExtractorImpl) applyExtensions(gm *gltfMaterial, m *model.Material, binder MapBinder) error {
	names := make([]string, 0, len(gm.Extensions))
	for name := range gm.Extensions {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		handler, ok := e.handlers[name]
		if !ok {
			e.logger.Debug("skipping material extension", "extension", name, "material", gm.Name)
			continue
		}
		if err := handler(gm.Extensions[name], m, binder); err != nil {
			return fmt.Errorf("%w: extension %s: %v", ErrInvalidJSON, name, err)
		}
		m.Extensions = append(m.Extensions, name)
	}
	return nil
}

// --- Binder ---

// materialBinder binds texture references of one material.
type materialBinder struct {
	extractor *gltfMaterialExtractorImpl
	material  *model.Material
}

var _ MapBinder = &materialBinder{}

func (b *materialBinder) Bind(info *TextureInfo, channel string, slots ...model.MapSlot) {
	if info == nil {
		return
	}
	if info.Index < 0 || info.Index >= len(b.extractor.doc.Textures) {
		b.extractor.logger.Warn("material references missing texture", "material", b.material.Name, "texture", info.Index)
		return
	}

	var transform gltfTextureTransform
	hasTransform, err := info.Extensions.decode(extTextureTransform, &transform)
	if err != nil {
		b.extractor.logger.Warn("ignoring malformed texture transform", "material", b.material.Name, "err", err)
		hasTransform = false
	}

	for _, slot := range slots {
		tm := b.material.SetMap(slot, info.Index, channel)
		tm.UV = info.TexCoord
		if hasTransform {
			applyTextureTransform(tm, &transform)
		}
		if slices.Contains(srgbSlots, slot) {
			b.extractor.srgb[info.Index] = true
		}
	}
}

// applyTextureTransform maps KHR_texture_transform onto a binding. glTF UV space has V pointing down,
// so the offset is mirrored.
func applyTextureTransform(tm *model.TextureMap, t *gltfTextureTransform) {
	offset := common.ValueOr(t.Offset, [2]float32{0, 0})
	scale := common.ValueOr(t.Scale, [2]float32{1, 1})

	tm.Tiling = mgl32.Vec2{scale[0], scale[1]}
	tm.Offset = mgl32.Vec2{offset[0], 1 - scale[1] - offset[1]}
	if t.Rotation != nil {
		tm.Rotation = mgl32.RadToDeg(-*t.Rotation)
	}
	if t.TexCoord != nil {
		tm.UV = *t.TexCoord
	}
}
