package loader

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const materialsDoc = `{
	"asset": {"version": "2.0"},
	"images": [{"uri": "data:image/png;base64,AAAA"}],
	"samplers": [{"magFilter": 9728, "minFilter": 9729, "wrapS": 33071, "wrapT": 33648}],
	"textures": [{"source": 0, "sampler": 0}, {"source": 0}, {"source": 0}],
	"materials": [
		{
			"name": "painted",
			"pbrMetallicRoughness": {
				"baseColorFactor": [1, 0.5, 0.25, 0.5],
				"baseColorTexture": {"index": 0, "texCoord": 1, "extensions": {"KHR_texture_transform": {
					"offset": [0.25, 0.5], "scale": [2, 0.5], "rotation": 1.5707964
				}}},
				"metallicFactor": 0.25,
				"metallicRoughnessTexture": {"index": 1}
			},
			"normalTexture": {"index": 1, "scale": 0.5},
			"occlusionTexture": {"index": 1},
			"emissiveFactor": [1, 1, 1],
			"emissiveTexture": {"index": 2},
			"alphaMode": "MASK",
			"doubleSided": true
		},
		{
			"name": "glass",
			"alphaMode": "BLEND",
			"extensions": {
				"KHR_materials_transmission": {"transmissionFactor": 0.75},
				"KHR_materials_ior": {"ior": 1.25},
				"KHR_materials_emissive_strength": {"emissiveStrength": 4},
				"VENDOR_unknown": {}
			}
		},
		{
			"name": "flat",
			"pbrMetallicRoughness": {"baseColorTexture": {"index": 0}},
			"extensions": {"KHR_materials_unlit": {}}
		},
		{"name": "missing", "pbrMetallicRoughness": {"baseColorTexture": {"index": 9}}}
	]
}`

func TestExtractMaterials(t *testing.T) {
	bundle := importJSON(t, materialsDoc)
	require.Len(t, bundle.Materials, 4)

	painted := bundle.Materials[0]
	assert.Equal(t, common.Gamma([3]float32{1, 0.5, 0.25}), painted.Diffuse)
	assert.Equal(t, float32(0.5), painted.Opacity)
	assert.True(t, painted.UseMetalness)
	assert.Equal(t, float32(0.25), painted.Metalness)
	assert.Equal(t, float32(1), painted.Gloss)
	assert.True(t, painted.GlossInvert)
	assert.Equal(t, float32(0.5), painted.Bumpiness)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, painted.Emissive)
	assert.True(t, painted.EmissiveTint)
	assert.Equal(t, model.BlendNone, painted.Blend)
	assert.Equal(t, float32(defaultAlphaCutoff), painted.AlphaTest)
	assert.Equal(t, wgpu.CullModeNone, painted.Cull)
	assert.True(t, painted.TwoSidedLighting)

	diffuse := painted.Map(model.MapDiffuse)
	require.NotNil(t, diffuse)
	assert.Equal(t, 0, diffuse.Texture)
	assert.Equal(t, "rgb", diffuse.Channel)
	assert.Equal(t, 1, diffuse.UV)
	assert.Equal(t, mgl32.Vec2{2, 0.5}, diffuse.Tiling)
	assert.Equal(t, mgl32.Vec2{0.25, 0}, diffuse.Offset)
	assert.InDelta(t, -90, diffuse.Rotation, 1e-3)
	assert.Equal(t, "a", painted.Map(model.MapOpacity).Channel)
	assert.Equal(t, "b", painted.Map(model.MapMetalness).Channel)
	assert.Equal(t, "g", painted.Map(model.MapGloss).Channel)
	assert.Equal(t, "r", painted.Map(model.MapAO).Channel)
	assert.Equal(t, 1, painted.Map(model.MapNormal).Texture)
	assert.Equal(t, 2, painted.Map(model.MapEmissive).Texture)

	glass := bundle.Materials[1]
	assert.Equal(t, model.BlendNormal, glass.Blend)
	assert.False(t, glass.DepthWrite)
	assert.True(t, glass.UseDynamicRefraction)
	assert.Equal(t, float32(0.75), glass.Refraction)
	assert.InDelta(t, 0.8, glass.RefractionIndex, 1e-6)
	assert.Equal(t, float32(4), glass.EmissiveIntensity)
	assert.Equal(t, []string{
		"KHR_materials_emissive_strength", "KHR_materials_ior", "KHR_materials_transmission",
	}, glass.Extensions)

	flat := bundle.Materials[2]
	assert.False(t, flat.UseLighting)
	assert.Nil(t, flat.Map(model.MapDiffuse))
	require.NotNil(t, flat.Map(model.MapEmissive))
	assert.Equal(t, "rgb", flat.Map(model.MapEmissive).Channel)

	assert.Empty(t, bundle.Materials[3].Maps, "references to missing textures are skipped")

	require.Len(t, bundle.Textures, 3)
	assert.True(t, bundle.Textures[0].SRGB)
	assert.False(t, bundle.Textures[1].SRGB)
	assert.True(t, bundle.Textures[2].SRGB)
	require.Len(t, bundle.Images, 1)
	assert.True(t, bundle.Images[0].SRGB)
	assert.Equal(t, "image/png", bundle.Images[0].MimeType)
	assert.Nil(t, bundle.Images[0].Decoded)
}

func TestMaterialExtensionError(t *testing.T) {
	_, err := importGLB(t, encodeGLB(`{
		"asset": {"version": "2.0"},
		"materials": [{"name": "bad", "extensions": {"KHR_materials_ior": {"ior": "high"}}}]
	}`, nil), DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidJSON)
	assert.ErrorContains(t, err, "KHR_materials_ior")
}

func TestCustomMaterialExtension(t *testing.T) {
	handlers := materialExtensionHandlers()
	handlers["VENDOR_tint"] = func(data json.RawMessage, m *model.Material, binder MapBinder) error {
		var ext struct {
			Tint    [3]float32   `json:"tint"`
			Texture *TextureInfo `json:"texture"`
		}
		if err := json.Unmarshal(data, &ext); err != nil {
			return err
		}
		m.Diffuse = mgl32.Vec3(ext.Tint)
		binder.Bind(ext.Texture, "rgb", model.MapSheen, model.MapSpecular)
		return nil
	}
	handlers["VENDOR_broken"] = func(json.RawMessage, *model.Material, MapBinder) error {
		return errors.New("broken")
	}

	imp := newGLTFImporter(DefaultConfig(), nil, nil, nil, handlers, nil, nil, testLogger())
	bundle, err := imp.Import(context.Background(), "tint.glb", "", encodeGLB(`{
		"asset": {"version": "2.0"},
		"extensionsRequired": ["VENDOR_tint", "VENDOR_other"],
		"images": [{"uri": "data:image/png;base64,AAAA"}],
		"textures": [{"source": 0}],
		"materials": [{"extensions": {"VENDOR_tint": {"tint": [0.5, 0.5, 0.5], "texture": {"index": 0}}}}]
	}`, nil))
	require.NoError(t, err)

	m := bundle.Materials[0]
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, m.Diffuse)
	assert.Equal(t, 0, m.Map(model.MapSheen).Texture)
	assert.Equal(t, 0, m.Map(model.MapSpecular).Texture)
	assert.NotSame(t, m.Map(model.MapSheen), m.Map(model.MapSpecular))
	assert.True(t, bundle.Textures[0].SRGB)

	require.Len(t, bundle.Diagnostics, 1)
	assert.Equal(t, model.DiagnosticUnsupportedExtension, bundle.Diagnostics[0].Kind)
	assert.Contains(t, bundle.Diagnostics[0].Message, "VENDOR_other")

	_, err = imp.Import(context.Background(), "broken.glb", "", encodeGLB(`{
		"asset": {"version": "2.0"},
		"materials": [{"extensions": {"VENDOR_broken": {}}}]
	}`, nil))
	assert.ErrorContains(t, err, "broken")
}

func TestApplyTextureTransform(t *testing.T) {
	texCoord := 2
	tm := &model.TextureMap{Tiling: mgl32.Vec2{1, 1}}
	applyTextureTransform(tm, &gltfTextureTransform{TexCoord: &texCoord})
	assert.Equal(t, mgl32.Vec2{1, 1}, tm.Tiling)
	assert.Equal(t, mgl32.Vec2{0, 0}, tm.Offset)
	assert.Zero(t, tm.Rotation)
	assert.Equal(t, 2, tm.UV)
}
