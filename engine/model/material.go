package model

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// MapSlot names a texture slot on a Material.
type MapSlot string

const (
	MapDiffuse              MapSlot = "diffuse"
	MapOpacity              MapSlot = "opacity"
	MapMetalness            MapSlot = "metalness"
	MapGloss                MapSlot = "gloss"
	MapNormal               MapSlot = "normal"
	MapAO                   MapSlot = "ao"
	MapEmissive             MapSlot = "emissive"
	MapSpecular             MapSlot = "specular"
	MapSpecularityFactor    MapSlot = "specularityFactor"
	MapClearCoat            MapSlot = "clearCoat"
	MapClearCoatGloss       MapSlot = "clearCoatGloss"
	MapClearCoatNormal      MapSlot = "clearCoatNormal"
	MapSheen                MapSlot = "sheen"
	MapSheenGloss           MapSlot = "sheenGloss"
	MapRefraction           MapSlot = "refraction"
	MapThickness            MapSlot = "thickness"
	MapIridescence          MapSlot = "iridescence"
	MapIridescenceThickness MapSlot = "iridescenceThickness"
)

// TextureMap binds a texture to a material slot.
type TextureMap struct {
	// Texture is an index into ResourceBundle.Textures.
	Texture int

	// Channel selects the sampled channels, e.g. "rgb", "a", "g".
	Channel string

	// UV is the texture coordinate set.
	UV int

	Tiling mgl32.Vec2
	Offset mgl32.Vec2

	// Rotation is in degrees.
	Rotation float32
}

// BlendType is the material's blend mode.
type BlendType int

const (
	BlendNone BlendType = iota
	BlendNormal
)

// Material is a standard physically based material record.
type Material struct {
	Name string

	// Maps holds the bound textures per slot.
	Maps map[MapSlot]*TextureMap

	Diffuse mgl32.Vec3
	Opacity float32

	UseMetalness bool
	Metalness    float32
	Gloss        float32
	GlossInvert  bool
	Specular     mgl32.Vec3

	UseMetalnessSpecularColor bool
	SpecularityFactor         float32

	Bumpiness float32

	Emissive          mgl32.Vec3
	EmissiveTint      bool
	EmissiveIntensity float32

	Blend      BlendType
	AlphaTest  float32
	DepthWrite bool

	Cull             wgpu.CullMode
	TwoSidedLighting bool

	UseLighting bool
	UseSkybox   bool

	ClearCoat            float32
	ClearCoatGloss       float32
	ClearCoatGlossInvert bool
	ClearCoatBumpiness   float32

	RefractionIndex      float32
	Dispersion           float32
	Refraction           float32
	UseDynamicRefraction bool
	Thickness            float32
	AttenuationDistance  float32
	Attenuation          mgl32.Vec3

	UseSheen         bool
	Sheen            mgl32.Vec3
	SheenGloss       float32
	SheenGlossInvert bool

	UseIridescence             bool
	Iridescence                float32
	IridescenceRefractionIndex float32
	IridescenceThicknessMin    float32
	IridescenceThicknessMax    float32

	// Extensions lists the material extensions that were applied, in application order.
	Extensions []string
}

// NewMaterial creates a material with the renderer's defaults.
//
// Parameters:
//   - name: the material name
//
// Returns:
//   - *Material: the material
func NewMaterial(name string) *Material {
	return &Material{
		Name:                       name,
		Maps:                       make(map[MapSlot]*TextureMap),
		Diffuse:                    mgl32.Vec3{1, 1, 1},
		Opacity:                    1,
		UseMetalness:               false,
		Gloss:                      0.25,
		Specular:                   mgl32.Vec3{0, 0, 0},
		SpecularityFactor:          1,
		Bumpiness:                  1,
		EmissiveIntensity:          1,
		DepthWrite:                 true,
		Cull:                       wgpu.CullModeBack,
		UseLighting:                true,
		UseSkybox:                  true,
		ClearCoatBumpiness:         1,
		RefractionIndex:            1.0 / 1.5,
		IridescenceRefractionIndex: 1.0 / 1.5,
		IridescenceThicknessMin:    100,
		IridescenceThicknessMax:    400,
		Sheen:                      mgl32.Vec3{0, 0, 0},
		Attenuation:                mgl32.Vec3{1, 1, 1},
	}
}

// Map returns the texture bound to a slot, or nil.
func (m *Material) Map(slot MapSlot) *TextureMap {
	return m.Maps[slot]
}

// SetMap binds a texture to a slot with default transform and returns the binding for further edits.
//
// Parameters:
//   - slot: the slot to bind
//   - texture: the texture index
//   - channel: the sampled channels
//
// Returns:
//   - *TextureMap: the new binding
func (m *Material) SetMap(slot MapSlot, texture int, channel string) *TextureMap {
	tm := &TextureMap{
		Texture: texture,
		Channel: channel,
		Tiling:  mgl32.Vec2{1, 1},
	}
	m.Maps[slot] = tm
	return tm
}
