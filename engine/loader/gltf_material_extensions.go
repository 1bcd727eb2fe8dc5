package loader

import (
	"encoding/json"
	"maps"
	"sync"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"github.com/go-gl/mathgl/mgl32"
)

// MapBinder binds material textures to slots, applying texCoord and KHR_texture_transform.
type MapBinder interface {
	// Bind assigns the referenced texture to every slot with the same channel and transform.
	// References to missing textures are skipped.
	//
	// Parameters:
	//   - info: the texture reference
	//   - channel: the sampled channels, "" when the slot samples all of them
	//   - slots: the material slots receiving the texture
	Bind(info *TextureInfo, channel string, slots ...model.MapSlot)
}

// MaterialExtensionHandler applies one material extension object to a material.
type MaterialExtensionHandler func(data json.RawMessage, m *model.Material, binder MapBinder) error

var (
	materialExtensionsMu sync.RWMutex
	materialExtensions   = map[string]MaterialExtensionHandler{
		"KHR_materials_clearcoat":             extensionClearCoat,
		"KHR_materials_emissive_strength":     extensionEmissiveStrength,
		"KHR_materials_ior":                   extensionIOR,
		"KHR_materials_dispersion":            extensionDispersion,
		"KHR_materials_iridescence":           extensionIridescence,
		"KHR_materials_pbrSpecularGlossiness": extensionPbrSpecGlossiness,
		"KHR_materials_sheen":                 extensionSheen,
		"KHR_materials_specular":              extensionSpecular,
		"KHR_materials_transmission":          extensionTransmission,
		"KHR_materials_unlit":                 extensionUnlit,
		"KHR_materials_volume":                extensionVolume,
	}
)

// RegisterMaterialExtension installs a process-wide handler for a material extension, replacing any
// handler registered under the same name. Loaders snapshot the registry when they are created.
//
// Parameters:
//   - name: the extension name, e.g. "KHR_materials_anisotropy"
//   - handler: the handler
func RegisterMaterialExtension(name string, handler MaterialExtensionHandler) {
	materialExtensionsMu.Lock()
	defer materialExtensionsMu.Unlock()
	materialExtensions[name] = handler
}

// materialExtensionHandlers snapshots the process-wide registry.
func materialExtensionHandlers() map[string]MaterialExtensionHandler {
	materialExtensionsMu.RLock()
	defer materialExtensionsMu.RUnlock()
	return maps.Clone(materialExtensions)
}

// knownExtensions reports the extensions the loader handles anywhere in the pipeline.
func knownExtensions(handlers map[string]MaterialExtensionHandler) func(string) bool {
	return func(name string) bool {
		switch name {
		case extDracoMeshCompression, extLightsPunctual, extMaterialsVariants,
			extTextureTransform, extTextureBasisu, extTextureWebp, extMeshQuantization:
			return true
		}
		_, ok := handlers[name]
		return ok
	}
}

// gammaColor converts a linear color factor for the material.
func gammaColor(c *[3]float32, def mgl32.Vec3) mgl32.Vec3 {
	if c == nil {
		return def
	}
	return common.Gamma(*c)
}

// --- Handlers ---

func extensionClearCoat(data json.RawMessage, m *model.Material, binder MapBinder) error {
	var ext struct {
		ClearcoatFactor           *float32     `json:"clearcoatFactor"`
		ClearcoatTexture          *TextureInfo `json:"clearcoatTexture"`
		ClearcoatRoughnessFactor  *float32     `json:"clearcoatRoughnessFactor"`
		ClearcoatRoughnessTexture *TextureInfo `json:"clearcoatRoughnessTexture"`
		ClearcoatNormalTexture    *TextureInfo `json:"clearcoatNormalTexture"`
	}
	if err := json.Unmarshal(data, &ext); err != nil {
		return err
	}
	// scaled to match the reference clear coat look
	m.ClearCoat = common.ValueOr(ext.ClearcoatFactor, 0) * 0.25
	if ext.ClearcoatTexture != nil {
		binder.Bind(ext.ClearcoatTexture, "r", model.MapClearCoat)
	}
	m.ClearCoatGloss = common.ValueOr(ext.ClearcoatRoughnessFactor, 0)
	if ext.ClearcoatRoughnessTexture != nil {
		binder.Bind(ext.ClearcoatRoughnessTexture, "g", model.MapClearCoatGloss)
	}
	if ext.ClearcoatNormalTexture != nil {
		binder.Bind(ext.ClearcoatNormalTexture, "", model.MapClearCoatNormal)
		m.ClearCoatBumpiness = common.ValueOr(ext.ClearcoatNormalTexture.Scale, m.ClearCoatBumpiness)
	}
	m.ClearCoatGlossInvert = true
	return nil
}

func extensionEmissiveStrength(data json.RawMessage, m *model.Material, _ MapBinder) error {
	var ext struct {
		EmissiveStrength *float32 `json:"emissiveStrength"`
	}
	if err := json.Unmarshal(data, &ext); err != nil {
		return err
	}
	m.EmissiveIntensity = common.ValueOr(ext.EmissiveStrength, m.EmissiveIntensity)
	return nil
}

func extensionIOR(data json.RawMessage, m *model.Material, _ MapBinder) error {
	var ext struct {
		IOR *float32 `json:"ior"`
	}
	if err := json.Unmarshal(data, &ext); err != nil {
		return err
	}
	if ext.IOR != nil {
		m.RefractionIndex = 1 / *ext.IOR
	}
	return nil
}

func extensionDispersion(data json.RawMessage, m *model.Material, _ MapBinder) error {
	var ext struct {
		Dispersion *float32 `json:"dispersion"`
	}
	if err := json.Unmarshal(data, &ext); err != nil {
		return err
	}
	m.Dispersion = common.ValueOr(ext.Dispersion, m.Dispersion)
	return nil
}

func extensionIridescence(data json.RawMessage, m *model.Material, binder MapBinder) error {
	var ext struct {
		Factor           *float32     `json:"iridescenceFactor"`
		Texture          *TextureInfo `json:"iridescenceTexture"`
		IOR              *float32     `json:"iridescenceIor"`
		ThicknessMin     *float32     `json:"iridescenceThicknessMinimum"`
		ThicknessMax     *float32     `json:"iridescenceThicknessMaximum"`
		ThicknessTexture *TextureInfo `json:"iridescenceThicknessTexture"`
	}
	if err := json.Unmarshal(data, &ext); err != nil {
		return err
	}
	m.UseIridescence = true
	m.Iridescence = common.ValueOr(ext.Factor, m.Iridescence)
	if ext.Texture != nil {
		binder.Bind(ext.Texture, "r", model.MapIridescence)
	}
	m.IridescenceRefractionIndex = common.ValueOr(ext.IOR, m.IridescenceRefractionIndex)
	m.IridescenceThicknessMin = common.ValueOr(ext.ThicknessMin, m.IridescenceThicknessMin)
	m.IridescenceThicknessMax = common.ValueOr(ext.ThicknessMax, m.IridescenceThicknessMax)
	if ext.ThicknessTexture != nil {
		binder.Bind(ext.ThicknessTexture, "g", model.MapIridescenceThickness)
	}
	return nil
}

func extensionPbrSpecGlossiness(data json.RawMessage, m *model.Material, binder MapBinder) error {
	var ext struct {
		DiffuseFactor             *[4]float32  `json:"diffuseFactor"`
		DiffuseTexture            *TextureInfo `json:"diffuseTexture"`
		SpecularFactor            *[3]float32  `json:"specularFactor"`
		GlossinessFactor          *float32     `json:"glossinessFactor"`
		SpecularGlossinessTexture *TextureInfo `json:"specularGlossinessTexture"`
	}
	if err := json.Unmarshal(data, &ext); err != nil {
		return err
	}
	m.Diffuse, m.Opacity = mgl32.Vec3{1, 1, 1}, 1
	if c := ext.DiffuseFactor; c != nil {
		m.Diffuse = common.Gamma([3]float32{c[0], c[1], c[2]})
		m.Opacity = c[3]
	}
	if ext.DiffuseTexture != nil {
		binder.Bind(ext.DiffuseTexture, "rgb", model.MapDiffuse)
		binder.Bind(ext.DiffuseTexture, "a", model.MapOpacity)
	}
	m.UseMetalness = false
	m.Specular = gammaColor(ext.SpecularFactor, mgl32.Vec3{1, 1, 1})
	m.Gloss = common.ValueOr(ext.GlossinessFactor, 1)
	if ext.SpecularGlossinessTexture != nil {
		binder.Bind(ext.SpecularGlossinessTexture, "rgb", model.MapSpecular)
		binder.Bind(ext.SpecularGlossinessTexture, "a", model.MapGloss)
	}
	return nil
}

func extensionSheen(data json.RawMessage, m *model.Material, binder MapBinder) error {
	var ext struct {
		ColorFactor      *[3]float32  `json:"sheenColorFactor"`
		ColorTexture     *TextureInfo `json:"sheenColorTexture"`
		RoughnessFactor  *float32     `json:"sheenRoughnessFactor"`
		RoughnessTexture *TextureInfo `json:"sheenRoughnessTexture"`
	}
	if err := json.Unmarshal(data, &ext); err != nil {
		return err
	}
	m.UseSheen = true
	m.Sheen = gammaColor(ext.ColorFactor, mgl32.Vec3{1, 1, 1})
	if ext.ColorTexture != nil {
		binder.Bind(ext.ColorTexture, "", model.MapSheen)
	}
	m.SheenGloss = common.ValueOr(ext.RoughnessFactor, 0)
	if ext.RoughnessTexture != nil {
		binder.Bind(ext.RoughnessTexture, "a", model.MapSheenGloss)
	}
	m.SheenGlossInvert = true
	return nil
}

func extensionSpecular(data json.RawMessage, m *model.Material, binder MapBinder) error {
	var ext struct {
		ColorTexture *TextureInfo `json:"specularColorTexture"`
		ColorFactor  *[3]float32  `json:"specularColorFactor"`
		Factor       *float32     `json:"specularFactor"`
		Texture      *TextureInfo `json:"specularTexture"`
	}
	if err := json.Unmarshal(data, &ext); err != nil {
		return err
	}
	m.UseMetalnessSpecularColor = true
	if ext.ColorTexture != nil {
		binder.Bind(ext.ColorTexture, "rgb", model.MapSpecular)
	}
	m.Specular = gammaColor(ext.ColorFactor, mgl32.Vec3{1, 1, 1})
	m.SpecularityFactor = common.ValueOr(ext.Factor, 1)
	if ext.Texture != nil {
		binder.Bind(ext.Texture, "a", model.MapSpecularityFactor)
	}
	return nil
}

func extensionTransmission(data json.RawMessage, m *model.Material, binder MapBinder) error {
	var ext struct {
		Factor  *float32     `json:"transmissionFactor"`
		Texture *TextureInfo `json:"transmissionTexture"`
	}
	if err := json.Unmarshal(data, &ext); err != nil {
		return err
	}
	m.Blend = model.BlendNormal
	m.UseDynamicRefraction = true
	m.Refraction = common.ValueOr(ext.Factor, m.Refraction)
	if ext.Texture != nil {
		binder.Bind(ext.Texture, "r", model.MapRefraction)
	}
	return nil
}

// extensionUnlit moves the base color into emission and turns lighting off.
func extensionUnlit(_ json.RawMessage, m *model.Material, _ MapBinder) error {
	m.Emissive = m.Diffuse
	if diffuse := m.Maps[model.MapDiffuse]; diffuse != nil {
		emissive := *diffuse
		m.Maps[model.MapEmissive] = &emissive
		delete(m.Maps, model.MapDiffuse)
	}
	m.UseLighting = false
	m.UseSkybox = false
	m.Diffuse = mgl32.Vec3{1, 1, 1}
	return nil
}

func extensionVolume(data json.RawMessage, m *model.Material, binder MapBinder) error {
	var ext struct {
		ThicknessFactor     *float32     `json:"thicknessFactor"`
		ThicknessTexture    *TextureInfo `json:"thicknessTexture"`
		AttenuationDistance *float32     `json:"attenuationDistance"`
		AttenuationColor    *[3]float32  `json:"attenuationColor"`
	}
	if err := json.Unmarshal(data, &ext); err != nil {
		return err
	}
	m.Blend = model.BlendNormal
	m.UseDynamicRefraction = true
	m.Thickness = common.ValueOr(ext.ThicknessFactor, m.Thickness)
	if ext.ThicknessTexture != nil {
		binder.Bind(ext.ThicknessTexture, "g", model.MapThickness)
	}
	m.AttenuationDistance = common.ValueOr(ext.AttenuationDistance, m.AttenuationDistance)
	m.Attenuation = gammaColor(ext.AttenuationColor, m.Attenuation)
	return nil
}
