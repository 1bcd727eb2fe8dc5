package loader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func importJSON(t *testing.T, doc string) *model.ResourceBundle {
	t.Helper()
	bundle, err := importGLB(t, encodeGLB(doc, nil), DefaultConfig())
	require.NoError(t, err)
	return bundle
}

func TestExtractNodes(t *testing.T) {
	bundle := importJSON(t, `{
		"asset": {"version": "2.0"},
		"nodes": [
			{"name": "root", "children": [1, 2, 3, 0]},
			{"name": "leg"},
			{"name": "leg"},
			{"name": "leg", "children": [1]},
			{"matrix": [2, 0, 0, 0, 0, 2, 0, 0, 0, 0, 2, 0, 1, 2, 3, 1], "translation": [9, 9, 9]}
		],
		"scenes": [{"nodes": [0]}]
	}`)

	require.Len(t, bundle.Nodes, 5)
	assert.Equal(t, []string{"root", "leg", "leg1", "leg2", "node_4"}, []string{
		bundle.Nodes[0].Name, bundle.Nodes[1].Name, bundle.Nodes[2].Name, bundle.Nodes[3].Name, bundle.Nodes[4].Name,
	})
	assert.Equal(t, []int{1, 2, 3}, bundle.Nodes[0].Children, "self reference is skipped")
	assert.Equal(t, 0, bundle.Nodes[1].Parent, "first parent wins")
	assert.Empty(t, bundle.Nodes[3].Children)

	m := bundle.Nodes[4]
	assert.Equal(t, mgl32.Vec3{9, 9, 9}, m.Translation, "explicit translation overrides the matrix")
	assert.InDelta(t, 2, m.Scale[0], 1e-5)
	assert.InDelta(t, 1, m.Rotation.W, 1e-5)

	assert.Equal(t, []int{0}, bundle.Scenes)
	assert.Equal(t, 0, bundle.Root())
	assert.Equal(t, []string{"root", "leg2"}, bundle.NodePath(3))
}

func TestExtractNodesRejectsMissingChild(t *testing.T) {
	_, err := importGLB(t, encodeGLB(`{
		"asset": {"version": "2.0"},
		"nodes": [{"children": [4]}]
	}`, nil), DefaultConfig())
	assert.ErrorIs(t, err, errIndexOutOfRange)
}

func TestExtractScenes(t *testing.T) {
	bundle := importJSON(t, `{
		"asset": {"version": "2.0"},
		"scene": 1,
		"nodes": [{"name": "a"}, {"name": "b"}, {"name": "c"}],
		"scenes": [
			{"name": "main", "nodes": [0, 1]},
			{"nodes": [2]},
			{"nodes": []}
		]
	}`)

	require.Len(t, bundle.Scenes, 3)
	main := bundle.Node(bundle.Scenes[0])
	require.NotNil(t, main)
	assert.Equal(t, "main", main.Name)
	assert.True(t, main.Synthetic)
	assert.Equal(t, []int{0, 1}, main.Children)

	second := bundle.Node(bundle.Scenes[1])
	assert.Equal(t, "scene_1", second.Name)
	assert.Equal(t, []int{2}, second.Children)

	assert.Equal(t, -1, bundle.Scenes[2])
	assert.Equal(t, 1, bundle.Scene)
	assert.Equal(t, bundle.Scenes[1], bundle.Root())
}

func TestImplicitScene(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantRoots int
		synthetic bool
	}{
		{"no nodes", `{"asset": {"version": "2.0"}}`, 0, false},
		{"single root", `{"asset": {"version": "2.0"}, "nodes": [{"children": [1]}, {}]}`, 1, false},
		{"several roots", `{"asset": {"version": "2.0"}, "nodes": [{}, {}, {}]}`, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle := importJSON(t, tt.doc)
			assert.Len(t, bundle.Scenes, tt.wantRoots)
			if tt.wantRoots == 0 {
				assert.Equal(t, -1, bundle.Root())
				return
			}
			root := bundle.Node(bundle.Root())
			require.NotNil(t, root)
			assert.Equal(t, tt.synthetic, root.Synthetic)
			if tt.synthetic {
				assert.Equal(t, "scene_0", root.Name)
				assert.Equal(t, []int{0, 1, 2}, root.Children)
			}
		})
	}
}

func TestExtractCameras(t *testing.T) {
	bundle := importJSON(t, `{
		"asset": {"version": "2.0"},
		"cameras": [
			{"type": "perspective", "perspective": {"yfov": 1.0, "znear": 0.1, "zfar": 100, "aspectRatio": 1.5}},
			{"name": "top", "type": "orthographic", "orthographic": {"xmag": 2, "ymag": 1, "znear": 0.01, "zfar": 10}}
		],
		"nodes": [
			{"name": "eye", "camera": 0},
			{"name": "above", "camera": 1},
			{"name": "broken", "camera": 7}
		]
	}`)

	require.Len(t, bundle.Cameras, 2)
	persp := bundle.Cameras[0]
	assert.Equal(t, model.ProjectionPerspective, persp.Projection)
	assert.InDelta(t, 57.29578, persp.FOV, 1e-3)
	assert.Equal(t, model.AspectManual, persp.AspectRatioMode)
	assert.Equal(t, float32(1.5), persp.AspectRatio)
	assert.Equal(t, float32(100), persp.FarClip)

	sat := bundle.Node(persp.Node)
	require.NotNil(t, sat)
	assert.True(t, sat.Synthetic)
	assert.Equal(t, "eye", sat.Name)
	assert.Equal(t, 0, sat.Parent)
	assert.Equal(t, 0, sat.Camera)
	assert.Equal(t, 0, bundle.CameraNodes[0])

	ortho := bundle.Cameras[1]
	assert.Equal(t, model.ProjectionOrthographic, ortho.Projection)
	assert.Equal(t, float32(0.5), ortho.OrthoHeight)
	assert.Equal(t, float32(2), ortho.AspectRatio)
	assert.Equal(t, "top", bundle.Node(ortho.Node).Name)
	assert.Equal(t, 1, bundle.CameraNodes[1])
}

func TestExtractLights(t *testing.T) {
	bundle := importJSON(t, `{
		"asset": {"version": "2.0"},
		"extensionsUsed": ["KHR_lights_punctual"],
		"extensions": {"KHR_lights_punctual": {"lights": [
			{"type": "point", "color": [1, 0, 0], "intensity": 10},
			{"type": "spot", "range": 5},
			{"type": "directional", "name": "sun", "intensity": 1}
		]}},
		"nodes": [
			{"name": "bulb", "extensions": {"KHR_lights_punctual": {"light": 0}}},
			{"name": "torch", "extensions": {"KHR_lights_punctual": {"light": 1}}},
			{"name": "sky", "extensions": {"KHR_lights_punctual": {"light": 2}}}
		]
	}`)

	require.Len(t, bundle.Lights, 3)

	point := bundle.Lights[0]
	assert.Equal(t, model.LightOmni, point.Type)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, point.Color)
	assert.Equal(t, float32(2), point.Intensity, "intensity is clamped")
	assert.InDelta(t, 40*math32.Pi, point.Luminance, 1e-3)
	assert.Equal(t, float32(defaultLightRange), point.Range)

	spot := bundle.Lights[1]
	assert.Equal(t, model.LightSpot, spot.Type)
	assert.Equal(t, float32(defaultOuterConeAngle), spot.OuterConeAngle)
	assert.Zero(t, spot.InnerConeAngle)
	assert.Equal(t, float32(5), spot.Range)
	assert.Zero(t, spot.Luminance, "no declared intensity")

	sun := bundle.Lights[2]
	assert.Equal(t, model.LightDirectional, sun.Type)
	assert.Equal(t, float32(1), sun.Luminance)

	sat := bundle.Node(point.Node)
	require.NotNil(t, sat)
	assert.True(t, sat.Synthetic)
	assert.Equal(t, "bulb", sat.Name)
	assert.Equal(t, 0, sat.Parent)
	assert.Equal(t, 2, bundle.LightNodes[2])

	// a light shining down local -Y ends up shining down the node's -Z
	dir := sat.Rotation.Rotate(mgl32.Vec3{0, -1, 0})
	assert.InDelta(t, 0, dir[1], 1e-5)
	assert.InDelta(t, -1, dir[2], 1e-5)
}

func TestLightUnitConversion(t *testing.T) {
	spot := &model.Light{Type: model.LightSpot, OuterConeAngle: 90}
	assert.InDelta(t, math32.Pi, lightUnitConversion(spot), 1e-5)
	assert.Equal(t, float32(1), lightUnitConversion(&model.Light{Type: model.LightDirectional}))
}
