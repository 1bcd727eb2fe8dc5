package loader

import (
	"fmt"
	"strconv"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"github.com/charmbracelet/log"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// defaultLightRange replaces an undefined (infinite) range.
	defaultLightRange = 9999

	// defaultOuterConeAngle is in degrees.
	defaultOuterConeAngle = 45
)

// gltfSceneExtractorImpl is the implementation of the gltfSceneExtractor interface.
type gltfSceneExtractorImpl struct {
	doc    *gltfDocument
	bundle *model.ResourceBundle
	logger *log.Logger
}

// gltfSceneExtractor builds the node arena, the scene roots and the camera and light components.
type gltfSceneExtractor interface {
	// ExtractNodes appends one node per glTF node (arena index == glTF index) and links children.
	// A child that already has a parent is not linked again; duplicate sibling names get a numeric suffix.
	//
	// Returns:
	//   - error: error if a child index is out of range
	ExtractNodes() error

	// ExtractScenes resolves one root node per scene, creating synthetic roots where a scene has several nodes.
	//
	// Returns:
	//   - error: error if a scene references a missing node
	ExtractScenes() error

	// ExtractCameras attaches a camera satellite node to every node that references a camera.
	ExtractCameras()

	// ExtractLights attaches a light satellite node to every node that references a KHR_lights_punctual light.
	//
	// Returns:
	//   - error: error if the light extension objects are malformed
	ExtractLights() error
}

var _ gltfSceneExtractor = &gltfSceneExtractorImpl{}

// newGLTFSceneExtractor creates a scene extractor writing into bundle.
//
// Parameters:
//   - doc: the document
//   - bundle: the bundle under construction
//   - logger: the load logger
//
// Returns:
//   - gltfSceneExtractor: the scene extractor
func newGLTFSceneExtractor(doc *gltfDocument, bundle *model.ResourceBundle, logger *log.Logger) gltfSceneExtractor {
	return &gltfSceneExtractorImpl{doc: doc, bundle: bundle, logger: logger}
}

// --- Nodes ---

func (e *gltfSceneExtractorImpl) ExtractNodes() error {
	for i := range e.doc.Nodes {
		e.bundle.AddNode(e.createNode(&e.doc.Nodes[i], i))
	}

	for i, gn := range e.doc.Nodes {
		seen := make(map[string]int)
		for _, c := range gn.Children {
			child := e.bundle.Node(c)
			if child == nil || c >= len(e.doc.Nodes) {
				return fmt.Errorf("node %d child %d: %w", i, c, errIndexOutOfRange)
			}
			if child.Parent >= 0 || c == i {
				continue
			}
			if n, ok := seen[child.Name]; ok {
				seen[child.Name] = n + 1
				child.Name += strconv.Itoa(n)
			} else {
				seen[child.Name] = 1
			}
			if err := e.bundle.AddChild(i, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// createNode converts the transform of a glTF node. Explicit TRS fields override a matrix.
func (e *gltfSceneExtractorImpl) createNode(gn *gltfNode, index int) *model.Node {
	node := model.NewNode(common.Coalesce(gn.Name, "node_"+strconv.Itoa(index)))

	if gn.Matrix != nil {
		node.Translation, node.Rotation, node.Scale = common.DecomposeMatrix(mgl32.Mat4(*gn.Matrix))
	}
	if r := gn.Rotation; r != nil {
		node.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	}
	if t := gn.Translation; t != nil {
		node.Translation = mgl32.Vec3(*t)
	}
	if s := gn.Scale; s != nil {
		node.Scale = mgl32.Vec3(*s)
	}
	if gn.Mesh != nil {
		node.Mesh = *gn.Mesh
	}
	if gn.Skin != nil {
		node.Skin = *gn.Skin
	}
	return node
}

// --- Scenes ---

func (e *gltfSceneExtractorImpl) ExtractScenes() error {
	doc := e.doc
	e.bundle.Scene = common.ValueOr(doc.Scene, 0)

	if len(doc.Scenes) == 0 {
		return e.implicitScene()
	}

	if len(doc.Scenes) == 1 && len(doc.Scenes[0].Nodes) == 1 {
		root := doc.Scenes[0].Nodes[0]
		if e.bundle.Node(root) == nil {
			return fmt.Errorf("scene 0 node %d: %w", root, errIndexOutOfRange)
		}
		e.bundle.Scenes = []int{root}
		return nil
	}

	e.bundle.Scenes = make([]int, len(doc.Scenes))
	for i, scene := range doc.Scenes {
		if len(scene.Nodes) == 0 {
			e.bundle.Scenes[i] = -1
			continue
		}
		name := common.Coalesce(scene.Name, "scene_"+strconv.Itoa(i))
		root, err := e.syntheticRoot(name, scene.Nodes)
		if err != nil {
			return fmt.Errorf("scene %d: %w", i, err)
		}
		e.bundle.Scenes[i] = root
	}
	return nil
}

// implicitScene builds the default scene of a document without scenes from its parentless nodes.
func (e *gltfSceneExtractorImpl) implicitScene() error {
	e.bundle.Scene = 0
	var roots []int
	for i := range e.doc.Nodes {
		if e.bundle.Nodes[i].Parent < 0 {
			roots = append(roots, i)
		}
	}
	switch len(roots) {
	case 0:
		e.bundle.Scenes = nil
	case 1:
		e.bundle.Scenes = []int{roots[0]}
	default:
		root, err := e.syntheticRoot("scene_0", roots)
		if err != nil {
			return err
		}
		e.bundle.Scenes = []int{root}
	}
	return nil
}

// syntheticRoot appends a root node parenting nodes.
func (e *gltfSceneExtractorImpl) syntheticRoot(name string, nodes []int) (int, error) {
	root := model.NewNode(name)
	root.Synthetic = true
	idx := e.bundle.AddNode(root)
	for _, n := range nodes {
		if n < 0 || n >= len(e.doc.Nodes) {
			return -1, fmt.Errorf("node %d: %w", n, errIndexOutOfRange)
		}
		if e.bundle.Nodes[n].Parent >= 0 {
			e.logger.Warn("scene node already has a parent", "node", e.bundle.Nodes[n].Name, "scene", name)
			continue
		}
		if err := e.bundle.AddChild(idx, n); err != nil {
			return -1, err
		}
	}
	return idx, nil
}

// --- Cameras ---

func (e *gltfSceneExtractorImpl) ExtractCameras() {
	for i, gn := range e.doc.Nodes {
		if gn.Camera == nil {
			continue
		}
		if *gn.Camera < 0 || *gn.Camera >= len(e.doc.Cameras) {
			e.logger.Warn("node references missing camera", "node", i, "camera", *gn.Camera)
			continue
		}
		camera := createCamera(&e.doc.Cameras[*gn.Camera])

		satellite := model.NewNode(common.Coalesce(camera.Name, e.bundle.Nodes[i].Name))
		satellite.Synthetic = true
		satellite.Camera = len(e.bundle.Cameras)
		camera.Node = e.bundle.AddNode(satellite)
		_ = e.bundle.AddChild(i, camera.Node)

		e.bundle.CameraNodes[satellite.Camera] = i
		e.bundle.Cameras = append(e.bundle.Cameras, camera)
	}
}

// createCamera converts a glTF camera.
func createCamera(gc *gltfCamera) *model.Camera {
	camera := &model.Camera{Name: gc.Name, AspectRatioMode: model.AspectAuto}

	if gc.Type == "orthographic" && gc.Orthographic != nil {
		o := gc.Orthographic
		camera.Projection = model.ProjectionOrthographic
		camera.NearClip = o.ZNear
		camera.FarClip = common.ValueOr(o.ZFar, 0)
		camera.OrthoHeight = 0.5 * o.YMag
		if o.YMag != 0 {
			camera.AspectRatioMode = model.AspectManual
			camera.AspectRatio = o.XMag / o.YMag
		}
		return camera
	}

	camera.Projection = model.ProjectionPerspective
	if p := gc.Perspective; p != nil {
		camera.NearClip = p.ZNear
		camera.FarClip = common.ValueOr(p.ZFar, 0)
		camera.FOV = mgl32.RadToDeg(p.YFov)
		if p.AspectRatio != nil && *p.AspectRatio != 0 {
			camera.AspectRatioMode = model.AspectManual
			camera.AspectRatio = *p.AspectRatio
		}
	}
	return camera
}

// --- Lights ---

func (e *gltfSceneExtractorImpl) ExtractLights() error {
	var root gltfLightsRoot
	ok, err := e.doc.Extensions.decode(extLightsPunctual, &root)
	if err != nil || !ok || len(root.Lights) == 0 {
		return err
	}

	for i, gn := range e.doc.Nodes {
		var ref gltfLightsNode
		ok, err := gn.Extensions.decode(extLightsPunctual, &ref)
		if err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		if !ok {
			continue
		}
		if ref.Light < 0 || ref.Light >= len(root.Lights) {
			e.logger.Warn("node references missing light", "node", i, "light", ref.Light)
			continue
		}
		light := createLight(&root.Lights[ref.Light])

		satellite := model.NewNode(e.bundle.Nodes[i].Name)
		satellite.Synthetic = true
		// glTF lights point down -Z, the renderer's down -Y
		satellite.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{1, 0, 0})
		satellite.Light = len(e.bundle.Lights)
		light.Node = e.bundle.AddNode(satellite)
		_ = e.bundle.AddChild(i, light.Node)

		e.bundle.LightNodes[satellite.Light] = i
		e.bundle.Lights = append(e.bundle.Lights, light)
	}
	return nil
}

// createLight converts a KHR_lights_punctual light.
func createLight(gl *gltfLight) *model.Light {
	light := &model.Light{
		Name:      gl.Name,
		Type:      model.LightType(gl.Type),
		Color:     mgl32.Vec3{1, 1, 1},
		Intensity: 1,
		Range:     common.ValueOr(gl.Range, defaultLightRange),
	}
	if gl.Type == "point" {
		light.Type = model.LightOmni
	}
	if gl.Color != nil {
		light.Color = mgl32.Vec3(*gl.Color)
	}
	if gl.Intensity != nil {
		light.Intensity = common.Clamp(*gl.Intensity, 0, 2)
	}

	if light.Type == model.LightSpot {
		light.OuterConeAngle = defaultOuterConeAngle
		if gl.Spot != nil {
			if gl.Spot.InnerConeAngle != nil {
				light.InnerConeAngle = mgl32.RadToDeg(*gl.Spot.InnerConeAngle)
			}
			if gl.Spot.OuterConeAngle != nil {
				light.OuterConeAngle = mgl32.RadToDeg(*gl.Spot.OuterConeAngle)
			}
		}
	}

	// intensities are candela (lux for directional); the renderer wants lumen
	if gl.Intensity != nil {
		light.Luminance = *gl.Intensity * lightUnitConversion(light)
	}
	return light
}

// lightUnitConversion returns the solid angle a light's intensity is spread over.
func lightUnitConversion(l *model.Light) float32 {
	switch l.Type {
	case model.LightSpot:
		falloffEnd := math32.Cos(mgl32.DegToRad(l.OuterConeAngle))
		falloffStart := math32.Cos(mgl32.DegToRad(l.InnerConeAngle))
		return 2 * math32.Pi * ((1 - falloffStart) + (falloffStart-falloffEnd)/2)
	case model.LightOmni:
		return 4 * math32.Pi
	}
	return 1
}
