package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// --- Component & Semantic Types ---

// ComponentType identifies the numeric type of a single vertex or accessor component.
// Values match the glTF componentType codes.
type ComponentType int

const (
	ComponentInt8    ComponentType = 5120
	ComponentUint8   ComponentType = 5121
	ComponentInt16   ComponentType = 5122
	ComponentUint16  ComponentType = 5123
	ComponentInt32   ComponentType = 5124
	ComponentUint32  ComponentType = 5125
	ComponentFloat32 ComponentType = 5126
)

// Size returns the byte size of one component, or 0 for an unknown type.
//
// Returns:
//   - int: the component size in bytes
func (c ComponentType) Size() int {
	switch c {
	case ComponentInt8, ComponentUint8:
		return 1
	case ComponentInt16, ComponentUint16:
		return 2
	case ComponentInt32, ComponentUint32, ComponentFloat32:
		return 4
	}
	return 0
}

func (c ComponentType) String() string {
	switch c {
	case ComponentInt8:
		return "int8"
	case ComponentUint8:
		return "uint8"
	case ComponentInt16:
		return "int16"
	case ComponentUint16:
		return "uint16"
	case ComponentInt32:
		return "int32"
	case ComponentUint32:
		return "uint32"
	case ComponentFloat32:
		return "float32"
	}
	return "unknown"
}

// VertexSemantic names the role of a vertex element inside an interleaved vertex buffer.
type VertexSemantic string

const (
	SemanticPosition     VertexSemantic = "POSITION"
	SemanticNormal       VertexSemantic = "NORMAL"
	SemanticTangent      VertexSemantic = "TANGENT"
	SemanticColor        VertexSemantic = "COLOR"
	SemanticBlendIndices VertexSemantic = "BLENDINDICES"
	SemanticBlendWeight  VertexSemantic = "BLENDWEIGHT"
	SemanticTexCoord0    VertexSemantic = "TEXCOORD0"
	SemanticTexCoord1    VertexSemantic = "TEXCOORD1"
	SemanticTexCoord2    VertexSemantic = "TEXCOORD2"
	SemanticTexCoord3    VertexSemantic = "TEXCOORD3"
	SemanticTexCoord4    VertexSemantic = "TEXCOORD4"
	SemanticTexCoord5    VertexSemantic = "TEXCOORD5"
	SemanticTexCoord6    VertexSemantic = "TEXCOORD6"
	SemanticTexCoord7    VertexSemantic = "TEXCOORD7"
)

// CanonicalSemanticOrder is the element order every vertex buffer is laid out in.
// The position of a semantic in this list is also its shader location.
var CanonicalSemanticOrder = []VertexSemantic{
	SemanticPosition,
	SemanticNormal,
	SemanticTangent,
	SemanticColor,
	SemanticBlendIndices,
	SemanticBlendWeight,
	SemanticTexCoord0,
	SemanticTexCoord1,
	SemanticTexCoord2,
	SemanticTexCoord3,
	SemanticTexCoord4,
	SemanticTexCoord5,
	SemanticTexCoord6,
	SemanticTexCoord7,
}

// Order returns the canonical position of the semantic, or len(CanonicalSemanticOrder) if unknown.
func (s VertexSemantic) Order() int {
	for i, c := range CanonicalSemanticOrder {
		if c == s {
			return i
		}
	}
	return len(CanonicalSemanticOrder)
}

// --- Index & Primitive Types ---

// IndexFormat is the integer width of an index buffer.
type IndexFormat int

const (
	IndexFormatUint8 IndexFormat = iota
	IndexFormatUint16
	IndexFormatUint32
)

// Size returns the byte size of one index.
func (f IndexFormat) Size() int {
	switch f {
	case IndexFormatUint8:
		return 1
	case IndexFormatUint16:
		return 2
	}
	return 4
}

// PrimitiveType is the topology a mesh is drawn with.
type PrimitiveType int

const (
	PrimitivePoints PrimitiveType = iota
	PrimitiveLines
	PrimitiveLineLoop
	PrimitiveLineStrip
	PrimitiveTriangles
	PrimitiveTriStrip
	PrimitiveTriFan
)

// Primitive describes the draw range of a mesh.
type Primitive struct {
	// Type is the topology.
	Type PrimitiveType

	// Base is the first index (or vertex when not indexed).
	Base int

	// Count is the number of indices (or vertices when not indexed).
	Count int

	// Indexed is true when the mesh carries an index buffer.
	Indexed bool
}

// --- Geometry Types ---

// BoundingBox is an axis-aligned box stored as center and half extents.
type BoundingBox struct {
	Center      mgl32.Vec3
	HalfExtents mgl32.Vec3
}

// Min returns the minimum corner of the box.
func (b BoundingBox) Min() mgl32.Vec3 {
	return b.Center.Sub(b.HalfExtents)
}

// Max returns the maximum corner of the box.
func (b BoundingBox) Max() mgl32.Vec3 {
	return b.Center.Add(b.HalfExtents)
}

// IndexBuffer holds little-endian index data of a single width.
type IndexBuffer struct {
	// Format is the index width.
	Format IndexFormat

	// Count is the number of indices.
	Count int

	// Data is Count * Format.Size() bytes.
	Data []byte
}

// MorphTarget is one blend shape of a mesh. Deltas are dequantized float32 xyz triples.
type MorphTarget struct {
	Name           string
	DefaultWeight  float32
	DeltaPositions []float32
	DeltaNormals   []float32
	AABB           *BoundingBox
}

// Morph groups the morph targets of a mesh.
type Morph struct {
	Targets []*MorphTarget
}

// Mesh is a single drawable primitive: a vertex buffer, an optional index buffer and the draw range.
// Meshes built from the same attribute set share the same *VertexBuffer.
type Mesh struct {
	// ID uniquely identifies the mesh within the process; variant maps are keyed by it.
	ID string

	// Name is the owning glTF mesh name.
	Name string

	VertexBuffer *VertexBuffer
	IndexBuffer  *IndexBuffer
	Primitive    Primitive

	// AABB is derived from the POSITION accessor bounds, nil when they are not declared.
	AABB *BoundingBox

	// Morph is nil when the primitive declares no targets.
	Morph *Morph

	// Skin is linked after all skins are built, nil for static meshes.
	Skin *Skin

	// Material is an index into ResourceBundle.Materials, -1 for none.
	Material int
}

// Skin binds a mesh to a joint hierarchy by name.
type Skin struct {
	InverseBindMatrices []mgl32.Mat4
	BoneNames           []string
}

// --- Animation Types ---

// Interpolation is the keyframe interpolation mode of a curve.
type Interpolation int

const (
	InterpolationStep Interpolation = iota
	InterpolationLinear
	InterpolationCubic
)

// AnimData is a flat float32 key array with Components values per key.
type AnimData struct {
	Components int
	Data       []float32
}

// Keys returns the number of keys stored.
func (d *AnimData) Keys() int {
	if d.Components == 0 {
		return 0
	}
	return len(d.Data) / d.Components
}

// AnimTarget addresses the property a curve drives.
type AnimTarget struct {
	// EntityPath is the chain of node names from the root to the animated node.
	EntityPath []string

	// Component is the component on the entity (always "graph" for node transforms and weights).
	Component string

	// PropertyPath is e.g. ["localRotation"] or ["weight.name.smile"].
	PropertyPath []string
}

// AnimCurve references an input (time) array and an output (value) array of its track by index.
type AnimCurve struct {
	Paths         []AnimTarget
	Input         int
	Output        int
	Interpolation Interpolation
}

// AnimTrack is one animation clip.
type AnimTrack struct {
	Name     string
	Duration float32
	Inputs   []*AnimData
	Outputs  []*AnimData
	Curves   []*AnimCurve
}

// --- Scene Types ---

// Node is an entry of the node arena. Parent and children are arena indices.
type Node struct {
	Name        string
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3

	// Parent is -1 for roots.
	Parent   int
	Children []int

	// Mesh is the glTF mesh group index, -1 for none.
	Mesh int

	// Skin is the glTF skin index, -1 for none.
	Skin int

	// Camera is an index into ResourceBundle.Cameras when this node carries a camera, else -1.
	Camera int

	// Light is an index into ResourceBundle.Lights when this node carries a light, else -1.
	Light int

	// Synthetic is true for nodes that do not exist in the source document (scene roots, camera and light satellites).
	Synthetic bool
}

// LocalMatrix composes translation, rotation and scale into a column-major matrix.
func (n *Node) LocalMatrix() mgl32.Mat4 {
	return mgl32.Translate3D(n.Translation[0], n.Translation[1], n.Translation[2]).
		Mul4(n.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2]))
}

// Projection is the camera projection type.
type Projection int

const (
	ProjectionPerspective Projection = iota
	ProjectionOrthographic
)

// AspectRatioMode controls whether the renderer derives the aspect ratio from the viewport.
type AspectRatioMode int

const (
	AspectAuto AspectRatioMode = iota
	AspectManual
)

// Camera is a camera component attached to a satellite node.
type Camera struct {
	Name            string
	Projection      Projection
	FOV             float32
	OrthoHeight     float32
	AspectRatio     float32
	AspectRatioMode AspectRatioMode
	NearClip        float32
	FarClip         float32

	// Node is the satellite node index holding this camera.
	Node int
}

// LightType is the light component type.
type LightType string

const (
	LightDirectional LightType = "directional"
	LightOmni        LightType = "omni"
	LightSpot        LightType = "spot"
)

// Light is a punctual light component attached to a satellite node.
type Light struct {
	Name      string
	Type      LightType
	Color     mgl32.Vec3
	Intensity float32

	// Luminance is the declared intensity converted back to lumen, 0 when no intensity was declared.
	Luminance float32
	Range     float32

	// InnerConeAngle and OuterConeAngle are in degrees.
	InnerConeAngle float32
	OuterConeAngle float32

	// Node is the satellite node index holding this light.
	Node int
}

// --- Diagnostics ---

// DiagnosticKind names a non-fatal condition recorded while decoding.
type DiagnosticKind string

const (
	// DiagnosticIndexWidthDowngraded marks a 32-bit index buffer narrowed to 16 bits while holding indices above 65535.
	DiagnosticIndexWidthDowngraded DiagnosticKind = "IndexWidthDowngraded"

	// DiagnosticFlippedUV marks content produced by a generator known to write flipped V coordinates.
	DiagnosticFlippedUV DiagnosticKind = "FlippedUV"

	// DiagnosticInvalidVertexCount marks a decompressed primitive whose counts disagree with its accessors.
	DiagnosticInvalidVertexCount DiagnosticKind = "InvalidVertexCount"

	// DiagnosticUnsupportedExtension marks a required extension no handler exists for.
	DiagnosticUnsupportedExtension DiagnosticKind = "UnsupportedExtension"
)

// Diagnostic is a non-fatal finding attached to a bundle.
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string

	// Mesh and Primitive locate the finding, -1 when not mesh related.
	Mesh      int
	Primitive int
}
