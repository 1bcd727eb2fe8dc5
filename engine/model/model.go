package model

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// StageTiming records how long one stage of a load took.
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// ResourceBundle is the complete, renderer-ready result of decoding one document.
// Cross references between resources are slice indices into the bundle.
type ResourceBundle struct {
	// ID is unique per decoded bundle.
	ID string

	// Name is the load key (path or caller supplied name).
	Name string

	// Generator is asset.generator of the source document.
	Generator string

	// Nodes is the node arena. Source nodes keep their document index; synthetic nodes are appended.
	Nodes []*Node

	// Scenes holds one root node index per document scene, -1 for scenes without nodes.
	Scenes []int

	// Scene is the default scene index into Scenes.
	Scene int

	// Meshes holds one slice of primitives per document mesh.
	Meshes [][]*Mesh

	Materials  []*Material
	Skins      []*Skin
	Animations []*AnimTrack
	Textures   []*Texture
	Images     []*Image
	Cameras    []*Camera
	Lights     []*Light

	// CameraNodes maps a camera index to the node that owns it.
	CameraNodes map[int]int

	// LightNodes maps a light index to the node that owns it.
	LightNodes map[int]int

	// Variants maps a material variant name to its index.
	Variants map[string]int

	// MeshVariants maps Mesh.ID to variant name to material index.
	MeshVariants map[string]map[string]int

	// MeshDefaultMaterials maps Mesh.ID to its default material index (-1 for none).
	MeshDefaultMaterials map[string]int

	Diagnostics []Diagnostic
	Timings     []StageTiming
}

// --- Scene Helpers ---

// Root returns the root node index of the default scene, or -1 if there is none.
func (b *ResourceBundle) Root() int {
	if b.Scene < 0 || b.Scene >= len(b.Scenes) {
		return -1
	}
	return b.Scenes[b.Scene]
}

// Node returns the node at index i, or nil when out of range.
func (b *ResourceBundle) Node(i int) *Node {
	if i < 0 || i >= len(b.Nodes) {
		return nil
	}
	return b.Nodes[i]
}

// NodeByName finds the first node with the given name.
//
// Parameters:
//   - name: the node name
//
// Returns:
//   - int: the node index
//   - bool: false when no node has that name
func (b *ResourceBundle) NodeByName(name string) (int, bool) {
	for i, n := range b.Nodes {
		if n.Name == name {
			return i, true
		}
	}
	return -1, false
}

// NodePath returns the names of the nodes from the topmost ancestor down to node i.
//
// Parameters:
//   - i: the node index
//
// Returns:
//   - []string: the name chain, nil when i is out of range
func (b *ResourceBundle) NodePath(i int) []string {
	var path []string
	for n := b.Node(i); n != nil; n = b.Node(n.Parent) {
		path = append([]string{n.Name}, path...)
		if len(path) > len(b.Nodes) {
			break
		}
	}
	return path
}

// Children returns the child nodes of node i.
func (b *ResourceBundle) Children(i int) []*Node {
	n := b.Node(i)
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if child := b.Node(c); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// AddNode appends a node to the arena and returns its index.
func (b *ResourceBundle) AddNode(n *Node) int {
	b.Nodes = append(b.Nodes, n)
	return len(b.Nodes) - 1
}

// AddChild parents child under parent.
//
// Parameters:
//   - parent: the parent node index
//   - child: the child node index
//
// Returns:
//   - error: error if either index is out of range
func (b *ResourceBundle) AddChild(parent, child int) error {
	p, c := b.Node(parent), b.Node(child)
	if p == nil || c == nil {
		return fmt.Errorf("node index out of range: parent=%d child=%d", parent, child)
	}
	p.Children = append(p.Children, child)
	c.Parent = parent
	return nil
}

// WorldMatrix composes the local matrices from the root down to node i.
func (b *ResourceBundle) WorldMatrix(i int) mgl32.Mat4 {
	m := mgl32.Ident4()
	depth := 0
	for n := b.Node(i); n != nil && depth <= len(b.Nodes); n = b.Node(n.Parent) {
		m = n.LocalMatrix().Mul4(m)
		depth++
	}
	return m
}

// Walk visits node i and its descendants depth first. Returning false from fn skips the subtree.
func (b *ResourceBundle) Walk(i int, fn func(index int, n *Node) bool) {
	n := b.Node(i)
	if n == nil || !fn(i, n) {
		return
	}
	for _, c := range n.Children {
		b.Walk(c, fn)
	}
}

// --- Diagnostics ---

// Diagnose appends a diagnostic.
func (b *ResourceBundle) Diagnose(kind DiagnosticKind, mesh, primitive int, format string, args ...any) {
	b.Diagnostics = append(b.Diagnostics, Diagnostic{
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		Mesh:      mesh,
		Primitive: primitive,
	})
}

// HasDiagnostic reports whether a diagnostic of the given kind was recorded.
func (b *ResourceBundle) HasDiagnostic(kind DiagnosticKind) bool {
	for _, d := range b.Diagnostics {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

// AnimationIndex returns the index of an animation by name, or -1 if not found.
func (b *ResourceBundle) AnimationIndex(name string) int {
	for i, a := range b.Animations {
		if a.Name == name {
			return i
		}
	}
	return -1
}
