package model

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// BundleBuilderOption is a functional option for configuring a ResourceBundle via NewResourceBundle.
type BundleBuilderOption func(*ResourceBundle)

// NewResourceBundle creates an empty bundle with a fresh ID and initialized lookup maps.
//
// Parameters:
//   - options: a variadic list of BundleBuilderOption functions to configure the bundle
//
// Returns:
//   - *ResourceBundle: the bundle
func NewResourceBundle(options ...BundleBuilderOption) *ResourceBundle {
	b := &ResourceBundle{
		ID:                   uuid.NewString(),
		CameraNodes:          make(map[int]int),
		LightNodes:           make(map[int]int),
		Variants:             make(map[string]int),
		MeshVariants:         make(map[string]map[string]int),
		MeshDefaultMaterials: make(map[string]int),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// WithName is an option builder that sets the bundle name.
//
// Parameters:
//   - name: the load key
//
// Returns:
//   - BundleBuilderOption: a function that applies the name option to a bundle
func WithName(name string) BundleBuilderOption {
	return func(b *ResourceBundle) {
		b.Name = name
	}
}

// WithGenerator is an option builder that records the generator of the source document.
//
// Parameters:
//   - generator: asset.generator
//
// Returns:
//   - BundleBuilderOption: a function that applies the generator option to a bundle
func WithGenerator(generator string) BundleBuilderOption {
	return func(b *ResourceBundle) {
		b.Generator = generator
	}
}

// WithNodeCapacity is an option builder that preallocates the node arena.
//
// Parameters:
//   - n: the expected node count
//
// Returns:
//   - BundleBuilderOption: a function that applies the capacity option to a bundle
func WithNodeCapacity(n int) BundleBuilderOption {
	return func(b *ResourceBundle) {
		b.Nodes = make([]*Node, 0, n)
	}
}

// NewNode creates a node with identity transform and no attachments.
//
// Parameters:
//   - name: the node name
//
// Returns:
//   - *Node: the node
func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		Parent:   -1,
		Mesh:     -1,
		Skin:     -1,
		Camera:   -1,
		Light:    -1,
	}
}

// NewMesh creates a mesh with a fresh ID and no material.
func NewMesh(name string) *Mesh {
	return &Mesh{
		ID:       uuid.NewString(),
		Name:     name,
		Material: -1,
	}
}
