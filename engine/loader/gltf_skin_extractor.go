package loader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"github.com/go-gl/mathgl/mgl32"
)

// gltfSkinExtractorImpl is the implementation of the gltfSkinExtractor interface.
type gltfSkinExtractorImpl struct {
	doc    *gltfDocument
	reader accessorReader
	bundle *model.ResourceBundle

	// cache maps joined bone names to the skin built for them.
	cache map[string]*model.Skin
}

// gltfSkinExtractor builds skins from glTF skin definitions.
// Skins must be extracted after the node arena exists; bones are bound by node name.
type gltfSkinExtractor interface {
	// ExtractSkin builds a skin. Skins whose joints resolve to the same bone names share one *model.Skin.
	//
	// Parameters:
	//   - skinIndex: the index of the skin to extract
	//
	// Returns:
	//   - *model.Skin: the skin
	//   - error: error if a joint or the inverse bind matrices cannot be resolved
	ExtractSkin(skinIndex int) (*model.Skin, error)

	// ExtractAllSkins builds every skin of the document.
	//
	// Returns:
	//   - []*model.Skin: one entry per glTF skin
	//   - error: the first failure
	ExtractAllSkins() ([]*model.Skin, error)

	// LinkSkins assigns skins to the meshes of every node that references both a mesh and a skin.
	//
	// Parameters:
	//   - skins: the extracted skins
	//   - meshes: the extracted mesh groups
	LinkSkins(skins []*model.Skin, meshes [][]*model.Mesh)
}

var _ gltfSkinExtractor = &gltfSkinExtractorImpl{}

// newGLTFSkinExtractor creates a skin extractor bound to the bundle's node arena.
//
// Parameters:
//   - doc: the document
//   - reader: the accessor reader
//   - bundle: the bundle whose nodes name the bones
//
// Returns:
//   - gltfSkinExtractor: the skin extractor
func newGLTFSkinExtractor(doc *gltfDocument, reader accessorReader, bundle *model.ResourceBundle) gltfSkinExtractor {
	return &gltfSkinExtractorImpl{
		doc:    doc,
		reader: reader,
		bundle: bundle,
		cache:  make(map[string]*model.Skin),
	}
}

func (e *gltfSkinExtractorImpl) ExtractAllSkins() ([]*model.Skin, error) {
	skins := make([]*model.Skin, len(e.doc.Skins))
	for i := range e.doc.Skins {
		skin, err := e.ExtractSkin(i)
		if err != nil {
			return nil, fmt.Errorf("skin %d: %w", i, err)
		}
		skins[i] = skin
	}
	return skins, nil
}

func (e *gltfSkinExtractorImpl) ExtractSkin(skinIndex int) (*model.Skin, error) {
	if skinIndex < 0 || skinIndex >= len(e.doc.Skins) {
		return nil, fmt.Errorf("skin %d: %w", skinIndex, errIndexOutOfRange)
	}
	gs := &e.doc.Skins[skinIndex]

	names := make([]string, len(gs.Joints))
	for i, joint := range gs.Joints {
		node := e.bundle.Node(joint)
		if node == nil {
			return nil, fmt.Errorf("joint %d: node %d: %w", i, joint, errIndexOutOfRange)
		}
		names[i] = node.Name
	}

	key := strings.Join(names, "#")
	if skin, ok := e.cache[key]; ok {
		return skin, nil
	}

	ibms := make([]mgl32.Mat4, len(gs.Joints))
	var values []float32
	if gs.InverseBindMatrices != nil {
		var err error
		values, err = e.reader.Float32(*gs.InverseBindMatrices)
		if err != nil {
			return nil, fmt.Errorf("inverse bind matrices: %w", err)
		}
	}
	for i := range ibms {
		if (i+1)*16 <= len(values) {
			copy(ibms[i][:], values[i*16:(i+1)*16])
		} else {
			ibms[i] = mgl32.Ident4()
		}
	}

	skin := &model.Skin{InverseBindMatrices: ibms, BoneNames: names}
	e.cache[key] = skin
	return skin, nil
}

func (e *gltfSkinExtractorImpl) LinkSkins(skins []*model.Skin, meshes [][]*model.Mesh) {
	for _, gn := range e.doc.Nodes {
		if gn.Mesh == nil || gn.Skin == nil {
			continue
		}
		if *gn.Mesh < 0 || *gn.Mesh >= len(meshes) || *gn.Skin < 0 || *gn.Skin >= len(skins) {
			continue
		}
		for _, mesh := range meshes[*gn.Mesh] {
			mesh.Skin = skins[*gn.Skin]
		}
	}
}
