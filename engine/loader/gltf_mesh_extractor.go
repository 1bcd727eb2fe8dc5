package loader

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"github.com/charmbracelet/log"
)

// maxUint16Index is the largest index a 16-bit index buffer can address.
const maxUint16Index = 65535

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	schema   *gltfSchema
	reader   accessorReader
	views    []bufferViewData
	vertices vertexBufferBuilder
	bundle   *model.ResourceBundle
	logger   *log.Logger

	webgpu        bool
	uint32Indices bool

	// variantNames resolves KHR_materials_variants indices to names.
	variantNames []string
}

// gltfMeshExtractor builds render meshes from glTF mesh primitives.
type gltfMeshExtractor interface {
	// ExtractMesh builds one mesh per primitive of a glTF mesh.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh to extract
	//
	// Returns:
	//   - []*model.Mesh: one mesh per primitive
	//   - error: error if a primitive cannot be built
	ExtractMesh(meshIndex int) ([]*model.Mesh, error)

	// ExtractAllMeshes builds every mesh group of the document and records the document's variants on the bundle.
	//
	// Returns:
	//   - [][]*model.Mesh: one slice per glTF mesh
	//   - error: the first primitive failure
	ExtractAllMeshes() ([][]*model.Mesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a mesh extractor writing variants and diagnostics into bundle.
//
// Parameters:
//   - schema: the parsed document
//   - reader: the accessor reader
//   - views: the resolved buffer views, read by compressed primitives
//   - vertices: the vertex buffer builder
//   - bundle: the bundle under construction
//   - cfg: supplies WebGPU and Uint32Indices
//   - logger: the load logger
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(schema *gltfSchema, reader accessorReader, views []bufferViewData, vertices vertexBufferBuilder,
	bundle *model.ResourceBundle, cfg Config, logger *log.Logger) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{
		schema:        schema,
		reader:        reader,
		views:         views,
		vertices:      vertices,
		bundle:        bundle,
		logger:        logger,
		webgpu:        cfg.WebGPU,
		uint32Indices: cfg.Uint32Indices,
	}
}

func (e *gltfMeshExtractorImpl) ExtractAllMeshes() ([][]*model.Mesh, error) {
	doc := e.schema.doc

	var root gltfVariantsRoot
	if ok, err := doc.Extensions.decode(extMaterialsVariants, &root); err != nil {
		return nil, err
	} else if ok {
		e.variantNames = make([]string, len(root.Variants))
		for i, v := range root.Variants {
			e.variantNames[i] = v.Name
			e.bundle.Variants[v.Name] = i
		}
	}

	meshes := make([][]*model.Mesh, len(doc.Meshes))
	for i := range doc.Meshes {
		group, err := e.ExtractMesh(i)
		if err != nil {
			return nil, err
		}
		meshes[i] = group
	}
	return meshes, nil
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) ([]*model.Mesh, error) {
	doc := e.schema.doc
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh %d: %w", meshIndex, errIndexOutOfRange)
	}

	gm := &doc.Meshes[meshIndex]
	result := make([]*model.Mesh, 0, len(gm.Primitives))
	for primIdx := range gm.Primitives {
		mesh, err := e.extractPrimitive(meshIndex, primIdx)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}
		result = append(result, mesh)
	}
	return result, nil
}

// extractPrimitive builds one mesh. Compressed primitives are handed to buildDracoMesh.
func (e *gltfMeshExtractorImpl) extractPrimitive(meshIndex, primIdx int) (*model.Mesh, error) {
	gm := &e.schema.doc.Meshes[meshIndex]
	prim := &gm.Primitives[primIdx]
	mesh := model.NewMesh(gm.Name)

	var draco gltfDracoExtension
	compressed, err := prim.Extensions.decode(extDracoMeshCompression, &draco)
	if err != nil {
		return nil, err
	}

	if compressed {
		if err := e.buildDracoMesh(mesh, prim, &draco, meshIndex, primIdx); err != nil {
			return nil, err
		}
	} else {
		var (
			indices     []uint32
			indexFormat model.IndexFormat
		)
		if prim.Indices != nil {
			acc, err := e.reader.Accessor(*prim.Indices)
			if err != nil {
				return nil, fmt.Errorf("indices: %w", err)
			}
			indexFormat, err = gltfIndexFormat(acc.ComponentType)
			if err != nil {
				return nil, err
			}
			if indices, err = e.reader.Uint32(*prim.Indices); err != nil {
				return nil, fmt.Errorf("indices: %w", err)
			}
		}

		vb, err := e.vertices.FromAttributes(prim.Attributes, indices)
		if err != nil {
			return nil, err
		}
		mesh.VertexBuffer = vb
		if indices != nil {
			mesh.IndexBuffer = e.indexBuffer(indexFormat, indices, meshIndex, primIdx)
		}
	}

	mesh.Primitive = model.Primitive{
		Type:    gltfPrimitiveType(prim.Mode),
		Indexed: mesh.IndexBuffer != nil,
	}
	if mesh.IndexBuffer != nil {
		mesh.Primitive.Count = mesh.IndexBuffer.Count
	} else if mesh.VertexBuffer != nil {
		mesh.Primitive.Count = mesh.VertexBuffer.NumVertices
	}

	if pos, ok := prim.Attributes["POSITION"]; ok {
		mesh.AABB = e.reader.BoundingBox(pos)
	}

	if len(prim.Targets) > 0 {
		morph, err := e.extractMorph(gm, prim)
		if err != nil {
			return nil, err
		}
		mesh.Morph = morph
	}

	if err := e.applyMaterials(mesh, prim); err != nil {
		return nil, err
	}
	return mesh, nil
}

// indexBuffer encodes indices at the width the target device accepts.
// 8-bit indices are widened for WebGPU; 32-bit indices are narrowed when 32-bit indices are disabled,
// recording a diagnostic if any index does not fit.
func (e *gltfMeshExtractorImpl) indexBuffer(format model.IndexFormat, indices []uint32, meshIndex, primIdx int) *model.IndexBuffer {
	if format == model.IndexFormatUint8 && e.webgpu {
		format = model.IndexFormatUint16
	}
	if format == model.IndexFormatUint32 && !e.uint32Indices {
		if largest := slices.Max(append([]uint32{0}, indices...)); largest > maxUint16Index {
			e.bundle.Diagnose(model.DiagnosticIndexWidthDowngraded, meshIndex, primIdx,
				"32-bit indices narrowed to 16 bits, largest index %d", largest)
			e.logger.Warn("index buffer narrowed to 16 bits with out of range indices",
				"mesh", meshIndex, "primitive", primIdx, "largest", largest)
		}
		format = model.IndexFormatUint16
	}
	return model.NewIndexBuffer(format, indices)
}

// extractMorph decodes the morph targets of a primitive.
func (e *gltfMeshExtractorImpl) extractMorph(gm *gltfMesh, prim *gltfPrimitive) (*model.Morph, error) {
	names := gm.targetNames()
	morph := &model.Morph{Targets: make([]*model.MorphTarget, 0, len(prim.Targets))}

	for i, target := range prim.Targets {
		mt := &model.MorphTarget{Name: strconv.Itoa(i)}
		if i < len(names) {
			mt.Name = names[i]
		}
		if i < len(gm.Weights) {
			mt.DefaultWeight = gm.Weights[i]
		}
		if idx, ok := target["POSITION"]; ok {
			deltas, err := e.reader.Float32(idx)
			if err != nil {
				return nil, fmt.Errorf("morph target %d positions: %w", i, err)
			}
			mt.DeltaPositions = deltas
			mt.AABB = e.reader.BoundingBox(idx)
		}
		if idx, ok := target["NORMAL"]; ok {
			deltas, err := e.reader.Float32(idx)
			if err != nil {
				return nil, fmt.Errorf("morph target %d normals: %w", i, err)
			}
			mt.DeltaNormals = deltas
		}
		morph.Targets = append(morph.Targets, mt)
	}
	return morph, nil
}

// applyMaterials records the default material and the per-variant materials of a primitive.
func (e *gltfMeshExtractorImpl) applyMaterials(mesh *model.Mesh, prim *gltfPrimitive) error {
	if prim.Material != nil {
		mesh.Material = *prim.Material
	}
	e.bundle.MeshDefaultMaterials[mesh.ID] = mesh.Material

	var variants gltfVariantsPrimitive
	ok, err := prim.Extensions.decode(extMaterialsVariants, &variants)
	if err != nil || !ok {
		return err
	}
	mapping := make(map[string]int)
	for _, m := range variants.Mappings {
		for _, v := range m.Variants {
			if v < 0 || v >= len(e.variantNames) {
				e.logger.Warn("material variant index out of range", "variant", v)
				continue
			}
			mapping[e.variantNames[v]] = m.Material
		}
	}
	e.bundle.MeshVariants[mesh.ID] = mapping
	return nil
}

// gltfIndexFormat maps an index accessor component type to an index width.
func gltfIndexFormat(componentType int) (model.IndexFormat, error) {
	switch model.ComponentType(componentType) {
	case model.ComponentUint8:
		return model.IndexFormatUint8, nil
	case model.ComponentUint16:
		return model.IndexFormatUint16, nil
	case model.ComponentUint32:
		return model.IndexFormatUint32, nil
	}
	return 0, fmt.Errorf("unsupported index component type %d", componentType)
}

// gltfPrimitiveType maps a primitive mode; missing or invalid modes are triangles.
func gltfPrimitiveType(mode *int) model.PrimitiveType {
	if mode == nil || *mode < int(model.PrimitivePoints) || *mode > int(model.PrimitiveTriFan) {
		return model.PrimitiveTriangles
	}
	return model.PrimitiveType(*mode)
}
