package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-glb/engine/model"
)

// buildDracoMesh decodes a KHR_draco_mesh_compression primitive into mesh.
// The decoded attributes go through the same interleaver as uncompressed ones.
func (e *gltfMeshExtractorImpl) buildDracoMesh(mesh *model.Mesh, prim *gltfPrimitive, ext *gltfDracoExtension, meshIndex, primIdx int) error {
	if len(prim.Targets) > 0 {
		return ErrDracoMorphTargets
	}
	if e.schema.decoder == nil {
		cause := e.schema.decoderErr
		if cause == nil {
			cause = fmt.Errorf("extension %s not declared in extensionsUsed", extDracoMeshCompression)
		}
		return fmt.Errorf("%w: mesh %d primitive %d: %v", ErrDecompressorUnavailable, meshIndex, primIdx, cause)
	}
	if ext.BufferView < 0 || ext.BufferView >= len(e.views) {
		return fmt.Errorf("compressed bufferView %d: %w", ext.BufferView, errIndexOutOfRange)
	}

	geom, err := e.schema.decoder.Decode(e.views[ext.BufferView].Data)
	if err != nil {
		return fmt.Errorf("%w: mesh %d primitive %d: %v", ErrDecompressorUnavailable, meshIndex, primIdx, err)
	}

	sources := make([]*vertexSource, 0, len(ext.Attributes))
	for name, uid := range ext.Attributes {
		semantic, ok := gltfSemantics[name]
		if !ok {
			continue
		}
		attr, ok := geom.Attributes[uid]
		if !ok {
			e.logger.Warn("compressed attribute missing from decoded geometry", "attribute", name, "id", uid)
			continue
		}
		src := &vertexSource{
			semantic:      semantic,
			data:          attr.Data,
			stride:        attr.NumComponents * attr.ComponentType.Size(),
			buffer:        -1,
			count:         geom.NumPoints,
			components:    attr.NumComponents,
			componentType: attr.ComponentType,
			normalized:    attr.Normalized,
		}
		if semantic == model.SemanticColor &&
			(src.componentType == model.ComponentUint8 || src.componentType == model.ComponentUint16) {
			src.normalized = true
		}
		if len(src.data) < src.count*src.stride {
			return fmt.Errorf("compressed attribute %s: %d bytes for %d points", name, len(src.data), src.count)
		}
		sources = append(sources, src)

		if idx, ok := prim.Attributes[name]; ok {
			if acc, err := e.reader.Accessor(idx); err == nil && acc.Count != geom.NumPoints {
				e.bundle.Diagnose(model.DiagnosticInvalidVertexCount, meshIndex, primIdx,
					"attribute %s declares %d vertices, decoded %d", name, acc.Count, geom.NumPoints)
			}
		}
	}

	vb, err := e.vertices.FromSources(sources, geom.Indices)
	if err != nil {
		return err
	}
	mesh.VertexBuffer = vb

	if geom.Indices != nil {
		format := model.IndexFormatUint16
		if geom.NumPoints > maxUint16Index {
			format = model.IndexFormatUint32
		}
		mesh.IndexBuffer = e.indexBuffer(format, geom.Indices, meshIndex, primIdx)
	}
	return nil
}
