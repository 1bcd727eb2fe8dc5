package loader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// gltfSemantics maps glTF attribute names to vertex semantics. Attributes not listed are ignored.
var gltfSemantics = map[string]model.VertexSemantic{
	"POSITION":   model.SemanticPosition,
	"NORMAL":     model.SemanticNormal,
	"TANGENT":    model.SemanticTangent,
	"COLOR_0":    model.SemanticColor,
	"JOINTS_0":   model.SemanticBlendIndices,
	"WEIGHTS_0":  model.SemanticBlendWeight,
	"TEXCOORD_0": model.SemanticTexCoord0,
	"TEXCOORD_1": model.SemanticTexCoord1,
	"TEXCOORD_2": model.SemanticTexCoord2,
	"TEXCOORD_3": model.SemanticTexCoord3,
	"TEXCOORD_4": model.SemanticTexCoord4,
	"TEXCOORD_5": model.SemanticTexCoord5,
	"TEXCOORD_6": model.SemanticTexCoord6,
	"TEXCOORD_7": model.SemanticTexCoord7,
}

// validElementSizes are the element byte sizes WebGPU vertex fetch accepts.
var validElementSizes = []int{2, 4, 8, 12, 16}

// --- Vertex Sources ---

// vertexSource is one attribute stream feeding the interleaver.
type vertexSource struct {
	semantic model.VertexSemantic

	// data holds element 0 at data[0], elements stride bytes apart.
	data   []byte
	stride int

	// buffer and offset locate data inside a document buffer; buffer is -1 for owned data.
	buffer int
	offset int

	count         int
	components    int
	componentType model.ComponentType
	normalized    bool
}

// size is the packed size of one source element.
func (s *vertexSource) size() int {
	return s.components * s.componentType.Size()
}

// float32s decodes the stream into packed float32 values, dequantizing normalized integers.
func (s *vertexSource) float32s() []float32 {
	a := accessorData{
		Bytes:         s.data,
		ComponentType: s.componentType,
		Components:    s.components,
		Count:         s.count,
		Stride:        s.stride,
	}
	out := make([]float32, s.count*s.components)
	for i := 0; i < s.count; i++ {
		for c := 0; c < s.components; c++ {
			v := float32(a.value(i, c))
			if s.normalized {
				v = dequantize(v, s.componentType)
			}
			out[i*s.components+c] = v
		}
	}
	return out
}

// newVertexSource wraps decoded accessor data.
func newVertexSource(semantic model.VertexSemantic, d *accessorData) *vertexSource {
	return &vertexSource{
		semantic:      semantic,
		data:          d.Bytes,
		stride:        d.Stride,
		buffer:        d.Buffer,
		offset:        d.Offset,
		count:         d.Count,
		components:    d.Components,
		componentType: d.ComponentType,
		normalized:    d.Normalized,
	}
}

// float32Source wraps packed float32 values as an owned source.
func float32Source(semantic model.VertexSemantic, values []float32, components int) *vertexSource {
	return &vertexSource{
		semantic:      semantic,
		data:          slices.Clone(common.SliceToBytes(values)),
		stride:        components * 4,
		buffer:        -1,
		count:         len(values) / components,
		components:    components,
		componentType: model.ComponentFloat32,
	}
}

// --- Builder ---

// vertexBufferBuilderImpl is the implementation of the vertexBufferBuilder interface.
type vertexBufferBuilderImpl struct {
	reader  accessorReader
	buffers [][]byte
	flipV   bool
	logger  *log.Logger
	cache   map[string]*model.VertexBuffer
}

// vertexBufferBuilder interleaves attribute streams into vertex buffers.
type vertexBufferBuilder interface {
	// FromAttributes builds (or returns the cached) vertex buffer for a primitive's attribute map.
	// Primitives with the same attribute to accessor mapping share one buffer.
	//
	// Parameters:
	//   - attributes: glTF attribute name to accessor index
	//   - indices: the primitive's indices, nil when not indexed
	//
	// Returns:
	//   - *model.VertexBuffer: the vertex buffer
	//   - error: error if an accessor cannot be read
	FromAttributes(attributes map[string]int, indices []uint32) (*model.VertexBuffer, error)

	// FromSources interleaves already decoded streams. The result is not cached.
	//
	// Parameters:
	//   - sources: the attribute streams
	//   - indices: the primitive's indices, nil when not indexed
	//
	// Returns:
	//   - *model.VertexBuffer: the vertex buffer
	//   - error: error if there is nothing to interleave
	FromSources(sources []*vertexSource, indices []uint32) (*model.VertexBuffer, error)
}

var _ vertexBufferBuilder = &vertexBufferBuilderImpl{}

// newVertexBufferBuilder creates a builder whose cache lives as long as one load.
//
// Parameters:
//   - reader: the accessor reader
//   - buffers: the resolved document buffers, used for bulk copies of interleaved data
//   - flipV: flip V of the first two texture coordinate sets
//   - logger: the load logger
//
// Returns:
//   - vertexBufferBuilder: the builder
func newVertexBufferBuilder(reader accessorReader, buffers [][]byte, flipV bool, logger *log.Logger) vertexBufferBuilder {
	return &vertexBufferBuilderImpl{
		reader:  reader,
		buffers: buffers,
		flipV:   flipV,
		logger:  logger,
		cache:   make(map[string]*model.VertexBuffer),
	}
}

// attributeSignature is the cache key of an attribute map: sorted "SEMANTIC:accessor" pairs.
func attributeSignature(attributes map[string]int) string {
	parts := make([]string, 0, len(attributes))
	for name, idx := range attributes {
		if _, ok := gltfSemantics[name]; ok {
			parts = append(parts, name+":"+strconv.Itoa(idx))
		}
	}
	slices.Sort(parts)
	return strings.Join(parts, ",")
}

func (b *vertexBufferBuilderImpl) FromAttributes(attributes map[string]int, indices []uint32) (*model.VertexBuffer, error) {
	key := attributeSignature(attributes)
	if vb, ok := b.cache[key]; ok {
		return vb, nil
	}

	sources := make([]*vertexSource, 0, len(attributes))
	for name, idx := range attributes {
		semantic, ok := gltfSemantics[name]
		if !ok {
			b.logger.Debug("ignoring vertex attribute", "attribute", name)
			continue
		}
		acc, err := b.reader.Accessor(idx)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		data, err := b.reader.Read(idx, b.reader.Flatten())
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		src := newVertexSource(semantic, data)
		if semantic == model.SemanticColor && acc.Normalized == nil &&
			(src.componentType == model.ComponentUint8 || src.componentType == model.ComponentUint16) {
			src.normalized = true
		}
		sources = append(sources, src)
	}

	vb, err := b.FromSources(sources, indices)
	if err != nil {
		return nil, err
	}
	b.cache[key] = vb
	return vb, nil
}

func (b *vertexBufferBuilderImpl) FromSources(sources []*vertexSource, indices []uint32) (*model.VertexBuffer, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("primitive has no vertex attributes")
	}
	slices.SortStableFunc(sources, func(x, y *vertexSource) int {
		return x.semantic.Order() - y.semantic.Order()
	})

	position := sources[0]
	if position.semantic != model.SemanticPosition {
		position = nil
	}
	numVertices := sources[0].count

	if position != nil && !hasSemantic(sources, model.SemanticNormal) {
		positions := position.float32s()
		if position.components != 3 {
			positions = resize(positions, position.components, 3)
		}
		if indices == nil {
			indices = sequentialIndices(numVertices)
		}
		normals := common.CalculateNormals(positions, indices)
		sources = slices.Insert(sources, 1, float32Source(model.SemanticNormal, normals, 3))
		b.logger.Debug("generated vertex normals", "vertices", numVertices)
	}

	descs := make([]model.VertexElementDesc, len(sources))
	for i, s := range sources {
		components := s.components
		if !slices.Contains(validElementSizes, s.size()) {
			components++
		}
		descs[i] = model.VertexElementDesc{
			Semantic:   s.semantic,
			Components: components,
			Type:       s.componentType,
			Normalized: s.normalized,
		}
	}
	format := model.NewVertexFormat(descs)

	vb := &model.VertexBuffer{
		ID:          uuid.NewString(),
		Format:      format,
		NumVertices: numVertices,
		Data:        make([]byte, numVertices*format.Stride),
	}
	if !b.bulkCopy(vb, sources) {
		interleave(vb, sources)
	}

	if b.flipV {
		flipTexCoords(vb, model.SemanticTexCoord0)
		flipTexCoords(vb, model.SemanticTexCoord1)
	}
	return vb, nil
}

// bulkCopy copies the vertex data in one piece when the sources already are one interleaved block
// with the target layout.
func (b *vertexBufferBuilderImpl) bulkCopy(vb *model.VertexBuffer, sources []*vertexSource) bool {
	base := sources[0]
	if base.buffer < 0 || base.buffer >= len(b.buffers) {
		return false
	}
	for i, s := range sources {
		e := vb.Format.Elements[i]
		if s.buffer != base.buffer || s.stride != vb.Format.Stride ||
			s.offset-base.offset != e.Offset || s.size() != e.Size || s.count < vb.NumVertices {
			return false
		}
	}
	buf := b.buffers[base.buffer]
	end := base.offset + len(vb.Data)
	if end > len(buf) {
		return false
	}
	copy(vb.Data, buf[base.offset:end])
	return true
}

// interleave copies every source element into its slot, one vertex at a time.
// Widened elements keep zero padding after the source bytes.
func interleave(vb *model.VertexBuffer, sources []*vertexSource) {
	stride := vb.Format.Stride
	for i, s := range sources {
		e := vb.Format.Elements[i]
		size := min(s.size(), e.Size)
		n := min(s.count, vb.NumVertices)
		for v := 0; v < n; v++ {
			src := s.data[v*s.stride : v*s.stride+size]
			copy(vb.Data[v*stride+e.Offset:], src)
		}
	}
}

// flipTexCoords rewrites v as 1 - v for a float32 texture coordinate element.
func flipTexCoords(vb *model.VertexBuffer, semantic model.VertexSemantic) {
	uvs, ok := vb.Float32(semantic)
	if !ok {
		return
	}
	e, _ := vb.Format.Element(semantic)
	for v := 0; v < vb.NumVertices && v*e.Components+1 < len(uvs); v++ {
		vb.SetFloat32(semantic, v, 1, 1-uvs[v*e.Components+1])
	}
}

func hasSemantic(sources []*vertexSource, semantic model.VertexSemantic) bool {
	return slices.ContainsFunc(sources, func(s *vertexSource) bool { return s.semantic == semantic })
}

// sequentialIndices returns 0..n-1.
func sequentialIndices(n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}

// resize repacks values from one component count to another, zero filling or truncating.
func resize(values []float32, from, to int) []float32 {
	n := len(values) / from
	out := make([]float32, n*to)
	for i := 0; i < n; i++ {
		copy(out[i*to:i*to+min(from, to)], values[i*from:])
	}
	return out
}
