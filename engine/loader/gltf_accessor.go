package loader

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"github.com/charmbracelet/log"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// accessorData is a typed window over accessor elements.
// Bytes either aliases a buffer (Buffer >= 0) or is owned by the load (Buffer == -1).
type accessorData struct {
	Bytes         []byte
	ComponentType model.ComponentType
	Components    int
	Count         int

	// Stride is the byte distance between elements; equal to the element size when tightly packed.
	Stride     int
	Normalized bool

	// Buffer is the source buffer index, -1 for owned data.
	Buffer int

	// Offset is the byte offset of the first element within Buffer.
	Offset int
}

// elementSize is the packed size of one element.
func (a *accessorData) elementSize() int {
	return a.Components * a.ComponentType.Size()
}

// compact returns tightly packed element bytes, copying only when the data is strided.
func (a *accessorData) compact() []byte {
	size := a.elementSize()
	if a.Stride == size {
		return a.Bytes[:a.Count*size]
	}
	out := make([]byte, a.Count*size)
	for i := 0; i < a.Count; i++ {
		copy(out[i*size:(i+1)*size], a.Bytes[i*a.Stride:])
	}
	return out
}

// value reads component c of element i as float64, without normalization.
func (a *accessorData) value(i, c int) float64 {
	p := i*a.Stride + c*a.ComponentType.Size()
	return readComponent(a.Bytes[p:], a.ComponentType)
}

// readComponent decodes one little-endian component.
func readComponent(b []byte, t model.ComponentType) float64 {
	switch t {
	case model.ComponentInt8:
		return float64(int8(b[0]))
	case model.ComponentUint8:
		return float64(b[0])
	case model.ComponentInt16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case model.ComponentUint16:
		return float64(binary.LittleEndian.Uint16(b))
	case model.ComponentInt32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case model.ComponentUint32:
		return float64(binary.LittleEndian.Uint32(b))
	case model.ComponentFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	return 0
}

// dequantize maps a normalized integer component to float.
// Signed types clamp at -1 so the most negative value does not undershoot.
func dequantize(v float32, t model.ComponentType) float32 {
	switch t {
	case model.ComponentInt8:
		return math32.Max(v/127, -1)
	case model.ComponentUint8:
		return v / 255
	case model.ComponentInt16:
		return math32.Max(v/32767, -1)
	case model.ComponentUint16:
		return v / 65535
	}
	return v
}

// numComponents returns the components per element of an accessor type. Unknown types count as 3.
func numComponents(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4:
		return 4
	case gltfAccessorTypeMat2:
		return 4
	case gltfAccessorTypeMat3:
		return 9
	case gltfAccessorTypeMat4:
		return 16
	}
	return 3
}

// accessorReaderImpl is the implementation of the accessorReader interface.
type accessorReaderImpl struct {
	doc     *gltfDocument
	views   []bufferViewData
	flatten bool
	logger  *log.Logger
}

// accessorReader decodes accessors against resolved buffer views.
type accessorReader interface {
	// Accessor returns the schema entry for idx.
	//
	// Parameters:
	//   - idx: the accessor index
	//
	// Returns:
	//   - *gltfAccessor: the accessor
	//   - error: errIndexOutOfRange
	Accessor(idx int) (*gltfAccessor, error)

	// Read decodes an accessor, applying sparse substitution.
	// With flatten, strided data is copied into a packed array; otherwise strided data is aliased.
	// An accessor without a bufferView reads as zeros.
	//
	// Parameters:
	//   - idx: the accessor index
	//   - flatten: copy strided data into a packed array
	//
	// Returns:
	//   - *accessorData: the decoded data
	//   - error: errIndexOutOfRange or ErrAccessorOverrun
	Read(idx int, flatten bool) (*accessorData, error)

	// Float32 decodes an accessor into packed float32 values, dequantizing normalized integers.
	//
	// Parameters:
	//   - idx: the accessor index
	//
	// Returns:
	//   - []float32: Count*Components values
	//   - error: error if the accessor cannot be read
	Float32(idx int) ([]float32, error)

	// Uint32 decodes an accessor into packed uint32 values (indices, joints).
	//
	// Parameters:
	//   - idx: the accessor index
	//
	// Returns:
	//   - []uint32: Count*Components values
	//   - error: error if the accessor cannot be read
	Uint32(idx int) ([]uint32, error)

	// BoundingBox derives an AABB from the accessor's min and max, nil when either is missing.
	//
	// Parameters:
	//   - idx: the accessor index
	//
	// Returns:
	//   - *model.BoundingBox: the box or nil
	BoundingBox(idx int) *model.BoundingBox

	// Flatten reports the configured default for flattening vertex reads.
	Flatten() bool
}

var _ accessorReader = &accessorReaderImpl{}

// newAccessorReader creates an accessor reader.
//
// Parameters:
//   - doc: the document
//   - views: the resolved buffer views
//   - flatten: the default used when building vertex sources
//   - logger: the load logger
//
// Returns:
//   - accessorReader: the reader
func newAccessorReader(doc *gltfDocument, views []bufferViewData, flatten bool, logger *log.Logger) accessorReader {
	return &accessorReaderImpl{doc: doc, views: views, flatten: flatten, logger: logger}
}

func (r *accessorReaderImpl) Flatten() bool {
	return r.flatten
}

func (r *accessorReaderImpl) Accessor(idx int) (*gltfAccessor, error) {
	if idx < 0 || idx >= len(r.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d: %w", idx, errIndexOutOfRange)
	}
	return &r.doc.Accessors[idx], nil
}

func (r *accessorReaderImpl) view(idx int) (*bufferViewData, error) {
	if idx < 0 || idx >= len(r.views) {
		return nil, fmt.Errorf("bufferView %d: %w", idx, errIndexOutOfRange)
	}
	return &r.views[idx], nil
}

// window slices count elements of elemSize bytes, stride apart, starting at offset of a view.
func (r *accessorReaderImpl) window(viewIdx, offset, count, elemSize, stride int) (*bufferViewData, []byte, error) {
	v, err := r.view(viewIdx)
	if err != nil {
		return nil, nil, err
	}
	end := offset
	if count > 0 {
		end = offset + (count-1)*stride + elemSize
	}
	if offset < 0 || end > len(v.Data) {
		return nil, nil, fmt.Errorf("%w: needs [%d:%d] of %d bytes", ErrAccessorOverrun, offset, end, len(v.Data))
	}
	return v, v.Data[offset:end:end], nil
}

func (r *accessorReaderImpl) Read(idx int, flatten bool) (*accessorData, error) {
	acc, err := r.Accessor(idx)
	if err != nil {
		return nil, err
	}
	ct := model.ComponentType(acc.ComponentType)
	if ct.Size() == 0 {
		return nil, fmt.Errorf("accessor %d: unsupported component type %d", idx, acc.ComponentType)
	}
	if acc.Count < 0 {
		return nil, fmt.Errorf("accessor %d: negative count", idx)
	}

	data := &accessorData{
		ComponentType: ct,
		Components:    numComponents(acc.Type),
		Count:         acc.Count,
		Normalized:    acc.normalized(),
		Buffer:        -1,
	}
	elemSize := data.elementSize()
	data.Stride = elemSize

	if acc.BufferView == nil {
		r.logger.Debug("accessor has no bufferView, reading zeros", "accessor", idx)
		data.Bytes = make([]byte, acc.Count*elemSize)
	} else {
		v, err := r.view(*acc.BufferView)
		if err != nil {
			return nil, fmt.Errorf("accessor %d: %w", idx, err)
		}
		stride := elemSize
		if v.ByteStride > 0 {
			stride = v.ByteStride
		}
		_, window, err := r.window(*acc.BufferView, acc.ByteOffset, acc.Count, elemSize, stride)
		if err != nil {
			return nil, fmt.Errorf("accessor %d: %w", idx, err)
		}
		data.Bytes = window
		data.Stride = stride
		data.Buffer = v.Buffer
		data.Offset = v.ByteOffset + acc.ByteOffset
		if flatten && stride != elemSize {
			data.Bytes = data.compact()
			data.Stride = elemSize
			data.Buffer = -1
			data.Offset = 0
		}
	}

	if acc.Sparse != nil {
		if err := r.applySparse(idx, acc, data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// applySparse replaces data with an owned copy and overlays the sparse values.
func (r *accessorReaderImpl) applySparse(idx int, acc *gltfAccessor, data *accessorData) error {
	sp := acc.Sparse
	elemSize := data.elementSize()

	base := make([]byte, data.Count*elemSize)
	if acc.BufferView != nil {
		copy(base, data.compact())
	}

	indexType := model.ComponentType(sp.Indices.ComponentType)
	if indexType.Size() == 0 {
		return fmt.Errorf("accessor %d: sparse index component type %d", idx, sp.Indices.ComponentType)
	}
	_, indices, err := r.window(sp.Indices.BufferView, sp.Indices.ByteOffset, sp.Count, indexType.Size(), indexType.Size())
	if err != nil {
		return fmt.Errorf("accessor %d sparse indices: %w", idx, err)
	}
	_, values, err := r.window(sp.Values.BufferView, sp.Values.ByteOffset, sp.Count, elemSize, elemSize)
	if err != nil {
		return fmt.Errorf("accessor %d sparse values: %w", idx, err)
	}

	for i := 0; i < sp.Count; i++ {
		target := int(readComponent(indices[i*indexType.Size():], indexType))
		if target < 0 || target >= data.Count {
			return fmt.Errorf("accessor %d: sparse index %d: %w", idx, target, errIndexOutOfRange)
		}
		copy(base[target*elemSize:(target+1)*elemSize], values[i*elemSize:(i+1)*elemSize])
	}

	data.Bytes = base
	data.Stride = elemSize
	data.Buffer = -1
	data.Offset = 0
	return nil
}

func (r *accessorReaderImpl) Float32(idx int) ([]float32, error) {
	data, err := r.Read(idx, true)
	if err != nil {
		return nil, err
	}
	out := make([]float32, data.Count*data.Components)
	for i := 0; i < data.Count; i++ {
		for c := 0; c < data.Components; c++ {
			v := float32(data.value(i, c))
			if data.Normalized {
				v = dequantize(v, data.ComponentType)
			}
			out[i*data.Components+c] = v
		}
	}
	return out, nil
}

func (r *accessorReaderImpl) Uint32(idx int) ([]uint32, error) {
	data, err := r.Read(idx, true)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, data.Count*data.Components)
	for i := 0; i < data.Count; i++ {
		for c := 0; c < data.Components; c++ {
			out[i*data.Components+c] = uint32(data.value(i, c))
		}
	}
	return out, nil
}

func (r *accessorReaderImpl) BoundingBox(idx int) *model.BoundingBox {
	acc, err := r.Accessor(idx)
	if err != nil || len(acc.Min) < 3 || len(acc.Max) < 3 {
		return nil
	}
	lo := mgl32.Vec3{acc.Min[0], acc.Min[1], acc.Min[2]}
	hi := mgl32.Vec3{acc.Max[0], acc.Max[1], acc.Max[2]}
	if acc.normalized() {
		ct := model.ComponentType(acc.ComponentType)
		for i := range 3 {
			lo[i] = dequantize(lo[i], ct)
			hi[i] = dequantize(hi[i], ct)
		}
	}
	return &model.BoundingBox{
		Center:      hi.Add(lo).Mul(0.5),
		HalfExtents: hi.Sub(lo).Mul(0.5),
	}
}
