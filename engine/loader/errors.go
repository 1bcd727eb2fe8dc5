package loader

import "errors"

// Errors returned by a load. Every error is wrapped with context; match with errors.Is.
var (
	ErrInvalidMagic                = errors.New("invalid GLB magic number")
	ErrUnsupportedContainerVersion = errors.New("unsupported GLB container version: must be 2")
	ErrTruncatedContainer          = errors.New("truncated GLB container")
	ErrChunkOverrun                = errors.New("GLB chunk length exceeds container")
	ErrInvalidChunkCount           = errors.New("invalid GLB chunk count: must be 1 or 2")
	ErrMissingJSONChunk            = errors.New("first GLB chunk is not JSON")
	ErrUnexpectedChunkType         = errors.New("second GLB chunk is not BIN")

	ErrInvalidJSON             = errors.New("invalid glTF JSON")
	ErrUnsupportedAssetVersion = errors.New("unsupported glTF asset version: must be >= 2")

	ErrMissingBinaryChunk = errors.New("buffer has no URI and the container has no BIN chunk")
	ErrInvalidDataURI     = errors.New("invalid data URI")
	ErrBufferViewOverrun  = errors.New("bufferView exceeds buffer")
	ErrAccessorOverrun    = errors.New("accessor exceeds bufferView")
	ErrInvalidImage       = errors.New("invalid image found in gltf (neither uri or bufferView found)")

	ErrDracoMorphTargets       = errors.New("morph targets are not supported on compressed primitives")
	ErrDecompressorUnavailable = errors.New("mesh decompressor unavailable")

	ErrLoaderClosed      = errors.New("loader is closed")
	ErrUnsupportedFormat = errors.New("unsupported model format")

	errIndexOutOfRange = errors.New("index out of range")
)
