package loader

import (
	"context"

	"github.com/Carmen-Shannon/oxy-glb/engine/model"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loaderBackend decodes one file format into a ResourceBundle.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Supports reports whether path names a file this backend decodes.
	//
	// Parameters:
	//   - path: a file path or URL
	//
	// Returns:
	//   - error: ErrUnsupportedFormat wrapped with the extension, nil when supported
	Supports(path string) error

	// Import decodes data.
	//
	// Parameters:
	//   - ctx: passed to the collaborators of the load
	//   - name: the load key
	//   - baseURL: the base relative URIs resolve against
	//   - data: the file contents
	//
	// Returns:
	//   - *model.ResourceBundle: the decoded bundle
	//   - error: error if decoding fails
	Import(ctx context.Context, name, baseURL string, data []byte) (*model.ResourceBundle, error)
}

// newLoaderBackend creates the backend for backendType from the collaborators configured on l.
// Unknown types fall back to glTF, the only format implemented.
func newLoaderBackend(backendType LoaderBackendType, l *loader) loaderBackend {
	switch backendType {
	case BackendTypeGLTF:
		return newGLTFLoaderBackend(l)
	default:
		l.logger.Warn("unknown loader backend, using glTF", "backend", int(backendType))
		return newGLTFLoaderBackend(l)
	}
}
