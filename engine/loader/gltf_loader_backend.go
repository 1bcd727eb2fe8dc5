package loader

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-glb/engine/fetch"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct {
	importer gltfImporter
}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
// It delegates to the gltfImporter for parsing and extraction.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a glTF backend sharing the collaborators, worker pool and logger of l.
//
// Parameters:
//   - l: the owning loader
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend(l *loader) gltfLoaderBackend {
	return &gltfLoaderBackendImpl{
		importer: newGLTFImporter(l.cfg, l.source, l.factory, l.module, l.handlers, l.hooks, l.pool, l.logger),
	}
}

func (b *gltfLoaderBackendImpl) Supports(path string) error {
	ext := strings.ToLower(filepath.Ext(stripQuery(path)))
	switch ext {
	case ".gltf", ".glb":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func (b *gltfLoaderBackendImpl) Import(ctx context.Context, name, baseURL string, data []byte) (*model.ResourceBundle, error) {
	return b.importer.Import(ctx, name, baseURL, data)
}

// stripQuery returns the path component of a URL, or target unchanged when it is not one.
func stripQuery(target string) string {
	if fetch.Scheme(target) == "" {
		return target
	}
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	return u.Path
}
