package loader

import (
	"maps"

	"github.com/Carmen-Shannon/oxy-glb/engine/draco"
	"github.com/Carmen-Shannon/oxy-glb/engine/fetch"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"
	"github.com/Carmen-Shannon/oxy-glb/engine/texture"

	"github.com/charmbracelet/log"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithConfig is an option builder that replaces the decode configuration.
//
// Parameters:
//   - cfg: the configuration, typically from DefaultConfig or LoadConfig
//
// Returns:
//   - LoaderBuilderOption: a function that applies the config option to a loader
func WithConfig(cfg Config) LoaderBuilderOption {
	return func(l *loader) {
		cfg.normalize()
		l.cfg = cfg
	}
}

// WithByteSource is an option builder that sets where files and external URIs are read from.
//
// Parameters:
//   - source: the byte source
//
// Returns:
//   - LoaderBuilderOption: a function that applies the source option to a loader
func WithByteSource(source fetch.ByteSource) LoaderBuilderOption {
	return func(l *loader) {
		l.source = source
	}
}

// WithTextureFactory is an option builder that sets the image decoder. A nil factory keeps images encoded.
//
// Parameters:
//   - factory: the texture factory
//
// Returns:
//   - LoaderBuilderOption: a function that applies the factory option to a loader
func WithTextureFactory(factory texture.Factory) LoaderBuilderOption {
	return func(l *loader) {
		l.factory = factory
		l.rawImages = factory == nil
	}
}

// WithDecompressor is an option builder that sets the mesh decompression module.
//
// Parameters:
//   - module: the module, shared between loaders when it is draco.Default()
//
// Returns:
//   - LoaderBuilderOption: a function that applies the decompressor option to a loader
func WithDecompressor(module *draco.Module) LoaderBuilderOption {
	return func(l *loader) {
		l.module = module
	}
}

// WithLogger is an option builder that sets the logger.
func WithLogger(logger *log.Logger) LoaderBuilderOption {
	return func(l *loader) {
		l.logger = logger
	}
}

// WithBundle is an option builder that pre-populates the cache with a bundle.
//
// Parameters:
//   - key: the cache key for the bundle
//   - bundle: the bundle to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the bundle option to a loader
func WithBundle(key string, bundle *model.ResourceBundle) LoaderBuilderOption {
	return func(l *loader) {
		l.bundleCache[key] = bundle
	}
}

// WithHooks is an option builder that appends hooks run on every decoded bundle, in order.
func WithHooks(hooks ...LoadHook) LoaderBuilderOption {
	return func(l *loader) {
		l.hooks = append(l.hooks, hooks...)
	}
}

// WithEvictHandler is an option builder that registers a callback run after a bundle leaves the cache.
func WithEvictHandler(fn func(name string)) LoaderBuilderOption {
	return func(l *loader) {
		l.onEvict = append(l.onEvict, fn)
	}
}

// WithMaterialExtension is an option builder that adds a material extension handler to this loader only.
// It overrides a process-wide handler registered under the same name.
//
// Parameters:
//   - name: the extension name, e.g. "KHR_materials_clearcoat"
//   - handler: the handler
//
// Returns:
//   - LoaderBuilderOption: a function that applies the handler option to a loader
func WithMaterialExtension(name string, handler MaterialExtensionHandler) LoaderBuilderOption {
	return func(l *loader) {
		l.handlers = maps.Clone(l.handlers)
		l.handlers[name] = handler
	}
}
