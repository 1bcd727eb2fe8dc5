package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-glb/engine/draco"
	"github.com/Carmen-Shannon/oxy-glb/engine/fetch"
	"github.com/Carmen-Shannon/oxy-glb/engine/logging"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"
	"github.com/Carmen-Shannon/oxy-glb/engine/texture"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	cfg      Config
	source   fetch.ByteSource
	factory  texture.Factory
	module   *draco.Module
	handlers map[string]MaterialExtensionHandler
	hooks    []LoadHook
	onEvict  []func(name string)
	logger   *log.Logger

	// rawImages is set when images stay encoded.
	rawImages bool

	backend loaderBackend
	pool    worker.DynamicWorkerPool

	bundleCache map[string]*model.ResourceBundle
	inflight    singleflight.Group

	// active counts decodes that may still submit work to pool.
	active sync.WaitGroup

	watcher *fsnotify.Watcher
	pending map[string]*time.Timer
	closed  bool
}

// Loader decodes GLB and glTF files into ResourceBundles and caches them by load key.
// Concurrent loads of the same key are coalesced into one decode; only successful bundles are cached.
type Loader interface {
	// Load fetches path through the byte source and decodes it.
	// A cached bundle is returned without fetching. Relative URIs inside the document resolve against
	// Config.BaseURL, or the directory of path when that is empty.
	//
	// Parameters:
	//   - ctx: passed to the byte source, texture factory and decoder module
	//   - path: a file path or URL, also used as the cache key
	//
	// Returns:
	//   - *model.ResourceBundle: the decoded bundle
	//   - error: error if fetching or decoding fails
	Load(ctx context.Context, path string) (*model.ResourceBundle, error)

	// LoadBytes decodes data and caches the result under name.
	//
	// Parameters:
	//   - ctx: passed to the byte source, texture factory and decoder module
	//   - name: the cache key; a ".glb" suffix selects the container format when data lacks the GLB magic
	//   - data: the file contents
	//
	// Returns:
	//   - *model.ResourceBundle: the decoded bundle
	//   - error: error if decoding fails
	LoadBytes(ctx context.Context, name string, data []byte) (*model.ResourceBundle, error)

	// LoadReader reads r to the end and decodes it as LoadBytes does.
	//
	// Parameters:
	//   - ctx: passed to the byte source, texture factory and decoder module
	//   - name: the cache key
	//   - r: the reader providing GLB or glTF data
	//
	// Returns:
	//   - *model.ResourceBundle: the decoded bundle
	//   - error: error if reading or decoding fails
	LoadReader(ctx context.Context, name string, r io.Reader) (*model.ResourceBundle, error)

	// LoadAsync runs Load on its own goroutine and delivers the result to done exactly once.
	//
	// Parameters:
	//   - ctx: passed to Load
	//   - path: a file path or URL
	//   - done: receives the bundle or the error
	LoadAsync(ctx context.Context, path string, done func(*model.ResourceBundle, error))

	// Get returns a cached bundle, or nil.
	Get(name string) *model.ResourceBundle

	// Bundles returns a copy of the cache keyed by load key.
	Bundles() map[string]*model.ResourceBundle

	// Evict drops a cached bundle.
	//
	// Parameters:
	//   - name: the cache key
	//
	// Returns:
	//   - bool: true when a bundle was removed
	Evict(name string) bool

	// Watch evicts cached bundles loaded from dir when their file changes.
	// Events are debounced by Config.WatchDebounceMs.
	//
	// Parameters:
	//   - dir: the directory to watch (not recursive)
	//
	// Returns:
	//   - error: error if the watcher cannot be created or the directory cannot be watched
	Watch(dir string) error

	// Close stops the watcher, waits for running decodes to finish and stops the worker pool.
	// Later loads fail with ErrLoaderClosed.
	Close() error
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:          sync.RWMutex{},
		cfg:         DefaultConfig(),
		handlers:    materialExtensionHandlers(),
		bundleCache: make(map[string]*model.ResourceBundle),
		pending:     make(map[string]*time.Timer),
	}

	for _, option := range options {
		option(l)
	}

	if l.logger == nil {
		l.logger = logging.Logger().WithPrefix("loader")
	}
	if l.cfg.LogLevel != "" {
		if level, err := log.ParseLevel(l.cfg.LogLevel); err == nil {
			l.logger.SetLevel(level)
		} else {
			l.logger.Warn("ignoring log level", "level", l.cfg.LogLevel, "err", err)
		}
	}
	if l.source == nil {
		l.source = fetch.NewDefault("")
	}
	if l.factory == nil && !l.rawImages {
		l.factory = texture.NewDecoder()
	}
	if l.module == nil {
		l.module = draco.Default()
	}

	l.pool = worker.NewDynamicWorkerPool(l.cfg.Workers, l.cfg.QueueSize, 1*time.Second)
	l.backend = newLoaderBackend(backendType, l)
	return l
}

func (l *loader) Load(ctx context.Context, path string) (*model.ResourceBundle, error) {
	if err := l.backend.Supports(path); err != nil {
		return nil, err
	}
	return l.load(ctx, path, func(ctx context.Context) ([]byte, string, error) {
		data, err := l.source.Fetch(ctx, path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to fetch %s: %w", path, err)
		}
		base := l.cfg.BaseURL
		if base == "" {
			base = baseOf(path)
		}
		return data, base, nil
	})
}

func (l *loader) LoadBytes(ctx context.Context, name string, data []byte) (*model.ResourceBundle, error) {
	return l.load(ctx, name, func(context.Context) ([]byte, string, error) {
		return data, l.cfg.BaseURL, nil
	})
}

func (l *loader) LoadReader(ctx context.Context, name string, r io.Reader) (*model.ResourceBundle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return l.LoadBytes(ctx, name, data)
}

func (l *loader) LoadAsync(ctx context.Context, path string, done func(*model.ResourceBundle, error)) {
	go func() {
		done(l.Load(ctx, path))
	}()
}

// load returns the cached bundle for key or decodes it once, however many callers ask concurrently.
// The shared decode runs detached from any single caller's cancellation; each caller stops waiting when its own ctx ends.
//
// Parameters:
//   - ctx: bounds this caller's wait; its values are passed to the backend
//   - key: the cache key
//   - read: supplies the file contents and the base URL
//
// Returns:
//   - *model.ResourceBundle: the bundle
//   - error: error if reading or decoding fails, or ctx ends first
func (l *loader) load(ctx context.Context, key string, read func(ctx context.Context) ([]byte, string, error)) (*model.ResourceBundle, error) {
	l.mu.RLock()
	closed := l.closed
	cached, ok := l.bundleCache[key]
	l.mu.RUnlock()
	if closed {
		return nil, ErrLoaderClosed
	}
	if ok {
		return cached, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := l.inflight.DoChan(key, func() (any, error) {
		// Close waits on active before stopping the pool the decode fans out on
		l.mu.RLock()
		if l.closed {
			l.mu.RUnlock()
			return nil, ErrLoaderClosed
		}
		cached, ok := l.bundleCache[key]
		if !ok {
			l.active.Add(1)
		}
		l.mu.RUnlock()
		if ok {
			return cached, nil
		}
		defer l.active.Done()

		data, base, err := read(shared)
		if err != nil {
			return nil, err
		}
		bundle, err := l.backend.Import(shared, key, base, data)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		if l.closed {
			return nil, ErrLoaderClosed
		}
		l.bundleCache[key] = bundle
		return bundle, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.ResourceBundle), nil
	}
}

func (l *loader) Get(name string) *model.ResourceBundle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bundleCache[name]
}

func (l *loader) Bundles() map[string]*model.ResourceBundle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.bundleCache)
}

func (l *loader) Evict(name string) bool {
	l.mu.Lock()
	_, ok := l.bundleCache[name]
	delete(l.bundleCache, name)
	handlers := l.onEvict
	l.mu.Unlock()

	l.inflight.Forget(name)
	if ok {
		l.logger.Debug("evicted", "name", name)
		for _, fn := range handlers {
			fn(name)
		}
	}
	return ok
}

// --- Watching ---

func (l *loader) Watch(dir string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLoaderClosed
	}
	if l.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		l.watcher = w
		go l.watchLoop(w)
	}
	if err := l.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	l.logger.Debug("watching", "dir", dir)
	return nil
}

// watchLoop drains watcher events until the watcher is closed.
func (l *loader) watchLoop(w *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				l.scheduleEvict(ev.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			l.logger.Warn("watcher error", "err", err)
		}
	}
}

// scheduleEvict evicts every cache key naming file once the debounce window passes without another event.
func (l *loader) scheduleEvict(file string) {
	target := absPath(file)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if t, ok := l.pending[target]; ok {
		t.Stop()
	}
	l.pending[target] = time.AfterFunc(l.cfg.debounce(), func() {
		l.mu.Lock()
		delete(l.pending, target)
		var keys []string
		for key := range l.bundleCache {
			if absPath(key) == target {
				keys = append(keys, key)
			}
		}
		l.mu.Unlock()

		for _, key := range keys {
			l.logger.Info("source changed", "name", key)
			l.Evict(key)
		}
	})
}

// absPath cleans p into an absolute path; URLs and unresolvable paths are returned unchanged.
func absPath(p string) string {
	if fetch.Scheme(p) != "" {
		return p
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

func (l *loader) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoaderClosed
	}
	l.closed = true
	w := l.watcher
	for _, t := range l.pending {
		t.Stop()
	}
	clear(l.pending)
	l.mu.Unlock()

	var errs []error
	if w != nil {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close watcher: %w", err))
		}
	}
	l.active.Wait()
	l.pool.Stop()
	return errors.Join(errs...)
}
