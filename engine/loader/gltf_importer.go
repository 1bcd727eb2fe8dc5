package loader

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-glb/engine/draco"
	"github.com/Carmen-Shannon/oxy-glb/engine/fetch"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"
	"github.com/Carmen-Shannon/oxy-glb/engine/profiler"
	"github.com/Carmen-Shannon/oxy-glb/engine/texture"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/charmbracelet/log"
)

// LoadHook runs on every successfully decoded bundle before it is returned or cached.
// A hook error fails the load.
type LoadHook func(ctx context.Context, bundle *model.ResourceBundle) error

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	cfg      Config
	source   fetch.ByteSource
	factory  texture.Factory
	module   *draco.Module
	handlers map[string]MaterialExtensionHandler
	hooks    []LoadHook
	pool     worker.DynamicWorkerPool
	logger   *log.Logger
}

// gltfImporter decodes one GLB container or glTF document into a ResourceBundle.
// It runs the pipeline stages in order and stops at the first failure; no partial bundle is returned.
type gltfImporter interface {
	// Import decodes data.
	//
	// Parameters:
	//   - ctx: passed to the byte source, the texture factory and the decoder module
	//   - name: the load key; a ".glb" suffix or the GLB magic selects the container format
	//   - baseURL: the base relative URIs resolve against, "" to use them unchanged
	//   - data: the file contents
	//
	// Returns:
	//   - *model.ResourceBundle: the decoded bundle
	//   - error: error if any stage fails
	Import(ctx context.Context, name, baseURL string, data []byte) (*model.ResourceBundle, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates an importer. The handler map is read, never written, so it may be shared.
func newGLTFImporter(cfg Config, source fetch.ByteSource, factory texture.Factory, module *draco.Module,
	handlers map[string]MaterialExtensionHandler, hooks []LoadHook, pool worker.DynamicWorkerPool, logger *log.Logger) gltfImporter {
	return &gltfImporterImpl{
		cfg:      cfg,
		source:   source,
		factory:  factory,
		module:   module,
		handlers: handlers,
		hooks:    hooks,
		pool:     pool,
		logger:   logger,
	}
}

func (imp *gltfImporterImpl) Import(ctx context.Context, name, baseURL string, data []byte) (*model.ResourceBundle, error) {
	prof := profiler.NewProfiler(imp.logger)
	bundle, err := imp.run(ctx, prof, name, baseURL, data)
	total := prof.Finish(name)
	if err != nil {
		return nil, err
	}

	for _, s := range prof.Stages() {
		bundle.Timings = append(bundle.Timings, model.StageTiming{Stage: s.Name, Duration: s.Duration})
	}
	bundle.Timings = append(bundle.Timings, model.StageTiming{Stage: "total", Duration: total})

	for _, hook := range imp.hooks {
		if err := hook(ctx, bundle); err != nil {
			return nil, fmt.Errorf("load hook failed for %s: %w", name, err)
		}
	}
	return bundle, nil
}

// run executes the pipeline stages.
func (imp *gltfImporterImpl) run(ctx context.Context, prof *profiler.Profiler, name, baseURL string, data []byte) (*model.ResourceBundle, error) {
	prof.Begin("container")
	container, err := readGLBContainer(data, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	prof.Begin("schema")
	schema, err := parseSchema(ctx, container.JSON(), imp.module, knownExtensions(imp.handlers), imp.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	doc := schema.doc

	bundle := model.NewResourceBundle(
		model.WithName(name),
		model.WithGenerator(doc.Asset.Generator),
		model.WithNodeCapacity(len(doc.Nodes)+len(doc.Scenes)+len(doc.Cameras)),
	)
	if schema.flippedUV {
		bundle.Diagnose(model.DiagnosticFlippedUV, -1, -1, "generator %q writes flipped V coordinates", doc.Asset.Generator)
	}
	for _, ext := range schema.unsupported {
		bundle.Diagnose(model.DiagnosticUnsupportedExtension, -1, -1, "required extension %s is not supported", ext)
	}

	prof.Begin("buffers")
	buffers, err := resolveBuffers(ctx, doc, container.Binary(), imp.source, baseURL, imp.pool)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve buffers of %s: %w", name, err)
	}
	views, err := resolveBufferViews(doc, buffers)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve buffer views of %s: %w", name, err)
	}
	reader := newAccessorReader(doc, views, imp.cfg.FlattenAccessors, imp.logger)

	prof.Begin("nodes")
	scenes := newGLTFSceneExtractor(doc, bundle, imp.logger)
	if err := scenes.ExtractNodes(); err != nil {
		return nil, fmt.Errorf("failed to extract nodes of %s: %w", name, err)
	}

	prof.Begin("meshes")
	vertices := newVertexBufferBuilder(reader, buffers, imp.cfg.FlipV, imp.logger)
	meshes := newGLTFMeshExtractor(schema, reader, views, vertices, bundle, imp.cfg, imp.logger)
	if bundle.Meshes, err = meshes.ExtractAllMeshes(); err != nil {
		return nil, fmt.Errorf("failed to extract meshes of %s: %w", name, err)
	}

	prof.Begin("skins")
	skins := newGLTFSkinExtractor(doc, reader, bundle)
	if bundle.Skins, err = skins.ExtractAllSkins(); err != nil {
		return nil, fmt.Errorf("failed to extract skins of %s: %w", name, err)
	}
	skins.LinkSkins(bundle.Skins, bundle.Meshes)

	prof.Begin("materials")
	materials := newGLTFMaterialExtractor(doc, imp.handlers, imp.logger)
	if bundle.Materials, err = materials.ExtractAllMaterials(); err != nil {
		return nil, fmt.Errorf("failed to extract materials of %s: %w", name, err)
	}

	prof.Begin("textures")
	textures := newGLTFTextureExtractor(doc, views, imp.source, baseURL, imp.factory, imp.pool, imp.logger)
	bundle.Textures = textures.ExtractTextures(materials.SRGBTextures())
	if bundle.Images, err = textures.ExtractImages(ctx, bundle.Textures); err != nil {
		return nil, fmt.Errorf("failed to load images of %s: %w", name, err)
	}

	// curve entity paths are taken from the assembled hierarchy, synthetic scene roots included
	prof.Begin("scenes")
	if err := scenes.ExtractScenes(); err != nil {
		return nil, fmt.Errorf("failed to assemble scenes of %s: %w", name, err)
	}
	scenes.ExtractCameras()
	if err := scenes.ExtractLights(); err != nil {
		return nil, fmt.Errorf("failed to extract lights of %s: %w", name, err)
	}

	prof.Begin("animations")
	animations := newGLTFAnimationExtractor(doc, reader, bundle, imp.logger)
	if bundle.Animations, err = animations.ExtractAllAnimations(); err != nil {
		return nil, fmt.Errorf("failed to extract animations of %s: %w", name, err)
	}
	prof.End()

	imp.logger.Debug("decoded", "name", name, "nodes", len(bundle.Nodes), "meshes", len(bundle.Meshes),
		"materials", len(bundle.Materials), "animations", len(bundle.Animations), "diagnostics", len(bundle.Diagnostics))
	return bundle, nil
}

// baseOf returns the location relative references inside target resolve against.
//
// Parameters:
//   - target: a file path or URL
//
// Returns:
//   - string: the directory of target, "" when it has none
func baseOf(target string) string {
	if fetch.Scheme(target) != "" {
		u, err := url.Parse(target)
		if err != nil {
			return ""
		}
		u.Path = path.Dir(u.Path)
		u.RawQuery, u.Fragment = "", ""
		return u.String()
	}
	dir := filepath.Dir(target)
	if dir == "." {
		return ""
	}
	return dir
}
