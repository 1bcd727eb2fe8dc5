package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-glb/engine/draco"

	"github.com/charmbracelet/log"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// flippedUVGenerator is the generator whose exports are known to carry flipped V coordinates.
const flippedUVGenerator = "PlayCanvas"

// gltfSchema is a parsed document plus what the schema walk learned about it.
type gltfSchema struct {
	doc *gltfDocument

	// decoder is set when the document uses mesh compression and the module became ready.
	decoder draco.Decoder

	// decoderErr is the readiness failure, reported by each compressed primitive.
	decoderErr error

	// flippedUV is true for documents from flippedUVGenerator.
	flippedUV bool

	// unsupported lists extensionsRequired entries nothing handles.
	unsupported []string
}

// parseSchema decodes the JSON chunk and validates the asset version.
// When the document uses KHR_draco_mesh_compression it waits for the decoder module; a readiness
// failure is kept on the result rather than returned.
//
// Parameters:
//   - ctx: bounds the wait for the decoder module
//   - data: the JSON chunk
//   - module: the decoder module, nil when compression is unsupported
//   - known: reports whether an extension has a handler
//   - logger: the load logger
//
// Returns:
//   - *gltfSchema: the parsed document
//   - error: ErrInvalidJSON or ErrUnsupportedAssetVersion
func parseSchema(ctx context.Context, data []byte, module *draco.Module, known func(string) bool, logger *log.Logger) (*gltfSchema, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	if version, ok := leadingVersion(doc.Asset.Version); ok && version < 2 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAssetVersion, doc.Asset.Version)
	}

	s := &gltfSchema{doc: &doc}
	logger.Debug("parsed document", "version", doc.Asset.Version, "generator", doc.Asset.Generator,
		"nodes", len(doc.Nodes), "meshes", len(doc.Meshes), "materials", len(doc.Materials))

	for _, ext := range doc.ExtensionsRequired {
		if !known(ext) {
			s.unsupported = append(s.unsupported, ext)
			logger.Warn("required extension is not supported", "extension", ext)
		}
	}

	if doc.Asset.Generator == flippedUVGenerator {
		s.flippedUV = true
		logger.Warn("document generator writes flipped UVs", "generator", doc.Asset.Generator)
	}

	if doc.usesExtension(extDracoMeshCompression) {
		if module == nil {
			s.decoderErr = draco.ErrNoDecoder
		} else {
			s.decoder, s.decoderErr = module.Ready(ctx)
		}
		if s.decoderErr != nil {
			logger.Warn("mesh decompressor not ready", "err", s.decoderErr)
		}
	}

	return s, nil
}

// leadingVersion parses the numeric "major.minor" prefix of an asset version, so "2.0.1" reads as 2.
// It reports false when the version has no numeric prefix.
func leadingVersion(v string) (float64, bool) {
	end, dot := 0, false
	for end < len(v) {
		c := v[end]
		if c == '.' && !dot {
			dot = true
		} else if c < '0' || c > '9' {
			break
		}
		end++
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(v[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
