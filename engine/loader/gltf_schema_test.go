package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-glb/engine/draco"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchema(t *testing.T) {
	known := knownExtensions(materialExtensionHandlers())
	doc := append([]byte{0xEF, 0xBB, 0xBF}, `{
		"asset": {"version": "2.1", "generator": "PlayCanvas"},
		"extensionsRequired": ["KHR_materials_unlit", "KHR_mesh_quantization", "EXT_meshopt_compression"]
	}`...)

	s, err := parseSchema(context.Background(), doc, nil, known, testLogger())
	require.NoError(t, err)
	assert.True(t, s.flippedUV)
	assert.Equal(t, []string{"EXT_meshopt_compression"}, s.unsupported)
	assert.Nil(t, s.decoder)
	assert.NoError(t, s.decoderErr, "documents without compression never wait for the decoder")
}

func TestParseSchemaErrors(t *testing.T) {
	known := knownExtensions(nil)
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"malformed", `{"asset": `, ErrInvalidJSON},
		{"version 1", `{"asset": {"version": "1.0"}}`, ErrUnsupportedAssetVersion},
		{"version 1 with patch", `{"asset": {"version": "1.9.3"}}`, ErrUnsupportedAssetVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSchema(context.Background(), []byte(tt.doc), nil, known, testLogger())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseSchemaLenientVersion(t *testing.T) {
	known := knownExtensions(nil)
	for _, doc := range []string{
		`{"asset": {}}`,
		`{"asset": {"version": "2.0.1"}}`,
		`{"asset": {"version": "next"}}`,
	} {
		_, err := parseSchema(context.Background(), []byte(doc), nil, known, testLogger())
		assert.NoError(t, err, doc)
	}
}

func TestLeadingVersion(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"2.0", 2, true},
		{"2.0.1", 2, true},
		{"1.9.3", 1.9, true},
		{"3", 3, true},
		{"2.", 2, true},
		{"", 0, false},
		{"v2", 0, false},
	}
	for _, tt := range tests {
		got, ok := leadingVersion(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}

func TestParseSchemaWaitsForDecoder(t *testing.T) {
	doc := []byte(`{"asset": {"version": "2.0"}, "extensionsUsed": ["KHR_draco_mesh_compression"]}`)
	known := knownExtensions(nil)

	boom := errors.New("wasm unavailable")
	s, err := parseSchema(context.Background(), doc, draco.NewModule(func(context.Context) (draco.Decoder, error) {
		return nil, boom
	}), known, testLogger())
	require.NoError(t, err)
	assert.ErrorIs(t, s.decoderErr, boom)

	s, err = parseSchema(context.Background(), doc, draco.NewStaticModule(fakeDracoDecoder()), known, testLogger())
	require.NoError(t, err)
	assert.NotNil(t, s.decoder)
}

func TestImportRecordsSchemaDiagnostics(t *testing.T) {
	bundle := importJSON(t, `{
		"asset": {"version": "2.0", "generator": "PlayCanvas"},
		"extensionsRequired": ["EXT_mystery"]
	}`)
	assert.True(t, bundle.HasDiagnostic(model.DiagnosticFlippedUV))
	assert.True(t, bundle.HasDiagnostic(model.DiagnosticUnsupportedExtension))
	for _, d := range bundle.Diagnostics {
		assert.Equal(t, -1, d.Mesh)
	}
}
