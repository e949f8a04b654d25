package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOption(t *testing.T) {
	opts := Options{KeyCompress: false, "custom": "value"}

	assert.Equal(t, false, opts.GetOption(KeyCompress, true))
	assert.Equal(t, "value", opts.GetOption("custom", nil))
	assert.Equal(t, 7, opts.GetOption("missing", 7))
	assert.Nil(t, opts.GetOption("missing", nil))
}

func TestMerge_PartialOverridePreservesDefaults(t *testing.T) {
	defaults := ScriptDefaults()
	merged := defaults.Merge(Options{KeyCompress: false})

	assert.Equal(t, false, merged[KeyCompress])
	for key, value := range defaults {
		if key == KeyCompress {
			continue
		}
		assert.Equal(t, value, merged[key], "key %s changed", key)
	}

	// The receiver is not modified
	assert.Equal(t, true, defaults[KeyCompress])
}

func TestMerge_NoKeyVanishes(t *testing.T) {
	base := Options{"a": 1, "b": 2}
	merged := base.Merge(Options{"b": 3, "c": 4})

	assert.Equal(t, Options{"a": 1, "b": 3, "c": 4}, merged)
}

func TestMerge_ReplacesSymlinksWhole(t *testing.T) {
	base := Options{KeySymlinks: SymlinkTable{{Virtual: "/a/", Real: "/x/"}}}
	merged := base.Merge(Options{KeySymlinks: SymlinkTable{{Virtual: "/b/", Real: "/y/"}}})

	assert.Equal(t, SymlinkTable{{Virtual: "/b/", Real: "/y/"}}, merged[KeySymlinks])
}

func TestNormalize_UnrecognizedShapesMeanDefaults(t *testing.T) {
	for _, input := range []any{nil, 42, "compress=false", []string{"x"}, struct{ Compress bool }{}} {
		assert.Empty(t, Normalize(input), "input %#v", input)
	}

	var nilConfig *Config
	assert.Empty(t, Normalize(nilConfig))
}

func TestNormalize_KnownShapes(t *testing.T) {
	assert.Equal(t, Options{KeyCombine: false}, Normalize(map[string]any{KeyCombine: false}))
	assert.Equal(t, Options{KeyOutputDirectory: "/x"}, Normalize(map[string]string{KeyOutputDirectory: "/x"}))

	cfg := Config{OutputDirectory: "/out", FileExtension: "js", Compress: true}
	assert.Equal(t, "/out", Normalize(cfg)[KeyOutputDirectory])
	assert.Equal(t, "/out", Normalize(&cfg)[KeyOutputDirectory])
}

func TestDecode_Defaults(t *testing.T) {
	cfg, err := Decode(ScriptDefaults())
	require.NoError(t, err)

	assert.Equal(t, "/cache/js", cfg.OutputDirectory)
	assert.Equal(t, "js", cfg.FileExtension)
	assert.True(t, cfg.Combine)
	assert.True(t, cfg.Compress)
	assert.Empty(t, cfg.Symlinks)
	assert.Zero(t, cfg.GzipLevel)

	cfg, err = Decode(StylesheetDefaults())
	require.NoError(t, err)
	assert.Equal(t, "/cache/css", cfg.OutputDirectory)
	assert.Equal(t, "css", cfg.FileExtension)
}

func TestDecode_WrongTypeFailsFast(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"combine as string", Options{KeyCombine: "yes"}},
		{"compress as string", Options{KeyCompress: "false"}},
		{"gzip level as string", Options{KeyGzipLevel: "9"}},
		{"gzip level fractional", Options{KeyGzipLevel: 9.7}},
		{"zstd level fractional", Options{KeyZstdLevel: 2.5}},
		{"symlinks as list", Options{KeySymlinks: []string{"/a"}}},
		{"symlink target not a string", Options{KeySymlinks: map[string]any{"/a/": 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(ScriptDefaults().Merge(tt.opts))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfigType), "got %v", err)
		})
	}
}

func TestDecode_RangeValidation(t *testing.T) {
	_, err := Decode(ScriptDefaults().Merge(Options{KeyGzipLevel: 12}))
	assert.ErrorIs(t, err, ErrConfigType)

	_, err = Decode(ScriptDefaults().Merge(Options{KeyZstdLevel: 9}))
	assert.ErrorIs(t, err, ErrConfigType)

	_, err = Decode(ScriptDefaults().Merge(Options{KeyFileExtension: ""}))
	assert.ErrorIs(t, err, ErrConfigType)

	_, err = Decode(ScriptDefaults().Merge(Options{KeyFileExtension: ".js"}))
	assert.ErrorIs(t, err, ErrConfigType)

	cfg, err := Decode(ScriptDefaults().Merge(Options{KeyGzipLevel: 9, KeyZstdLevel: 4}))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.GzipLevel)
	assert.Equal(t, 4, cfg.ZstdLevel)
}

func TestDecode_IntegralFloats(t *testing.T) {
	// JSON decoders hand numbers over as float64
	cfg, err := Decode(ScriptDefaults().Merge(Options{KeyGzipLevel: 6.0, KeyZstdLevel: float32(3)}))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.GzipLevel)
	assert.Equal(t, 3, cfg.ZstdLevel)
}

func TestParse_FractionalLevelRejected(t *testing.T) {
	opts, err := Parse([]byte("gzipLevel: 9.7\n"))
	require.NoError(t, err)

	_, err = Decode(ScriptDefaults().Merge(opts))
	assert.ErrorIs(t, err, ErrConfigType)
}

func TestDecode_UnknownKeysIgnored(t *testing.T) {
	cfg, err := Decode(ScriptDefaults().Merge(Options{"theme": "dark"}))
	require.NoError(t, err)
	assert.Equal(t, "js", cfg.FileExtension)
}

func TestDecode_SymlinkShapes(t *testing.T) {
	table := SymlinkTable{{Virtual: "/b/", Real: "/real/b/"}, {Virtual: "/a/", Real: "/real/a/"}}

	cfg, err := Decode(ScriptDefaults().Merge(Options{KeySymlinks: table}))
	require.NoError(t, err)
	assert.Equal(t, table, cfg.Symlinks)

	cfg, err = Decode(ScriptDefaults().Merge(Options{KeySymlinks: []Symlink(table)}))
	require.NoError(t, err)
	assert.Equal(t, table, cfg.Symlinks)

	// Plain maps are ordered longest prefix first, then lexically
	cfg, err = Decode(ScriptDefaults().Merge(Options{KeySymlinks: map[string]string{
		"/static/":        "/srv/static/",
		"/static/vendor/": "/opt/vendor/",
		"/assets/":        "/srv/assets/",
	}}))
	require.NoError(t, err)
	assert.Equal(t, SymlinkTable{
		{Virtual: "/static/vendor/", Real: "/opt/vendor/"},
		{Virtual: "/assets/", Real: "/srv/assets/"},
		{Virtual: "/static/", Real: "/srv/static/"},
	}, cfg.Symlinks)
}

func TestParse_KeepsSymlinkOrder(t *testing.T) {
	data := []byte(`
compress: false
gzipLevel: 6
symlinks:
  /z/: /real/z/
  /a/: /real/a/
  /m/: /real/m/
`)
	opts, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, false, opts[KeyCompress])
	assert.Equal(t, 6, opts[KeyGzipLevel])
	assert.Equal(t, SymlinkTable{
		{Virtual: "/z/", Real: "/real/z/"},
		{Virtual: "/a/", Real: "/real/a/"},
		{Virtual: "/m/", Real: "/real/m/"},
	}, opts[KeySymlinks])

	// Only keys present in the file are returned
	_, ok := opts[KeyCombine]
	assert.False(t, ok)
}

func TestParse_NonMappingDocumentMeansDefaults(t *testing.T) {
	opts, err := Parse([]byte("- just\n- a list\n"))
	require.NoError(t, err)
	assert.Empty(t, opts)

	opts, err = Parse([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestParse_BadSymlinks(t *testing.T) {
	_, err := Parse([]byte("symlinks:\n  - /a/\n"))
	assert.ErrorIs(t, err, ErrConfigType)
}

func TestLoad_NonExistentFile(t *testing.T) {
	// Loading a non-existent file should return an empty mapping (defaults)
	opts, err := Load("/nonexistent/path/headpack.yaml")
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestLoad_JSONWithComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headpack.jsonc")
	content := `{
  // where combined files go
  "outputDirectory": "/static/bundles",
  "combine": true,
  "symlinks": {
    "/vendor/": "/opt/vendor/", /* first */
    "/shared/": "/opt/shared/"
  },
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	opts, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/static/bundles", opts[KeyOutputDirectory])
	assert.Equal(t, true, opts[KeyCombine])
	assert.Equal(t, SymlinkTable{
		{Virtual: "/vendor/", Real: "/opt/vendor/"},
		{Virtual: "/shared/", Real: "/opt/shared/"},
	}, opts[KeySymlinks])
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headpack.toml")
	require.NoError(t, os.WriteFile(path, []byte("combine = true"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_And_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "headpack.yaml")

	opts := StylesheetDefaults().Merge(Options{
		KeyGzipLevel: 9,
		KeySymlinks: SymlinkTable{
			{Virtual: "/z/", Real: "/real/z/"},
			{Virtual: "/a/", Real: "/real/a/"},
		},
	})
	require.NoError(t, opts.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	cfg, err := Decode(StylesheetDefaults().Merge(loaded))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.GzipLevel)
	assert.Equal(t, "css", cfg.FileExtension)
	assert.Equal(t, SymlinkTable{
		{Virtual: "/z/", Real: "/real/z/"},
		{Virtual: "/a/", Real: "/real/a/"},
	}, cfg.Symlinks)
}
