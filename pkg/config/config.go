package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Recognized option keys
const (
	KeyOutputDirectory  = "outputDirectory"
	KeyFileExtension    = "fileExtension"
	KeyCombine          = "combine"
	KeyCompress         = "compress"
	KeySymlinks         = "symlinks"
	KeyGzipLevel        = "gzipLevel"
	KeyGzipLegacyHeader = "gzipLegacyHeader"
	KeyZstdLevel        = "zstdLevel"
	KeyVerify           = "verify"
)

// ErrConfigType is returned when a recognized key holds a value of the wrong type or range
var ErrConfigType = errors.New("invalid configuration value")

// Options is the configuration mapping handed to the pipeline per invocation.
// Keys that are not recognized are kept so GetOption can still return them.
type Options map[string]any

// Config is the typed view of Options after defaults are applied
type Config struct {
	OutputDirectory  string       `mapstructure:"outputDirectory" yaml:"outputDirectory"`
	FileExtension    string       `mapstructure:"fileExtension" yaml:"fileExtension"`
	Combine          bool         `mapstructure:"combine" yaml:"combine"`
	Compress         bool         `mapstructure:"compress" yaml:"compress"`
	Symlinks         SymlinkTable `mapstructure:"symlinks" yaml:"symlinks"`
	GzipLevel        int          `mapstructure:"gzipLevel" yaml:"gzipLevel"`
	GzipLegacyHeader bool         `mapstructure:"gzipLegacyHeader" yaml:"gzipLegacyHeader"`
	ZstdLevel        int          `mapstructure:"zstdLevel" yaml:"zstdLevel"`
	Verify           bool         `mapstructure:"verify" yaml:"verify"`
}

// Defaults returns the options shared by scripts and stylesheets
func Defaults() Options {
	return Options{
		KeyOutputDirectory:  "/cache",
		KeyFileExtension:    "",
		KeyCombine:          true,
		KeyCompress:         true,
		KeySymlinks:         SymlinkTable{},
		KeyGzipLevel:        0,
		KeyGzipLegacyHeader: false,
		KeyZstdLevel:        0,
		KeyVerify:           false,
	}
}

// ScriptDefaults returns the defaults for combined JavaScript
func ScriptDefaults() Options {
	return Defaults().Merge(Options{
		KeyOutputDirectory: "/cache/js",
		KeyFileExtension:   "js",
	})
}

// StylesheetDefaults returns the defaults for combined CSS
func StylesheetDefaults() Options {
	return Defaults().Merge(Options{
		KeyOutputDirectory: "/cache/css",
		KeyFileExtension:   "css",
	})
}

// Normalize turns whatever the caller supplied into Options.
// Unrecognized shapes (nil, scalars, foreign structs) yield an empty mapping,
// which means "use defaults".
func Normalize(v any) Options {
	switch c := v.(type) {
	case nil:
		return Options{}
	case Options:
		return c.Merge(nil)
	case map[string]any:
		return Options(c).Merge(nil)
	case map[string]string:
		out := make(Options, len(c))
		for k, val := range c {
			out[k] = val
		}
		return out
	case Config:
		return c.Options()
	case *Config:
		if c == nil {
			return Options{}
		}
		return c.Options()
	default:
		return Options{}
	}
}

// Merge returns a new mapping where every key of over replaces the same key of o.
// Replacement is whole-value: nested mappings such as symlinks are not merged.
func (o Options) Merge(over Options) Options {
	out := make(Options, len(o)+len(over))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// GetOption returns the configured value when present and def otherwise
func (o Options) GetOption(name string, def any) any {
	if v, ok := o[name]; ok {
		return v
	}
	return def
}

// Decode converts Options into a Config. Recognized keys must already hold
// the right type: a string "true" for combine is an error, not a coercion.
func Decode(o Options) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: false,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(symlinkHook, integerHook),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build config decoder: %w", err)
	}

	if err := decoder.Decode(map[string]any(o)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigType, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks ranges that the type system cannot express
func (c *Config) Validate() error {
	if c.GzipLevel < 0 || c.GzipLevel > 9 {
		return fmt.Errorf("%w: %s must be between 1 and 9, got %d", ErrConfigType, KeyGzipLevel, c.GzipLevel)
	}
	if c.ZstdLevel < 0 || c.ZstdLevel > 4 {
		return fmt.Errorf("%w: %s must be between 1 and 4, got %d", ErrConfigType, KeyZstdLevel, c.ZstdLevel)
	}
	if strings.TrimSpace(c.FileExtension) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrConfigType, KeyFileExtension)
	}
	if strings.ContainsAny(c.FileExtension, `/\.`) {
		return fmt.Errorf("%w: %s %q must be a bare extension", ErrConfigType, KeyFileExtension, c.FileExtension)
	}
	return nil
}

// Options converts the typed config back to a mapping
func (c Config) Options() Options {
	return Options{
		KeyOutputDirectory:  c.OutputDirectory,
		KeyFileExtension:    c.FileExtension,
		KeyCombine:          c.Combine,
		KeyCompress:         c.Compress,
		KeySymlinks:         c.Symlinks,
		KeyGzipLevel:        c.GzipLevel,
		KeyGzipLegacyHeader: c.GzipLegacyHeader,
		KeyZstdLevel:        c.ZstdLevel,
		KeyVerify:           c.Verify,
	}
}

var symlinkTableType = reflect.TypeOf(SymlinkTable{})

// symlinkHook lets callers pass symlinks as a SymlinkTable, a []Symlink or a plain map
var symlinkHook mapstructure.DecodeHookFuncType = func(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != symlinkTableType {
		return data, nil
	}
	return ParseSymlinks(data)
}

// integerHook keeps floats out of int fields: 6.0 decodes as 6, 9.7 is an error
var integerHook mapstructure.DecodeHookFuncType = func(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		f := reflect.ValueOf(data).Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: expected an integer, got %v", ErrConfigType, data)
		}
		return int(f), nil
	}
	return data, nil
}

// Load reads options from a YAML (.yaml, .yml) or JSON-with-comments (.json, .jsonc) file.
// Only keys present in the file are returned, so the result can be merged over defaults.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, the caller gets defaults
		if os.IsNotExist(err) {
			return Options{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a YAML subset; parsing it as YAML keeps mapping order
		data = jsonc.ToJSON(data)
	case ".yaml", ".yml", "":
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}

	return Parse(data)
}

// Parse decodes a YAML document into Options, keeping symlink order as written
func Parse(data []byte) (Options, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	opts := Options{}
	if len(doc.Content) == 0 {
		return opts, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		// Unrecognized shape: fall back to defaults
		return opts, nil
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		valueNode := root.Content[i+1]

		if key == KeySymlinks {
			var table SymlinkTable
			if err := valueNode.Decode(&table); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrConfigType, KeySymlinks, err)
			}
			opts[key] = table
			continue
		}

		var value any
		if err := valueNode.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		opts[key] = value
	}

	return opts, nil
}

// Save persists options to the specified path as YAML
func (o Options) Save(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(map[string]any(o))
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
