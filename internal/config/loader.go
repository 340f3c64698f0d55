package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified"; WithDefaults fills them in.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`
	Backend      string `json:"backend" yaml:"backend" toml:"backend"`
	Workers      int    `json:"workers" yaml:"workers" toml:"workers"`
	OutputFormat string `json:"output_format" yaml:"output_format" toml:"output_format"`

	ArtifactURL string `json:"artifact_url" yaml:"artifact_url" toml:"artifact_url"`
	ArtifactDir string `json:"artifact_dir" yaml:"artifact_dir" toml:"artifact_dir"`
	// CacheDir "-" disables the on-disk artifact cache.
	CacheDir string `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir"`

	MaxInputPixels      int   `json:"max_input_pixels" yaml:"max_input_pixels" toml:"max_input_pixels"`
	MaxUploadBytes      int64 `json:"max_upload_bytes" yaml:"max_upload_bytes" toml:"max_upload_bytes"`
	InferTimeoutSeconds int   `json:"infer_timeout_seconds" yaml:"infer_timeout_seconds" toml:"infer_timeout_seconds"`
	LoadTimeoutSeconds  int   `json:"load_timeout_seconds" yaml:"load_timeout_seconds" toml:"load_timeout_seconds"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	CORSMethods []string `json:"cors_methods" yaml:"cors_methods" toml:"cors_methods"`
	CORSHeaders []string `json:"cors_headers" yaml:"cors_headers" toml:"cors_headers"`
}

// Defaults for unspecified fields.
const (
	DefaultAddr           = ":8080"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultBackend        = "preferred-hardware"
	DefaultOutputFormat   = "jpeg"
	DefaultCacheDir       = "~/.cache/upscaled"
	DefaultMaxInputPixels = 4096 * 4096
	DefaultMaxUploadBytes = 32 << 20
	DefaultInferTimeout   = 120
	DefaultLoadTimeout    = 300
)

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// WithDefaults returns a copy of c with unspecified fields filled in.
// Timeouts keep an explicit negative value, which disables them.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.OutputFormat == "" {
		c.OutputFormat = DefaultOutputFormat
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.MaxInputPixels == 0 {
		c.MaxInputPixels = DefaultMaxInputPixels
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.InferTimeoutSeconds == 0 {
		c.InferTimeoutSeconds = DefaultInferTimeout
	}
	if c.LoadTimeoutSeconds == 0 {
		c.LoadTimeoutSeconds = DefaultLoadTimeout
	}
	if c.CORSEnabled && len(c.CORSMethods) == 0 {
		c.CORSMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	}
	return c
}

// Validate rejects unknown enum values and negative limits.
func (c Config) Validate() error {
	var errs []error
	switch c.LogLevel {
	case "", "trace", "debug", "info", "warn", "error", "off":
	default:
		errs = append(errs, fmt.Errorf("log_level: unknown value %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log_format: unknown value %q", c.LogFormat))
	}
	switch c.Backend {
	case "", "preferred-hardware", "fallback-software":
	default:
		errs = append(errs, fmt.Errorf("backend: unknown value %q", c.Backend))
	}
	switch c.OutputFormat {
	case "", "jpeg", "jpg", "png":
	default:
		errs = append(errs, fmt.Errorf("output_format: unknown value %q", c.OutputFormat))
	}
	if c.Workers < 0 {
		errs = append(errs, errors.New("workers: must not be negative"))
	}
	if c.MaxInputPixels < 0 {
		errs = append(errs, errors.New("max_input_pixels: must not be negative"))
	}
	if c.MaxUploadBytes < 0 {
		errs = append(errs, errors.New("max_upload_bytes: must not be negative"))
	}
	return errors.Join(errs...)
}
