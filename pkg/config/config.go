package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/JSingmin/CSharpAnalyser/pkg/analyzer/registry"
)

// ErrInvalidConfig is returned by Validate and by schema checks.
var ErrInvalidConfig = errors.New("invalid configuration")

//go:embed schema.json
var schemaJSON string

const schemaURL = "csanalyser.schema.json"

// Output formats accepted by the output section.
var Formats = []string{"text", "json", "markdown", "toon", "sarif"}

var (
	logFormats = []string{"console", "json"}
	logLevels  = []string{"debug", "info", "warn", "error"}
)

// Config holds all configuration options for csanalyser.
type Config struct {
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis" yaml:"analysis"`
	Exclude  ExcludeConfig  `koanf:"exclude" toml:"exclude" yaml:"exclude"`
	Cache    CacheConfig    `koanf:"cache" toml:"cache" yaml:"cache"`
	Output   OutputConfig   `koanf:"output" toml:"output" yaml:"output"`
	Log      LogConfig      `koanf:"log" toml:"log" yaml:"log"`
}

// AnalysisConfig controls which rules run and how.
type AnalysisConfig struct {
	Rules       []string `koanf:"rules" toml:"rules" yaml:"rules"`
	Workers     int      `koanf:"workers" toml:"workers" yaml:"workers"` // 0 = 2 x NumCPU
	EntryPoints []string `koanf:"entry_points" toml:"entry_points" yaml:"entry_points"`
	MaxFileSize int64    `koanf:"max_file_size" toml:"max_file_size" yaml:"max_file_size"` // bytes, 0 = unlimited
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns" yaml:"patterns"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore" yaml:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled" yaml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir" yaml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl" yaml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format" yaml:"format"`
	Color  bool   `koanf:"color" toml:"color" yaml:"color"`
}

// LogConfig controls the zap logger and its optional rotated file.
type LogConfig struct {
	Level      string `koanf:"level" toml:"level" yaml:"level"`
	Format     string `koanf:"format" toml:"format" yaml:"format"` // console, json
	File       string `koanf:"file" toml:"file" yaml:"file"`
	MaxSize    int    `koanf:"max_size" toml:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `koanf:"max_backups" toml:"max_backups" yaml:"max_backups"`
	MaxAge     int    `koanf:"max_age" toml:"max_age" yaml:"max_age"` // days
	Compress   bool   `koanf:"compress" toml:"compress" yaml:"compress"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Rules:       registry.DefaultNames(),
			Workers:     0,
			EntryPoints: []string{},
			MaxFileSize: 1 << 20,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"bin/",
				"obj/",
				"*.Designer.cs",
				"*.g.cs",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".csanalyser/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Log: LogConfig{
			Level:      "warn",
			Format:     "console",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// Load loads configuration from a file, checks it against the schema and
// validates the merged result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	if err := checkSchema(k.Raw()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return kjson.Parser()
	default:
		return toml.Parser()
	}
}

// LoadResult is a loaded configuration and the file it came from. Source is
// empty when no file was found and defaults are in effect.
type LoadResult struct {
	Config *Config
	Source string
}

// LoadOption customizes LoadConfig.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
	dirs []string
}

// WithPath loads exactly the given file instead of searching.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithSearchDirs overrides the directories searched for a config file.
func WithSearchDirs(dirs ...string) LoadOption {
	return func(o *loadOptions) {
		o.dirs = dirs
	}
}

var configNames = []string{
	"csanalyser.toml",
	"csanalyser.yaml",
	"csanalyser.yml",
	"csanalyser.json",
	".csanalyser.toml",
	".csanalyser.yaml",
	".csanalyser.yml",
	".csanalyser.json",
}

// LoadConfig loads the config named by WithPath, or the first config file
// found in the search directories, or the defaults.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := loadOptions{dirs: []string{".", ".csanalyser"}}
	for _, opt := range opts {
		opt(&o)
	}

	if o.path != "" {
		cfg, err := Load(o.path)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Config: cfg, Source: o.path}, nil
	}

	for _, dir := range o.dirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				return nil, err
			}
			return &LoadResult{Config: cfg, Source: path}, nil
		}
	}

	return &LoadResult{Config: DefaultConfig()}, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	result, err := LoadConfig()
	if err != nil {
		return DefaultConfig()
	}
	return result.Config
}

// Validate reports values the analyzer cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if _, err := registry.Select(c.Analysis.Rules); err != nil {
		errs = append(errs, err)
	}
	if c.Analysis.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must not be negative, got %d", c.Analysis.Workers))
	}
	if c.Analysis.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("analysis.max_file_size must not be negative, got %d", c.Analysis.MaxFileSize))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must not be negative, got %d", c.Cache.TTL))
	}
	if !slices.Contains(Formats, c.Output.Format) {
		errs = append(errs, fmt.Errorf("output.format %q is not one of %s", c.Output.Format, strings.Join(Formats, ", ")))
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("log.level %q is not one of %s", c.Log.Level, strings.Join(logLevels, ", ")))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format %q is not one of %s", c.Log.Format, strings.Join(logFormats, ", ")))
	}
	if c.Log.MaxSize < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAge < 0 {
		errs = append(errs, errors.New("log rotation limits must not be negative"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// checkSchema validates raw file contents before they are decoded, so that
// misspelled keys are reported instead of silently ignored.
func checkSchema(raw map[string]any) error {
	compiler := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return err
	}
	if err := compiler.AddResource(schemaURL, doc); err != nil {
		return err
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return err
	}

	// Round-trip through JSON so TOML and YAML numbers share one representation.
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ShouldExclude checks if a path should be excluded from analysis. A pattern
// ending in a slash names a directory anywhere in the path; other patterns
// match the base name.
func (c *Config) ShouldExclude(path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)

	for _, pattern := range c.Exclude.Patterns {
		if dir, ok := strings.CutSuffix(pattern, "/"); ok {
			if strings.HasPrefix(slashed, dir+"/") || strings.Contains(slashed, "/"+dir+"/") {
				return true
			}
			continue
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
