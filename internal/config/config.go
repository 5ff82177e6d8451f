// Package config loads adhocscan settings from a TOML file, a .env file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	adhoc "github.com/vast-data/go-adhoc"
	"github.com/vast-data/go-adhoc/codegen/schema"
	"github.com/vast-data/go-adhoc/internal/logging"
)

// Environment variables read by WithEnv.
const (
	EnvTagKey            = "ADHOC_TAG_KEY"
	EnvMarkerPrefix      = "ADHOC_MARKER_PREFIX"
	EnvFormat            = "ADHOC_FORMAT"
	EnvCatalogConstraint = "ADHOC_CATALOG_CONSTRAINT"
	EnvSkipDirs          = "ADHOC_SKIP_DIRS"
	EnvLogFile           = "ADHOC_LOG_FILE"
)

// Config holds the scanner and output settings.
type Config struct {
	TagKey       string `toml:"tag_key"`       // struct tag key holding field markers, "-" disables tags
	MarkerPrefix string `toml:"marker_prefix"` // comment marker prefix in "+prefix:token"
	Format       string `toml:"format"`        // default output format of scan
	// CatalogConstraint is a go-version constraint the running catalog must satisfy, e.g. "~> 1.0".
	CatalogConstraint string          `toml:"catalog_constraint"`
	SkipDirs          []string        `toml:"skip_dirs"`
	Log               logging.Options `toml:"log"`
}

// ConfigFunc modifies or validates a Config.
type ConfigFunc func(*Config) error

// Apply runs fns in order and stops at the first error.
func (c *Config) Apply(fns ...ConfigFunc) error {
	for _, fn := range fns {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// Load reads path (skipped when empty), then a .env file in the working
// directory if present, then the environment, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, key := range undecoded {
				keys[i] = key.String()
			}
			return nil, fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.Apply(WithEnv, WithDefaults, Validate); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WithDefaults fills unset fields.
func WithDefaults(c *Config) error {
	if c.TagKey == "" {
		c.TagKey = adhoc.TagKey
	}
	if c.MarkerPrefix == "" {
		c.MarkerPrefix = adhoc.DefaultPrefix
	}
	if c.Format == "" {
		c.Format = string(schema.FormatTable)
	}
	return nil
}

// WithEnv overrides fields from the ADHOC_* variables.
func WithEnv(c *Config) error {
	if v, ok := os.LookupEnv(EnvTagKey); ok {
		c.TagKey = v
	}
	if v, ok := os.LookupEnv(EnvMarkerPrefix); ok {
		c.MarkerPrefix = v
	}
	if v, ok := os.LookupEnv(EnvFormat); ok {
		c.Format = v
	}
	if v, ok := os.LookupEnv(EnvCatalogConstraint); ok {
		c.CatalogConstraint = v
	}
	if v, ok := os.LookupEnv(EnvSkipDirs); ok {
		c.SkipDirs = nil
		for _, dir := range strings.Split(v, ",") {
			if dir = strings.TrimSpace(dir); dir != "" {
				c.SkipDirs = append(c.SkipDirs, dir)
			}
		}
	}
	if v, ok := os.LookupEnv(EnvLogFile); ok {
		c.Log.File = v
	}
	return nil
}

// Validate checks the format, the prefix and the catalog constraint.
func Validate(c *Config) error {
	var errs []error
	if _, err := schema.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}
	if strings.ContainsAny(c.MarkerPrefix, ": \t") {
		errs = append(errs, fmt.Errorf("marker prefix %q must not contain ':' or spaces", c.MarkerPrefix))
	}
	if strings.ContainsAny(c.TagKey, ": \t\"") {
		errs = append(errs, fmt.Errorf("tag key %q is not a valid struct tag key", c.TagKey))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if err := adhoc.CheckCompatible(c.CatalogConstraint); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ScannerOptions translates the config into scanner options.
func (c *Config) ScannerOptions() []schema.ScannerOption {
	tagKey := c.TagKey
	if tagKey == "-" {
		tagKey = ""
	}
	return []schema.ScannerOption{
		schema.WithPrefix(c.MarkerPrefix),
		schema.WithTagKey(tagKey),
		schema.WithSkipDirs(c.SkipDirs...),
	}
}
