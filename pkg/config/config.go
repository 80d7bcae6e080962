// Package config resolves where mapping and reference files live on disk
// and how strictly the parser treats checksums, from a YAML file layered
// with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-refmap/pkg/mapping"
)

// Environment variables overriding the file settings.
const (
	EnvCacheRoot   = "REFMAP_CACHE"
	EnvObservatory = "REFMAP_OBSERVATORY"
	EnvChecksum    = "REFMAP_CHECKSUM"
	EnvArchiveURL  = "REFMAP_ARCHIVE_URL"
)

// Duration decodes Go duration notation such as "30s" from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Archive configures optional remote fetching for files absent from the
// local store.
type Archive struct {
	URL     string   `yaml:"url"`
	Timeout Duration `yaml:"timeout"`
	Retries uint     `yaml:"retries"`
}

// Config is the resolved runtime configuration.
type Config struct {
	// CacheRoot is the top of the local store; mappings live under
	// <root>/mappings/<observatory>/ and references under
	// <root>/references/<observatory>/.
	CacheRoot   string `yaml:"cache_root"`
	Observatory string `yaml:"observatory"`

	// ChecksumMode is one of enforce, warn, ignore.
	ChecksumMode string `yaml:"checksum_mode"`

	Archive Archive `yaml:"archive"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	root := "."
	if home, err := os.UserHomeDir(); err == nil {
		root = filepath.Join(home, ".refmap")
	}
	return Config{
		CacheRoot:    root,
		ChecksumMode: "enforce",
		Archive:      Archive{Timeout: Duration(30 * time.Second), Retries: 3},
	}
}

// Load reads a YAML configuration file and applies environment overrides.
// A missing file is not an error; defaults plus the environment apply.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to environment only
	default:
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, cfg.validate()
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvCacheRoot); v != "" {
		c.CacheRoot = v
	}
	if v := os.Getenv(EnvObservatory); v != "" {
		c.Observatory = v
	}
	if v := os.Getenv(EnvChecksum); v != "" {
		c.ChecksumMode = v
	}
	if v := os.Getenv(EnvArchiveURL); v != "" {
		c.Archive.URL = v
	}
}

func (c Config) validate() error {
	if c.CacheRoot == "" {
		return fmt.Errorf("config: cache_root is required")
	}
	if _, err := c.ParserChecksumMode(); err != nil {
		return err
	}
	return nil
}

// ParserChecksumMode maps the textual setting onto the parser's modes.
func (c Config) ParserChecksumMode() (mapping.ChecksumMode, error) {
	switch strings.ToLower(c.ChecksumMode) {
	case "", "enforce":
		return mapping.ChecksumEnforce, nil
	case "warn":
		return mapping.ChecksumWarn, nil
	case "ignore":
		return mapping.ChecksumIgnore, nil
	}
	return 0, fmt.Errorf("config: checksum_mode %q is not one of enforce, warn, ignore", c.ChecksumMode)
}

// MappingPath returns the store path of a mapping basename.
func (c Config) MappingPath(basename string) string {
	return filepath.Join(c.CacheRoot, "mappings", c.Observatory, basename)
}

// ReferencePath returns the store path of a reference basename.
func (c Config) ReferencePath(basename string) string {
	return filepath.Join(c.CacheRoot, "references", c.Observatory, basename)
}

// ListMappings globs the local mapping store. The pattern matches against
// basenames; empty means everything.
func (c Config) ListMappings(pattern string) ([]string, error) {
	return listStore(filepath.Join(c.CacheRoot, "mappings", c.Observatory), pattern)
}

// ListReferences globs the local reference store.
func (c Config) ListReferences(pattern string) ([]string, error) {
	return listStore(filepath.Join(c.CacheRoot, "references", c.Observatory), pattern)
}

func listStore(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("config: bad glob pattern %q: %w", pattern, err)
	}
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, filepath.Base(match))
	}
	sort.Strings(names)
	return names, nil
}

// LoaderOptions derives the loader configuration implied by the archive
// settings.
func (c Config) LoaderOptions() []mapping.LoaderOption {
	var options []mapping.LoaderOption
	if c.Archive.URL != "" {
		options = append(options,
			mapping.WithHTTPFallback(time.Duration(c.Archive.Timeout)),
			mapping.WithRetries(c.Archive.Retries),
		)
	}
	return options
}
