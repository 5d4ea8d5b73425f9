// Package config loads the optional .mromap.yaml workspace configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the workspace root when no explicit
// config path is given.
const DefaultFileName = ".mromap.yaml"

// DefaultMaxFileSize is the size above which source files are skipped.
const DefaultMaxFileSize = 1_000_000 // 1 MB

// Config controls discovery and parsing. Zero values fall back to defaults.
type Config struct {
	// Exclude lists directory names to skip in addition to the built-in
	// set (VCS, virtualenvs, caches).
	Exclude []string `yaml:"exclude"`

	// MaxFileSize is the per-file size limit in bytes.
	MaxFileSize int64 `yaml:"max_file_size"`

	// Workers bounds the concurrent parse pool.
	Workers int `yaml:"workers"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		MaxFileSize: DefaultMaxFileSize,
		Workers:     runtime.GOMAXPROCS(0),
	}
}

// Load reads the configuration at path. A missing file is not an error and
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return cfg, nil
}
