package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFileName))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("MaxFileSize = %d", cfg.MaxFileSize)
	}
	if cfg.Workers <= 0 {
		t.Errorf("Workers = %d", cfg.Workers)
	}
	if len(cfg.Exclude) != 0 {
		t.Errorf("Exclude = %v", cfg.Exclude)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultFileName)
	content := "exclude:\n  - generated\n  - migrations\nmax_file_size: 2048\nworkers: 3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Exclude) != 2 || cfg.Exclude[0] != "generated" || cfg.Exclude[1] != "migrations" {
		t.Errorf("Exclude = %v", cfg.Exclude)
	}
	if cfg.MaxFileSize != 2048 {
		t.Errorf("MaxFileSize = %d", cfg.MaxFileSize)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d", cfg.Workers)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte("exclude: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadRepairsNonPositiveValues(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte("max_file_size: -1\nworkers: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("MaxFileSize = %d", cfg.MaxFileSize)
	}
	if cfg.Workers <= 0 {
		t.Errorf("Workers = %d", cfg.Workers)
	}
}
