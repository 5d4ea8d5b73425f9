package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mromap/internal/analyze"
	"mromap/internal/config"
)

func runAnalyze(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", root)
	}

	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	a := analyze.New(root, cfg)

	if len(args) > 1 {
		for _, f := range args[1:] {
			path, err := filepath.Abs(f)
			if err != nil {
				path = f
			}
			if err := a.AddFile(path); err != nil {
				slog.Warn("skipping file",
					slog.String("file", f),
					slog.String("error", err.Error()))
			}
		}
		a.Resolve()
	} else {
		if err := a.Workspace(cmd.Context()); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(a.Report())
}

func loadConfig(cmd *cobra.Command, root string) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	if path == "" {
		path = filepath.Join(root, config.DefaultFileName)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if cmd.Flags().Changed("max-file-size") {
		if v, err := cmd.Flags().GetInt64("max-file-size"); err == nil && v > 0 {
			cfg.MaxFileSize = v
		}
	}
	if cmd.Flags().Changed("workers") {
		if v, err := cmd.Flags().GetInt("workers"); err == nil && v > 0 {
			cfg.Workers = v
		}
	}
	return cfg, nil
}
