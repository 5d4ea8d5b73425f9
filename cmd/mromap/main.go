// mromap reports cross-file method override relationships for a Python
// source tree as JSON on stdout.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mromap <workspace-root> [file ...]",
		Short: "Map Python method override relationships",
		Long: `mromap analyzes a Python workspace and reports, per file, which methods
override ancestor methods and which are overridden by descendants, together
with a class-hierarchy table. Results are JSON on stdout; diagnostics go to
stderr.

With file arguments, only those files are analyzed; the workspace root still
anchors module paths.`,
		Args:         cobra.MinimumNArgs(1),
		RunE:         runAnalyze,
		SilenceUsage: true,
	}

	cmd.Version = version
	cmd.AddCommand(newVersionCmd())

	cmd.Flags().String("config", "", "config file path (default <root>/.mromap.yaml)")
	cmd.Flags().Int64("max-file-size", 0, "skip files larger than this many bytes")
	cmd.Flags().Int("workers", 0, "parse worker count (default GOMAXPROCS)")
	cmd.Flags().Bool("pretty", false, "indent JSON output")

	return cmd
}

func main() {
	setupLogging()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if os.Getenv("MROMAP_DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
