/*
Package cli implements the dfm command tree.

Every command reads the same layered configuration: built-in defaults, the
file named by --config, then DFM_* environment variables.
*/
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/dfm/pkg/analysis"
	"github.com/chazu/dfm/pkg/config"
	"github.com/chazu/dfm/pkg/engine"
	"github.com/chazu/dfm/pkg/kernel/sdfx"
)

// rootOptions are shared by all subcommands.
type rootOptions struct {
	configPath string
	version    string
}

// NewRootCmd creates the dfm root command with all subcommands attached.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{version: version}

	cmd := &cobra.Command{
		Use:   "dfm",
		Short: "Design-for-manufacturability analysis and scoring",
		Long: `dfm recognises holes and pockets, estimates minimum wall thickness
and scores how easy a part is to manufacture.

Parts are part scripts (.lisp), triangle meshes (.stl) or B-rep shape
documents (.brep, .json) exported by another kernel.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(NewAnalyzeCmd(opts))
	cmd.AddCommand(NewScoreCmd(opts))
	cmd.AddCommand(NewServeCmd(opts))
	cmd.AddCommand(NewConfigCmd(opts))
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds a slog logger for lc writing to w.
func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	var level slog.Level
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// newAnalyzer wires an analyzer from cfg.
func newAnalyzer(cfg *config.Config, logger *slog.Logger) *analysis.Analyzer {
	return analysis.New(
		analysis.WithEngine(engine.NewEngine(engine.WithTimeout(cfg.Engine.Timeout))),
		analysis.WithKernel(sdfx.New(sdfx.WithMeshCells(cfg.Engine.MeshCells))),
		analysis.WithThresholds(cfg.Features),
		analysis.WithMinWall(cfg.MinWall),
		analysis.WithLogger(logger),
	)
}

// formatOf picks the input format from an explicit flag or the file
// extension.
func formatOf(path, flag string) (analysis.Format, error) {
	if flag != "" {
		switch f := analysis.Format(strings.ToLower(flag)); f {
		case analysis.FormatScript, analysis.FormatSTL, analysis.FormatShape:
			return f, nil
		}
		return "", fmt.Errorf("unknown format %q (want lisp, stl or brep)", flag)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lisp", ".zy":
		return analysis.FormatScript, nil
	case ".stl":
		return analysis.FormatSTL, nil
	case ".brep", ".json":
		return analysis.FormatShape, nil
	}
	return "", fmt.Errorf("cannot tell the format of %q; pass --format", path)
}
