package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chazu/dfm/pkg/analysis"
	"github.com/chazu/dfm/pkg/features"
)

// NewAnalyzeCmd creates the 'analyze' command.
func NewAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var (
		samples int
		asJSON  bool
		units   string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "analyze <file.lisp|file.stl|file.brep>",
		Short: "Extract features and minimum wall thickness from a part",
		Long: `Analyze a part script, STL mesh or B-rep shape document and print
its feature record.

Hole and pocket recognition needs face topology, so STL input reports
them as unavailable. Minimum wall thickness needs triangles, so shape
documents report it as unavailable.`,
		Example: `  dfm analyze bracket.lisp
  dfm analyze housing.stl --units in --json
  dfm analyze plate.lisp --samples 20000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("samples") {
				if samples <= 0 {
					return errors.New("--samples must be positive")
				}
				cfg.MinWall.Samples = samples
			}

			path := args[0]
			f, err := formatOf(path, format)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read part: %w", err)
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.Log)
			rec, err := newAnalyzer(cfg, logger).Analyze(cmd.Context(), analysis.Input{
				Name:    filepath.Base(path),
				Format:  f,
				Content: content,
				Units:   units,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}

	cmd.Flags().IntVarP(&samples, "samples", "n", 0, "surface samples for the wall estimate (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the feature record as JSON")
	cmd.Flags().StringVarP(&units, "units", "u", "", "length unit of STL input (mm, cm, m, in, ft)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "input format, lisp, stl or brep (default from extension)")
	return cmd
}

func printRecord(w io.Writer, rec *analysis.Record) {
	bold := color.New(color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	status := "complete"
	if rec.Partial() {
		status = yellow("partial")
	}
	fmt.Fprintf(w, "%s %s\n", bold(rec.Source.Name), gray(fmt.Sprintf("(%s, %s)", rec.Source.Loader, status)))

	size := rec.BBox.Size()
	fmt.Fprintf(w, "  bbox      %.1f x %.1f x %.1f mm\n", size.X, size.Y, size.Z)
	if rec.Capabilities.Raycast {
		fmt.Fprintf(w, "  volume    %.1f mm3\n", rec.MassProps.VolumeMM3)
	}
	fmt.Fprintf(w, "  area      %.1f mm2\n", rec.MassProps.AreaMM2)
	if rec.Material != "" {
		fmt.Fprintf(w, "  material  %s\n", rec.Material)
	}
	switch st := rec.Stock; {
	case st == analysis.Stock{}:
		fmt.Fprintf(w, "  stock     %s\n", gray("not estimated (no bounds)"))
	case st.ThicknessMM > 0:
		fmt.Fprintf(w, "  stock     %.1f x %.1f mm sheet, %.1f mm thick\n", st.LengthMM, st.WidthMM, st.ThicknessMM)
	default:
		fmt.Fprintf(w, "  stock     %.1f x %.1f x %.1f mm block\n", st.LengthMM, st.WidthMM, st.HeightMM)
	}

	if !rec.Capabilities.Topology {
		fmt.Fprintf(w, "  holes     %s\n", gray("unavailable (no topology)"))
		fmt.Fprintf(w, "  pockets   %s\n", gray("unavailable (no topology)"))
	} else {
		fmt.Fprintf(w, "  holes     %d\n", len(rec.Holes))
		for _, h := range rec.Holes {
			kind := string(h.Kind)
			if h.Kind == features.HoleBlind {
				kind = yellow(kind)
			}
			fmt.Fprintf(w, "    %-8s dia %.2f mm, depth %.2f mm\n", kind, h.DiameterMM, h.DepthMM)
		}
		fmt.Fprintf(w, "  pockets   %d\n", len(rec.Pockets))
		for _, p := range rec.Pockets {
			fmt.Fprintf(w, "    depth %.2f mm, mouth %.1f mm2, aspect %.2f\n", p.DepthMM, p.MouthAreaMM2, p.AspectRatio)
		}
	}

	switch {
	case !rec.Capabilities.Raycast:
		fmt.Fprintf(w, "  min wall  %s\n", gray("unavailable (no mesh)"))
	case len(rec.MinWall.Samples) == 0 && rec.MinWall.GlobalMinMM == 0:
		fmt.Fprintf(w, "  min wall  %s\n", gray("not measured"))
	default:
		wall := fmt.Sprintf("%.2f mm", rec.MinWall.GlobalMinMM)
		if rec.MinWall.GlobalMinMM < analysis.ThinWallMM {
			wall = color.RedString(wall)
		}
		fmt.Fprintf(w, "  min wall  %s %s\n", wall, gray(fmt.Sprintf("(%d thin samples)", len(rec.MinWall.Samples))))
	}

	for _, warn := range rec.Warnings {
		fmt.Fprintf(w, "  %s %s\n", yellow("warning:"), warn)
	}
}
