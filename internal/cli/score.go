package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chazu/dfm/pkg/scoring"
)

// NewScoreCmd creates the 'score' command.
func NewScoreCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "score <request.json|->",
		Short: "Score a part description for manufacturability",
		Long: `Score a scoring request read from a JSON file, or from stdin when the
argument is "-". Category weights come from the scoring section of the
config.`,
		Example: `  dfm score request.json
  cat request.json | dfm score - --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			var data []byte
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read request: %w", err)
			}

			var req scoring.ScoringRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("failed to parse request: %w", err)
			}
			req.Normalize()
			if err := req.Validate(); err != nil {
				return err
			}

			resp := scoring.New(cfg.Scoring).Score(req)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			printScore(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the response as JSON")
	return cmd
}

func gradeColor(g scoring.Grade) *color.Color {
	switch g {
	case scoring.GradeA, scoring.GradeB:
		return color.New(color.FgGreen, color.Bold)
	case scoring.GradeC:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func printScore(w io.Writer, resp scoring.ScoringResponse) {
	gray := color.New(color.FgHiBlack).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	fmt.Fprintf(w, "Score %d/100  grade %s  %s\n",
		resp.TotalScore,
		gradeColor(resp.Grade).Sprint(resp.Grade),
		gray(fmt.Sprintf("(%s, qty %d)", resp.Metadata.ProcessType, resp.Metadata.Quantity)),
	)
	fmt.Fprintln(w)
	for _, c := range resp.CategoryScores {
		fmt.Fprintf(w, "  %-12s %3d/%-3d %5.1f%%\n", c.Category, c.Score, c.MaxPoints, c.Percentage)
		for _, s := range c.Strengths {
			fmt.Fprintf(w, "    %s %s\n", green("+"), s)
		}
		for _, i := range c.Issues {
			fmt.Fprintf(w, "    %s %s\n", red("-"), i)
		}
	}

	if len(resp.Recommendations) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Recommendations:")
	for _, r := range resp.Recommendations {
		fmt.Fprintf(w, "  [%s] %s %s\n", r.Impact, r.Title, gray(fmt.Sprintf("(~%.0f%% savings, %s)", r.SavingsPotentialPct, r.Effort)))
		fmt.Fprintf(w, "      %s\n", r.Description)
	}
}
