package cli

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/molrank/internal/domain/dataset"
	"github.com/turtacn/molrank/internal/domain/ranking"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molrank/pkg/errors"
)

// newRankCmd ranks a CSV candidate table locally.
func newRankCmd(rootOpts *RootOptions) *cobra.Command {
	var (
		inputPath        string
		outputPath       string
		objectives       string
		directions       string
		ignoreDuplicates bool
		snapshotPath     string
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Pareto-rank a CSV candidate table",
		Long: "Reads a header-first CSV, computes Pareto dominance ranks over the\n" +
			"selected objective columns, and writes the table back with a\n" +
			"pareto_rank column appended.  Rows with missing objective values keep\n" +
			"an empty rank.",
		Example: `  molrank rank -i candidates.csv -d max,min --objectives potency,toxicity
  cat candidates.csv | molrank rank -d max,min -o ranked.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dirs, err := ranking.ParseDirections(directions)
			if err != nil {
				return err
			}

			in, closeIn, err := openInput(cmd, inputPath)
			if err != nil {
				return err
			}
			defer closeIn()

			table, err := dataset.ReadCSV(in)
			if err != nil {
				return err
			}

			opts := []ranking.Option{
				ranking.WithIgnoreDuplicates(ignoreDuplicates),
				ranking.WithVerbose(rootOpts.Verbose),
				ranking.WithLogger(logging.Default()),
			}
			if objectives != "" {
				opts = append(opts, ranking.WithObjectives(ranking.Columns(splitColumns(objectives)...)))
			}
			if snapshotPath != "" {
				opts = append(opts, ranking.WithSnapshot(ranking.FileSnapshot{Path: snapshotPath}))
			}

			ranked, err := ranking.ParetoRanking(table, dirs, opts...)
			if err != nil {
				return err
			}

			out, closeOut, err := openOutput(cmd, outputPath)
			if err != nil {
				return err
			}
			defer closeOut()
			return ranked.WriteCSV(out)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&inputPath, "input", "i", "-", "input CSV path, - for stdin")
	f.StringVarP(&outputPath, "output", "o", "-", "output CSV path, - for stdout")
	f.StringVar(&objectives, "objectives", "", "comma-separated objective columns (default: all columns)")
	f.StringVarP(&directions, "directions", "d", "", "comma-separated per-objective directions, e.g. max,min (required)")
	f.BoolVar(&ignoreDuplicates, "ignore-duplicates", false, "identical objective vectors share the rank of their first occurrence")
	f.StringVar(&snapshotPath, "snapshot", "", "write the clean objective matrix to this CSV path")
	_ = cmd.MarkFlagRequired("directions")

	return cmd
}

func splitColumns(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.ErrCodeValidation, "cannot open input %s", path)
	}
	return f, func() { f.Close() }, nil
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.ErrCodeValidation, "cannot create output %s", path)
	}
	return f, func() { f.Close() }, nil
}
