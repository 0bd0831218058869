package ranking

import (
	"github.com/turtacn/molrank/internal/domain/dataset"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molrank/pkg/errors"
)

// RankColumn is the fixed name of the reintegrated rank column.  A ranking
// call overwrites any pre-existing column of this name.
const RankColumn = "pareto_rank"

// Rank is one entry of the reintegrated rank column.  Valid=false is the
// missing-rank sentinel assigned to rows excluded for missing objective data;
// such rows were never compared, they are not "worst".
type Rank struct {
	Value int
	Valid bool
}

// Options bundles the tunables of one ranking call.
type Options struct {
	// Objectives selects the objective columns; zero value means every
	// column of the table.
	Objectives ObjectiveSpec

	// IgnoreDuplicates collapses identical objective vectors onto the rank
	// of their first occurrence.
	IgnoreDuplicates bool

	// Verbose logs the direction in force for each objective column.
	Verbose bool

	// Snapshot, when non-nil, receives the clean objective matrix.
	Snapshot SnapshotSink

	// Ranker computes dominance ranks; nil selects NonDominatedSorter.
	Ranker Ranker

	// Logger receives observability output; nil selects logging.Default().
	Logger logging.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithObjectives selects the objective columns.
func WithObjectives(spec ObjectiveSpec) Option {
	return func(o *Options) { o.Objectives = spec }
}

// WithIgnoreDuplicates sets duplicate-vector collapsing.
func WithIgnoreDuplicates(v bool) Option {
	return func(o *Options) { o.IgnoreDuplicates = v }
}

// WithVerbose enables per-column direction logging.
func WithVerbose(v bool) Option {
	return func(o *Options) { o.Verbose = v }
}

// WithSnapshot installs a clean-matrix sink.
func WithSnapshot(s SnapshotSink) Option {
	return func(o *Options) { o.Snapshot = s }
}

// WithRanker overrides the rank-computation implementation.
func WithRanker(r Ranker) Option {
	return func(o *Options) { o.Ranker = r }
}

// WithLogger installs the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func (o *Options) fill() {
	if o.Ranker == nil {
		o.Ranker = NewNonDominatedSorter()
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
}

// PrepareAndRank resolves and validates the objective columns of table,
// masks rows with missing objective data, and computes dominance ranks over
// the clean subset.  It returns the completeness mask (true = row excluded)
// and one rank per clean row, in the clean subset's row order.
//
// Errors: ErrCodeDirectionCountMismatch when len(dirs) differs from the
// resolved objective count; ErrCodeColumnMissing naming every requested
// column absent from the table.  Ranker failures propagate unmodified.
func PrepareAndRank(table *dataset.Frame, dirs []Direction, opts Options) ([]bool, []int, error) {
	opts.fill()

	objectives := opts.Objectives.Resolve(table)
	if len(objectives) != len(dirs) {
		return nil, nil, errors.Newf(errors.ErrCodeDirectionCountMismatch,
			"%d objective columns but %d directions", len(objectives), len(dirs))
	}

	projected, err := table.Select(objectives)
	if err != nil {
		return nil, nil, err
	}

	if opts.Verbose {
		for i, name := range objectives {
			opts.Logger.Info("objective direction",
				logging.String("column", name),
				logging.String("direction", dirs[i].String()))
		}
	}

	mask := projected.CompletenessMask()
	clean, err := projected.DropIncomplete(mask)
	if err != nil {
		return nil, nil, err
	}
	if dropped := table.NumRows() - clean.NumRows(); dropped > 0 {
		opts.Logger.Debug("rows excluded for missing objective data",
			logging.Int("dropped", dropped),
			logging.Int("kept", clean.NumRows()))
	}

	matrix, err := clean.Matrix()
	if err != nil {
		return nil, nil, err
	}

	if opts.Snapshot != nil {
		if err := opts.Snapshot.WriteCleanMatrix(objectives, matrix); err != nil {
			return nil, nil, err
		}
	}

	ranks, err := opts.Ranker.Rank(matrix, dirs, opts.IgnoreDuplicates)
	if err != nil {
		return nil, nil, err
	}
	return mask, ranks, nil
}

// ReintegrateRanks maps ranks computed on the clean-row subset back onto the
// original row positions.  mask has one entry per original row (true = the
// row was excluded); cleanRanks has one entry per unexcluded row, in the same
// relative order those rows held originally.  The result always has
// len(mask) entries: a sentinel where the mask is true, otherwise the next
// clean rank in sequence.
//
// The mapping deliberately never consults row labels: a sequential cursor
// into cleanRanks advances only on surviving rows, so it is immune to the
// index shifts introduced by dropping rows.
func ReintegrateRanks(mask []bool, cleanRanks []int) ([]Rank, error) {
	kept := 0
	for _, excluded := range mask {
		if !excluded {
			kept++
		}
	}
	if kept != len(cleanRanks) {
		return nil, errors.Newf(errors.ErrCodeRankCountMismatch,
			"%d clean ranks for %d surviving rows", len(cleanRanks), kept)
	}

	out := make([]Rank, len(mask))
	cursor := 0
	for i, excluded := range mask {
		if excluded {
			continue
		}
		out[i] = Rank{Value: cleanRanks[cursor], Valid: true}
		cursor++
	}
	return out, nil
}

// ParetoRanking is the caller-facing entry point: it runs PrepareAndRank and
// ReintegrateRanks and returns a copy of table with the RankColumn appended
// (overwriting any existing column of that name).  The input table is never
// mutated; each call is pure given its inputs apart from the optional
// snapshot side effect.
func ParetoRanking(table *dataset.Frame, dirs []Direction, optFns ...Option) (*dataset.Frame, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	mask, cleanRanks, err := PrepareAndRank(table, dirs, opts)
	if err != nil {
		return nil, err
	}

	ranks, err := ReintegrateRanks(mask, cleanRanks)
	if err != nil {
		return nil, err
	}

	cells := make([]dataset.Cell, len(ranks))
	for i, r := range ranks {
		if r.Valid {
			cells[i] = dataset.Num(float64(r.Value))
		} else {
			cells[i] = dataset.Null()
		}
	}

	out := table.Clone()
	if err := out.SetColumn(RankColumn, cells); err != nil {
		return nil, err
	}
	return out, nil
}
