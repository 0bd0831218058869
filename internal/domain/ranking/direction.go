// Package ranking implements the multi-objective Pareto-ranking engine: it
// prepares an objective matrix from a candidate table (validating the
// per-column optimisation directions and masking rows with missing data),
// delegates dominance-rank computation to a Ranker, and reintegrates the
// resulting ranks into the original row order with a null sentinel for the
// masked rows.
package ranking

import (
	"strings"

	"github.com/turtacn/molrank/internal/domain/dataset"
	"github.com/turtacn/molrank/pkg/errors"
)

// Direction is the optimisation sense of one objective column.
type Direction string

const (
	// Min means lower values are preferred (e.g. toxicity, cost).
	Min Direction = "min"
	// Max means higher values are preferred (e.g. potency).
	Max Direction = "max"
)

// IsValid reports whether the direction is one of the supported senses.
func (d Direction) IsValid() bool {
	return d == Min || d == Max
}

// String returns the direction token.
func (d Direction) String() string {
	return string(d)
}

// ParseDirection parses a single direction token, case-insensitively.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if d.IsValid() {
		return d, nil
	}
	return "", errors.New(errors.ErrCodeDirectionInvalid,
		"direction must be 'min' or 'max'").WithDetail(s)
}

// ParseDirections parses a comma-separated direction list, the format used by
// the HTTP API and the CLI (e.g. "max,min").
func ParseDirections(s string) ([]Direction, error) {
	parts := strings.Split(s, ",")
	out := make([]Direction, 0, len(parts))
	for _, p := range parts {
		d, err := ParseDirection(p)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ObjectiveSpec selects which columns of a candidate table are objectives.
// It is a tagged variant: either every column of the table (AllColumns) or an
// explicit ordered list (Columns).  The zero value behaves like AllColumns.
type ObjectiveSpec struct {
	explicit []string
}

// AllColumns selects every column of the input table as an objective.
func AllColumns() ObjectiveSpec {
	return ObjectiveSpec{}
}

// Columns selects the named columns, in the order given.
func Columns(names ...string) ObjectiveSpec {
	out := make([]string, len(names))
	copy(out, names)
	return ObjectiveSpec{explicit: out}
}

// IsAll reports whether the spec selects every table column.
func (s ObjectiveSpec) IsAll() bool {
	return s.explicit == nil
}

// Resolve returns the objective column names for the given table.
func (s ObjectiveSpec) Resolve(f *dataset.Frame) []string {
	if s.IsAll() {
		return f.Columns()
	}
	out := make([]string, len(s.explicit))
	copy(out, s.explicit)
	return out
}
