package ranking

import (
	"math"
	"strconv"
	"strings"

	"github.com/turtacn/molrank/pkg/errors"
)

// Ranker computes one dominance rank per row of a complete numeric matrix.
// The matrix has candidates as rows and objectives as columns, with no
// missing values; dirs matches the column count.  Ranks start at 1 for the
// non-dominated front and increase monotonically for successive dominance
// layers.  An empty matrix yields an empty slice, not an error.
type Ranker interface {
	Rank(matrix [][]float64, dirs []Direction, ignoreDuplicates bool) ([]int, error)
}

// NonDominatedSorter is the default Ranker: non-dominated sorting by
// successive front peeling.  O(n^2) per front, which is fine for candidate
// tables of the sizes this system sees (hundreds to low thousands of rows).
type NonDominatedSorter struct{}

// NewNonDominatedSorter returns the default Ranker implementation.
func NewNonDominatedSorter() *NonDominatedSorter {
	return &NonDominatedSorter{}
}

// dominates reports whether score vector a dominates b under maximisation:
// a >= b on every objective and a > b on at least one.
func dominates(a, b []float64) bool {
	strict := false
	for k := range a {
		if a[k] < b[k] {
			return false
		}
		if a[k] > b[k] {
			strict = true
		}
	}
	return strict
}

// vectorKey builds an exact dedup key from a float64 vector.  Bit-level
// equality, no epsilon: duplicate means byte-identical objective values.
func vectorKey(v []float64) string {
	var sb strings.Builder
	for _, x := range v {
		sb.WriteString(strconv.FormatUint(math.Float64bits(x), 16))
		sb.WriteByte('|')
	}
	return sb.String()
}

// Rank implements Ranker.
func (s *NonDominatedSorter) Rank(matrix [][]float64, dirs []Direction, ignoreDuplicates bool) ([]int, error) {
	if len(matrix) == 0 {
		return []int{}, nil
	}

	for i, row := range matrix {
		if len(row) != len(dirs) {
			return nil, errors.Newf(errors.ErrCodeRankerFailed,
				"row %d has %d values but %d directions were given", i, len(row), len(dirs))
		}
		for j, v := range row {
			if math.IsNaN(v) {
				return nil, errors.Newf(errors.ErrCodeRankerFailed,
					"row %d column %d is NaN; missing values must be masked before ranking", i, j)
			}
		}
	}
	for j, d := range dirs {
		if !d.IsValid() {
			return nil, errors.New(errors.ErrCodeDirectionInvalid,
				"direction must be 'min' or 'max'").WithDetailf("column %d: %q", j, string(d))
		}
	}

	// Normalise to maximisation: negate minimised objectives so a single
	// dominance test serves both senses.
	scores := make([][]float64, len(matrix))
	for i, row := range matrix {
		s := make([]float64, len(row))
		for j, v := range row {
			if dirs[j] == Min {
				s[j] = -v
			} else {
				s[j] = v
			}
		}
		scores[i] = s
	}

	// Optionally collapse duplicate objective vectors: the first occurrence
	// is ranked and its rank is applied to every duplicate.
	reps := make([]int, 0, len(scores))
	repOf := make([]int, len(scores))
	if ignoreDuplicates {
		firstSeen := make(map[string]int, len(scores))
		for i, v := range scores {
			key := vectorKey(v)
			if first, ok := firstSeen[key]; ok {
				repOf[i] = first
				continue
			}
			firstSeen[key] = i
			repOf[i] = i
			reps = append(reps, i)
		}
	} else {
		for i := range scores {
			repOf[i] = i
			reps = append(reps, i)
		}
	}

	// Peel non-dominated fronts off the representative set.
	ranks := make([]int, len(scores))
	remaining := reps
	for front := 1; len(remaining) > 0; front++ {
		var nonDominated, dominated []int
		for _, i := range remaining {
			dom := false
			for _, j := range remaining {
				if i != j && dominates(scores[j], scores[i]) {
					dom = true
					break
				}
			}
			if dom {
				dominated = append(dominated, i)
			} else {
				nonDominated = append(nonDominated, i)
			}
		}
		for _, i := range nonDominated {
			ranks[i] = front
		}
		remaining = dominated
	}

	for i := range ranks {
		ranks[i] = ranks[repOf[i]]
	}
	return ranks, nil
}
