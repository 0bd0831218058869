// Package dataset implements the candidate table: a row-indexed tabular
// structure whose rows are molecular candidates and whose columns mix numeric
// objective values with free-form metadata.  Row order is stable and is the
// row identity; every transformation preserves it.
package dataset

import (
	"strings"

	"github.com/turtacn/molrank/pkg/errors"
)

// Cell is one table value.  Numeric cells carry Num with Valid=true; missing
// values (empty, NaN tokens, unparseable text in a numeric context) carry
// Valid=false.  Raw preserves the original text for metadata columns and for
// round-tripping CSVs.
type Cell struct {
	Raw   string
	Num   float64
	Valid bool
}

// Num returns a valid numeric cell.
func Num(v float64) Cell {
	return Cell{Num: v, Valid: true}
}

// Text returns a metadata cell.  Text cells are never valid numerics, so a
// completeness mask over a text column flags every row; objective columns are
// expected to be numeric.
func Text(s string) Cell {
	return Cell{Raw: s}
}

// Null returns the missing-value cell.
func Null() Cell {
	return Cell{}
}

// IsMissing reports whether the cell has no usable numeric value.
func (c Cell) IsMissing() bool {
	return !c.Valid
}

// String renders the cell for CSV output: numeric cells via formatFloat,
// text cells verbatim, missing cells as the empty string.
func (c Cell) String() string {
	if c.Valid {
		return formatFloat(c.Num)
	}
	return c.Raw
}

// Frame is an ordered-column table.  Columns are addressed by name; rows by
// position.  The zero Frame is empty and usable.
type Frame struct {
	cols  []string
	cells map[string][]Cell
	nrows int
}

// New constructs an empty Frame with the given column names.  Duplicate
// column names are a caller error.
func New(columns ...string) (*Frame, error) {
	f := &Frame{cells: make(map[string][]Cell, len(columns))}
	for _, name := range columns {
		if _, dup := f.cells[name]; dup {
			return nil, errors.New(errors.ErrCodeValidation, "duplicate column name").WithDetail(name)
		}
		f.cols = append(f.cols, name)
		f.cells[name] = nil
	}
	return f, nil
}

// NumRows returns the row count.
func (f *Frame) NumRows() int { return f.nrows }

// NumCols returns the column count.
func (f *Frame) NumCols() int { return len(f.cols) }

// Columns returns the column names in order.  The slice is a copy.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	copy(out, f.cols)
	return out
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.cells[name]
	return ok
}

// Column returns the named column's cells in row order.  The slice is shared;
// callers must not mutate it.
func (f *Frame) Column(name string) ([]Cell, error) {
	cells, ok := f.cells[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeColumnMissing, "column not in table").WithDetail(name)
	}
	return cells, nil
}

// Cell returns the value at (row, column).
func (f *Frame) Cell(row int, name string) (Cell, error) {
	cells, err := f.Column(name)
	if err != nil {
		return Cell{}, err
	}
	if row < 0 || row >= f.nrows {
		return Cell{}, errors.Newf(errors.ErrCodeValidation, "row %d out of range [0,%d)", row, f.nrows)
	}
	return cells[row], nil
}

// AppendRow appends one row.  The row must have exactly one cell per column,
// in column order.
func (f *Frame) AppendRow(row []Cell) error {
	if len(row) != len(f.cols) {
		return errors.Newf(errors.ErrCodeRowWidthMismatch,
			"row has %d cells but table has %d columns", len(row), len(f.cols))
	}
	for i, name := range f.cols {
		f.cells[name] = append(f.cells[name], row[i])
	}
	f.nrows++
	return nil
}

// Select returns a new Frame containing only the named columns, in the order
// given, with every row preserved.  Requesting columns absent from the table
// fails with an error naming every missing column.
func (f *Frame) Select(names []string) (*Frame, error) {
	var missing []string
	for _, name := range names {
		if !f.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.New(errors.ErrCodeColumnMissing,
			"objective columns not in table").WithDetail(strings.Join(missing, ", "))
	}

	out, err := New(names...)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		col := make([]Cell, f.nrows)
		copy(col, f.cells[name])
		out.cells[name] = col
	}
	out.nrows = f.nrows
	return out, nil
}

// CompletenessMask returns one flag per row: true when ANY cell in the row is
// missing, false when the row is complete.  The mask is recomputed on every
// call; it is not cached.
func (f *Frame) CompletenessMask() []bool {
	mask := make([]bool, f.nrows)
	for _, name := range f.cols {
		for i, c := range f.cells[name] {
			if c.IsMissing() {
				mask[i] = true
			}
		}
	}
	return mask
}

// DropIncomplete returns a new Frame containing only the rows whose mask
// entry is false, in their original relative order.  len(mask) must equal
// NumRows.
func (f *Frame) DropIncomplete(mask []bool) (*Frame, error) {
	if len(mask) != f.nrows {
		return nil, errors.Newf(errors.ErrCodeValidation,
			"mask length %d does not match row count %d", len(mask), f.nrows)
	}
	out, err := New(f.cols...)
	if err != nil {
		return nil, err
	}
	for _, name := range f.cols {
		src := f.cells[name]
		kept := make([]Cell, 0, f.nrows)
		for i, drop := range mask {
			if !drop {
				kept = append(kept, src[i])
			}
		}
		out.cells[name] = kept
	}
	for _, drop := range mask {
		if !drop {
			out.nrows++
		}
	}
	return out, nil
}

// Matrix returns the table as a dense row-major float64 matrix.  Every cell
// must be a valid numeric; the first offending cell fails the call.
func (f *Frame) Matrix() ([][]float64, error) {
	out := make([][]float64, f.nrows)
	for i := range out {
		out[i] = make([]float64, len(f.cols))
	}
	for j, name := range f.cols {
		for i, c := range f.cells[name] {
			if c.IsMissing() {
				return nil, errors.Newf(errors.ErrCodeColumnNotNumeric,
					"column %q row %d is not numeric", name, i)
			}
			out[i][j] = c.Num
		}
	}
	return out, nil
}

// SetColumn installs cells under name, overwriting an existing column of that
// name or appending a new one at the end.  len(cells) must equal NumRows
// unless the frame is empty, in which case the column defines the row count.
func (f *Frame) SetColumn(name string, cells []Cell) error {
	if len(f.cols) > 0 && len(cells) != f.nrows {
		return errors.Newf(errors.ErrCodeValidation,
			"column %q has %d cells but table has %d rows", name, len(cells), f.nrows)
	}
	if f.cells == nil {
		f.cells = make(map[string][]Cell, 1)
	}
	if !f.HasColumn(name) {
		f.cols = append(f.cols, name)
	}
	owned := make([]Cell, len(cells))
	copy(owned, cells)
	f.cells[name] = owned
	if len(f.cols) == 1 {
		f.nrows = len(cells)
	}
	return nil
}

// Clone returns a deep copy of the Frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		cols:  make([]string, len(f.cols)),
		cells: make(map[string][]Cell, len(f.cols)),
		nrows: f.nrows,
	}
	copy(out.cols, f.cols)
	for name, col := range f.cells {
		c := make([]Cell, len(col))
		copy(c, col)
		out.cells[name] = c
	}
	return out
}
