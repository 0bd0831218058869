package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/turtacn/molrank/pkg/errors"
)

// missing-value tokens recognised on input, matching what the upload surface
// of the original tooling accepted.
func isMissingToken(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", "nan", "na", "null", "none":
		return true
	default:
		return false
	}
}

// parseCell classifies one CSV field: numeric when it parses as a float64,
// missing for the recognised null tokens, text otherwise.
func parseCell(field string) Cell {
	if isMissingToken(field) {
		return Null()
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(field), 64); err == nil {
		if math.IsNaN(v) {
			return Null()
		}
		c := Num(v)
		c.Raw = field
		return c
	}
	return Text(field)
}

// formatFloat renders a float for CSV output, printing whole values without a
// trailing ".0" so rank columns read as integers.
func formatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadCSV parses a header-first CSV stream into a Frame.  Every record must
// have the header's width; an empty stream is an error because a candidate
// table without a header is meaningless.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeDatasetEmpty, "CSV stream has no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatasetParseFailed, "failed to read CSV header")
	}

	f, err := New(header...)
	if err != nil {
		return nil, err
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatasetParseFailed, "failed to read CSV record")
		}
		row := make([]Cell, len(record))
		for i, field := range record {
			row[i] = parseCell(field)
		}
		if err := f.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// WriteCSV renders the Frame as CSV with a header row, rows in table order.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.cols); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to write CSV header")
	}
	record := make([]string, len(f.cols))
	for i := 0; i < f.nrows; i++ {
		for j, name := range f.cols {
			record[j] = f.cells[name][i].String()
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to write CSV record")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to flush CSV output")
	}
	return nil
}
