package ranking

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/turtacn/molrank/pkg/errors"
)

// SnapshotSink receives the clean objective matrix (post missing-data
// removal) for offline inspection.  Sinks are side effects only; a sink
// failure aborts the ranking call but never corrupts its inputs.
type SnapshotSink interface {
	WriteCleanMatrix(header []string, matrix [][]float64) error
}

// SnapshotFunc adapts a plain function to the SnapshotSink interface.
type SnapshotFunc func(header []string, matrix [][]float64) error

// WriteCleanMatrix implements SnapshotSink.
func (fn SnapshotFunc) WriteCleanMatrix(header []string, matrix [][]float64) error {
	return fn(header, matrix)
}

// FileSnapshot writes the clean matrix as a CSV file with a header row, the
// debug artifact the analysis tooling inspects offline.  The write is a
// simple open-write-close with no locking; callers must not run concurrent
// rankings against the same path.
type FileSnapshot struct {
	Path string
}

// WriteCleanMatrix implements SnapshotSink.
func (s FileSnapshot) WriteCleanMatrix(header []string, matrix [][]float64) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSnapshotFailed, "failed to create snapshot file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, errors.ErrCodeSnapshotFailed, "failed to write snapshot header")
	}
	record := make([]string, len(header))
	for _, row := range matrix {
		for j, v := range row {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return errors.Wrap(err, errors.ErrCodeSnapshotFailed, "failed to write snapshot record")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSnapshotFailed, "failed to flush snapshot")
	}
	return nil
}
