package minio

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/turtacn/molrank/pkg/errors"
)

// SnapshotSink uploads clean objective matrices as CSV objects, the
// object-store counterpart of the local file snapshot.  It satisfies the
// ranking engine's SnapshotSink interface.
type SnapshotSink struct {
	store   *ArtifactStore
	key     string
	timeout time.Duration
}

// NewSnapshotSink builds a sink writing to the given object key.
func NewSnapshotSink(store *ArtifactStore, key string) *SnapshotSink {
	return &SnapshotSink{store: store, key: key, timeout: 30 * time.Second}
}

// WriteCleanMatrix renders the matrix as CSV and uploads it.
func (s *SnapshotSink) WriteCleanMatrix(header []string, matrix [][]float64) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, errors.ErrCodeSnapshotFailed, "failed to render snapshot header")
	}
	record := make([]string, len(header))
	for _, row := range matrix {
		for j, v := range row {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return errors.Wrap(err, errors.ErrCodeSnapshotFailed, "failed to render snapshot record")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSnapshotFailed, "failed to render snapshot")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.store.PutCSV(ctx, s.key, buf.Bytes()); err != nil {
		return errors.Wrap(err, errors.ErrCodeSnapshotFailed, "failed to upload snapshot")
	}
	return nil
}
