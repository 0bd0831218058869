// Package repositories implements PostgreSQL persistence for datasets and
// ranking results.
package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/molrank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molrank/pkg/errors"
	"github.com/turtacn/molrank/pkg/types/common"
)

// Dataset is the stored metadata of one uploaded candidate table.  The raw
// CSV lives in object storage under ObjectKey; postgres holds only the
// catalog entry.
type Dataset struct {
	ID        common.ID `json:"id"`
	Name      string    `json:"name"`
	Columns   []string  `json:"columns"`
	RowCount  int       `json:"row_count"`
	ObjectKey string    `json:"object_key"`
	common.Timestamps
}

// DatasetRepository persists dataset catalog entries.
type DatasetRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewDatasetRepository constructs a ready-to-use DatasetRepository.
func NewDatasetRepository(pool *pgxpool.Pool, logger logging.Logger) *DatasetRepository {
	return &DatasetRepository{pool: pool, logger: logger}
}

// Save upserts a dataset entry.
func (r *DatasetRepository) Save(ctx context.Context, d *Dataset) error {
	d.Touch(time.Now().UTC())

	_, err := r.pool.Exec(ctx, `
		INSERT INTO datasets (id, name, columns, row_count, object_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			columns = EXCLUDED.columns,
			row_count = EXCLUDED.row_count,
			object_key = EXCLUDED.object_key,
			updated_at = EXCLUDED.updated_at`,
		d.ID, d.Name, d.Columns, d.RowCount, d.ObjectKey, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("dataset save failed", logging.String("dataset_id", d.ID.String()), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save dataset")
	}
	return nil
}

// Get fetches one dataset by ID.
func (r *DatasetRepository) Get(ctx context.Context, id common.ID) (*Dataset, error) {
	var d Dataset
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, columns, row_count, object_key, created_at, updated_at
		FROM datasets WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.Columns, &d.RowCount, &d.ObjectKey, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrCodeDatasetNotFound, "dataset not found").WithDetail(id.String())
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load dataset")
	}
	return &d, nil
}

// List returns a page of datasets, newest first.
func (r *DatasetRepository) List(ctx context.Context, page common.Pagination) (*common.Page[Dataset], error) {
	page = page.Normalize()

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM datasets`).Scan(&total); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count datasets")
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, columns, row_count, object_key, created_at, updated_at
		FROM datasets
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, page.PageSize, page.Offset(),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list datasets")
	}
	defer rows.Close()

	items := make([]Dataset, 0, page.PageSize)
	for rows.Next() {
		var d Dataset
		if err := rows.Scan(&d.ID, &d.Name, &d.Columns, &d.RowCount, &d.ObjectKey, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan dataset row")
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "dataset listing failed")
	}

	return &common.Page[Dataset]{Items: items, TotalCount: total, Pagination: page}, nil
}

// Delete removes a dataset and, via ON DELETE CASCADE, its rankings.
func (r *DatasetRepository) Delete(ctx context.Context, id common.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete dataset")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeDatasetNotFound, "dataset not found").WithDetail(id.String())
	}
	return nil
}
