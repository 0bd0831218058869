package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/molrank/internal/domain/ranking"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molrank/pkg/errors"
	"github.com/turtacn/molrank/pkg/types/common"
)

// RankingRecord is the stored result of one Pareto ranking run.  Ranks are a
// JSONB array aligned with the dataset's row order; null entries mark rows
// excluded for missing objective data.
type RankingRecord struct {
	ID               common.ID      `json:"id"`
	DatasetID        common.ID      `json:"dataset_id"`
	Objectives       []string       `json:"objectives"`
	Directions       []string       `json:"directions"`
	IgnoreDuplicates bool           `json:"ignore_duplicates"`
	Ranks            []ranking.Rank `json:"ranks"`
	DroppedRows      int            `json:"dropped_rows"`
	CreatedAt        time.Time      `json:"created_at"`
}

// RankingRepository persists ranking results.
type RankingRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRankingRepository constructs a ready-to-use RankingRepository.
func NewRankingRepository(pool *pgxpool.Pool, logger logging.Logger) *RankingRepository {
	return &RankingRepository{pool: pool, logger: logger}
}

// Save inserts a ranking record.
func (r *RankingRepository) Save(ctx context.Context, rec *RankingRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	ranksJSON, err := json.Marshal(rec.Ranks)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode ranks")
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO rankings (id, dataset_id, objectives, directions, ignore_duplicates, ranks, dropped_rows, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.DatasetID, rec.Objectives, rec.Directions,
		rec.IgnoreDuplicates, ranksJSON, rec.DroppedRows, rec.CreatedAt,
	)
	if err != nil {
		r.logger.Error("ranking save failed",
			logging.String("ranking_id", rec.ID.String()),
			logging.String("dataset_id", rec.DatasetID.String()),
			logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save ranking")
	}
	return nil
}

const rankingColumns = `id, dataset_id, objectives, directions, ignore_duplicates, ranks, dropped_rows, created_at`

func scanRanking(row pgx.Row) (*RankingRecord, error) {
	var rec RankingRecord
	var ranksJSON []byte
	if err := row.Scan(&rec.ID, &rec.DatasetID, &rec.Objectives, &rec.Directions,
		&rec.IgnoreDuplicates, &ranksJSON, &rec.DroppedRows, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ranksJSON, &rec.Ranks); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode stored ranks")
	}
	return &rec, nil
}

// Get fetches one ranking by ID.
func (r *RankingRepository) Get(ctx context.Context, id common.ID) (*RankingRecord, error) {
	rec, err := scanRanking(r.pool.QueryRow(ctx,
		`SELECT `+rankingColumns+` FROM rankings WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrCodeRankingNotFound, "ranking not found").WithDetail(id.String())
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load ranking")
	}
	return rec, nil
}

// Latest fetches the most recent ranking of a dataset.
func (r *RankingRepository) Latest(ctx context.Context, datasetID common.ID) (*RankingRecord, error) {
	rec, err := scanRanking(r.pool.QueryRow(ctx,
		`SELECT `+rankingColumns+` FROM rankings WHERE dataset_id = $1 ORDER BY created_at DESC LIMIT 1`,
		datasetID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrCodeRankingNotFound,
				"dataset has no rankings").WithDetail(datasetID.String())
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load latest ranking")
	}
	return rec, nil
}

// ListByDataset returns every ranking of a dataset, newest first.
func (r *RankingRepository) ListByDataset(ctx context.Context, datasetID common.ID) ([]*RankingRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+rankingColumns+` FROM rankings WHERE dataset_id = $1 ORDER BY created_at DESC`,
		datasetID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list rankings")
	}
	defer rows.Close()

	var out []*RankingRecord
	for rows.Next() {
		rec, err := scanRanking(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan ranking row")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "ranking listing failed")
	}
	return out, nil
}
