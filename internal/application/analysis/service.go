// Package analysis orchestrates dataset management and Pareto-ranking runs:
// CSV uploads land in object storage with a catalog entry in postgres, ranking
// runs combine the stored CSV with the ranking engine and persist, cache, and
// announce their results.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/turtacn/molrank/internal/config"
	"github.com/turtacn/molrank/internal/domain/dataset"
	"github.com/turtacn/molrank/internal/domain/ranking"
	"github.com/turtacn/molrank/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/molrank/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molrank/pkg/errors"
	"github.com/turtacn/molrank/pkg/types/common"
)

// DatasetStore persists dataset catalog entries.
type DatasetStore interface {
	Save(ctx context.Context, d *repositories.Dataset) error
	Get(ctx context.Context, id common.ID) (*repositories.Dataset, error)
	List(ctx context.Context, page common.Pagination) (*common.Page[repositories.Dataset], error)
	Delete(ctx context.Context, id common.ID) error
}

// RankingStore persists ranking results.
type RankingStore interface {
	Save(ctx context.Context, rec *repositories.RankingRecord) error
	Get(ctx context.Context, id common.ID) (*repositories.RankingRecord, error)
	Latest(ctx context.Context, datasetID common.ID) (*repositories.RankingRecord, error)
	ListByDataset(ctx context.Context, datasetID common.ID) ([]*repositories.RankingRecord, error)
}

// ArtifactStore reads and writes raw CSV artifacts.
type ArtifactStore interface {
	PutCSV(ctx context.Context, key string, data []byte) error
	GetCSV(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// EventPublisher announces finished ranking runs.
type EventPublisher interface {
	PublishRankingCompleted(ctx context.Context, ev kafka.RankingCompleted) error
}

// ResultCache memoises ranking results.  GetOrSet collapses concurrent misses
// on one key to a single loader call and returns the JSON encoding of the
// cached value.
type ResultCache interface {
	GetOrSet(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ServiceParams bundles the service's dependencies.  Datasets, Rankings and
// Artifacts are required; Events, Cache, Metrics and Snapshot are optional and
// skipped when nil.
type ServiceParams struct {
	Datasets  DatasetStore
	Rankings  RankingStore
	Artifacts ArtifactStore
	Events    EventPublisher
	Cache     ResultCache
	Metrics   *prometheus.AppMetrics
	Snapshot  ranking.SnapshotSink
	Config    config.RankingConfig
	Logger    logging.Logger
}

// Service is the application facade over datasets, rankings and profiles.
type Service struct {
	datasets  DatasetStore
	rankings  RankingStore
	artifacts ArtifactStore
	events    EventPublisher
	cache     ResultCache
	metrics   *prometheus.AppMetrics
	snapshot  ranking.SnapshotSink
	cfg       config.RankingConfig
	logger    logging.Logger
}

// NewService validates the params and builds a Service.
func NewService(p ServiceParams) (*Service, error) {
	if p.Datasets == nil || p.Rankings == nil || p.Artifacts == nil {
		return nil, errors.New(errors.ErrCodeValidation,
			"dataset store, ranking store and artifact store are required")
	}
	if p.Logger == nil {
		p.Logger = logging.Default()
	}
	return &Service{
		datasets:  p.Datasets,
		rankings:  p.Rankings,
		artifacts: p.Artifacts,
		events:    p.Events,
		cache:     p.Cache,
		metrics:   p.Metrics,
		snapshot:  p.Snapshot,
		cfg:       p.Config,
		logger:    p.Logger,
	}, nil
}

// artifactKey names the stored CSV of a dataset.
func artifactKey(id common.ID) string {
	return "datasets/" + id.String() + ".csv"
}

func latestRankingKey(datasetID common.ID) string {
	return "ranking:latest:" + datasetID.String()
}

// UploadDataset parses and stores a CSV candidate table.  The raw bytes go to
// object storage; postgres keeps the catalog entry.
func (s *Service) UploadDataset(ctx context.Context, name string, csvData []byte) (*repositories.Dataset, error) {
	d, err := s.uploadDataset(ctx, name, csvData)
	if err != nil {
		prometheus.RecordDatasetUpload(s.metrics, 0, err)
		return nil, err
	}
	prometheus.RecordDatasetUpload(s.metrics, d.RowCount, nil)
	return d, nil
}

func (s *Service) uploadDataset(ctx context.Context, name string, csvData []byte) (*repositories.Dataset, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCodeValidation, "dataset name is required")
	}

	frame, err := dataset.ReadCSV(bytes.NewReader(csvData))
	if err != nil {
		return nil, err
	}

	d := &repositories.Dataset{
		ID:       common.NewID(),
		Name:     name,
		Columns:  frame.Columns(),
		RowCount: frame.NumRows(),
	}
	d.ObjectKey = artifactKey(d.ID)

	if err := s.artifacts.PutCSV(ctx, d.ObjectKey, csvData); err != nil {
		return nil, err
	}
	if err := s.datasets.Save(ctx, d); err != nil {
		if delErr := s.artifacts.Delete(ctx, d.ObjectKey); delErr != nil {
			s.logger.Warn("orphaned artifact left after failed save",
				logging.String("object_key", d.ObjectKey), logging.Err(delErr))
		}
		return nil, err
	}

	s.logger.Info("dataset uploaded",
		logging.String("dataset_id", d.ID.String()),
		logging.String("name", d.Name),
		logging.Int("rows", d.RowCount),
		logging.Int("columns", len(d.Columns)))
	return d, nil
}

// GetDataset fetches one dataset catalog entry.
func (s *Service) GetDataset(ctx context.Context, id common.ID) (*repositories.Dataset, error) {
	return s.datasets.Get(ctx, id)
}

// ListDatasets returns a page of catalog entries, newest first.
func (s *Service) ListDatasets(ctx context.Context, page common.Pagination) (*common.Page[repositories.Dataset], error) {
	return s.datasets.List(ctx, page)
}

// DeleteDataset removes the catalog entry, its rankings, the stored CSV and
// any cached result.
func (s *Service) DeleteDataset(ctx context.Context, id common.ID) error {
	d, err := s.datasets.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.datasets.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.artifacts.Delete(ctx, d.ObjectKey); err != nil {
		s.logger.Warn("failed to delete dataset artifact",
			logging.String("object_key", d.ObjectKey), logging.Err(err))
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, latestRankingKey(id)); err != nil {
			s.logger.Warn("failed to evict cached ranking", logging.Err(err))
		}
	}
	return nil
}

// RankRequest parametrises one ranking run.
type RankRequest struct {
	// RequestID correlates the run with an originating event; zero means a
	// fresh synchronous request.
	RequestID common.ID

	// Objectives selects objective columns; empty means every column.
	Objectives []string

	// Directions holds one "min"/"max" token per objective.
	Directions []string

	// IgnoreDuplicates overrides the configured default when non-nil.
	IgnoreDuplicates *bool
}

func (s *Service) ignoreDuplicates(req RankRequest) bool {
	if req.IgnoreDuplicates != nil {
		return *req.IgnoreDuplicates
	}
	return s.cfg.IgnoreDuplicates
}

// rankFrame runs the ranking engine over a parsed table.
func (s *Service) rankFrame(frame *dataset.Frame, req RankRequest) (ranks []ranking.Rank, objectives []string, dropped int, err error) {
	dirs := make([]ranking.Direction, 0, len(req.Directions))
	for _, tok := range req.Directions {
		d, err := ranking.ParseDirection(tok)
		if err != nil {
			return nil, nil, 0, err
		}
		dirs = append(dirs, d)
	}

	spec := ranking.AllColumns()
	if len(req.Objectives) > 0 {
		spec = ranking.Columns(req.Objectives...)
	}
	objectives = spec.Resolve(frame)

	opts := ranking.Options{
		Objectives:       spec,
		IgnoreDuplicates: s.ignoreDuplicates(req),
		Snapshot:         s.snapshot,
		Logger:           s.logger,
	}
	mask, cleanRanks, err := ranking.PrepareAndRank(frame, dirs, opts)
	if err != nil {
		return nil, nil, 0, err
	}
	ranks, err = ranking.ReintegrateRanks(mask, cleanRanks)
	if err != nil {
		return nil, nil, 0, err
	}
	return ranks, objectives, len(mask) - len(cleanRanks), nil
}

// RankDataset runs a ranking over a stored dataset and persists the result.
// The result is cached and, when a publisher is wired, announced on the
// completed topic.
func (s *Service) RankDataset(ctx context.Context, datasetID common.ID, req RankRequest) (*repositories.RankingRecord, error) {
	start := time.Now()

	rec, err := s.rankDataset(ctx, datasetID, req)
	if err != nil {
		prometheus.RecordRanking(s.metrics, "dataset", 0, 0, time.Since(start), err)
		prometheus.RecordError(s.metrics, "analysis", errors.GetCode(err).String())
		return nil, err
	}
	prometheus.RecordRanking(s.metrics, "dataset", len(rec.Ranks), rec.DroppedRows, time.Since(start), nil)
	return rec, nil
}

func (s *Service) rankDataset(ctx context.Context, datasetID common.ID, req RankRequest) (*repositories.RankingRecord, error) {
	d, err := s.datasets.Get(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	data, err := s.artifacts.GetCSV(ctx, d.ObjectKey)
	if err != nil {
		return nil, err
	}
	frame, err := dataset.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	ranks, objectives, dropped, err := s.rankFrame(frame, req)
	if err != nil {
		return nil, err
	}

	rec := &repositories.RankingRecord{
		ID:               common.NewID(),
		DatasetID:        datasetID,
		Objectives:       objectives,
		Directions:       normalizeDirections(req.Directions),
		IgnoreDuplicates: s.ignoreDuplicates(req),
		Ranks:            ranks,
		DroppedRows:      dropped,
	}
	if err := s.rankings.Save(ctx, rec); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, latestRankingKey(datasetID), rec, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache ranking result", logging.Err(err))
		}
	}

	s.publishCompleted(ctx, req.RequestID, rec, nil)

	s.logger.Info("dataset ranked",
		logging.String("dataset_id", datasetID.String()),
		logging.String("ranking_id", rec.ID.String()),
		logging.Int("rows", len(rec.Ranks)),
		logging.Int("dropped", rec.DroppedRows))
	return rec, nil
}

func normalizeDirections(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if d, err := ranking.ParseDirection(tok); err == nil {
			out = append(out, d.String())
		}
	}
	return out
}

// publishCompleted announces a finished run on the completed topic.  Failures
// are logged, never fatal: the result is already durable in postgres.
func (s *Service) publishCompleted(ctx context.Context, requestID common.ID, rec *repositories.RankingRecord, runErr error) {
	if s.events == nil {
		return
	}
	if requestID.IsZero() {
		requestID = common.NewID()
	}
	ev := kafka.RankingCompleted{
		RequestID:   requestID,
		CompletedAt: time.Now().UTC(),
	}
	if rec != nil {
		ev.RankingID = rec.ID
		ev.DatasetID = rec.DatasetID
		ev.RowCount = len(rec.Ranks)
		ev.DroppedRows = rec.DroppedRows
	}
	if runErr != nil {
		ev.Error = runErr.Error()
	}
	if err := s.events.PublishRankingCompleted(ctx, ev); err != nil {
		s.logger.Warn("failed to publish ranking completion", logging.Err(err))
	}
}

// GetRanking fetches one stored ranking run.
func (s *Service) GetRanking(ctx context.Context, id common.ID) (*repositories.RankingRecord, error) {
	return s.rankings.Get(ctx, id)
}

// LatestRanking returns the most recent ranking of a dataset.  Concurrent
// cache misses for the same dataset collapse to a single repository load.
func (s *Service) LatestRanking(ctx context.Context, datasetID common.ID) (*repositories.RankingRecord, error) {
	if s.cache == nil {
		return s.rankings.Latest(ctx, datasetID)
	}

	loaded := false
	data, err := s.cache.GetOrSet(ctx, latestRankingKey(datasetID), s.cfg.CacheTTL,
		func(ctx context.Context) (interface{}, error) {
			loaded = true
			return s.rankings.Latest(ctx, datasetID)
		})
	if err != nil {
		return nil, err
	}
	prometheus.RecordCacheAccess(s.metrics, "ranking", !loaded)

	var rec repositories.RankingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode cached ranking")
	}
	return &rec, nil
}

// ListRankings returns every stored run of a dataset, newest first.
func (s *Service) ListRankings(ctx context.Context, datasetID common.ID) ([]*repositories.RankingRecord, error) {
	return s.rankings.ListByDataset(ctx, datasetID)
}

// TablePreview is an inline ranked table for ad-hoc requests that never touch
// storage.
type TablePreview struct {
	Columns     []string   `json:"columns"`
	Rows        [][]string `json:"rows"`
	DroppedRows int        `json:"dropped_rows"`
}

// PreviewRank ranks an inline CSV table and returns the augmented table.
// Nothing is persisted.
func (s *Service) PreviewRank(ctx context.Context, csvData []byte, req RankRequest) (*TablePreview, error) {
	start := time.Now()
	frame, err := dataset.ReadCSV(bytes.NewReader(csvData))
	if err != nil {
		return nil, err
	}

	ranks, _, dropped, err := s.rankFrame(frame, req)
	if err != nil {
		prometheus.RecordRanking(s.metrics, "preview", 0, 0, time.Since(start), err)
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
	out := frame.Clone()
	if err := out.SetColumn(ranking.RankColumn, cells); err != nil {
		return nil, err
	}

	preview := &TablePreview{Columns: out.Columns(), DroppedRows: dropped}
	preview.Rows = make([][]string, out.NumRows())
	for i := 0; i < out.NumRows(); i++ {
		row := make([]string, len(preview.Columns))
		for j, name := range preview.Columns {
			c, err := out.Cell(i, name)
			if err != nil {
				return nil, err
			}
			row[j] = c.String()
		}
		preview.Rows[i] = row
	}

	prometheus.RecordRanking(s.metrics, "preview", out.NumRows(), dropped, time.Since(start), nil)
	return preview, nil
}
