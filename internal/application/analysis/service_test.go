package analysis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molrank/internal/config"
	"github.com/turtacn/molrank/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/molrank/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molrank/pkg/errors"
	"github.com/turtacn/molrank/pkg/types/common"
)

const moleculeCSV = `molecule,bind_target_0,bind_target_1
benzene,0.5,1.0
1-cyclopentylethanamine,0.9,0.1
1-cyclopentylethanone,0.75,0.05
1-cyclopentylethanol,0.95,0.12
1-cyclohexylethanamine,0.95,0.15
1-cyclohexylethanone,0.79,0.02
1-cyclohexylethanol,1.1,1.2
benzylamine,1.2,0.02
methane,-1.2,0.01
ethane,-1.0,0.2
propane,-1.0,-0.4
butane,0.75,0.25
pentane,-0.7,-0.9
`

var moleculeRanks = []int{5, 2, 3, 2, 3, 2, 2, 1, 3, 4, 2, 4, 1}

type memDatasets struct {
	byID map[common.ID]*repositories.Dataset
}

func newMemDatasets() *memDatasets {
	return &memDatasets{byID: map[common.ID]*repositories.Dataset{}}
}

func (m *memDatasets) Save(_ context.Context, d *repositories.Dataset) error {
	cp := *d
	m.byID[d.ID] = &cp
	return nil
}

func (m *memDatasets) Get(_ context.Context, id common.ID) (*repositories.Dataset, error) {
	d, ok := m.byID[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeDatasetNotFound, "dataset not found")
	}
	cp := *d
	return &cp, nil
}

func (m *memDatasets) List(_ context.Context, page common.Pagination) (*common.Page[repositories.Dataset], error) {
	page = page.Normalize()
	items := make([]repositories.Dataset, 0, len(m.byID))
	for _, d := range m.byID {
		items = append(items, *d)
	}
	return &common.Page[repositories.Dataset]{Items: items, TotalCount: int64(len(items)), Pagination: page}, nil
}

func (m *memDatasets) Delete(_ context.Context, id common.ID) error {
	if _, ok := m.byID[id]; !ok {
		return errors.New(errors.ErrCodeDatasetNotFound, "dataset not found")
	}
	delete(m.byID, id)
	return nil
}

type memRankings struct {
	records []*repositories.RankingRecord
}

func (m *memRankings) Save(_ context.Context, rec *repositories.RankingRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

func (m *memRankings) Get(_ context.Context, id common.ID) (*repositories.RankingRecord, error) {
	for _, rec := range m.records {
		if rec.ID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, errors.New(errors.ErrCodeRankingNotFound, "ranking not found")
}

func (m *memRankings) Latest(_ context.Context, datasetID common.ID) (*repositories.RankingRecord, error) {
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].DatasetID == datasetID {
			cp := *m.records[i]
			return &cp, nil
		}
	}
	return nil, errors.New(errors.ErrCodeRankingNotFound, "dataset has no rankings")
}

func (m *memRankings) ListByDataset(_ context.Context, datasetID common.ID) ([]*repositories.RankingRecord, error) {
	var out []*repositories.RankingRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].DatasetID == datasetID {
			cp := *m.records[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memArtifacts struct {
	objects map[string][]byte
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{objects: map[string][]byte{}}
}

func (m *memArtifacts) PutCSV(_ context.Context, key string, data []byte) error {
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memArtifacts) GetCSV(_ context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New(errors.ErrCodeStorageError, "object not found")
	}
	return data, nil
}

func (m *memArtifacts) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

type capturingPublisher struct {
	events []kafka.RankingCompleted
}

func (p *capturingPublisher) PublishRankingCompleted(_ context.Context, ev kafka.RankingCompleted) error {
	p.events = append(p.events, ev)
	return nil
}

type memCache struct {
	entries     map[string][]byte
	loaderCalls int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) GetOrSet(ctx context.Context, key string, _ time.Duration,
	loader func(ctx context.Context) (interface{}, error)) ([]byte, error) {

	if data, ok := c.entries[key]; ok {
		return data, nil
	}
	c.loaderCalls++
	value, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	c.entries[key] = data
	return data, nil
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

type fixture struct {
	svc       *Service
	datasets  *memDatasets
	rankings  *memRankings
	artifacts *memArtifacts
	events    *capturingPublisher
	cache     *memCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		datasets:  newMemDatasets(),
		rankings:  &memRankings{},
		artifacts: newMemArtifacts(),
		events:    &capturingPublisher{},
		cache:     newMemCache(),
	}
	svc, err := NewService(ServiceParams{
		Datasets:  f.datasets,
		Rankings:  f.rankings,
		Artifacts: f.artifacts,
		Events:    f.events,
		Cache:     f.cache,
		Config:    config.RankingConfig{CacheTTL: time.Minute},
		Logger:    logging.NewNop(),
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func intRankValues(t *testing.T, rec *repositories.RankingRecord) []int {
	t.Helper()
	out := make([]int, len(rec.Ranks))
	for i, r := range rec.Ranks {
		require.True(t, r.Valid, "rank %d should be valid", i)
		out[i] = r.Value
	}
	return out
}

func TestNewService_RequiresStores(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestUploadDataset(t *testing.T) {
	f := newFixture(t)

	d, err := f.svc.UploadDataset(context.Background(), "binding panel", []byte(moleculeCSV))
	require.NoError(t, err)
	assert.Equal(t, []string{"molecule", "bind_target_0", "bind_target_1"}, d.Columns)
	assert.Equal(t, 13, d.RowCount)
	assert.Contains(t, f.artifacts.objects, d.ObjectKey)

	stored, err := f.svc.GetDataset(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, "binding panel", stored.Name)
}

func TestUploadDataset_Invalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UploadDataset(context.Background(), "", []byte(moleculeCSV))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = f.svc.UploadDataset(context.Background(), "empty", nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatasetEmpty))
	assert.Empty(t, f.artifacts.objects)
}

func TestRankDataset_ReferenceTable(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.UploadDataset(context.Background(), "binding panel", []byte(moleculeCSV))
	require.NoError(t, err)

	rec, err := f.svc.RankDataset(context.Background(), d.ID, RankRequest{
		Objectives: []string{"bind_target_0", "bind_target_1"},
		Directions: []string{"max", "min"},
	})
	require.NoError(t, err)

	assert.Equal(t, moleculeRanks, intRankValues(t, rec))
	assert.Equal(t, []string{"bind_target_0", "bind_target_1"}, rec.Objectives)
	assert.Equal(t, []string{"max", "min"}, rec.Directions)
	assert.Zero(t, rec.DroppedRows)

	// Persisted, cached and announced.
	require.Len(t, f.rankings.records, 1)
	assert.Contains(t, f.cache.entries, latestRankingKey(d.ID))
	require.Len(t, f.events.events, 1)
	ev := f.events.events[0]
	assert.Equal(t, rec.ID, ev.RankingID)
	assert.Equal(t, d.ID, ev.DatasetID)
	assert.Equal(t, 13, ev.RowCount)
	assert.Empty(t, ev.Error)
}

func TestRankDataset_DirectionMismatch(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.UploadDataset(context.Background(), "binding panel", []byte(moleculeCSV))
	require.NoError(t, err)

	_, err = f.svc.RankDataset(context.Background(), d.ID, RankRequest{
		Objectives: []string{"bind_target_0", "bind_target_1"},
		Directions: []string{"max"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDirectionCountMismatch))
	assert.Empty(t, f.events.events)
	assert.Empty(t, f.rankings.records)
}

func TestRankDataset_UnknownDataset(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RankDataset(context.Background(), common.NewID(), RankRequest{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatasetNotFound))
}

func TestLatestRanking_ServedFromCache(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.UploadDataset(context.Background(), "binding panel", []byte(moleculeCSV))
	require.NoError(t, err)
	rec, err := f.svc.RankDataset(context.Background(), d.ID, RankRequest{
		Objectives: []string{"bind_target_0", "bind_target_1"},
		Directions: []string{"max", "min"},
	})
	require.NoError(t, err)

	// Drop the persisted record; the cached copy must still answer, without
	// touching the repository loader.
	f.rankings.records = nil
	got, err := f.svc.LatestRanking(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, moleculeRanks, intRankValues(t, got))
	assert.Zero(t, f.cache.loaderCalls)

	// After eviction the loader runs and the repository miss surfaces.
	require.NoError(t, f.cache.Delete(context.Background(), latestRankingKey(d.ID)))
	_, err = f.svc.LatestRanking(context.Background(), d.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRankingNotFound))
	assert.Equal(t, 1, f.cache.loaderCalls)
}

func TestDeleteDataset_CleansUp(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.UploadDataset(context.Background(), "binding panel", []byte(moleculeCSV))
	require.NoError(t, err)
	_, err = f.svc.RankDataset(context.Background(), d.ID, RankRequest{
		Objectives: []string{"bind_target_0", "bind_target_1"},
		Directions: []string{"max", "min"},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteDataset(context.Background(), d.ID))
	assert.Empty(t, f.artifacts.objects)
	assert.NotContains(t, f.cache.entries, latestRankingKey(d.ID))

	err = f.svc.DeleteDataset(context.Background(), d.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatasetNotFound))
}

func TestPreviewRank(t *testing.T) {
	f := newFixture(t)

	csvData := []byte("potency,toxicity\n1.0,0.5\n,0.1\n2.0,0.2\n")
	preview, err := f.svc.PreviewRank(context.Background(), csvData, RankRequest{
		Directions: []string{"max", "min"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"potency", "toxicity", "pareto_rank"}, preview.Columns)
	assert.Equal(t, 1, preview.DroppedRows)
	require.Len(t, preview.Rows, 3)
	assert.Equal(t, []string{"1", "0.5", "2"}, preview.Rows[0])
	assert.Equal(t, "", preview.Rows[1][2]) // incomplete row keeps no rank
	assert.Equal(t, []string{"2", "0.2", "1"}, preview.Rows[2])
}

func TestEventHandler_RanksOnRequest(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.UploadDataset(context.Background(), "binding panel", []byte(moleculeCSV))
	require.NoError(t, err)

	handler := NewEventHandler(f.svc)
	ev := kafka.RankingRequested{
		RequestID:  common.NewID(),
		DatasetID:  d.ID,
		Objectives: []string{"bind_target_0", "bind_target_1"},
		Directions: []string{"max", "min"},
	}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), kafka.EventTypeRankingRequested, payload))
	require.Len(t, f.rankings.records, 1)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, ev.RequestID, f.events.events[0].RequestID)
	assert.Empty(t, f.events.events[0].Error)
}

func TestEventHandler_FailureAnnounced(t *testing.T) {
	f := newFixture(t)

	handler := NewEventHandler(f.svc)
	ev := kafka.RankingRequested{RequestID: common.NewID(), DatasetID: common.NewID()}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	// Unknown dataset: the handler swallows the error but announces it.
	require.NoError(t, handler(context.Background(), kafka.EventTypeRankingRequested, payload))
	assert.Empty(t, f.rankings.records)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, ev.RequestID, f.events.events[0].RequestID)
	assert.NotEmpty(t, f.events.events[0].Error)

	// Foreign event types are ignored.
	require.NoError(t, handler(context.Background(), "something.else", payload))

	// Undecodable payloads fail decode.
	err = handler(context.Background(), kafka.EventTypeRankingRequested, []byte("garbage"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}
