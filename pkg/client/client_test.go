package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, WithRetry(2, time.Millisecond, 5*time.Millisecond))
	require.NoError(t, err)
	return c, srv
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("")
	require.Error(t, err)

	_, err = NewClient("ftp://example.com")
	require.Error(t, err)

	c, err := NewClient("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.baseURL)
}

func TestUploadDataset(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/datasets", r.URL.Path)
		assert.Equal(t, "binding panel", r.URL.Query().Get("name"))
		assert.Equal(t, "text/csv", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "a,b\n1,2\n", string(body))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Dataset{ID: "d1", Name: "binding panel", RowCount: 1})
	}))

	d, err := c.Datasets().Upload(context.Background(), "binding panel", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, "d1", d.ID)
	assert.Equal(t, 1, d.RowCount)
}

func TestRankDataset(t *testing.T) {
	rank1, rank2 := 1, 2
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/datasets/d1/pareto", r.URL.Path)

		var req RankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"max", "min"}, req.Directions)

		w.WriteHeader(http.StatusCreated)
		// Null rank entries decode to nil pointers.
		_, _ = w.Write([]byte(`{"id":"r1","dataset_id":"d1","ranks":[1,null,2]}`))
	}))

	rec, err := c.Datasets().Rank(context.Background(), "d1", RankRequest{Directions: []string{"max", "min"}})
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)
	assert.Equal(t, []*int{&rank1, nil, &rank2}, rec.Ranks)
}

func TestAPIErrorDecoding(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"DS_001","message":"dataset not found"}`))
	}))

	_, err := c.Datasets().Get(context.Background(), "missing")
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "DS_001", apiErr.Code)
	assert.True(t, apiErr.IsNotFound())
	assert.Contains(t, apiErr.Error(), "dataset not found")
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(Dataset{ID: "d1"})
	}))

	d, err := c.Datasets().Get(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", d.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"COMMON_002","message":"bad request"}`))
	}))

	_, err := c.Datasets().Get(context.Background(), "d1")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPreviewAndPolygonMetrics(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/rankings/preview":
			var req previewRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "a\n1\n", req.CSV)
			_ = json.NewEncoder(w).Encode(TablePreview{
				Columns: []string{"a", "pareto_rank"},
				Rows:    [][]string{{"1", "1"}},
			})
		case "/api/v1/polygons/metrics":
			var req PolygonMetricsRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Len(t, req.Polygon1, 3)
			_ = json.NewEncoder(w).Encode(PolygonMetrics{Area1: 0.5, Area2: 0.5, Intersection: 0.5})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	preview, err := c.Rankings().Preview(context.Background(), []byte("a\n1\n"), RankRequest{Directions: []string{"max"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "pareto_rank"}, preview.Columns)

	tri := []Point{{0, 0}, {1, 0}, {0, 1}}
	metrics, err := c.Rankings().PolygonMetrics(context.Background(), PolygonMetricsRequest{Polygon1: tri, Polygon2: tri})
	require.NoError(t, err)
	assert.Equal(t, 0.5, metrics.Intersection)
}

func TestDeleteDataset(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/datasets/d1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	require.NoError(t, c.Datasets().Delete(context.Background(), "d1"))
}
