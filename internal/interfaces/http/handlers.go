// Package http exposes the MolRank REST API: dataset management, ranking
// runs, radar-profile comparison and polygon metrics.
package http

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/molrank/internal/application/analysis"
	"github.com/turtacn/molrank/internal/domain/geometry"
	"github.com/turtacn/molrank/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molrank/pkg/errors"
	"github.com/turtacn/molrank/pkg/types/common"
)

// AnalysisService is the slice of the application service the API consumes.
type AnalysisService interface {
	UploadDataset(ctx context.Context, name string, csvData []byte) (*repositories.Dataset, error)
	GetDataset(ctx context.Context, id common.ID) (*repositories.Dataset, error)
	ListDatasets(ctx context.Context, page common.Pagination) (*common.Page[repositories.Dataset], error)
	DeleteDataset(ctx context.Context, id common.ID) error
	RankDataset(ctx context.Context, datasetID common.ID, req analysis.RankRequest) (*repositories.RankingRecord, error)
	GetRanking(ctx context.Context, id common.ID) (*repositories.RankingRecord, error)
	LatestRanking(ctx context.Context, datasetID common.ID) (*repositories.RankingRecord, error)
	ListRankings(ctx context.Context, datasetID common.ID) ([]*repositories.RankingRecord, error)
	PreviewRank(ctx context.Context, csvData []byte, req analysis.RankRequest) (*analysis.TablePreview, error)
	CompareDatasetProfiles(ctx context.Context, datasetID common.ID, req analysis.ProfileRequest) (*analysis.ProfileComparison, error)
}

type handlers struct {
	svc     AnalysisService
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *handlers) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	resp := errorResponse{Code: code.String(), Message: err.Error()}
	var appErr *errors.AppError
	if goerrors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Detail = appErr.Detail
	}
	status := errors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", logging.String("code", code.String()), logging.Err(err))
	}
	writeJSON(w, status, resp)
}

func (h *handlers) parseID(w http.ResponseWriter, r *http.Request, param string) (common.ID, bool) {
	raw := chi.URLParam(r, param)
	id, ok := common.ParseID(raw)
	if !ok {
		h.writeError(w, errors.New(errors.ErrCodeValidation, "malformed identifier").WithDetail(raw))
		return "", false
	}
	return id, true
}

func (h *handlers) decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		h.writeError(w, errors.Wrap(err, errors.ErrCodeValidation, "invalid request body"))
		return false
	}
	return true
}

// POST /api/v1/datasets?name=...  (body: raw CSV)
func (h *handlers) uploadDataset(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, errors.Wrap(err, errors.ErrCodeValidation, "failed to read request body"))
		return
	}
	d, err := h.svc.UploadDataset(r.Context(), name, body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// GET /api/v1/datasets?page=&page_size=
func (h *handlers) listDatasets(w http.ResponseWriter, r *http.Request) {
	page := common.Pagination{}
	if v := r.URL.Query().Get("page"); v != "" {
		page.Page, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		page.PageSize, _ = strconv.Atoi(v)
	}
	result, err := h.svc.ListDatasets(r.Context(), page)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GET /api/v1/datasets/{datasetID}
func (h *handlers) getDataset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "datasetID")
	if !ok {
		return
	}
	d, err := h.svc.GetDataset(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DELETE /api/v1/datasets/{datasetID}
func (h *handlers) deleteDataset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "datasetID")
	if !ok {
		return
	}
	if err := h.svc.DeleteDataset(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rankBody struct {
	Objectives       []string `json:"objectives"`
	Directions       []string `json:"directions"`
	IgnoreDuplicates *bool    `json:"ignore_duplicates"`
}

func (b rankBody) toRequest() analysis.RankRequest {
	return analysis.RankRequest{
		Objectives:       b.Objectives,
		Directions:       b.Directions,
		IgnoreDuplicates: b.IgnoreDuplicates,
	}
}

// POST /api/v1/datasets/{datasetID}/pareto
func (h *handlers) rankDataset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "datasetID")
	if !ok {
		return
	}
	var body rankBody
	if !h.decodeBody(w, r, &body) {
		return
	}
	rec, err := h.svc.RankDataset(r.Context(), id, body.toRequest())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// GET /api/v1/datasets/{datasetID}/rankings
func (h *handlers) listRankings(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "datasetID")
	if !ok {
		return
	}
	recs, err := h.svc.ListRankings(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// GET /api/v1/datasets/{datasetID}/rankings/latest
func (h *handlers) latestRanking(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "datasetID")
	if !ok {
		return
	}
	rec, err := h.svc.LatestRanking(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GET /api/v1/rankings/{rankingID}
func (h *handlers) getRanking(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "rankingID")
	if !ok {
		return
	}
	rec, err := h.svc.GetRanking(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type previewBody struct {
	CSV string `json:"csv"`
	rankBody
}

// POST /api/v1/rankings/preview
func (h *handlers) previewRank(w http.ResponseWriter, r *http.Request) {
	var body previewBody
	if !h.decodeBody(w, r, &body) {
		return
	}
	preview, err := h.svc.PreviewRank(r.Context(), []byte(body.CSV), body.toRequest())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// POST /api/v1/datasets/{datasetID}/profile
func (h *handlers) compareProfiles(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "datasetID")
	if !ok {
		return
	}
	var req analysis.ProfileRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	cmp, err := h.svc.CompareDatasetProfiles(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

type polygonMetricsBody struct {
	Polygon1 geometry.Polygon `json:"polygon1"`
	Polygon2 geometry.Polygon `json:"polygon2"`

	// Reference selects the one-sided difference: 1 or 2, 0 to skip it.
	Reference int `json:"reference"`
}

type polygonMetricsResponse struct {
	Area1          float64  `json:"area1"`
	Area2          float64  `json:"area2"`
	Intersection   float64  `json:"intersection"`
	NonOverlap     float64  `json:"non_overlap"`
	DifferenceArea *float64 `json:"difference_area,omitempty"`
}

// POST /api/v1/polygons/metrics
func (h *handlers) polygonMetrics(w http.ResponseWriter, r *http.Request) {
	var body polygonMetricsBody
	if !h.decodeBody(w, r, &body) {
		return
	}

	resp, err := computePolygonMetrics(body)
	prometheus.RecordPolygonRequest(h.metrics, "overlap", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if resp.DifferenceArea != nil {
		prometheus.RecordPolygonRequest(h.metrics, "difference", nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

func computePolygonMetrics(body polygonMetricsBody) (polygonMetricsResponse, error) {
	resp := polygonMetricsResponse{}
	var err error
	if resp.Area1, err = geometry.Area(body.Polygon1); err != nil {
		return resp, err
	}
	if resp.Area2, err = geometry.Area(body.Polygon2); err != nil {
		return resp, err
	}
	if resp.Intersection, err = geometry.IntersectionArea(body.Polygon1, body.Polygon2); err != nil {
		return resp, err
	}
	if resp.NonOverlap, err = geometry.NonOverlapArea(body.Polygon1, body.Polygon2); err != nil {
		return resp, err
	}
	if body.Reference != 0 {
		diff, err := geometry.DifferenceArea(body.Polygon1, body.Polygon2, body.Reference)
		if err != nil {
			return resp, err
		}
		resp.DifferenceArea = &diff
	}
	return resp, nil
}
