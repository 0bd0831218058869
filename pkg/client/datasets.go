package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// DatasetsClient covers the dataset catalog and per-dataset ranking runs.
type DatasetsClient struct {
	client *Client
}

// Dataset is a stored candidate table's catalog entry.
type Dataset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Columns   []string  `json:"columns"`
	RowCount  int       `json:"row_count"`
	ObjectKey string    `json:"object_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DatasetPage is one page of catalog entries.
type DatasetPage struct {
	Items      []Dataset `json:"items"`
	TotalCount int64     `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
}

// Ranking is a stored Pareto-ranking run.  Ranks align with the dataset's row
// order; nil entries mark rows excluded for missing objective data.
type Ranking struct {
	ID               string    `json:"id"`
	DatasetID        string    `json:"dataset_id"`
	Objectives       []string  `json:"objectives"`
	Directions       []string  `json:"directions"`
	IgnoreDuplicates bool      `json:"ignore_duplicates"`
	Ranks            []*int    `json:"ranks"`
	DroppedRows      int       `json:"dropped_rows"`
	CreatedAt        time.Time `json:"created_at"`
}

// RankRequest parametrises a ranking run.
type RankRequest struct {
	// Objectives selects objective columns; empty means every column.
	Objectives []string `json:"objectives,omitempty"`

	// Directions holds one "min"/"max" token per objective.
	Directions []string `json:"directions"`

	// IgnoreDuplicates overrides the server default when non-nil.
	IgnoreDuplicates *bool `json:"ignore_duplicates,omitempty"`
}

// ProfileRequest parametrises a radar-profile comparison.
type ProfileRequest struct {
	Objectives   []string `json:"objectives"`
	Directions   []string `json:"directions"`
	CandidateRow int      `json:"candidate_row"`
	ReferenceRow *int     `json:"reference_row,omitempty"`
}

// ProfileComparison reports overlap between a candidate and a reference
// profile, percentages relative to the reference area.
type ProfileComparison struct {
	Objectives     []string `json:"objectives"`
	CandidateArea  float64  `json:"candidate_area"`
	ReferenceArea  float64  `json:"reference_area"`
	OverlapArea    float64  `json:"overlap_area"`
	OverlapPct     float64  `json:"overlap_pct"`
	DifferenceArea float64  `json:"difference_area"`
	DifferencePct  float64  `json:"difference_pct"`
}

// Upload stores a CSV candidate table under the given name.
func (dc *DatasetsClient) Upload(ctx context.Context, name string, csvData []byte) (*Dataset, error) {
	var out Dataset
	path := "/api/v1/datasets?name=" + url.QueryEscape(name)
	if err := dc.client.postCSV(ctx, path, csvData, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches one catalog entry.
func (dc *DatasetsClient) Get(ctx context.Context, id string) (*Dataset, error) {
	var out Dataset
	if err := dc.client.get(ctx, "/api/v1/datasets/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns a page of catalog entries, newest first.
func (dc *DatasetsClient) List(ctx context.Context, page, pageSize int) (*DatasetPage, error) {
	var out DatasetPage
	path := fmt.Sprintf("/api/v1/datasets?page=%d&page_size=%d", page, pageSize)
	if err := dc.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a dataset, its rankings and its stored CSV.
func (dc *DatasetsClient) Delete(ctx context.Context, id string) error {
	return dc.client.delete(ctx, "/api/v1/datasets/"+url.PathEscape(id))
}

// Rank runs a Pareto ranking over the stored dataset.
func (dc *DatasetsClient) Rank(ctx context.Context, id string, req RankRequest) (*Ranking, error) {
	var out Ranking
	path := "/api/v1/datasets/" + url.PathEscape(id) + "/pareto"
	if err := dc.client.post(ctx, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rankings lists every stored run of the dataset, newest first.
func (dc *DatasetsClient) Rankings(ctx context.Context, id string) ([]Ranking, error) {
	var out []Ranking
	path := "/api/v1/datasets/" + url.PathEscape(id) + "/rankings"
	if err := dc.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LatestRanking fetches the most recent run of the dataset.
func (dc *DatasetsClient) LatestRanking(ctx context.Context, id string) (*Ranking, error) {
	var out Ranking
	path := "/api/v1/datasets/" + url.PathEscape(id) + "/rankings/latest"
	if err := dc.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompareProfiles runs a radar-profile comparison on the stored dataset.
func (dc *DatasetsClient) CompareProfiles(ctx context.Context, id string, req ProfileRequest) (*ProfileComparison, error) {
	var out ProfileComparison
	path := "/api/v1/datasets/" + url.PathEscape(id) + "/profile"
	if err := dc.client.post(ctx, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
