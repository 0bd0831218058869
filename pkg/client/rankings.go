package client

import (
	"context"
	"net/url"
)

// RankingsClient covers stored rankings, inline previews and polygon metrics.
type RankingsClient struct {
	client *Client
}

// TablePreview is an inline ranked table; nothing is persisted server-side.
type TablePreview struct {
	Columns     []string   `json:"columns"`
	Rows        [][]string `json:"rows"`
	DroppedRows int        `json:"dropped_rows"`
}

// Point is a 2D polygon vertex.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PolygonMetricsRequest asks for overlap metrics between two vertex rings.
// Reference 1 or 2 additionally requests the one-sided difference; 0 skips it.
type PolygonMetricsRequest struct {
	Polygon1  []Point `json:"polygon1"`
	Polygon2  []Point `json:"polygon2"`
	Reference int     `json:"reference,omitempty"`
}

// PolygonMetrics is the computed overlap report.
type PolygonMetrics struct {
	Area1          float64  `json:"area1"`
	Area2          float64  `json:"area2"`
	Intersection   float64  `json:"intersection"`
	NonOverlap     float64  `json:"non_overlap"`
	DifferenceArea *float64 `json:"difference_area,omitempty"`
}

type previewRequest struct {
	CSV string `json:"csv"`
	RankRequest
}

// Get fetches one stored ranking run by ID.
func (rc *RankingsClient) Get(ctx context.Context, id string) (*Ranking, error) {
	var out Ranking
	if err := rc.client.get(ctx, "/api/v1/rankings/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Preview ranks an inline CSV table and returns it with the rank column
// appended.
func (rc *RankingsClient) Preview(ctx context.Context, csvData []byte, req RankRequest) (*TablePreview, error) {
	var out TablePreview
	body := previewRequest{CSV: string(csvData), RankRequest: req}
	if err := rc.client.post(ctx, "/api/v1/rankings/preview", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PolygonMetrics computes overlap metrics between two polygons.
func (rc *RankingsClient) PolygonMetrics(ctx context.Context, req PolygonMetricsRequest) (*PolygonMetrics, error) {
	var out PolygonMetrics
	if err := rc.client.post(ctx, "/api/v1/polygons/metrics", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
