package analysis

import (
	"bytes"
	"context"
	"math"

	"github.com/turtacn/molrank/internal/domain/dataset"
	"github.com/turtacn/molrank/internal/domain/geometry"
	"github.com/turtacn/molrank/internal/domain/ranking"
	"github.com/turtacn/molrank/pkg/errors"
	"github.com/turtacn/molrank/pkg/types/common"
)

// ProfileRequest parametrises a radar-profile comparison between a candidate
// row and a reference profile.
type ProfileRequest struct {
	// Objectives names the axes of the radar; at least three are needed to
	// span an area.
	Objectives []string `json:"objectives"`

	// Directions holds one "min"/"max" token per objective.
	Directions []string `json:"directions"`

	// CandidateRow is the zero-based row of the candidate.
	CandidateRow int `json:"candidate_row"`

	// ReferenceRow selects the reference profile; nil means the per-direction
	// ideal (the best achievable value on every axis).
	ReferenceRow *int `json:"reference_row"`
}

// ProfileComparison reports how much of the reference profile a candidate
// covers.  Percentages are relative to the reference area.
type ProfileComparison struct {
	Objectives     []string `json:"objectives"`
	CandidateArea  float64  `json:"candidate_area"`
	ReferenceArea  float64  `json:"reference_area"`
	OverlapArea    float64  `json:"overlap_area"`
	OverlapPct     float64  `json:"overlap_pct"`
	DifferenceArea float64  `json:"difference_area"`
	DifferencePct  float64  `json:"difference_pct"`
}

// CompareProfiles min-max scales the objective columns, builds radar polygons
// for the candidate and the reference, and measures their overlap.  Scaled
// values are oriented so that a larger radius is always better; missing cells
// collapse the axis to radius zero.
func CompareProfiles(frame *dataset.Frame, req ProfileRequest) (*ProfileComparison, error) {
	if len(req.Objectives) < 3 {
		return nil, errors.Newf(errors.ErrCodeValidation,
			"profile comparison needs at least 3 objectives, got %d", len(req.Objectives))
	}
	if len(req.Directions) != len(req.Objectives) {
		return nil, errors.Newf(errors.ErrCodeDirectionCountMismatch,
			"%d objective columns but %d directions", len(req.Objectives), len(req.Directions))
	}
	dirs := make([]ranking.Direction, len(req.Directions))
	for i, tok := range req.Directions {
		d, err := ranking.ParseDirection(tok)
		if err != nil {
			return nil, err
		}
		dirs[i] = d
	}
	if req.CandidateRow < 0 || req.CandidateRow >= frame.NumRows() {
		return nil, errors.Newf(errors.ErrCodeValidation,
			"candidate row %d out of range [0,%d)", req.CandidateRow, frame.NumRows())
	}
	if req.ReferenceRow != nil && (*req.ReferenceRow < 0 || *req.ReferenceRow >= frame.NumRows()) {
		return nil, errors.Newf(errors.ErrCodeValidation,
			"reference row %d out of range [0,%d)", *req.ReferenceRow, frame.NumRows())
	}

	scaled, err := frame.MinMaxScale(req.Objectives)
	if err != nil {
		return nil, err
	}

	candidate, err := radarPolygon(scaled, req.Objectives, dirs, req.CandidateRow)
	if err != nil {
		return nil, err
	}
	var reference geometry.Polygon
	if req.ReferenceRow != nil {
		reference, err = radarPolygon(scaled, req.Objectives, dirs, *req.ReferenceRow)
		if err != nil {
			return nil, err
		}
	} else {
		reference = idealPolygon(len(req.Objectives))
	}

	candArea, err := geometry.Area(candidate)
	if err != nil {
		return nil, err
	}
	refArea, err := geometry.Area(reference)
	if err != nil {
		return nil, err
	}
	overlap, err := geometry.IntersectionArea(candidate, reference)
	if err != nil {
		return nil, err
	}
	// Candidate area outside the reference profile.
	diff, err := geometry.DifferenceArea(reference, candidate, 1)
	if err != nil {
		return nil, err
	}

	cmp := &ProfileComparison{
		Objectives:     append([]string(nil), req.Objectives...),
		CandidateArea:  candArea,
		ReferenceArea:  refArea,
		OverlapArea:    overlap,
		DifferenceArea: diff,
	}
	if refArea > 0 {
		cmp.OverlapPct = overlap / refArea * 100
		cmp.DifferencePct = diff / refArea * 100
	}
	return cmp, nil
}

// radarPolygon places one vertex per objective on evenly spaced axes, at the
// row's scaled value oriented so 1 is best.
func radarPolygon(scaled *dataset.Frame, objectives []string, dirs []ranking.Direction, row int) (geometry.Polygon, error) {
	poly := make(geometry.Polygon, len(objectives))
	for j, name := range objectives {
		c, err := scaled.Cell(row, name)
		if err != nil {
			return nil, err
		}
		r := 0.0
		if !c.IsMissing() {
			r = c.Num
			if dirs[j] == ranking.Min {
				r = 1 - r
			}
		}
		angle := 2 * math.Pi * float64(j) / float64(len(objectives))
		poly[j] = geometry.Point{X: r * math.Cos(angle), Y: r * math.Sin(angle)}
	}
	return poly, nil
}

// idealPolygon is the radar profile scoring 1 on every axis.
func idealPolygon(n int) geometry.Polygon {
	poly := make(geometry.Polygon, n)
	for j := 0; j < n; j++ {
		angle := 2 * math.Pi * float64(j) / float64(n)
		poly[j] = geometry.Point{X: math.Cos(angle), Y: math.Sin(angle)}
	}
	return poly
}

// CompareDatasetProfiles loads a stored dataset and compares one of its rows
// against a reference profile.
func (s *Service) CompareDatasetProfiles(ctx context.Context, datasetID common.ID, req ProfileRequest) (*ProfileComparison, error) {
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
	return CompareProfiles(frame, req)
}
