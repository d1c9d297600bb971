package narrative

import (
	"context"
	"fmt"
	"time"

	"github.com/Perruchok/vozpublica/analysis"
	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/storage"
)

// EvolutionRequest asks how strongly a concept is present over time.
type EvolutionRequest struct {
	Concept string
	// Granularity is "day", "week" or "month". Empty means month.
	Granularity string
	// StartDate and EndDate are calendar days, both inclusive.
	StartDate time.Time
	EndDate   time.Time
	// SimilarityThreshold defaults to the service setting when nil.
	SimilarityThreshold *float64
}

// EvolutionResponse is the presence and drift of a concept per period.
type EvolutionResponse struct {
	Concept            string               `json:"concept" yaml:"concept"`
	Granularity        analysis.Granularity `json:"granularity" yaml:"granularity"`
	analysis.Evolution `yaml:",inline"`
}

// Evolution computes concept presence per period, the drift between adjacent
// periods and the largest drift. An empty range yields empty points and drift
// and a nil MaxDrift.
func (s *Service) Evolution(ctx context.Context, req EvolutionRequest) (*EvolutionResponse, error) {
	concept, err := requireConcept(req.Concept)
	if err != nil {
		return nil, err
	}
	granularity, err := analysis.ParseGranularity(req.Granularity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidRequest, err)
	}
	threshold, err := s.resolveThreshold(req.SimilarityThreshold)
	if err != nil {
		return nil, err
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, invalid("start_date and end_date are required")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, invalid("end_date %s is before start_date %s",
			req.EndDate.Format(time.DateOnly), req.StartDate.Format(time.DateOnly))
	}

	vector, err := s.embedConcept(ctx, concept)
	if err != nil {
		return nil, err
	}

	tr := storage.DayRange(req.StartDate, req.EndDate)
	records, err := s.query(ctx, vector, &tr, threshold, s.settings.EvolutionLimit)
	if err != nil {
		return nil, err
	}

	agg := analysis.NewAggregator(granularity, analysis.WithAggregatorLogger(s.logger))
	accepted := agg.AddRecords(records)
	s.logger.Info("computed evolution",
		"concept", concept,
		"granularity", granularity,
		"rows", len(records),
		"accepted", accepted,
		"periods", len(agg.Periods()))

	return &EvolutionResponse{
		Concept:     concept,
		Granularity: granularity,
		Evolution:   analysis.ComputeEvolution(agg, vector),
	}, nil
}
