package narrative

import (
	"context"
	"fmt"
	"time"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/Perruchok/vozpublica/analysis"
	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/storage"
	"github.com/Perruchok/vozpublica/vecmath"
)

// minExplainFetch is the smallest per-period fetch used to score drift.
const minExplainFetch = 100

// ExplainRequest asks for a narrated comparison of two months.
type ExplainRequest struct {
	Concept string
	// FromPeriod and ToPeriod are months formatted YYYY-MM.
	FromPeriod string
	ToPeriod   string
	// MaxExamples is the number of excerpts per period given to the
	// explainer. Zero selects the default; otherwise it must be in 1..50.
	MaxExamples         int
	SimilarityThreshold *float64
}

// ExplainResponse is the measured drift between two months and its narration.
type ExplainResponse struct {
	Concept        string            `json:"concept" yaml:"concept"`
	FromPeriod     string            `json:"from_period" yaml:"from_period"`
	ToPeriod       string            `json:"to_period" yaml:"to_period"`
	SemanticChange float64           `json:"semantic_change" yaml:"semantic_change"`
	Response       *ai.DriftAnalysis `json:"response" yaml:"response"`
}

// MonthRange parses a YYYY-MM period into the range from its first day
// through its last day, both inclusive.
func MonthRange(period string) (storage.TimeRange, error) {
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return storage.TimeRange{}, invalid("period %q must be formatted YYYY-MM", period)
	}
	last := start.AddDate(0, 1, -1)
	return storage.DayRange(start, last), nil
}

// resolveMaxExamples applies the default and validates the bounds.
func (s *Service) resolveMaxExamples(n int) (int, error) {
	if n == 0 {
		return s.settings.MaxExamples, nil
	}
	if n < 1 || n > analysis.MaxExcerpts {
		return 0, invalid("max_examples must be between 1 and %d, got %d", analysis.MaxExcerpts, n)
	}
	return n, nil
}

// semanticChange is the two-group drift between all rows of both periods.
func (s *Service) semanticChange(pre, post []core.SpeechTurnRecord) (float64, error) {
	change, err := analysis.TwoGroupSemanticChange(s.resolveVectors(pre), s.resolveVectors(post))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrMalformedEmbedding, err)
	}
	return change, nil
}

// ExplainDrift measures the drift of a concept between two months and asks
// the explainer to account for it using the top excerpts of each month.
func (s *Service) ExplainDrift(ctx context.Context, req ExplainRequest) (*ExplainResponse, error) {
	if s.explainer == nil {
		return nil, ErrExplainerRequired
	}
	concept, err := requireConcept(req.Concept)
	if err != nil {
		return nil, err
	}
	pre, err := MonthRange(req.FromPeriod)
	if err != nil {
		return nil, err
	}
	post, err := MonthRange(req.ToPeriod)
	if err != nil {
		return nil, err
	}
	maxExamples, err := s.resolveMaxExamples(req.MaxExamples)
	if err != nil {
		return nil, err
	}
	threshold, err := s.resolveThreshold(req.SimilarityThreshold)
	if err != nil {
		return nil, err
	}

	vector, err := s.embedConcept(ctx, concept)
	if err != nil {
		return nil, err
	}

	fetchLimit := max(minExplainFetch, maxExamples*10)
	preRows, postRows, err := s.queryPair(ctx, vector, pre, post, threshold, fetchLimit)
	if err != nil {
		return nil, err
	}

	change, err := s.semanticChange(preRows, postRows)
	if err != nil {
		return nil, err
	}

	input := ai.ExplainInput{
		Concept:      concept,
		DriftScore:   change,
		PreExcerpts:  analysis.FormatExcerpts(analysis.SelectTop(preRows, maxExamples)),
		PostExcerpts: analysis.FormatExcerpts(analysis.SelectTop(postRows, maxExamples)),
	}
	result, err := s.explainer.ExplainDrift(ctx, input)
	if err != nil {
		s.logger.Error("drift explanation failed", "concept", concept, "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrExplanation, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: explainer returned no analysis", core.ErrExplanation)
	}

	s.logger.Info("explained drift",
		"concept", concept,
		"from", req.FromPeriod,
		"to", req.ToPeriod,
		"pre_rows", len(preRows),
		"post_rows", len(postRows),
		"semantic_change", change)

	return &ExplainResponse{
		Concept:        concept,
		FromPeriod:     req.FromPeriod,
		ToPeriod:       req.ToPeriod,
		SemanticChange: vecmath.Round2(change),
		Response:       result,
	}, nil
}
