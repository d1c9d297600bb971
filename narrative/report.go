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

// ReportRequest asks for a full narrative report contrasting two date ranges.
type ReportRequest struct {
	Concept             string
	PreStart, PreEnd    time.Time
	PostStart, PostEnd  time.Time
	SimilarityThreshold *float64
	MinEvidence         int
	TopK                int
	MaxExamples         int
	// SkipExplanation leaves Explanation empty even when an explainer is configured.
	SkipExplanation bool
}

// Report is the narrative report of a concept across two date ranges.
type Report struct {
	Concept             string                  `json:"concept" yaml:"concept"`
	GeneratedAt         time.Time               `json:"generated_at" yaml:"generated_at"`
	Pre                 Range                   `json:"pre" yaml:"pre"`
	Post                Range                   `json:"post" yaml:"post"`
	SimilarityThreshold float64                 `json:"similarity_threshold" yaml:"similarity_threshold"`
	OverallDrift        float64                 `json:"overall_drift" yaml:"overall_drift"`
	SpeakerDrifts       []analysis.SpeakerDrift `json:"speaker_drifts" yaml:"speaker_drifts"`
	DriftOverTime       analysis.Evolution      `json:"drift_over_time" yaml:"drift_over_time"`
	PreExcerpts         []analysis.Excerpt      `json:"pre_excerpts" yaml:"pre_excerpts"`
	PostExcerpts        []analysis.Excerpt      `json:"post_excerpts" yaml:"post_excerpts"`
	Explanation         *ai.DriftAnalysis       `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// Report builds a narrative report: overall drift between the two ranges,
// per-speaker drift, monthly evolution across both ranges, the top excerpts
// of each range and, when an explainer is configured, its narration.
func (s *Service) Report(ctx context.Context, req ReportRequest) (*Report, error) {
	q, err := s.validateContrast(req.Concept, req.PreStart, req.PreEnd, req.PostStart, req.PostEnd,
		req.SimilarityThreshold, req.MinEvidence, req.TopK)
	if err != nil {
		return nil, err
	}
	maxExamples, err := s.resolveMaxExamples(req.MaxExamples)
	if err != nil {
		return nil, err
	}

	vector, err := s.embedConcept(ctx, q.concept)
	if err != nil {
		return nil, err
	}

	preRows, postRows, err := s.queryPair(ctx, vector, q.pre, q.post, q.threshold, q.topK)
	if err != nil {
		return nil, err
	}

	union := storage.TimeRange{Start: minTime(q.pre.Start, q.post.Start), End: maxTime(q.pre.End, q.post.End)}
	unionRows, err := s.query(ctx, vector, &union, q.threshold, s.settings.EvolutionLimit)
	if err != nil {
		return nil, err
	}
	agg := analysis.NewAggregator(analysis.Month, analysis.WithAggregatorLogger(s.logger))
	agg.AddRecords(unionRows)

	change, err := s.semanticChange(preRows, postRows)
	if err != nil {
		return nil, err
	}

	preExcerpts := analysis.SelectTop(preRows, maxExamples)
	postExcerpts := analysis.SelectTop(postRows, maxExamples)

	report := &Report{
		Concept:             q.concept,
		GeneratedAt:         time.Now().UTC(),
		Pre:                 newRange(q.pre),
		Post:                newRange(q.post),
		SimilarityThreshold: q.threshold,
		OverallDrift:        vecmath.Round2(change),
		SpeakerDrifts:       speakerDrifts(preRows, postRows, q.minEvidence),
		DriftOverTime:       analysis.ComputeEvolution(agg, vector),
		PreExcerpts:         preExcerpts,
		PostExcerpts:        postExcerpts,
	}

	if s.explainer != nil && !req.SkipExplanation {
		report.Explanation, err = s.explainer.ExplainDrift(ctx, ai.ExplainInput{
			Concept:      q.concept,
			DriftScore:   change,
			PreExcerpts:  analysis.FormatExcerpts(preExcerpts),
			PostExcerpts: analysis.FormatExcerpts(postExcerpts),
		})
		if err != nil {
			s.logger.Error("report explanation failed", "concept", q.concept, "err", err)
			return nil, fmt.Errorf("%w: %w", core.ErrExplanation, err)
		}
	}

	s.logger.Info("built narrative report",
		"concept", q.concept,
		"pre_rows", len(preRows),
		"post_rows", len(postRows),
		"speakers", len(report.SpeakerDrifts),
		"overall_drift", report.OverallDrift)
	return report, nil
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
