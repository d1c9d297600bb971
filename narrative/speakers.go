package narrative

import (
	"context"
	"time"

	"github.com/Perruchok/vozpublica/analysis"
	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/storage"
)

// SpeakerDriftRequest compares how individual speakers talk about a concept
// in two date ranges. All dates are calendar days, inclusive.
type SpeakerDriftRequest struct {
	Concept             string
	PreStart, PreEnd    time.Time
	PostStart, PostEnd  time.Time
	SimilarityThreshold *float64
	// MinEvidence is the number of turns a speaker needs in each range.
	// Zero selects the default.
	MinEvidence int
	// TopK caps the rows fetched per range. Zero selects the default.
	TopK int
}

// SpeakerDriftResponse ranks speakers by how much their discourse moved.
type SpeakerDriftResponse struct {
	Concept  string                  `json:"concept" yaml:"concept"`
	Pre      Range                   `json:"pre" yaml:"pre"`
	Post     Range                   `json:"post" yaml:"post"`
	Speakers []analysis.SpeakerDrift `json:"speakers" yaml:"speakers"`
}

// Range is a date range as reported back to callers.
type Range struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

func newRange(tr storage.TimeRange) Range {
	return Range{
		Start: tr.Start.Format(time.DateOnly),
		End:   tr.End.Format(time.DateOnly),
	}
}

// contrastQuery is the validated form shared by speaker drift and reports.
type contrastQuery struct {
	concept     string
	pre, post   storage.TimeRange
	threshold   float64
	minEvidence int
	topK        int
}

func (s *Service) validateContrast(concept string, preStart, preEnd, postStart, postEnd time.Time, threshold *float64, minEvidence, topK int) (contrastQuery, error) {
	var q contrastQuery
	var err error

	if q.concept, err = requireConcept(concept); err != nil {
		return q, err
	}
	if q.pre, err = dayRange("pre", preStart, preEnd); err != nil {
		return q, err
	}
	if q.post, err = dayRange("post", postStart, postEnd); err != nil {
		return q, err
	}
	if q.threshold, err = s.resolveThreshold(threshold); err != nil {
		return q, err
	}

	switch {
	case minEvidence == 0:
		q.minEvidence = s.settings.MinEvidence
	case minEvidence < 0:
		return q, invalid("min_evidence must be positive, got %d", minEvidence)
	default:
		q.minEvidence = minEvidence
	}
	switch {
	case topK == 0:
		q.topK = s.settings.SpeakerTopK
	case topK < 0:
		return q, invalid("top_k must be positive, got %d", topK)
	default:
		q.topK = topK
	}
	return q, nil
}

func dayRange(name string, start, end time.Time) (storage.TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return storage.TimeRange{}, invalid("%s range needs a start and an end", name)
	}
	if end.Before(start) {
		return storage.TimeRange{}, invalid("%s range ends before it starts", name)
	}
	return storage.DayRange(start, end), nil
}

// SpeakerDrift ranks the speakers present with enough evidence in both
// ranges by the cosine distance between their mean embeddings.
func (s *Service) SpeakerDrift(ctx context.Context, req SpeakerDriftRequest) (*SpeakerDriftResponse, error) {
	q, err := s.validateContrast(req.Concept, req.PreStart, req.PreEnd, req.PostStart, req.PostEnd,
		req.SimilarityThreshold, req.MinEvidence, req.TopK)
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

	return &SpeakerDriftResponse{
		Concept:  q.concept,
		Pre:      newRange(q.pre),
		Post:     newRange(q.post),
		Speakers: speakerDrifts(preRows, postRows, q.minEvidence),
	}, nil
}

func speakerDrifts(pre, post []core.SpeechTurnRecord, minEvidence int) []analysis.SpeakerDrift {
	return analysis.AnalyzeSpeakerDrift(
		analysis.SamplesFromRecords(pre),
		analysis.SamplesFromRecords(post),
		minEvidence)
}
