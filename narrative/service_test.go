package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/Perruchok/vozpublica/ai/mock"
	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queryCall struct {
	tr        *storage.TimeRange
	threshold float64
	limit     int
}

// fakeStore answers QuerySimilar from rows keyed by the month of the range start.
type fakeStore struct {
	mu      sync.Mutex
	byMonth map[time.Month][]core.SpeechTurnRecord
	all     []core.SpeechTurnRecord
	err     error
	calls   []queryCall
}

func (f *fakeStore) QuerySimilar(ctx context.Context, vector []float32, tr *storage.TimeRange, minSimilarity float64, limit int) ([]core.SpeechTurnRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, queryCall{tr: tr, threshold: minSimilarity, limit: limit})
	if f.err != nil {
		return nil, f.err
	}
	if tr != nil && f.byMonth != nil {
		if rows, ok := f.byMonth[tr.Start.Month()]; ok && tr.Start.Month() == tr.End.Month() {
			return rows, nil
		}
	}
	return f.all, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rec(docID string, seq int, speaker string, published time.Time, vec ...float32) core.SpeechTurnRecord {
	return core.SpeechTurnRecord{
		DocID:             docID,
		Sequence:          seq,
		SpeakerNormalized: speaker,
		Text:              "texto " + docID,
		Embedding:         core.Embedding{Vector: vec},
		PublishedAt:       published,
		Similarity:        0.9,
	}
}

func conceptEmbedder(vec ...float32) *mock.MockEmbedder {
	m := mock.NewMockEmbedder()
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vec, nil
	}
	return m
}

func newTestService(t *testing.T, store storage.CorpusStore, embedder ai.Embedder, opts ...Option) *Service {
	t.Helper()
	svc, err := NewService(store, embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(svc.Release)
	return svc
}

func ptr(f float64) *float64 { return &f }

func TestNewService_Requirements(t *testing.T) {
	_, err := NewService(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewService(&fakeStore{}, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	bad := DefaultSettings()
	bad.SimilarityThreshold = 2
	_, err = NewService(&fakeStore{}, mock.NewMockEmbedder(), WithSettings(bad))
	assert.Error(t, err)

	svc := newTestService(t, &fakeStore{}, mock.NewMockEmbedder(), WithPoolSize(1), WithLogger(nil))
	assert.False(t, svc.HasExplainer())
	assert.Equal(t, DefaultSettings(), svc.Settings())
}

func TestEvolution(t *testing.T) {
	store := &fakeStore{all: []core.SpeechTurnRecord{
		rec("a", 0, "Ana", day(2025, 1, 3), 1, 0),
		rec("b", 0, "Ana", day(2025, 1, 20), 1, 0),
		rec("c", 0, "Luis", day(2025, 2, 2), 0, 1),
	}}
	svc := newTestService(t, store, conceptEmbedder(1, 0))

	resp, err := svc.Evolution(context.Background(), EvolutionRequest{
		Concept:   "  seguridad ",
		StartDate: day(2025, 1, 1),
		EndDate:   day(2025, 2, 28),
	})
	require.NoError(t, err)

	assert.Equal(t, "seguridad", resp.Concept)
	assert.Equal(t, "month", string(resp.Granularity))
	require.Len(t, resp.Points, 2)
	assert.Equal(t, "2025-01", resp.Points[0].Period)
	assert.InDelta(t, 1.0, resp.Points[0].CentroidSimilarity, 1e-9)
	assert.Equal(t, 2, resp.Points[0].NumChunks)
	assert.InDelta(t, 0.0, resp.Points[1].CentroidSimilarity, 1e-9)
	require.Len(t, resp.Drift, 1)
	assert.InDelta(t, 1.0, resp.Drift[0].SemanticChange, 1e-9)
	require.NotNil(t, resp.MaxDrift)
	assert.Equal(t, "2025-02", resp.MaxDrift.To)

	require.Len(t, store.calls, 1)
	call := store.calls[0]
	assert.Equal(t, 0.6, call.threshold)
	assert.Equal(t, 10000, call.limit)
	assert.Equal(t, day(2025, 1, 1), call.tr.Start)
	assert.Equal(t, time.Date(2025, 2, 28, 23, 59, 59, 999999999, time.UTC), call.tr.End)
}

func TestEvolution_EmptyRangeIsValid(t *testing.T) {
	svc := newTestService(t, &fakeStore{}, conceptEmbedder(1, 0))

	resp, err := svc.Evolution(context.Background(), EvolutionRequest{
		Concept:             "seguridad",
		Granularity:         "week",
		StartDate:           day(2025, 1, 1),
		EndDate:             day(2025, 1, 1),
		SimilarityThreshold: ptr(0),
	})
	require.NoError(t, err)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"concept":"seguridad","granularity":"week","points":[],"drift":[],"max_drift":null}`, string(data))
}

func TestEvolution_InvalidRequests(t *testing.T) {
	valid := func() EvolutionRequest {
		return EvolutionRequest{Concept: "x", StartDate: day(2025, 1, 1), EndDate: day(2025, 2, 1)}
	}
	tests := []struct {
		name   string
		mutate func(*EvolutionRequest)
	}{
		{"blank concept", func(r *EvolutionRequest) { r.Concept = "  " }},
		{"bad granularity", func(r *EvolutionRequest) { r.Granularity = "year" }},
		{"threshold above one", func(r *EvolutionRequest) { r.SimilarityThreshold = ptr(1.5) }},
		{"negative threshold", func(r *EvolutionRequest) { r.SimilarityThreshold = ptr(-0.1) }},
		{"missing start", func(r *EvolutionRequest) { r.StartDate = time.Time{} }},
		{"end before start", func(r *EvolutionRequest) { r.EndDate = day(2024, 12, 31) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := conceptEmbedder(1, 0)
			svc := newTestService(t, &fakeStore{}, embedder)
			req := valid()
			tt.mutate(&req)

			_, err := svc.Evolution(context.Background(), req)
			assert.ErrorIs(t, err, core.ErrInvalidRequest)
			assert.Equal(t, 0, embedder.CallCount())
		})
	}
}

func TestEvolution_CollaboratorFailures(t *testing.T) {
	req := EvolutionRequest{Concept: "x", StartDate: day(2025, 1, 1), EndDate: day(2025, 2, 1)}

	t.Run("embedding", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("quota exceeded")
		}
		svc := newTestService(t, &fakeStore{}, embedder)

		_, err := svc.Evolution(context.Background(), req)
		assert.ErrorIs(t, err, core.ErrEmbedding)
		assert.NotErrorIs(t, err, core.ErrRetrieval)
	})

	t.Run("retrieval", func(t *testing.T) {
		svc := newTestService(t, &fakeStore{err: storage.ErrStorageClosed}, conceptEmbedder(1, 0))

		_, err := svc.Evolution(context.Background(), req)
		assert.ErrorIs(t, err, core.ErrRetrieval)
		assert.ErrorIs(t, err, storage.ErrStorageClosed)
	})
}

func TestMonthRange(t *testing.T) {
	tr, err := MonthRange("2024-02")
	require.NoError(t, err)
	assert.Equal(t, day(2024, 2, 1), tr.Start)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC), tr.End)

	tr, err = MonthRange("2024-12")
	require.NoError(t, err)
	assert.Equal(t, 31, tr.End.Day())

	for _, bad := range []string{"2024-2", "2024-13", "24-01", "2024-01-01", ""} {
		_, err := MonthRange(bad)
		assert.ErrorIs(t, err, core.ErrInvalidRequest, bad)
	}
}

func explainStore() *fakeStore {
	return &fakeStore{byMonth: map[time.Month][]core.SpeechTurnRecord{
		time.January: {
			rec("jan1", 0, "Ana", day(2025, 1, 2), 1, 0),
			rec("jan2", 0, "Ana", day(2025, 1, 3), 1, 0),
			rec("jan3", 0, "Luis", day(2025, 1, 4), 1, 0),
		},
		time.February: {
			rec("feb1", 0, "Ana", day(2025, 2, 2), 0, 1),
			rec("feb2", 0, "Ana", day(2025, 2, 3), 0, 1),
		},
	}}
}

func TestExplainDrift(t *testing.T) {
	store := explainStore()
	explainer := mock.NewMockExplainer()
	svc := newTestService(t, store, conceptEmbedder(1, 0), WithExplainer(explainer))

	resp, err := svc.ExplainDrift(context.Background(), ExplainRequest{
		Concept:     "seguridad",
		FromPeriod:  "2025-01",
		ToPeriod:    "2025-02",
		MaxExamples: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "2025-01", resp.FromPeriod)
	assert.Equal(t, "2025-02", resp.ToPeriod)
	assert.InDelta(t, 1.0, resp.SemanticChange, 1e-9)
	require.NotNil(t, resp.Response)
	assert.Equal(t, "drift of 1.00", resp.Response.OverallShift)

	input := explainer.LastInput()
	require.NotNil(t, input)
	assert.Equal(t, "seguridad", input.Concept)
	assert.Len(t, strings.Split(input.PreExcerpts, "\n"), 2)
	assert.Len(t, strings.Split(input.PostExcerpts, "\n"), 2)
	assert.True(t, strings.HasPrefix(input.PreExcerpts, "- (2025-01-02) [Ana] texto jan1 (Ref: jan1)"))

	require.Len(t, store.calls, 2)
	for _, call := range store.calls {
		assert.Equal(t, 100, call.limit)
		assert.Equal(t, 0.6, call.threshold)
	}
}

func TestExplainDrift_FetchLimitScales(t *testing.T) {
	store := explainStore()
	svc := newTestService(t, store, conceptEmbedder(1, 0), WithExplainer(mock.NewMockExplainer()))

	_, err := svc.ExplainDrift(context.Background(), ExplainRequest{
		Concept: "x", FromPeriod: "2025-01", ToPeriod: "2025-02", MaxExamples: 20,
	})
	require.NoError(t, err)
	for _, call := range store.calls {
		assert.Equal(t, 200, call.limit)
	}
}

func TestExplainDrift_EmptyPeriodScoresZero(t *testing.T) {
	store := explainStore()
	svc := newTestService(t, store, conceptEmbedder(1, 0), WithExplainer(mock.NewMockExplainer()))

	resp, err := svc.ExplainDrift(context.Background(), ExplainRequest{
		Concept: "x", FromPeriod: "2025-01", ToPeriod: "2025-03",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, resp.SemanticChange)
}

func TestExplainDrift_Errors(t *testing.T) {
	t.Run("no explainer", func(t *testing.T) {
		svc := newTestService(t, explainStore(), conceptEmbedder(1, 0))
		_, err := svc.ExplainDrift(context.Background(), ExplainRequest{Concept: "x", FromPeriod: "2025-01", ToPeriod: "2025-02"})
		assert.ErrorIs(t, err, ErrExplainerRequired)
		assert.NotErrorIs(t, err, core.ErrExplanation, "a missing explainer is not a provider failure")
	})

	t.Run("malformed analysis", func(t *testing.T) {
		explainer := mock.NewMockExplainer()
		explainer.ExplainDriftFunc = func(ctx context.Context, input ai.ExplainInput) (*ai.DriftAnalysis, error) {
			return nil, ai.ErrMalformedAnalysis
		}
		svc := newTestService(t, explainStore(), conceptEmbedder(1, 0), WithExplainer(explainer))

		_, err := svc.ExplainDrift(context.Background(), ExplainRequest{Concept: "x", FromPeriod: "2025-01", ToPeriod: "2025-02"})
		assert.ErrorIs(t, err, core.ErrExplanation)
		assert.ErrorIs(t, err, ai.ErrMalformedAnalysis)
		assert.NotErrorIs(t, err, core.ErrRetrieval)
	})

	invalidRequests := []ExplainRequest{
		{Concept: "x", FromPeriod: "2025-1", ToPeriod: "2025-02"},
		{Concept: "x", FromPeriod: "2025-01", ToPeriod: "febrero"},
		{Concept: "x", FromPeriod: "2025-01", ToPeriod: "2025-02", MaxExamples: 51},
		{Concept: "x", FromPeriod: "2025-01", ToPeriod: "2025-02", MaxExamples: -1},
		{Concept: "", FromPeriod: "2025-01", ToPeriod: "2025-02"},
	}
	for _, req := range invalidRequests {
		svc := newTestService(t, explainStore(), conceptEmbedder(1, 0), WithExplainer(mock.NewMockExplainer()))
		_, err := svc.ExplainDrift(context.Background(), req)
		assert.ErrorIs(t, err, core.ErrInvalidRequest)
	}
}
