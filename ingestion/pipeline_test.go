package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/storage"
	"github.com/Perruchok/vozpublica/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEmbedder implements ai.Embedder for testing
type testEmbedder struct {
	mu          sync.Mutex
	embeddings  [][]float32
	shouldError bool
	batches     [][]string
}

func (m *testEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *testEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, texts)
	if m.shouldError {
		return nil, errors.New("embedder error")
	}
	if len(m.embeddings) > 0 {
		return m.embeddings, nil
	}
	// Generate dynamic embeddings
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{float32(i+1) * 0.1, float32(i+1) * 0.2, float32(i+1) * 0.3}
	}
	return result, nil
}

func (m *testEmbedder) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

// testAIProvider implements ai.AIProvider for testing
type testAIProvider struct {
	embedder ai.Embedder
}

func (p *testAIProvider) Embedder() ai.Embedder             { return p.embedder }
func (p *testAIProvider) DriftExplainer() ai.DriftExplainer { return nil }
func (p *testAIProvider) Answerer() ai.Answerer             { return nil }
func (p *testAIProvider) Close() error                      { return nil }

func setupTestRepositories(t *testing.T) (storage.SpeechTurnRepository, storage.TranscriptRepository, *badger.Backend) {
	backend, err := badger.OpenBackend(t.TempDir(), false)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	return badger.NewSpeechTurnRepository(backend), badger.NewTranscriptRepository(backend), backend
}

func published() time.Time {
	return time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
}

func TestEmbeddingProcessor_Process(t *testing.T) {
	turnRepo, _, _ := setupTestRepositories(t)
	ctx := context.Background()

	embedder := &testEmbedder{
		embeddings: [][]float32{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}},
	}

	ep, err := newEmbeddingProcessor(turnRepo, embedder, nil)
	require.NoError(t, err)

	turns := []*core.SpeechTurn{
		{DocID: "doc-1", Sequence: 0, Text: "Primer turno", PublishedAt: published()},
		{DocID: "doc-1", Sequence: 1, Text: "Segundo turno", PublishedAt: published()},
		{DocID: "doc-1", Sequence: 2, Text: "Ya embebido", PublishedAt: published(), Vector: []float32{1, 0, 0}},
	}
	added, err := turnRepo.AddSpeechTurns(ctx, turns...)
	require.NoError(t, err)

	ids := []core.ID{added[0].Id, added[1].Id, added[2].Id}
	require.NoError(t, ep.process(ctx, ids...))

	require.Len(t, embedder.batches, 1)
	assert.Len(t, embedder.batches[0], 2, "turns with a vector are not re-embedded")

	stored, err := turnRepo.GetSpeechTurnsByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.True(t, stored[0].HasVector())
	assert.True(t, stored[1].HasVector())
	assert.Equal(t, []float32{1, 0, 0}, stored[2].Vector)
}

func TestEmbeddingProcessor_Process_EmbedderError(t *testing.T) {
	turnRepo, _, _ := setupTestRepositories(t)
	ctx := context.Background()

	ep, err := newEmbeddingProcessor(turnRepo, &testEmbedder{shouldError: true}, nil)
	require.NoError(t, err)

	added, err := turnRepo.AddSpeechTurns(ctx, &core.SpeechTurn{DocID: "doc-1", Text: "Hola", PublishedAt: published()})
	require.NoError(t, err)

	err = ep.process(ctx, added[0].Id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedder error")
}

func TestEmbeddingProcessor_Process_CountMismatch(t *testing.T) {
	turnRepo, _, _ := setupTestRepositories(t)
	ctx := context.Background()

	ep, err := newEmbeddingProcessor(turnRepo, &testEmbedder{embeddings: [][]float32{{1}}}, nil)
	require.NoError(t, err)

	added, err := turnRepo.AddSpeechTurns(ctx,
		&core.SpeechTurn{DocID: "doc-1", Sequence: 0, Text: "a", PublishedAt: published()},
		&core.SpeechTurn{DocID: "doc-1", Sequence: 1, Text: "b", PublishedAt: published()},
	)
	require.NoError(t, err)

	err = ep.process(ctx, added[0].Id, added[1].Id)
	assert.ErrorContains(t, err, "embedding result mismatch")
}

func TestNewPipeline(t *testing.T) {
	turnRepo, transcriptRepo, _ := setupTestRepositories(t)
	provider := &testAIProvider{embedder: &testEmbedder{}}

	t.Run("valid pipeline", func(t *testing.T) {
		pipeline, err := NewPipeline(turnRepo, transcriptRepo, provider)
		require.NoError(t, err)
		defer pipeline.Release()

		assert.NotNil(t, pipeline.embeddingPool)
		assert.Equal(t, DefaultEmbedBatchSize, pipeline.embedBatchSize)
	})

	t.Run("nil speech turn repository", func(t *testing.T) {
		_, err := NewPipeline(nil, transcriptRepo, provider)
		assert.Equal(t, ErrSpeechTurnRepositoryRequired, err)
	})

	t.Run("nil transcript repository", func(t *testing.T) {
		_, err := NewPipeline(turnRepo, nil, provider)
		assert.Equal(t, ErrTranscriptRepositoryRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewPipeline(turnRepo, transcriptRepo, nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})

	t.Run("provider without embedder", func(t *testing.T) {
		_, err := NewPipeline(turnRepo, transcriptRepo, &testAIProvider{})
		assert.Error(t, err)
	})
}

func TestPipeline_WithOptions(t *testing.T) {
	turnRepo, transcriptRepo, _ := setupTestRepositories(t)
	provider := &testAIProvider{embedder: &testEmbedder{}}

	t.Run("with pool size zero defaults to 1", func(t *testing.T) {
		pipeline, err := NewPipeline(turnRepo, transcriptRepo, provider, WithPoolSize(0))
		require.NoError(t, err)
		defer pipeline.Release()
		assert.Equal(t, 1, pipeline.embeddingPool.Cap())
	})

	t.Run("with custom logger", func(t *testing.T) {
		logger := slog.Default()
		pipeline, err := NewPipeline(turnRepo, transcriptRepo, provider, WithLogger(logger))
		require.NoError(t, err)
		defer pipeline.Release()
		assert.Equal(t, logger, pipeline.logger)
	})

	t.Run("invalid embed batch size", func(t *testing.T) {
		_, err := NewPipeline(turnRepo, transcriptRepo, provider, WithEmbedBatchSize(0))
		assert.Error(t, err)
	})

	t.Run("nil checkpoints", func(t *testing.T) {
		_, err := NewPipeline(turnRepo, transcriptRepo, provider, WithCheckpoints(nil))
		assert.Equal(t, ErrCheckpointRepositoryRequired, err)
	})
}

func TestPipeline_Ingest(t *testing.T) {
	turnRepo, transcriptRepo, _ := setupTestRepositories(t)
	embedder := &testEmbedder{}
	pipeline, err := NewPipeline(turnRepo, transcriptRepo, &testAIProvider{embedder: embedder},
		WithPoolSize(2), WithEmbedBatchSize(2))
	require.NoError(t, err)
	defer pipeline.Release()

	ctx := context.Background()
	require.NoError(t, pipeline.AddTranscripts(ctx, &core.Transcript{DocID: "doc-1", Title: "Mañanera", PublishedAt: published()}))

	turns := []*core.SpeechTurn{
		{DocID: "doc-1", Sequence: 0, SpeakerRaw: "PRESIDENTA CLAUDIA SHEINBAUM PARDO", Text: "Buenos días"},
		{DocID: "doc-1", Sequence: 1, SpeakerRaw: "MODERADOR:", Text: "Adelante"},
		{DocID: "doc-1", Sequence: 2, SpeakerRaw: "INTERLOCUTOR", SpeakerNormalized: "Reportero", Role: "Prensa", Text: "Pregunta"},
		{DocID: "doc-1", Sequence: 3, SpeakerRaw: "PRESIDENTA CLAUDIA SHEINBAUM PARDO", Text: "Respuesta", Vector: []float32{0, 1, 0}},
	}
	require.NoError(t, pipeline.Ingest(ctx, turns...))
	pipeline.Wait()

	assert.Equal(t, 2, embedder.batchCount(), "three turns without vectors in batches of two")

	stored, err := turnRepo.GetSpeechTurnsByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, stored, 4)

	assert.Equal(t, "Claudia Sheinbaum Pardo", stored[0].SpeakerNormalized)
	assert.Equal(t, "Presidenta", stored[0].Role)
	assert.Equal(t, "Moderador", stored[1].Role)
	assert.Equal(t, "Reportero", stored[2].SpeakerNormalized)
	assert.Equal(t, "Prensa", stored[2].Role)
	assert.Equal(t, []float32{0, 1, 0}, stored[3].Vector)
	for _, turn := range stored {
		assert.True(t, turn.HasVector(), "sequence %d should be embedded", turn.Sequence)
		assert.Equal(t, published(), turn.PublishedAt)
	}

	t.Run("ingest with no turns", func(t *testing.T) {
		require.NoError(t, pipeline.Ingest(ctx))
	})
}

func TestPipeline_ImportTranscripts(t *testing.T) {
	turnRepo, transcriptRepo, _ := setupTestRepositories(t)
	pipeline, err := NewPipeline(turnRepo, transcriptRepo, &testAIProvider{embedder: &testEmbedder{}})
	require.NoError(t, err)
	defer pipeline.Release()

	input := strings.Join([]string{
		`{"doc_id":"a1","title":"Conferencia","href":"https://example.com/a1","published_at":"2025-11-15T10:00:00-06:00"}`,
		`{"doc_id":"a2","title":"Otra","published_at":"2025-11-16"}`,
		`not json`,
		`{"doc_id":"a3","title":"Sin fecha","published_at":""}`,
		``,
	}, "\n")

	ctx := context.Background()
	stats, err := pipeline.ImportTranscripts(ctx, "transcripts.jsonl", strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Imported)
	assert.Equal(t, 2, stats.Skipped)

	got, err := transcriptRepo.GetTranscript(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 11, 15, 16, 0, 0, 0, time.UTC), got.PublishedAt)
	assert.Equal(t, "https://example.com/a1", got.Href)

	_, err = transcriptRepo.GetTranscript(ctx, "a3")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPipeline_ImportTurns(t *testing.T) {
	turnRepo, transcriptRepo, _ := setupTestRepositories(t)
	embedder := &testEmbedder{}
	pipeline, err := NewPipeline(turnRepo, transcriptRepo, &testAIProvider{embedder: embedder})
	require.NoError(t, err)
	defer pipeline.Release()

	ctx := context.Background()
	require.NoError(t, pipeline.AddTranscripts(ctx, &core.Transcript{DocID: "d", PublishedAt: published()}))

	input := strings.Join([]string{
		`{"doc_id":"d","sequence":0,"speaker_raw":"MODERADOR:","text":"uno","embedding":[1,0,0]}`,
		`{"doc_id":"d","sequence":1,"speaker_raw":"MODERADOR:","text":"dos","embedding":"[0,1,0]"}`,
		`{"doc_id":"d","sequence":2,"speaker_raw":"MODERADOR:","text":"tres","embedding":"[0,abc]"}`,
		`{"doc_id":"d","sequence":3,"speaker_raw":"MODERADOR:","text":""}`,
		`{"doc_id":"d","sequence":4,"speaker_raw":"MODERADOR:","text":"cuatro","embedding":[1,"x",0]}`,
		`{"doc_id":"d","sequence":5,"speaker_raw":"MODERADOR:","text":"cinco","embedding":[1e39,0,0]}`,
	}, "\n")

	stats, err := pipeline.ImportTurns(ctx, "turns.jsonl", strings.NewReader(input))
	require.NoError(t, err)
	pipeline.Wait()

	assert.Equal(t, 5, stats.Imported)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 3, stats.Dropped)

	stored, err := turnRepo.GetSpeechTurnsByDocument(ctx, "d")
	require.NoError(t, err)
	require.Len(t, stored, 5)
	assert.Equal(t, []float32{1, 0, 0}, stored[0].Vector)
	assert.Equal(t, []float32{0, 1, 0}, stored[1].Vector)
	for _, turn := range stored[2:] {
		assert.True(t, turn.HasVector(), "malformed embedding of turn %d is regenerated", turn.Sequence)
	}
	assert.Equal(t, 1, embedder.batchCount())
}

func TestPipeline_ImportResumesFromCheckpoint(t *testing.T) {
	turnRepo, transcriptRepo, backend := setupTestRepositories(t)
	checkpoints := badger.NewCheckpointRepository(backend)
	pipeline, err := NewPipeline(turnRepo, transcriptRepo, &testAIProvider{embedder: &testEmbedder{}},
		WithCheckpoints(checkpoints))
	require.NoError(t, err)
	defer pipeline.Release()

	ctx := context.Background()
	input := `{"doc_id":"a1","published_at":"2025-01-01"}
{"doc_id":"a2","published_at":"2025-01-02"}
`
	stats, err := pipeline.ImportTranscripts(ctx, "meta", strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Imported)

	cp, err := checkpoints.LoadCheckpoint(ctx, "meta")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, int64(2), cp.LastLine)

	input += `{"doc_id":"a3","published_at":"2025-01-03"}
`
	stats, err = pipeline.ImportTranscripts(ctx, "meta", strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Resumed)
	assert.Equal(t, 1, stats.Imported)

	count, err := transcriptRepo.CountTranscripts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestParsePublishedAt(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-11-15T10:00:00-06:00", time.Date(2025, 11, 15, 16, 0, 0, 0, time.UTC)},
		{"2025-11-15T10:00:00", time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC)},
		{"2025-11-15 10:00:00", time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC)},
		{"2025-11-15", time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePublishedAt(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
		})
	}

	_, err := ParsePublishedAt("15/11/2025")
	assert.ErrorIs(t, err, core.ErrMissingPublishedAt)
}

func TestPipeline_Release(t *testing.T) {
	turnRepo, transcriptRepo, _ := setupTestRepositories(t)
	pipeline, err := NewPipeline(turnRepo, transcriptRepo, &testAIProvider{embedder: &testEmbedder{}})
	require.NoError(t, err)

	// Release should not panic
	pipeline.Release()

	// Multiple releases should not panic
	pipeline.Release()
}
