package reembed

import (
	"context"
	"errors"
	"testing"

	"github.com/Perruchok/vozpublica/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEmbedder struct {
	embedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *mockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if m.embedTextsFunc != nil {
		return m.embedTextsFunc(ctx, texts)
	}
	// Default: return unnormalized vectors for each text
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{1.0, 2.0, 2.0} // magnitude = 3.0
	}
	return result, nil
}

func TestBatchProcessor_Process(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	added := seedTurns(t, repo, 2, "MODERADOR:")

	bp := NewBatchProcessor(repo, &mockEmbedder{}, fastPolicy(3))
	require.NoError(t, bp.Process(ctx, added))

	stored, err := repo.GetSpeechTurnsByDocument(ctx, "doc")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, turn := range stored {
		assert.InDeltaSlice(t, []float32{1.0 / 3, 2.0 / 3, 2.0 / 3}, turn.Vector, 1e-6, "vectors are normalized")
	}
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	repo := setupTestDB(t)
	called := false
	bp := NewBatchProcessor(repo, &mockEmbedder{embedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		called = true
		return nil, nil
	}}, fastPolicy(3))

	require.NoError(t, bp.Process(context.Background(), nil))
	assert.False(t, called)
}

func TestBatchProcessor_Retry(t *testing.T) {
	repo := setupTestDB(t)
	added := seedTurns(t, repo, 2, "MODERADOR:")

	attempts := 0
	embedder := &mockEmbedder{embedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("rate limited")
		}
		return [][]float32{{1, 0}, {0, 1}}, nil
	}}

	bp := NewBatchProcessor(repo, embedder, fastPolicy(3))
	require.NoError(t, bp.Process(context.Background(), added))
	assert.Equal(t, 3, attempts)
}

func TestBatchProcessor_EmbeddingError(t *testing.T) {
	repo := setupTestDB(t)
	added := seedTurns(t, repo, 1, "MODERADOR:")

	embedder := &mockEmbedder{embedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("service down")
	}}

	bp := NewBatchProcessor(repo, embedder, fastPolicy(2))
	err := bp.Process(context.Background(), added)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service down")

	stored, err := repo.GetSpeechTurn(context.Background(), added[0].Id)
	require.NoError(t, err)
	assert.False(t, stored.HasVector())
}

func TestBatchProcessor_CountMismatch(t *testing.T) {
	repo := setupTestDB(t)
	added := seedTurns(t, repo, 2, "MODERADOR:")

	embedder := &mockEmbedder{embedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}}

	err := NewBatchProcessor(repo, embedder, fastPolicy(1)).Process(context.Background(), added)
	assert.ErrorContains(t, err, "embedding count mismatch")
}

func TestBatchProcessor_ContextCancellation(t *testing.T) {
	repo := setupTestDB(t)
	added := seedTurns(t, repo, 1, "MODERADOR:")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewBatchProcessor(repo, &mockEmbedder{}, fastPolicy(3)).Process(ctx, []*core.SpeechTurn{added[0]})
	assert.ErrorIs(t, err, context.Canceled)
}
