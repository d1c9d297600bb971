package reembed

import (
	"context"
	"fmt"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/storage"
	"github.com/Perruchok/vozpublica/vecmath"
)

// BatchProcessor embeds batches of speech turns and stores the vectors.
type BatchProcessor struct {
	repo     storage.SpeechTurnRepository
	embedder ai.Embedder
	retry    RetryPolicy
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor(repo storage.SpeechTurnRepository, embedder ai.Embedder, retry RetryPolicy) *BatchProcessor {
	return &BatchProcessor{
		repo:     repo,
		embedder: embedder,
		retry:    retry,
	}
}

// Process generates embeddings for turns and updates them in the repository.
// Vectors are unit-normalized before they are stored.
func (bp *BatchProcessor) Process(ctx context.Context, turns []*core.SpeechTurn) error {
	if len(turns) == 0 {
		return nil
	}

	texts := make([]string, len(turns))
	for i, turn := range turns {
		texts[i] = turn.Text
	}

	var embeddings [][]float32
	err := bp.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	})
	if err != nil {
		return fmt.Errorf("generating embeddings: %w", err)
	}

	if len(embeddings) != len(turns) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(turns), len(embeddings))
	}

	for i := range turns {
		turns[i].Vector = vecmath.Normalize(embeddings[i])
	}

	if _, err := bp.repo.UpdateSpeechTurns(ctx, turns...); err != nil {
		return fmt.Errorf("updating speech turns: %w", err)
	}
	return nil
}
