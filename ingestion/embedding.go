package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/storage"
)

// embeddingProcessor generates embeddings for speech turns that lack one.
type embeddingProcessor struct {
	turns    storage.SpeechTurnRepository
	embedder ai.Embedder
	logger   *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(turns storage.SpeechTurnRepository, embedder ai.Embedder, logger *slog.Logger) (*embeddingProcessor, error) {
	if turns == nil {
		return nil, ErrSpeechTurnRepositoryRequired
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		turns:    turns,
		embedder: embedder,
		logger:   logger.With("processor", "embeddings"),
	}, nil
}

// process generates embeddings for the specified speech turns. Turns that
// already carry a vector or no longer exist are skipped.
func (ep *embeddingProcessor) process(ctx context.Context, ids ...core.ID) error {
	ep.logger.Info("processing speech turns for embeddings", "turns", len(ids))

	slices.Sort(ids)

	stored, err := ep.turns.GetSpeechTurns(ctx, ids...)
	if err != nil {
		ep.logger.Error("error retrieving speech turns", "err", err)
		return err
	}

	pending := make([]*core.SpeechTurn, 0, len(stored))
	for _, turn := range stored {
		if !turn.HasVector() {
			pending = append(pending, turn)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	texts := make([]string, len(pending))
	for i, turn := range pending {
		texts[i] = turn.Text
	}

	ep.logger.Debug("generating embeddings for speech turns", "turns", len(texts))
	embeddings, err := ep.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		ep.logger.Error("error generating embeddings", "err", err)
		return err
	}

	if len(embeddings) != len(pending) {
		return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(pending), len(embeddings))
	}

	for i := range embeddings {
		pending[i].Vector = embeddings[i]
	}

	_, err = ep.turns.UpdateSpeechTurns(ctx, pending...)
	return err
}
