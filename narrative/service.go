package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/storage"
	"github.com/panjf2000/ants/v2"
)

// Service answers concept evolution, drift explanation, speaker drift and
// narrative report requests.
type Service struct {
	store     storage.CorpusStore
	embedder  ai.Embedder
	explainer ai.DriftExplainer
	pool      *ants.Pool
	settings  Settings
	logger    *slog.Logger
}

// NewService creates a Service. The explainer is optional; without it
// ExplainDrift fails with ErrExplainerRequired and reports carry no explanation.
func NewService(store storage.CorpusStore, embedder ai.Embedder, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	pool, err := ants.NewPool(defaultPoolSize())
	if err != nil {
		return nil, err
	}

	s := &Service{
		store:    store,
		embedder: embedder,
		pool:     pool,
		settings: DefaultSettings(),
		logger:   slog.Default().With("component", "narrative"),
	}

	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Release()
			return nil, optErr
		}
	}
	return s, nil
}

// Settings returns the request defaults in use.
func (s *Service) Settings() Settings {
	return s.settings
}

// HasExplainer reports whether a drift explainer is configured.
func (s *Service) HasExplainer() bool {
	return s.explainer != nil
}

// Release releases the worker pool. The service should not be used afterwards.
func (s *Service) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// embedConcept embeds the concept, wrapping failures in core.ErrEmbedding.
func (s *Service) embedConcept(ctx context.Context, concept string) ([]float32, error) {
	vector, err := s.embedder.EmbedText(ctx, concept)
	if err != nil {
		s.logger.Error("failed to embed concept", "concept", concept, "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector for %q", core.ErrEmbedding, concept)
	}
	return vector, nil
}

// query runs one corpus query, wrapping failures in core.ErrRetrieval.
func (s *Service) query(ctx context.Context, vector []float32, tr *storage.TimeRange, threshold float64, limit int) ([]core.SpeechTurnRecord, error) {
	records, err := s.store.QuerySimilar(ctx, vector, tr, threshold, limit)
	if err != nil {
		s.logger.Error("corpus query failed", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrRetrieval, err)
	}
	s.logger.Debug("corpus query", "rows", len(records), "threshold", threshold, "limit", limit)
	return records, nil
}

// queryPair fetches the rows of two ranges concurrently on the pool.
func (s *Service) queryPair(ctx context.Context, vector []float32, pre, post storage.TimeRange, threshold float64, limit int) (preRows, postRows []core.SpeechTurnRecord, err error) {
	var (
		wg      sync.WaitGroup
		preErr  error
		postErr error
	)

	wg.Add(1)
	if err := s.pool.Submit(func() {
		defer wg.Done()
		preRows, preErr = s.query(ctx, vector, &pre, threshold, limit)
	}); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", core.ErrRetrieval, err)
	}
	wg.Add(1)
	if err := s.pool.Submit(func() {
		defer wg.Done()
		postRows, postErr = s.query(ctx, vector, &post, threshold, limit)
	}); err != nil {
		wg.Done()
		wg.Wait()
		return nil, nil, fmt.Errorf("%w: %w", core.ErrRetrieval, err)
	}
	wg.Wait()

	if preErr != nil {
		return nil, nil, preErr
	}
	if postErr != nil {
		return nil, nil, postErr
	}
	return preRows, postRows, nil
}

// invalid wraps a validation message in core.ErrInvalidRequest.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// resolveThreshold returns the explicit threshold or the default, validating the range.
func (s *Service) resolveThreshold(threshold *float64) (float64, error) {
	if threshold == nil {
		return s.settings.SimilarityThreshold, nil
	}
	if *threshold < 0 || *threshold > 1 {
		return 0, invalid("similarity_threshold must be between 0 and 1, got %g", *threshold)
	}
	return *threshold, nil
}

func requireConcept(concept string) (string, error) {
	concept = strings.TrimSpace(concept)
	if concept == "" {
		return "", invalid("concept must not be empty")
	}
	return concept, nil
}

// resolveVectors returns the usable embeddings of records. Malformed ones are
// dropped with a warning.
func (s *Service) resolveVectors(records []core.SpeechTurnRecord) [][]float32 {
	vectors := make([][]float32, 0, len(records))
	for i := range records {
		v, err := records[i].Embedding.Resolve()
		if err != nil {
			s.logger.Warn("dropping malformed embedding",
				"doc_id", records[i].DocID,
				"sequence", records[i].Sequence,
				"err", err)
			continue
		}
		vectors = append(vectors, v)
	}
	return vectors
}
