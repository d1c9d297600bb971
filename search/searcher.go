package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/Perruchok/vozpublica/analysis"
	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/storage"
)

const (
	// DefaultTopK is used when a request leaves top_k unset.
	DefaultTopK = 5
	// MaxTopK bounds top_k.
	MaxTopK = 100
)

// Result is one speech turn returned by Search.
type Result struct {
	DocID             string    `json:"doc_id"`
	Sequence          int       `json:"sequence"`
	Text              string    `json:"text"`
	SpeakerRaw        string    `json:"speaker_raw,omitempty"`
	SpeakerNormalized string    `json:"speaker_normalized,omitempty"`
	Role              string    `json:"role,omitempty"`
	Title             string    `json:"title,omitempty"`
	Href              string    `json:"href,omitempty"`
	PublishedAt       time.Time `json:"published_at"`
	Similarity        float64   `json:"similarity"`
}

// Source identifies a speech turn used as context for an answer.
type Source struct {
	DocID      string  `json:"doc_id"`
	Sequence   int     `json:"sequence"`
	Similarity float64 `json:"similarity"`
}

// Answer is a generated answer and the turns it was grounded on.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Searcher provides semantic search and retrieval-augmented question
// answering over speech turns.
type Searcher struct {
	store    storage.CorpusStore
	embedder ai.Embedder
	answerer ai.Answerer
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "searcher")
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.CorpusStore, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		store:    store,
		embedder: provider.Embedder(),
		answerer: provider.Answerer(),
		logger:   slog.Default().With("component", "searcher"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search returns up to topK meaningful speech turns most similar to query.
// More rows than topK are fetched so that short or trivial turns can be
// filtered out without starving the result.
func (s *Searcher) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	return s.SearchWithMonitor(ctx, query, topK, nil)
}

// SearchWithMonitor is Search with stage callbacks.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, topK int, monitor SearchMonitor) ([]Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	query, topK, err := validate(query, topK)
	if err != nil {
		return nil, err
	}
	monitor.Start(query)

	fetchLimit := max(topK*3, topK+20)
	records, err := s.retrieve(ctx, query, fetchLimit)
	if err != nil {
		return nil, err
	}
	monitor.AfterRetrieval(records)

	results := make([]Result, 0, topK)
	for i := range records {
		if len(results) == topK {
			break
		}
		r := &records[i]
		if !analysis.IsMeaningful(r.Text) {
			monitor.Rejected(r)
			continue
		}
		results = append(results, newResult(r))
	}

	s.logger.Debug("search finished", "query", query, "fetched", len(records), "returned", len(results))
	monitor.Finish(results)
	return results, nil
}

// Ask answers question from the topK most similar speech turns. When nothing
// is retrieved the answerer is not called and an empty answer is returned.
func (s *Searcher) Ask(ctx context.Context, question string, topK int) (*Answer, error) {
	return s.AskWithMonitor(ctx, question, topK, nil)
}

// AskWithMonitor is Ask with stage callbacks.
func (s *Searcher) AskWithMonitor(ctx context.Context, question string, topK int, monitor SearchMonitor) (*Answer, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	question, topK, err := validate(question, topK)
	if err != nil {
		return nil, err
	}
	monitor.Start(question)

	records, err := s.retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	monitor.AfterRetrieval(records)

	if len(records) == 0 {
		s.logger.Info("no context found for question", "question", question)
		return &Answer{Sources: []Source{}}, nil
	}

	contextBlock := BuildContext(records)
	monitor.BeforeAnswer(contextBlock)

	text, err := s.answerer.Answer(ctx, question, contextBlock)
	if err != nil {
		s.logger.Error("answer generation failed", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrExplanation, err)
	}

	sources := make([]Source, len(records))
	for i := range records {
		sources[i] = Source{
			DocID:      records[i].DocID,
			Sequence:   records[i].Sequence,
			Similarity: records[i].Similarity,
		}
	}
	return &Answer{Answer: text, Sources: sources}, nil
}

// BuildContext renders records as context blocks, one per turn:
//
//	[doc_id | speaker_raw]
//	text
func BuildContext(records []core.SpeechTurnRecord) string {
	blocks := make([]string, len(records))
	for i := range records {
		blocks[i] = fmt.Sprintf("[%s | %s]\n%s", records[i].DocID, records[i].SpeakerRaw, records[i].Text)
	}
	return strings.Join(blocks, "\n\n")
}

func (s *Searcher) retrieve(ctx context.Context, text string, limit int) ([]core.SpeechTurnRecord, error) {
	vector, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", text, "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, err)
	}

	records, err := s.store.QuerySimilar(ctx, vector, nil, storage.NoThreshold, limit)
	if err != nil {
		s.logger.Error("error querying for similar turns", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrRetrieval, err)
	}
	return records, nil
}

func validate(text string, topK int) (string, int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", 0, fmt.Errorf("%w: query must not be empty", core.ErrInvalidRequest)
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < 1 || topK > MaxTopK {
		return "", 0, fmt.Errorf("%w: top_k must be between 1 and %d, got %d", core.ErrInvalidRequest, MaxTopK, topK)
	}
	return text, topK, nil
}

func newResult(r *core.SpeechTurnRecord) Result {
	return Result{
		DocID:             r.DocID,
		Sequence:          r.Sequence,
		Text:              r.Text,
		SpeakerRaw:        r.SpeakerRaw,
		SpeakerNormalized: r.SpeakerNormalized,
		Role:              r.Role,
		Title:             r.Title,
		Href:              r.Href,
		PublishedAt:       r.PublishedAt,
		Similarity:        r.Similarity,
	}
}
