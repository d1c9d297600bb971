package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ExplainInput is everything a DriftExplainer gets to see. The excerpt blocks
// are already formatted, one citation-annotated line per excerpt.
type ExplainInput struct {
	Concept      string
	DriftScore   float64
	PreExcerpts  string
	PostExcerpts string
}

// DriftExplainer narrates a measured semantic drift using excerpts from both periods.
// Implementations must be thread-safe for concurrent use.
type DriftExplainer interface {
	// ExplainDrift returns a validated DriftAnalysis. Output that does not
	// match the DriftAnalysis shape is reported as ErrMalformedAnalysis.
	ExplainDrift(ctx context.Context, input ExplainInput) (*DriftAnalysis, error)
}

// Answerer answers a question using only the supplied context block.
type Answerer interface {
	Answer(ctx context.Context, question, contextBlock string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// DriftExplainer returns the drift narration service.
	DriftExplainer() DriftExplainer

	// Answerer returns the question answering service.
	Answerer() Answerer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
