package narrative

import "errors"

var (
	// ErrStoreRequired is returned when a corpus store is not provided.
	ErrStoreRequired = errors.New("corpus store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrExplainerRequired is returned when an operation needs a drift
	// explainer and none was configured.
	ErrExplainerRequired = errors.New("drift explainer required")
)
