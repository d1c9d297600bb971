package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when a retry policy allows no attempts.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")

	// ErrRepositoryRequired is returned when no speech turn repository is given.
	ErrRepositoryRequired = errors.New("speech turn repository required")

	// ErrEmbedderRequired is returned when the reembedder has no embedder.
	ErrEmbedderRequired = errors.New("embedder required")
)
