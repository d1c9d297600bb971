package narrative

import (
	"errors"
	"log/slog"
	"runtime"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/Perruchok/vozpublica/analysis"
	"github.com/panjf2000/ants/v2"
)

// Settings holds the defaults applied to requests that leave a field unset.
type Settings struct {
	SimilarityThreshold float64
	MaxExamples         int
	MinEvidence         int
	// EvolutionLimit caps the rows fetched for one evolution request.
	EvolutionLimit int
	// SpeakerTopK caps the rows fetched per period for speaker drift.
	SpeakerTopK int
}

// DefaultSettings returns the defaults used by NewService.
func DefaultSettings() Settings {
	return Settings{
		SimilarityThreshold: 0.6,
		MaxExamples:         analysis.DefaultExcerpts,
		MinEvidence:         analysis.DefaultMinEvidence,
		EvolutionLimit:      10000,
		SpeakerTopK:         200,
	}
}

// Validate checks that the settings are usable as request defaults.
func (s Settings) Validate() error {
	if s.SimilarityThreshold < 0 || s.SimilarityThreshold > 1 {
		return errors.New("narrative settings: SimilarityThreshold must be between 0 and 1")
	}
	if s.MaxExamples < 1 || s.MaxExamples > analysis.MaxExcerpts {
		return errors.New("narrative settings: MaxExamples must be between 1 and 50")
	}
	if s.MinEvidence < 1 {
		return errors.New("narrative settings: MinEvidence must be positive")
	}
	if s.EvolutionLimit < 1 || s.SpeakerTopK < 1 {
		return errors.New("narrative settings: fetch limits must be positive")
	}
	return nil
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "narrative")
		return nil
	}
}

// WithExplainer enables explain-drift and report explanations.
func WithExplainer(explainer ai.DriftExplainer) Option {
	return func(s *Service) error {
		s.explainer = explainer
		return nil
	}
}

// WithSettings replaces the request defaults.
func WithSettings(settings Settings) Option {
	return func(s *Service) error {
		if err := settings.Validate(); err != nil {
			return err
		}
		s.settings = settings
		return nil
	}
}

// WithPoolSize sets the size of the pool used for concurrent period retrieval.
// Default is runtime.NumCPU(), with a minimum of 2.
func WithPoolSize(size int) Option {
	return func(s *Service) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

func defaultPoolSize() int {
	return max(runtime.NumCPU(), 2)
}
