package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/speaker"
	"github.com/Perruchok/vozpublica/storage"
	"github.com/panjf2000/ants/v2"
)

// DefaultEmbedBatchSize is the number of turns embedded per pool task.
const DefaultEmbedBatchSize = 32

// Pipeline orchestrates the ingestion of transcripts and speech turns.
// It manages concurrent generation of missing embeddings.
type Pipeline struct {
	turns          storage.SpeechTurnRepository
	transcripts    storage.TranscriptRepository
	checkpoints    storage.CheckpointRepository
	embeddingPool  *ants.Pool
	embeddingProc  processor
	embedBatchSize int
	pending        sync.WaitGroup
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}

		embeddingPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.embeddingPool = embeddingPool
		return nil
	}
}

// WithEmbedBatchSize sets how many turns are embedded per request.
func WithEmbedBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("embed batch size must be at least 1, got %d", size)
		}
		p.embedBatchSize = size
		return nil
	}
}

// WithCheckpoints enables resumable imports.
func WithCheckpoints(checkpoints storage.CheckpointRepository) Option {
	return func(p *Pipeline) error {
		if checkpoints == nil {
			return ErrCheckpointRepositoryRequired
		}
		p.checkpoints = checkpoints
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	turns storage.SpeechTurnRepository,
	transcripts storage.TranscriptRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if turns == nil {
		return nil, ErrSpeechTurnRepositoryRequired
	}
	if transcripts == nil {
		return nil, ErrTranscriptRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	embeddingPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		turns:          turns,
		transcripts:    transcripts,
		embeddingPool:  embeddingPool,
		embedBatchSize: DefaultEmbedBatchSize,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Created after options so the processor gets the final logger.
	embeddingProc, err := newEmbeddingProcessor(turns, provider.Embedder(), p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.embeddingProc = embeddingProc

	return p, nil
}

// AddTranscripts stores transcripts.
func (p *Pipeline) AddTranscripts(ctx context.Context, transcripts ...*core.Transcript) error {
	if len(transcripts) == 0 {
		return nil
	}
	_, err := p.transcripts.AddTranscripts(ctx, transcripts...)
	return err
}

// Ingest stores speech turns and embeds those without a vector asynchronously.
// Missing normalized speaker names and roles are parsed from the raw label.
// Errors during async processing are logged but do not fail the ingestion.
func (p *Pipeline) Ingest(ctx context.Context, turns ...*core.SpeechTurn) error {
	if len(turns) == 0 {
		return nil
	}

	for _, turn := range turns {
		fillSpeaker(turn)
	}

	added, err := p.turns.AddSpeechTurns(ctx, turns...)
	if err != nil {
		return err
	}

	var missing []core.ID
	for _, turn := range added {
		if !turn.HasVector() {
			missing = append(missing, turn.Id)
		}
	}

	for start := 0; start < len(missing); start += p.embedBatchSize {
		end := min(start+p.embedBatchSize, len(missing))
		if err := p.submit(missing[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) submit(ids []core.ID) error {
	p.pending.Add(1)
	err := p.embeddingPool.Submit(func() {
		defer p.pending.Done()
		if err := p.embeddingProc.process(context.Background(), ids...); err != nil {
			p.logger.Error("error processing embeddings", "err", err)
		}
	})
	if err != nil {
		p.pending.Done()
		return fmt.Errorf("submitting embedding task: %w", err)
	}
	return nil
}

// Wait blocks until all submitted embedding work has finished.
func (p *Pipeline) Wait() {
	p.pending.Wait()
}

// Release waits for pending work and releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.pending.Wait()
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}

// fillSpeaker completes the normalized name and role from the raw label when
// the source did not provide them.
func fillSpeaker(turn *core.SpeechTurn) {
	if turn.SpeakerNormalized != "" && turn.Role != "" {
		return
	}
	parsed := speaker.Parse(turn.SpeakerRaw)
	if turn.SpeakerNormalized == "" {
		turn.SpeakerNormalized = parsed.Name
	}
	if turn.Role == "" {
		turn.Role = parsed.Role
	}
}
