package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/speaker"
	"github.com/Perruchok/vozpublica/storage"
)

// SpeakerBackfiller re-parses the raw speaker label of every stored turn and
// updates the normalized name and role where the parser now disagrees.
type SpeakerBackfiller struct {
	repo           storage.SpeechTurnRepository
	iterator       *TurnIterator
	progress       io.Writer
	reportInterval int
	dryRun         bool
	logger         *slog.Logger
}

// BackfillOption configures a SpeakerBackfiller.
type BackfillOption func(*SpeakerBackfiller)

// WithDryRun counts the changes without writing them.
func WithDryRun(dryRun bool) BackfillOption {
	return func(b *SpeakerBackfiller) {
		b.dryRun = dryRun
	}
}

// WithBatchSize sets how many turns are read and written at a time.
func WithBatchSize(size int) BackfillOption {
	return func(b *SpeakerBackfiller) {
		b.iterator = NewTurnIterator(b.repo, size)
	}
}

// NewSpeakerBackfiller creates a backfiller writing progress to progress.
func NewSpeakerBackfiller(repo storage.SpeechTurnRepository, progress io.Writer, opts ...BackfillOption) (*SpeakerBackfiller, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if progress == nil {
		progress = io.Discard
	}
	b := &SpeakerBackfiller{
		repo:           repo,
		iterator:       NewTurnIterator(repo, DefaultBatchSize),
		progress:       progress,
		reportInterval: 1000,
		logger:         slog.Default().With("component", "speaker-backfill"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// reparse applies the parser to turn and reports whether anything changed.
// A turn whose label yields nothing keeps its existing values.
func reparse(turn *core.SpeechTurn) bool {
	parsed := speaker.Parse(turn.SpeakerRaw)
	if parsed.Name == "" && parsed.Role == "" {
		return false
	}
	if parsed.Name == turn.SpeakerNormalized && parsed.Role == turn.Role {
		return false
	}
	turn.SpeakerNormalized = parsed.Name
	turn.Role = parsed.Role
	return true
}

// Run walks the corpus and stores the corrected speaker fields.
func (b *SpeakerBackfiller) Run(ctx context.Context) (*Result, error) {
	total, err := b.repo.CountSpeechTurns(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting speech turns: %w", err)
	}

	result := &Result{}
	tracker := NewProgressTracker(b.progress, "turns", total, b.reportInterval)
	tracker.Start()

	err = b.iterator.ForEach(ctx, func(turns []*core.SpeechTurn) error {
		changed := make([]*core.SpeechTurn, 0)
		for _, turn := range turns {
			if reparse(turn) {
				changed = append(changed, turn)
			}
		}
		result.Scanned += len(turns)
		result.Updated += len(changed)
		tracker.Increment(len(turns))

		if b.dryRun || len(changed) == 0 {
			return nil
		}
		if _, err := b.repo.UpdateSpeechTurns(ctx, changed...); err != nil {
			return fmt.Errorf("updating speech turns: %w", err)
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	tracker.Finish()
	result.Elapsed = tracker.Elapsed()
	b.logger.Info("speaker backfill finished", "scanned", result.Scanned, "updated", result.Updated,
		"dry_run", b.dryRun, "elapsed", result.Elapsed.Round(time.Millisecond))
	return result, nil
}
