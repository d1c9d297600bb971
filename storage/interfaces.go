package storage

import (
	"context"
	"time"

	"github.com/Perruchok/vozpublica/core"
)

// NoThreshold disables the similarity threshold of QuerySimilar.
// Cosine similarity is never below -1, so every embedded turn passes.
const NoThreshold = -2.0

// TimeRange is an inclusive range of publication times.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether Start <= t <= End.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// DayRange returns the range covering the whole calendar days from start to
// end, both inclusive, in UTC.
func DayRange(start, end time.Time) TimeRange {
	s := start.UTC()
	e := end.UTC()
	return TimeRange{
		Start: time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC),
		End:   time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, 999999999, time.UTC),
	}
}

// CorpusStore answers similarity queries over embedded speech turns.
type CorpusStore interface {
	// QuerySimilar returns speech turns whose cosine similarity to vector is
	// strictly greater than minSimilarity, joined with their transcript.
	// When tr is non-nil only turns published within it are considered.
	// Turns without a vector are skipped. Results are ordered by similarity
	// descending, ties by publication time, document id and sequence ascending,
	// and truncated to limit. A limit <= 0 returns every match.
	QuerySimilar(ctx context.Context, vector []float32, tr *TimeRange, minSimilarity float64, limit int) ([]core.SpeechTurnRecord, error)
}

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Ping verifies the storage backend is usable.
	Ping(ctx context.Context) error

	// Close releases resources held by the repository.
	Close() error
}

// SpeechTurnRepository provides operations for managing speech turns.
type SpeechTurnRepository interface {
	Repository
	CorpusStore

	// AddSpeechTurns inserts or replaces speech turns.
	// IDs are derived from (DocID, Sequence), so adding the same turn twice
	// overwrites it. InsertedAt is preserved across overwrites.
	AddSpeechTurns(ctx context.Context, turns ...*core.SpeechTurn) ([]*core.SpeechTurn, error)

	// UpdateSpeechTurns updates existing speech turns.
	// Returns ErrNotFound if any turn doesn't exist.
	UpdateSpeechTurns(ctx context.Context, turns ...*core.SpeechTurn) ([]*core.SpeechTurn, error)

	// DeleteSpeechTurns removes speech turns and their index entries.
	// Returns ErrNotFound if any turn doesn't exist.
	DeleteSpeechTurns(ctx context.Context, ids ...core.ID) error

	// GetSpeechTurn retrieves a single speech turn.
	// Returns ErrNotFound if it doesn't exist.
	GetSpeechTurn(ctx context.Context, id core.ID) (*core.SpeechTurn, error)

	// GetSpeechTurns retrieves the turns that exist among ids.
	GetSpeechTurns(ctx context.Context, ids ...core.ID) ([]*core.SpeechTurn, error)

	// GetSpeechTurnsByDateRange returns turns published within [start, end],
	// ordered by publication time.
	GetSpeechTurnsByDateRange(ctx context.Context, start, end time.Time) ([]*core.SpeechTurn, error)

	// GetSpeechTurnsByDocument returns the turns of a document ordered by sequence.
	GetSpeechTurnsByDocument(ctx context.Context, docID string) ([]*core.SpeechTurn, error)

	// CountSpeechTurns returns the number of stored turns.
	CountSpeechTurns(ctx context.Context) (int, error)
}

// TranscriptRepository provides operations for managing transcripts.
type TranscriptRepository interface {
	Repository

	// AddTranscripts inserts or replaces transcripts keyed by DocID.
	AddTranscripts(ctx context.Context, transcripts ...*core.Transcript) ([]*core.Transcript, error)

	// GetTranscript retrieves a transcript by document id.
	// Returns ErrNotFound if it doesn't exist.
	GetTranscript(ctx context.Context, docID string) (*core.Transcript, error)

	// DeleteTranscripts removes transcripts by document id.
	// Returns ErrNotFound if any doesn't exist.
	DeleteTranscripts(ctx context.Context, docIDs ...string) error

	// CountTranscripts returns the number of stored transcripts.
	CountTranscripts(ctx context.Context) (int, error)
}

// CheckpointRepository persists import progress per source.
type CheckpointRepository interface {
	// SaveCheckpoint stores the checkpoint for checkpoint.Source.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns the checkpoint for source, or nil if none exists.
	LoadCheckpoint(ctx context.Context, source string) (*core.Checkpoint, error)
}
