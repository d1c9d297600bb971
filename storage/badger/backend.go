package badger

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/storage"
	"github.com/Perruchok/vozpublica/vecmath"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ storage.CorpusStore = (*Backend)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(filePath, 0755); err != nil {
				return nil, err
			}
			if info, err = os.Stat(filePath); err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	logger := slog.Default().With("component", "badger")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// Ping verifies the database is open and readable.
func (b *Backend) Ping(ctx context.Context) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.View(func(tx *badger.Txn) error {
		_, err := tx.Get([]byte(checkpointPrefix))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// WithTransaction executes a function within a transaction.
func (b *Backend) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.WithTx(func(tx *badger.Txn) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// QuerySimilar implements storage.CorpusStore by scanning embedded speech
// turns. A date range narrows the scan to the publication date index.
func (b *Backend) QuerySimilar(ctx context.Context, vector []float32, tr *storage.TimeRange, minSimilarity float64, limit int) ([]core.SpeechTurnRecord, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}
	if tr != nil && tr.End.Before(tr.Start) {
		return nil, fmt.Errorf("%w: range end before start", storage.ErrInvalidQuery)
	}

	results := make([]core.SpeechTurnRecord, 0)
	err := b.WithTx(func(tx *badger.Txn) error {
		transcripts := make(map[string]*core.Transcript)

		visit := func(turn *core.SpeechTurn) error {
			if !turn.HasVector() {
				return nil
			}
			if tr != nil && !tr.Contains(turn.PublishedAt) {
				return nil
			}
			similarity := vecmath.CosineSimilarity(vector, turn.Vector)
			if similarity <= minSimilarity {
				return nil
			}

			transcript, ok := transcripts[turn.DocID]
			if !ok {
				var err error
				transcript, err = readTranscript(tx, turn.DocID)
				if err != nil {
					return err
				}
				transcripts[turn.DocID] = transcript
			}

			results = append(results, toRecord(turn, transcript, similarity))
			return nil
		}

		if tr != nil {
			return scanTurnsByDate(ctx, tx, tr.Start, tr.End, visit)
		}
		return scanTurns(ctx, tx, visit)
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, compareRecords)

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// compareRecords orders by similarity descending, then by publication time,
// document id and sequence ascending.
func compareRecords(a, b core.SpeechTurnRecord) int {
	if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
		return c
	}
	if c := a.PublishedAt.Compare(b.PublishedAt); c != 0 {
		return c
	}
	if c := cmp.Compare(a.DocID, b.DocID); c != 0 {
		return c
	}
	return cmp.Compare(a.Sequence, b.Sequence)
}

func toRecord(turn *core.SpeechTurn, transcript *core.Transcript, similarity float64) core.SpeechTurnRecord {
	rec := core.SpeechTurnRecord{
		DocID:             turn.DocID,
		Sequence:          turn.Sequence,
		SpeakerRaw:        turn.SpeakerRaw,
		SpeakerNormalized: turn.SpeakerNormalized,
		Role:              turn.Role,
		Text:              turn.Text,
		Embedding:         core.Embedding{Vector: turn.Vector},
		PublishedAt:       turn.PublishedAt,
		Similarity:        similarity,
	}
	if transcript != nil {
		rec.Title = transcript.Title
		rec.Href = transcript.Href
	}
	return rec
}

// scanTurns calls fn for every stored speech turn in key order.
func scanTurns(ctx context.Context, tx *badger.Txn, fn func(*core.SpeechTurn) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(turnPrefix)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var turn *core.SpeechTurn
		err := iter.Item().Value(func(val []byte) error {
			var err error
			turn, err = storage.UnmarshalSpeechTurn(val)
			return err
		})
		if err != nil {
			return err
		}
		if err := fn(turn); err != nil {
			return err
		}
	}
	return nil
}

// scanTurnsByDate calls fn for every turn published within [start, end],
// in publication order.
func scanTurnsByDate(ctx context.Context, tx *badger.Txn, start, end time.Time, fn func(*core.SpeechTurn) error) error {
	startKey := makePartialTurnDateKey(start)
	endKey := makePartialTurnDateKey(end)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(turnDatePrefix)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Seek(startKey); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := iter.Item().Key()
		if bytes.Compare(key[:len(endKey)], endKey) > 0 {
			break
		}

		var turnID core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			turnID, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return err
		}

		turn, err := readTurn(tx, turnID)
		if err != nil {
			return err
		}
		if turn == nil {
			continue
		}
		if err := fn(turn); err != nil {
			return err
		}
	}
	return nil
}

// countPrefix counts keys under prefix without reading values.
func countPrefix(ctx context.Context, tx *badger.Txn, prefix string) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	count := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}
