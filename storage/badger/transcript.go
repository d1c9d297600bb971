package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/storage"
	"github.com/dgraph-io/badger/v4"
)

// TranscriptRepository implements storage.TranscriptRepository for BadgerDB.
type TranscriptRepository struct {
	backend *Backend
}

var _ storage.TranscriptRepository = (*TranscriptRepository)(nil)

// NewTranscriptRepository creates a new TranscriptRepository.
func NewTranscriptRepository(backend *Backend) *TranscriptRepository {
	return &TranscriptRepository{backend: backend}
}

// Close releases resources. TranscriptRepository has no resources to release.
func (r *TranscriptRepository) Close() error {
	return nil
}

// Ping delegates to the backend.
func (r *TranscriptRepository) Ping(ctx context.Context) error {
	return r.backend.Ping(ctx)
}

// WithTransaction delegates to the backend.
func (r *TranscriptRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddTranscripts inserts or replaces transcripts.
// When a transcript's publication date changes, the already stored turns of
// that document are moved in the date index.
func (r *TranscriptRepository) AddTranscripts(ctx context.Context, transcripts ...*core.Transcript) ([]*core.Transcript, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, t := range transcripts {
			if err := core.ValidateTranscript(t); err != nil {
				return err
			}
			t.Id = core.IDFromContent(t.DocID)

			old, err := readTranscript(tx, t.DocID)
			if err != nil {
				return err
			}
			if old != nil {
				t.InsertedAt = old.InsertedAt
			} else {
				t.InsertedAt = now
			}
			t.UpdatedAt = now

			if err := tx.Set(makeTranscriptKey(t.DocID), storage.MarshalTranscript(t)); err != nil {
				return err
			}

			if old == nil || old.PublishedAt.Equal(t.PublishedAt) {
				continue
			}
			err = scanDocumentTurns(tx, t.DocID, func(turn *core.SpeechTurn) error {
				moved := *turn
				moved.PublishedAt = t.PublishedAt
				moved.UpdatedAt = now
				return putTurn(tx, &moved, turn)
			})
			if err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return transcripts, err
}

// GetTranscript retrieves a transcript by document id.
func (r *TranscriptRepository) GetTranscript(ctx context.Context, docID string) (*core.Transcript, error) {
	var result *core.Transcript
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readTranscript(tx, docID)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// DeleteTranscripts removes transcripts by document id. Speech turns of the
// document are left in place.
func (r *TranscriptRepository) DeleteTranscripts(ctx context.Context, docIDs ...string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, docID := range docIDs {
			t, err := readTranscript(tx, docID)
			if err != nil {
				return err
			}
			if t == nil {
				return fmt.Errorf("%w: transcript %q", storage.ErrNotFound, docID)
			}
			if err := tx.Delete(makeTranscriptKey(docID)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// CountTranscripts returns the number of stored transcripts.
func (r *TranscriptRepository) CountTranscripts(ctx context.Context) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		count, err = countPrefix(ctx, tx, transcriptPrefix)
		return err
	}, false)
	return count, err
}

// readTranscript reads a transcript from the transaction, returning nil if absent.
func readTranscript(tx *badger.Txn, docID string) (*core.Transcript, error) {
	item, err := tx.Get(makeTranscriptKey(docID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var t *core.Transcript
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		t, unmarshalErr = storage.UnmarshalTranscript(val)
		return unmarshalErr
	})
	if err != nil {
		return nil, err
	}
	// Keys are hashes of the document id; guard against collisions.
	if t.DocID != docID {
		return nil, nil
	}
	return t, nil
}
