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

// SpeechTurnRepository implements storage.SpeechTurnRepository for BadgerDB.
type SpeechTurnRepository struct {
	backend *Backend
}

var _ storage.SpeechTurnRepository = (*SpeechTurnRepository)(nil)

// NewSpeechTurnRepository creates a new SpeechTurnRepository.
func NewSpeechTurnRepository(backend *Backend) *SpeechTurnRepository {
	return &SpeechTurnRepository{backend: backend}
}

// Close is a no-op; the backend is owned by the caller.
func (r *SpeechTurnRepository) Close() error {
	return nil
}

// Ping delegates to the backend.
func (r *SpeechTurnRepository) Ping(ctx context.Context) error {
	return r.backend.Ping(ctx)
}

// WithTransaction delegates to the backend.
func (r *SpeechTurnRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// QuerySimilar delegates to the backend.
func (r *SpeechTurnRepository) QuerySimilar(ctx context.Context, vector []float32, tr *storage.TimeRange, minSimilarity float64, limit int) ([]core.SpeechTurnRecord, error) {
	return r.backend.QuerySimilar(ctx, vector, tr, minSimilarity, limit)
}

// AddSpeechTurns inserts or replaces speech turns.
// A turn without a publication date inherits it from its transcript.
func (r *SpeechTurnRepository) AddSpeechTurns(ctx context.Context, turns ...*core.SpeechTurn) ([]*core.SpeechTurn, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, turn := range turns {
			if err := core.ValidateSpeechTurn(turn); err != nil {
				return err
			}
			turn.Id = core.TurnID(turn.DocID, turn.Sequence)

			if turn.PublishedAt.IsZero() {
				transcript, err := readTranscript(tx, turn.DocID)
				if err != nil {
					return err
				}
				if transcript != nil {
					turn.PublishedAt = transcript.PublishedAt
				}
			}

			old, err := readTurn(tx, turn.Id)
			if err != nil {
				return err
			}
			if old != nil {
				turn.InsertedAt = old.InsertedAt
			} else {
				turn.InsertedAt = now
			}
			turn.UpdatedAt = now

			if err := putTurn(tx, turn, old); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return turns, err
}

// UpdateSpeechTurns updates existing speech turns.
func (r *SpeechTurnRepository) UpdateSpeechTurns(ctx context.Context, turns ...*core.SpeechTurn) ([]*core.SpeechTurn, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, turn := range turns {
			old, err := readTurn(tx, turn.Id)
			if err != nil {
				return err
			}
			if old == nil {
				return fmt.Errorf("%w: speech turn %d", storage.ErrNotFound, turn.Id)
			}
			if turn.DocID != old.DocID || turn.Sequence != old.Sequence {
				return fmt.Errorf("%w: document and sequence of turn %d cannot change", storage.ErrInvalidQuery, turn.Id)
			}

			turn.UpdatedAt = now
			if err := putTurn(tx, turn, old); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return turns, err
}

// DeleteSpeechTurns removes speech turns and their index entries.
func (r *SpeechTurnRepository) DeleteSpeechTurns(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			turn, err := readTurn(tx, id)
			if err != nil {
				return err
			}
			if turn == nil {
				return fmt.Errorf("%w: speech turn %d", storage.ErrNotFound, id)
			}
			if err := deleteTurn(tx, turn); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetSpeechTurn retrieves a single speech turn by ID.
func (r *SpeechTurnRepository) GetSpeechTurn(ctx context.Context, id core.ID) (*core.SpeechTurn, error) {
	var result *core.SpeechTurn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readTurn(tx, id)
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

// GetSpeechTurns retrieves multiple speech turns by their IDs.
func (r *SpeechTurnRepository) GetSpeechTurns(ctx context.Context, ids ...core.ID) ([]*core.SpeechTurn, error) {
	var result []*core.SpeechTurn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			turn, err := readTurn(tx, id)
			if err != nil {
				return err
			}
			if turn != nil {
				result = append(result, turn)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetSpeechTurnsByDateRange retrieves speech turns published within [start, end].
func (r *SpeechTurnRepository) GetSpeechTurnsByDateRange(ctx context.Context, start, end time.Time) ([]*core.SpeechTurn, error) {
	var results []*core.SpeechTurn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanTurnsByDate(ctx, tx, start, end, func(turn *core.SpeechTurn) error {
			results = append(results, turn)
			return nil
		})
	}, false)
	return results, err
}

// GetSpeechTurnsByDocument retrieves the turns of a document ordered by sequence.
func (r *SpeechTurnRepository) GetSpeechTurnsByDocument(ctx context.Context, docID string) ([]*core.SpeechTurn, error) {
	var results []*core.SpeechTurn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanDocumentTurns(tx, docID, func(turn *core.SpeechTurn) error {
			results = append(results, turn)
			return nil
		})
	}, false)
	return results, err
}

// CountSpeechTurns returns the number of stored speech turns.
func (r *SpeechTurnRepository) CountSpeechTurns(ctx context.Context) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		count, err = countPrefix(ctx, tx, turnPrefix)
		return err
	}, false)
	return count, err
}

// Helper functions

// readTurn reads a speech turn from the transaction, returning nil if absent.
func readTurn(tx *badger.Txn, id core.ID) (*core.SpeechTurn, error) {
	item, err := tx.Get(makeTurnKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var turn *core.SpeechTurn
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		turn, unmarshalErr = storage.UnmarshalSpeechTurn(val)
		return unmarshalErr
	})
	return turn, err
}

// putTurn writes a turn and its index entries, replacing the date index entry
// of old when the publication date moved.
func putTurn(tx *badger.Txn, turn, old *core.SpeechTurn) error {
	if err := tx.Set(makeTurnKey(turn.Id), storage.MarshalSpeechTurn(turn)); err != nil {
		return err
	}

	if old != nil && !old.PublishedAt.Equal(turn.PublishedAt) {
		if err := tx.Delete(makeTurnDateKey(old.PublishedAt, old.Id)); err != nil {
			return err
		}
	}
	id := storage.MarshalID(turn.Id)
	if err := tx.Set(makeTurnDateKey(turn.PublishedAt, turn.Id), id); err != nil {
		return err
	}
	return tx.Set(makeTurnDocKey(turn.DocID, turn.Sequence), id)
}

// deleteTurn removes a turn and its index entries.
func deleteTurn(tx *badger.Txn, turn *core.SpeechTurn) error {
	if err := tx.Delete(makeTurnDateKey(turn.PublishedAt, turn.Id)); err != nil {
		return err
	}
	if err := tx.Delete(makeTurnDocKey(turn.DocID, turn.Sequence)); err != nil {
		return err
	}
	return tx.Delete(makeTurnKey(turn.Id))
}

// scanDocumentTurns calls fn for every turn of docID in sequence order.
// The index is read completely before fn runs so fn may write through tx.
func scanDocumentTurns(tx *badger.Txn, docID string, fn func(*core.SpeechTurn) error) error {
	ids, err := documentTurnIDs(tx, docID)
	if err != nil {
		return err
	}

	for _, id := range ids {
		turn, err := readTurn(tx, id)
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

func documentTurnIDs(tx *badger.Txn, docID string) ([]core.ID, error) {
	prefix := makeTurnDocPrefix(docID)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []core.ID
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		var id core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
