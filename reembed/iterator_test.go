package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/storage"
	"github.com/Perruchok/vozpublica/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) storage.SpeechTurnRepository {
	repo, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return repo
}

// seedTurns stores n turns of one document on consecutive days.
func seedTurns(t *testing.T, repo storage.SpeechTurnRepository, n int, speakerRaw string) []*core.SpeechTurn {
	t.Helper()
	turns := make([]*core.SpeechTurn, n)
	for i := range turns {
		turns[i] = &core.SpeechTurn{
			DocID:       "doc",
			Sequence:    i,
			SpeakerRaw:  speakerRaw,
			Text:        fmt.Sprintf("turno %d", i),
			PublishedAt: time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
		}
	}
	added, err := repo.AddSpeechTurns(context.Background(), turns...)
	require.NoError(t, err)
	return added
}

func TestTurnIterator_BatchSizes(t *testing.T) {
	repo := setupTestDB(t)
	seedTurns(t, repo, 10, "MODERADOR:")

	tests := []struct {
		batchSize int
		batches   []int
	}{
		{1, []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}},
		{3, []int{3, 3, 3, 1}},
		{10, []int{10}},
		{100, []int{10}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("batch size %d", tt.batchSize), func(t *testing.T) {
			var sizes []int
			err := NewTurnIterator(repo, tt.batchSize).ForEach(context.Background(), func(batch []*core.SpeechTurn) error {
				sizes = append(sizes, len(batch))
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.batches, sizes)
		})
	}
}

func TestTurnIterator_IncludesUndatedTurns(t *testing.T) {
	repo := setupTestDB(t)
	_, err := repo.AddSpeechTurns(context.Background(), &core.SpeechTurn{DocID: "orphan", Text: "sin fecha"})
	require.NoError(t, err)

	count := 0
	err = NewTurnIterator(repo, 10).ForEach(context.Background(), func(batch []*core.SpeechTurn) error {
		count += len(batch)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTurnIterator_EmptyDatabase(t *testing.T) {
	repo := setupTestDB(t)

	called := false
	err := NewTurnIterator(repo, 10).ForEach(context.Background(), func(batch []*core.SpeechTurn) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called, "should not call fn for empty database")
}

func TestTurnIterator_ErrorHandling(t *testing.T) {
	repo := setupTestDB(t)
	seedTurns(t, repo, 5, "MODERADOR:")

	expected := errors.New("stop")
	calls := 0
	err := NewTurnIterator(repo, 2).ForEach(context.Background(), func(batch []*core.SpeechTurn) error {
		calls++
		return expected
	})
	assert.ErrorIs(t, err, expected)
	assert.Equal(t, 1, calls, "should stop on first error")
}

func TestTurnIterator_ContextCancellation(t *testing.T) {
	repo := setupTestDB(t)
	seedTurns(t, repo, 5, "MODERADOR:")

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := NewTurnIterator(repo, 1).ForEach(ctx, func(batch []*core.SpeechTurn) error {
		calls++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestTurnIterator_InvalidBatchSize(t *testing.T) {
	repo := setupTestDB(t)
	assert.Equal(t, DefaultBatchSize, NewTurnIterator(repo, 0).batchSize)
	assert.Equal(t, DefaultBatchSize, NewTurnIterator(repo, -5).batchSize)
}
