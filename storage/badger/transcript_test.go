package badger

import (
	"context"
	"testing"
	"time"

	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscripts_AddGetDelete(t *testing.T) {
	_, transcripts, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	published := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	_, err = transcripts.AddTranscripts(ctx, &core.Transcript{DocID: "doc", Title: "T", Href: "h", PublishedAt: published})
	require.NoError(t, err)

	got, err := transcripts.GetTranscript(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, core.IDFromContent("doc"), got.Id)
	assert.Equal(t, "T", got.Title)
	assert.True(t, got.PublishedAt.Equal(published))

	count, err := transcripts.CountTranscripts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, transcripts.DeleteTranscripts(ctx, "doc"))
	_, err = transcripts.GetTranscript(ctx, "doc")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, transcripts.DeleteTranscripts(ctx, "doc"), storage.ErrNotFound)
}

func TestTranscripts_Invalid(t *testing.T) {
	_, transcripts, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	_, err = transcripts.AddTranscripts(context.Background(), &core.Transcript{DocID: "doc"})
	assert.ErrorIs(t, err, core.ErrMissingPublishedAt)
}

func TestTranscripts_RedatingMovesTurns(t *testing.T) {
	turns, transcripts, _ := seedCorpus(t)
	ctx := context.Background()

	moved := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := transcripts.AddTranscripts(ctx, &core.Transcript{DocID: "jan", Title: "Enero", PublishedAt: moved})
	require.NoError(t, err)

	old, err := turns.GetSpeechTurnsByDateRange(ctx, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, old)

	now, err := turns.GetSpeechTurnsByDateRange(ctx, moved, moved)
	require.NoError(t, err)
	require.Len(t, now, 2)
	for _, turn := range now {
		assert.True(t, turn.PublishedAt.Equal(moved))
	}
}

func TestCheckpoints(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()
	repo := NewCheckpointRepository(backend)

	cp, err := repo.LoadCheckpoint(ctx, "turns.jsonl")
	require.NoError(t, err)
	assert.Nil(t, cp)

	require.NoError(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{Source: "turns.jsonl", LastLine: 42}))
	cp, err = repo.LoadCheckpoint(ctx, "turns.jsonl")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, int64(42), cp.LastLine)
	assert.False(t, cp.UpdatedAt.IsZero())
}
