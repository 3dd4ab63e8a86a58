package router

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/harun/switchboard/pkg/checkpoint"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_KeepsLatestSnapshot(t *testing.T) {
	store, err := checkpoint.Open(filepath.Join(t.TempDir(), "checkpoints.db"), zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	for seq := int64(1); seq <= 3; seq++ {
		require.NoError(t, store.Save(ctx, &checkpoint.Checkpoint{
			ThreadID: "thread-1",
			Node:     NodeHuman,
			TurnSeq:  seq,
			Messages: []checkpoint.Message{{ID: "m", Role: checkpoint.RoleUser, Content: "hi"}},
			SavedAt:  old,
		}))
	}

	sweeper, err := NewSweeper(store, "0 3 * * *", 24*time.Hour, zerolog.Nop())
	require.NoError(t, err)

	pruned, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)

	cp, err := store.LoadLatest(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cp.TurnSeq)
}

func TestNewSweeper_Validation(t *testing.T) {
	store, err := checkpoint.Open(filepath.Join(t.TempDir(), "checkpoints.db"), zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	_, err = NewSweeper(nil, "0 3 * * *", time.Hour, zerolog.Nop())
	assert.Error(t, err, "missing store")

	_, err = NewSweeper(store, "not a schedule", time.Hour, zerolog.Nop())
	assert.Error(t, err, "bad schedule")

	_, err = NewSweeper(store, "0 3 * * *", 0, zerolog.Nop())
	assert.Error(t, err, "zero age")
}
