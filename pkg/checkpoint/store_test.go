package checkpoint

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "checkpoints.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_LoadLatestEmptyThread(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.LoadLatest(context.Background(), "never-seen")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	cp := &Checkpoint{
		ThreadID: "thread-1",
		Node:     "human",
		TurnSeq:  1,
		Messages: []Message{
			{Role: RoleUser, Content: "I want a refund", Timestamp: time.Now()},
			{
				Role:    RoleAssistant,
				Content: "",
				ToolCalls: []ToolCall{
					{ID: "call-1", Name: "transfer_to_refunds_agent", Arguments: map[string]interface{}{}},
				},
				Timestamp: time.Now(),
			},
			{Role: RoleTool, Content: "Successfully transferred to refunds_agent", ToolCallID: "call-1", Name: "transfer_to_refunds_agent", Timestamp: time.Now()},
			{Role: RoleAssistant, Content: "Please provide your user ID and product ID.", Timestamp: time.Now()},
		},
	}
	require.NoError(t, store.Save(ctx, cp))

	loaded, err := store.LoadLatest(ctx, "thread-1")
	require.NoError(t, err)

	assert.Equal(t, "human", loaded.Node)
	assert.Equal(t, int64(1), loaded.TurnSeq)
	require.Len(t, loaded.Messages, 4)
	assert.Equal(t, RoleUser, loaded.Messages[0].Role)
	assert.Equal(t, "I want a refund", loaded.Messages[0].Content)
	require.Len(t, loaded.Messages[1].ToolCalls, 1)
	assert.Equal(t, "transfer_to_refunds_agent", loaded.Messages[1].ToolCalls[0].Name)
	assert.Equal(t, "call-1", loaded.Messages[2].ToolCallID)
}

func TestStore_LatestSnapshotWins(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Checkpoint{
		ThreadID: "thread-1",
		Node:     "human",
		TurnSeq:  1,
		Messages: []Message{{Role: RoleUser, Content: "first"}},
	}))
	require.NoError(t, store.Save(ctx, &Checkpoint{
		ThreadID: "thread-1",
		Node:     "human",
		TurnSeq:  2,
		Messages: []Message{
			{Role: RoleUser, Content: "first"},
			{Role: RoleAssistant, Content: "reply"},
			{Role: RoleUser, Content: "second"},
		},
	}))

	loaded, err := store.LoadLatest(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.TurnSeq)
	assert.Len(t, loaded.Messages, 3)
}

func TestStore_ThreadsAreIsolated(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Checkpoint{
		ThreadID: "a", Node: "human", TurnSeq: 1,
		Messages: []Message{{Role: RoleUser, Content: "thread a"}},
	}))
	require.NoError(t, store.Save(ctx, &Checkpoint{
		ThreadID: "b", Node: "human", TurnSeq: 5,
		Messages: []Message{{Role: RoleUser, Content: "thread b"}},
	}))

	a, err := store.LoadLatest(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "thread a", a.Messages[0].Content)

	b, err := store.LoadLatest(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(5), b.TurnSeq)

	count, err := store.CountThreads(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_PruneKeepsLatest(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.Save(ctx, &Checkpoint{
		ThreadID: "t", Node: "human", TurnSeq: 1, SavedAt: old,
		Messages: []Message{{Role: RoleUser, Content: "old"}},
	}))
	require.NoError(t, store.Save(ctx, &Checkpoint{
		ThreadID: "t", Node: "human", TurnSeq: 2, SavedAt: old,
		Messages: []Message{{Role: RoleUser, Content: "old"}, {Role: RoleAssistant, Content: "also old"}},
	}))

	pruned, err := store.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	// The latest snapshot survives even though it is older than the cutoff.
	loaded, err := store.LoadLatest(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.TurnSeq)
}

func TestStore_SaveValidation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.Save(ctx, &Checkpoint{Node: "human"})
	assert.Error(t, err)

	err = store.Save(ctx, &Checkpoint{ThreadID: "t"})
	assert.Error(t, err)
}
