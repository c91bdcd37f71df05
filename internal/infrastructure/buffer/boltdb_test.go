package buffer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "outbox.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEnqueueAndBatchOrder(t *testing.T) {
	store := openStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Enqueue(Eviction{SessionIDs: []string{"late"}, Timestamp: base.Add(time.Minute)}))
	require.NoError(t, store.Enqueue(Eviction{SessionIDs: []string{"early"}, UserIDs: []string{"u1"}, Timestamp: base}))

	size, err := store.Size()
	require.NoError(t, err)
	require.Equal(t, 2, size)

	batch, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, []string{"early"}, batch[0].SessionIDs)
	require.Equal(t, []string{"u1"}, batch[0].UserIDs)
	require.NotEmpty(t, batch[0].ID)

	limited, err := store.GetBatch(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestRemoveAndRequeue(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Enqueue(Eviction{SessionIDs: []string{"a"}, Timestamp: time.Now().Add(-time.Hour)}))
	require.NoError(t, store.Enqueue(Eviction{SessionIDs: []string{"b"}}))

	batch, err := store.GetBatch(10)
	require.NoError(t, err)
	first := batch[0]
	require.Equal(t, []string{"a"}, first.SessionIDs)

	first.Retries++
	require.NoError(t, store.Requeue(first))

	batch, err = store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, []string{"b"}, batch[0].SessionIDs)
	require.Equal(t, []string{"a"}, batch[1].SessionIDs)
	require.Equal(t, 1, batch[1].Retries)

	require.NoError(t, store.Remove(batch[0]))
	require.NoError(t, store.Remove(Eviction{ID: batch[1].ID}))
	size, err := store.Size()
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestCleanup(t *testing.T) {
	store := openStore(t)
	now := time.Now()
	require.NoError(t, store.Enqueue(Eviction{SessionIDs: []string{"old"}, Timestamp: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.Enqueue(Eviction{SessionIDs: []string{"new"}, Timestamp: now}))

	removed, err := store.Cleanup(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	batch, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, []string{"new"}, batch[0].SessionIDs)
}

func TestClosedStore(t *testing.T) {
	var store *Store
	_, err := store.Size()
	require.Error(t, err)
	require.NoError(t, store.Close())
}
