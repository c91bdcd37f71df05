package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fastygo/sessionguard/domain"
	"github.com/fastygo/sessionguard/internal/infrastructure/buffer"
)

type fakeCache struct {
	mu           sync.Mutex
	fail         bool
	deleted      []string
	deletedUsers []string
}

func (c *fakeCache) Get(context.Context, string) (*domain.SessionWithUser, error) {
	return nil, domain.ErrSessionNotFound
}

func (c *fakeCache) Put(context.Context, *domain.SessionWithUser) error { return nil }

func (c *fakeCache) Delete(_ context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("redis down")
	}
	c.deleted = append(c.deleted, ids...)
	return nil
}

func (c *fakeCache) DeleteUser(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("redis down")
	}
	c.deletedUsers = append(c.deletedUsers, userID)
	return nil
}

type redisFlag bool

func (f redisFlag) RedisOnline() bool { return bool(f) }

func newOutbox(t *testing.T, cache *fakeCache, online redisFlag, cfg OutboxConfig) (*OutboxProcessor, *buffer.Store) {
	t.Helper()
	store, err := buffer.Open(filepath.Join(t.TempDir(), "outbox.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewOutboxProcessor(store, online, cache, nil, cfg), store
}

func TestOutboxReplaysEvictions(t *testing.T) {
	cache := &fakeCache{}
	op, _ := newOutbox(t, cache, true, OutboxConfig{})
	ctx := context.Background()

	require.NoError(t, op.BufferEviction(ctx, []string{"s1", "s2"}, nil))
	require.NoError(t, op.BufferEviction(ctx, []string{"s3"}, []string{"u1"}))
	require.NoError(t, op.BufferEviction(ctx, nil, nil))
	require.Equal(t, 2, op.Size())

	require.NoError(t, op.Drain(ctx))
	require.Zero(t, op.Size())
	require.ElementsMatch(t, []string{"s1", "s2", "s3"}, cache.deleted)
	require.Equal(t, []string{"u1"}, cache.deletedUsers)
}

func TestOutboxSkipsWhileRedisOffline(t *testing.T) {
	cache := &fakeCache{}
	op, _ := newOutbox(t, cache, false, OutboxConfig{})
	ctx := context.Background()

	require.NoError(t, op.BufferEviction(ctx, []string{"s1"}, nil))
	require.NoError(t, op.Drain(ctx))
	require.Equal(t, 1, op.Size())
	require.Empty(t, cache.deleted)
}

func TestOutboxRequeuesThenDrops(t *testing.T) {
	cache := &fakeCache{fail: true}
	op, store := newOutbox(t, cache, true, OutboxConfig{MaxRetries: 2})
	ctx := context.Background()

	require.NoError(t, op.BufferEviction(ctx, []string{"s1"}, nil))

	require.NoError(t, op.Drain(ctx))
	batch, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, 1, batch[0].Retries)

	require.NoError(t, op.Drain(ctx))
	require.Zero(t, op.Size())
}

func TestOutboxRetentionCleanup(t *testing.T) {
	cache := &fakeCache{}
	op, store := newOutbox(t, cache, true, OutboxConfig{Retention: time.Hour})

	require.NoError(t, store.Enqueue(buffer.Eviction{SessionIDs: []string{"stale"}, Timestamp: time.Now().Add(-2 * time.Hour)}))
	require.NoError(t, op.Drain(context.Background()))

	require.Zero(t, op.Size())
	require.Empty(t, cache.deleted)
}

func TestOutboxNotConfigured(t *testing.T) {
	var op *OutboxProcessor
	require.Error(t, op.BufferEviction(context.Background(), []string{"s1"}, nil))
	require.NoError(t, op.Drain(context.Background()))
	require.Zero(t, op.Size())
}
