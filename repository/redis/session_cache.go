package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/sessionguard/domain"
	"github.com/fastygo/sessionguard/repository"
)

const (
	sessionPrefix = "s:"
	userPrefix    = "u:"

	DefaultSessionTTL = 24 * time.Hour
	DefaultUserTTL    = time.Hour
)

// ErrRedisUnavailable wraps every transport-level failure of the cache.
var ErrRedisUnavailable = errors.New("redis unavailable")

type sessionCache struct {
	client     redislib.UniversalClient
	sessionTTL time.Duration
	userTTL    time.Duration
}

// NewSessionCache creates the distributed session tier.
func NewSessionCache(client redislib.UniversalClient, sessionTTL, userTTL time.Duration) repository.SessionCache {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if userTTL <= 0 {
		userTTL = DefaultUserTTL
	}
	return &sessionCache{
		client:     client,
		sessionTTL: sessionTTL,
		userTTL:    userTTL,
	}
}

// SessionKey returns the cache key for a session id.
func SessionKey(id string) string { return sessionPrefix + id }

// UserKey returns the cache key for a user projection.
func UserKey(userID string) string { return userPrefix + userID }

func (c *sessionCache) Get(ctx context.Context, id string) (*domain.SessionWithUser, error) {
	data, err := c.client.Get(ctx, SessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(data) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return DecodeSession(data)
}

func (c *sessionCache) Put(ctx context.Context, entry *domain.SessionWithUser) error {
	sessionData, err := EncodeSession(entry)
	if err != nil {
		return err
	}
	userData, err := EncodeUser(&entry.User)
	if err != nil {
		return err
	}

	_, err = c.client.Pipelined(ctx, func(pipe redislib.Pipeliner) error {
		pipe.Set(ctx, SessionKey(entry.Session.ID), sessionData, c.sessionTTL)
		pipe.Set(ctx, UserKey(entry.User.ID), userData, c.userTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (c *sessionCache) Delete(ctx context.Context, ids ...string) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, SessionKey(id))
	}
	return c.evict(ctx, keys...)
}

func (c *sessionCache) DeleteUser(ctx context.Context, userID string) error {
	return c.evict(ctx, UserKey(userID))
}

func (c *sessionCache) evict(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
