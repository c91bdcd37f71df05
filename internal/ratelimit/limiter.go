package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "ratelimit"

var ErrRedisUnavailable = errors.New("redis unavailable")

// Options configure one limited route scope.
type Options struct {
	Window    time.Duration
	Max       int
	KeyPrefix string
}

// Result describes the outcome of a single hit.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the retry hint up to whole seconds, never below one.
func (r Result) RetryAfterSeconds() int64 {
	secs := int64((r.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Limiter is a fixed-window counter stored in Redis. The window starts with
// the first hit for a key and is not extended by later hits.
type Limiter struct {
	client redislib.UniversalClient
	opts   Options
}

func New(client redislib.UniversalClient, opts Options) *Limiter {
	if opts.Window <= 0 {
		opts.Window = time.Minute
	}
	if opts.Max <= 0 {
		opts.Max = 5
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	return &Limiter{client: client, opts: opts}
}

func (l *Limiter) Options() Options { return l.opts }

// Key returns the counter key for a client identity.
func (l *Limiter) Key(identity string) string {
	return l.opts.KeyPrefix + ":" + identity
}

// Allow records a hit for identity. Errors are wrapped with
// ErrRedisUnavailable; callers decide whether to fail open.
func (l *Limiter) Allow(ctx context.Context, identity string) (Result, error) {
	key := l.Key(identity)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, key, l.opts.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	result := Result{Limit: l.opts.Max}
	if count <= int64(l.opts.Max) {
		result.Allowed = true
		result.Remaining = l.opts.Max - int(count)
		return result, nil
	}

	ttl, err := l.client.PTTL(ctx, key).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ttl < 0 {
		// A counter without expiry would block the identity forever.
		if err := l.client.PExpire(ctx, key, l.opts.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		ttl = l.opts.Window
	}
	result.RetryAfter = ttl
	return result, nil
}
