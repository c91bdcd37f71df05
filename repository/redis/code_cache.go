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

const codePrefix = "unique_code:"

type codeCache struct {
	client redislib.UniversalClient
}

// NewCodeCache creates the verification-code cache.
func NewCodeCache(client redislib.UniversalClient) repository.CodeCache {
	return &codeCache{client: client}
}

// CodeKey returns the composite cache key for an (email, code) pair.
func CodeKey(email, code string) string {
	return codePrefix + email + ":" + code
}

func (c *codeCache) Get(ctx context.Context, email, code string) (*domain.VerificationCode, error) {
	data, err := c.client.Get(ctx, CodeKey(email, code)).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, domain.ErrVerificationCodeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return DecodeCode(data)
}

func (c *codeCache) Set(ctx context.Context, record *domain.VerificationCode, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := EncodeCode(record)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, CodeKey(record.Email, record.Code), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (c *codeCache) Delete(ctx context.Context, email, code string) error {
	if err := c.client.Del(ctx, CodeKey(email, code)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
