package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/sessionguard/internal/infrastructure/buffer"
	"github.com/fastygo/sessionguard/repository"
	"github.com/fastygo/sessionguard/usecase"
)

// RedisHealth gates outbox replay on the last Redis probe.
type RedisHealth interface {
	RedisOnline() bool
}

// OutboxConfig controls how frequently pending evictions are replayed.
type OutboxConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Retention  time.Duration
}

// OutboxProcessor replays cache evictions that failed during invalidation.
type OutboxProcessor struct {
	store   *buffer.Store
	monitor RedisHealth
	cache   repository.SessionCache
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     OutboxConfig
}

func NewOutboxProcessor(
	store *buffer.Store,
	monitor RedisHealth,
	cache repository.SessionCache,
	logger *zap.Logger,
	cfg OutboxConfig,
) *OutboxProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	op := &OutboxProcessor{
		store:   store,
		monitor: monitor,
		cache:   cache,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", max(1, int(cfg.Interval.Seconds())))
	_, _ = op.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := op.Drain(ctx); err != nil {
			op.logger.Error("outbox drain failed", zap.Error(err))
		}
	})

	return op
}

func (op *OutboxProcessor) Start() {
	if op == nil || op.cron == nil {
		return
	}
	op.cron.Start()
	op.logger.Info("outbox processor started")
}

func (op *OutboxProcessor) Stop(ctx context.Context) error {
	if op == nil || op.cron == nil {
		return nil
	}
	stopCtx := op.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	op.logger.Info("outbox processor stopped")
	return nil
}

// Drain replays one batch of pending evictions.
func (op *OutboxProcessor) Drain(ctx context.Context) error {
	if op == nil || op.store == nil {
		return nil
	}
	if op.monitor != nil && !op.monitor.RedisOnline() {
		op.logger.Debug("skipping outbox drain (redis offline)")
		return nil
	}

	if op.cfg.Retention > 0 {
		if removed, err := op.store.Cleanup(time.Now().Add(-op.cfg.Retention)); err != nil {
			op.logger.Warn("outbox cleanup failed", zap.Error(err))
		} else if removed > 0 {
			op.logger.Info("outbox entries expired", zap.Int("count", removed))
		}
	}

	items, err := op.store.GetBatch(op.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := op.replay(ctx, item); err != nil {
			item.Retries++
			if item.Retries >= op.cfg.MaxRetries {
				op.logger.Warn("dropping outbox item (max retries reached)",
					zap.String("item_id", item.ID),
					zap.Error(err))
				_ = op.store.Remove(item)
				continue
			}
			op.logger.Debug("outbox replay failed", zap.String("item_id", item.ID), zap.Error(err))
			if err := op.store.Requeue(item); err != nil {
				op.logger.Error("failed to requeue outbox item", zap.Error(err))
			}
			continue
		}

		if err := op.store.Remove(item); err != nil {
			op.logger.Warn("failed to purge replayed outbox item", zap.Error(err))
		}
	}
	return nil
}

// BufferEviction persists an eviction for later replay.
func (op *OutboxProcessor) BufferEviction(_ context.Context, sessionIDs []string, userIDs []string) error {
	if op == nil || op.store == nil {
		return errors.New("outbox not configured")
	}
	item := buffer.Eviction{SessionIDs: sessionIDs, UserIDs: userIDs}
	if item.Empty() {
		return nil
	}
	return op.store.Enqueue(item)
}

// Size returns the number of pending evictions.
func (op *OutboxProcessor) Size() int {
	if op == nil || op.store == nil {
		return 0
	}
	size, err := op.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (op *OutboxProcessor) replay(ctx context.Context, item buffer.Eviction) error {
	if len(item.SessionIDs) > 0 {
		if err := op.cache.Delete(ctx, item.SessionIDs...); err != nil {
			return err
		}
	}
	for _, userID := range item.UserIDs {
		if err := op.cache.DeleteUser(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

var _ usecase.EvictionOutbox = (*OutboxProcessor)(nil)
