package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ExpiredDeleter is implemented by the session and code repositories.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Sweeper periodically removes expired rows that lazy cleanup never reached.
type Sweeper struct {
	targets  map[string]ExpiredDeleter
	interval time.Duration
	now      func() time.Time
	cron     *cron.Cron
	logger   *zap.Logger
}

func NewSweeper(interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sweeper{
		targets:  make(map[string]ExpiredDeleter),
		interval: interval,
		now:      time.Now,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
	}
	schedule := fmt.Sprintf("@every %ds", max(1, int(interval.Seconds())))
	_, _ = s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		s.Sweep(ctx)
	})
	return s
}

// Add registers a table to sweep. It must be called before Start.
func (s *Sweeper) Add(name string, target ExpiredDeleter) {
	if target == nil {
		return
	}
	s.targets[name] = target
}

// Sweep runs one pass and returns the removed row count per target.
func (s *Sweeper) Sweep(ctx context.Context) map[string]int64 {
	cutoff := s.now().UTC()
	removed := make(map[string]int64, len(s.targets))
	for name, target := range s.targets {
		n, err := target.DeleteExpired(ctx, cutoff)
		if err != nil {
			s.logger.Warn("sweep failed", zap.String("target", name), zap.Error(err))
			continue
		}
		removed[name] = n
		if n > 0 {
			s.logger.Info("expired rows removed", zap.String("target", name), zap.Int64("count", n))
		}
	}
	return removed
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

func (s *Sweeper) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
