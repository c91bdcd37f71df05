package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/sessionguard/usecase"
)

// PoolConfig sizes the background worker pool.
type PoolConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

type job struct {
	name string
	task usecase.BackgroundTask
}

// Pool runs detached side effects (cache warms, refreshes, expiry cleanup)
// on a fixed set of goroutines. Dispatch never blocks: a full queue drops
// the task, which only costs a cache miss later.
type Pool struct {
	cfg       PoolConfig
	ch        chan job
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
	logger    *zap.Logger
}

func NewPool(cfg PoolConfig, logger *zap.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		cfg:    cfg,
		ch:     make(chan job, cfg.QueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.run()
	}
	return p
}

func (p *Pool) Dispatch(name string, task usecase.BackgroundTask) bool {
	if p == nil || task == nil || p.closed.Load() {
		return false
	}
	select {
	case p.ch <- job{name: name, task: task}:
		return true
	case <-p.done:
		return false
	default:
		p.dropped.Add(1)
		return false
	}
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case j := <-p.ch:
			p.execute(j)
		case <-p.done:
			for {
				select {
				case j := <-p.ch:
					p.execute(j)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) execute(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.TaskTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("background task panicked", zap.String("task", j.name), zap.Any("panic", r))
		}
	}()
	if err := j.task(ctx); err != nil {
		p.logger.Debug("background task failed", zap.String("task", j.name), zap.Error(err))
	}
}

// Close stops accepting tasks and waits for queued ones, bounded by ctx.
func (p *Pool) Close(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.done)
	})

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Dropped() uint64 {
	if p == nil {
		return 0
	}
	return p.dropped.Load()
}

var _ usecase.Dispatcher = (*Pool)(nil)
