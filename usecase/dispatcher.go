package usecase

import (
	"context"
)

// BackgroundTask is a side effect scheduled by a request but detached from
// it. Its error is reported to the dispatcher, never to the request.
type BackgroundTask func(ctx context.Context) error

// Dispatcher runs background tasks. Dispatch returns false when the task
// was not accepted, e.g. because the queue is full or the pool is closed.
type Dispatcher interface {
	Dispatch(name string, task BackgroundTask) bool
}

// SyncDispatcher runs every task on the caller's goroutine with a fresh
// context. It backs deployments with the worker pool disabled.
type SyncDispatcher struct{}

func (SyncDispatcher) Dispatch(_ string, task BackgroundTask) bool {
	if task == nil {
		return false
	}
	_ = task(context.Background())
	return true
}
