package usecase

import (
	"context"
)

// EvictionOutbox persists cache evictions that could not be applied so they
// can be replayed once the distributed cache is reachable again.
type EvictionOutbox interface {
	BufferEviction(ctx context.Context, sessionIDs []string, userIDs []string) error
}
