package repository

import (
	"context"
	"time"

	"github.com/fastygo/sessionguard/domain"
)

// SessionRepository is the authoritative session table.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session, metadata domain.SessionMetadata) error
	GetWithUser(ctx context.Context, id string) (*domain.SessionWithUser, error)
	// UpdateExpiry returns domain.ErrSessionNotFound when the row is gone.
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	ListIDsByUser(ctx context.Context, userID string) ([]string, error)
	DeleteByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// SessionCache is the distributed (shared) cache tier for sessions.
// Implementations return domain.ErrSessionNotFound on a miss.
type SessionCache interface {
	Get(ctx context.Context, id string) (*domain.SessionWithUser, error)
	Put(ctx context.Context, entry *domain.SessionWithUser) error
	Delete(ctx context.Context, ids ...string) error
	DeleteUser(ctx context.Context, userID string) error
}
