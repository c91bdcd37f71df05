package repository

import (
	"context"
	"time"

	"github.com/fastygo/sessionguard/domain"
)

// CodeRepository stores one-time verification codes, one row per email.
type CodeRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.VerificationCode, error)
	GetByEmailAndCode(ctx context.Context, email, code string) (*domain.VerificationCode, error)
	// Upsert creates the code for email or replaces the existing one and
	// returns the code it replaced, if any. Upserts for one email are
	// serialized so every superseded code is reported exactly once.
	Upsert(ctx context.Context, code *domain.VerificationCode) (superseded string, err error)
	// Delete removes the row only while it still holds code. A row already
	// consumed or re-issued yields domain.ErrVerificationCodeNotFound.
	Delete(ctx context.Context, id, code string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// CodeCache is the short-lived Redis cache in front of CodeRepository.
// Implementations return domain.ErrVerificationCodeNotFound on a miss.
type CodeCache interface {
	Get(ctx context.Context, email, code string) (*domain.VerificationCode, error)
	Set(ctx context.Context, record *domain.VerificationCode, ttl time.Duration) error
	Delete(ctx context.Context, email, code string) error
}
