package repository

import (
	"context"

	"github.com/fastygo/sessionguard/domain"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.UserRecord, error)
	Create(ctx context.Context, user *domain.UserRecord) error
	List(ctx context.Context) ([]domain.User, error)
}
