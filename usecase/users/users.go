package users

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/sessionguard/domain"
	"github.com/fastygo/sessionguard/repository"
)

type UseCase struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func New(users repository.UserRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		logger: logger,
	}
}

// List returns every account projection, newest first.
func (uc *UseCase) List(ctx context.Context) ([]domain.User, error) {
	users, err := uc.users.List(ctx)
	if err != nil {
		uc.logger.Error("failed to list users", zap.Error(err))
		return nil, domain.StoreFailure(err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// Me returns the user attached to the current session.
func (uc *UseCase) Me(_ context.Context, current *domain.SessionWithUser) (*domain.User, error) {
	if current == nil {
		return nil, domain.ErrUnauthorized
	}
	user := current.User
	return &user, nil
}
