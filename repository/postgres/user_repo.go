package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/sessionguard/domain"
	"github.com/fastygo/sessionguard/repository"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates a Postgres-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.UserRecord, error) {
	const query = `
		SELECT id, email, username, avatar, password, email_verified, registered_2fa, created_at, updated_at
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`
	row := r.pool.QueryRow(ctx, query, email)

	var (
		user      domain.UserRecord
		password  *string
		updatedAt *time.Time
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.Avatar,
		&password,
		&user.EmailVerified,
		&user.Registered2FA,
		&user.CreatedAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	if password != nil {
		user.PasswordHash = *password
	}
	user.CreatedAt = utc(user.CreatedAt)
	if updatedAt != nil {
		t := utc(*updatedAt)
		user.UpdatedAt = &t
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.UserRecord) error {
	if user == nil || user.ID == "" || user.Email == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO users (id, email, username, avatar, password, email_verified, registered_2fa, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	RETURNING created_at;
	`

	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.Avatar,
		nullString(user.PasswordHash),
		user.EmailVerified,
		user.Registered2FA,
	).Scan(&createdAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailInUse
		}
		return err
	}

	user.CreatedAt = utc(createdAt)
	user.UpdatedAt = nil
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	const query = `
		SELECT id, email, username, avatar, email_verified, registered_2fa, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var (
			user      domain.User
			updatedAt *time.Time
		)
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Username,
			&user.Avatar,
			&user.EmailVerified,
			&user.Registered2FA,
			&user.CreatedAt,
			&updatedAt,
		); err != nil {
			return nil, err
		}
		user.CreatedAt = utc(user.CreatedAt)
		if updatedAt != nil {
			t := utc(*updatedAt)
			user.UpdatedAt = &t
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
