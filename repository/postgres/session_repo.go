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

type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository instantiates the authoritative session table.
func NewSessionRepository(pool *pgxpool.Pool) repository.SessionRepository {
	return &sessionRepository{pool: pool}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session, metadata domain.SessionMetadata) error {
	if session == nil || session.ID == "" || session.UserID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO sessions (id, user_id, expires_at, location, browser, device, os)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.ExpiresAt.UTC(),
		metadata.Location,
		metadata.Browser,
		metadata.Device,
		metadata.OS,
	)
	return err
}

func (r *sessionRepository) GetWithUser(ctx context.Context, id string) (*domain.SessionWithUser, error) {
	const query = `
		SELECT s.id, s.user_id, s.expires_at,
		       u.email, u.username, u.avatar, u.email_verified, u.registered_2fa, u.created_at, u.updated_at
		FROM sessions s
		INNER JOIN users u ON u.id = s.user_id
		WHERE s.id = $1
	`
	var (
		entry     domain.SessionWithUser
		updatedAt *time.Time
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&entry.Session.ID,
		&entry.Session.UserID,
		&entry.Session.ExpiresAt,
		&entry.User.Email,
		&entry.User.Username,
		&entry.User.Avatar,
		&entry.User.EmailVerified,
		&entry.User.Registered2FA,
		&entry.User.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	entry.User.ID = entry.Session.UserID
	entry.Session.ExpiresAt = utc(entry.Session.ExpiresAt)
	entry.User.CreatedAt = utc(entry.User.CreatedAt)
	if updatedAt != nil {
		t := utc(*updatedAt)
		entry.User.UpdatedAt = &t
	}
	return &entry, nil
}

func (r *sessionRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	// GREATEST keeps concurrent refreshes from moving expiry backwards.
	const query = `UPDATE sessions SET expires_at = GREATEST(expires_at, $2) WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, expiresAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepository) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (r *sessionRepository) ListIDsByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *sessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
