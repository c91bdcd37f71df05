package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/sessionguard/domain"
	"github.com/fastygo/sessionguard/repository"
)

type codeRepository struct {
	pool *pgxpool.Pool
}

// NewCodeRepository instantiates the unique_code table repository.
func NewCodeRepository(pool *pgxpool.Pool) repository.CodeRepository {
	return &codeRepository{pool: pool}
}

func (r *codeRepository) GetByEmail(ctx context.Context, email string) (*domain.VerificationCode, error) {
	const query = `SELECT id, email, code, expires_at FROM unique_code WHERE email = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *codeRepository) GetByEmailAndCode(ctx context.Context, email, code string) (*domain.VerificationCode, error) {
	const query = `SELECT id, email, code, expires_at FROM unique_code WHERE email = $1 AND code = $2`
	return r.scanOne(r.pool.QueryRow(ctx, query, email, code))
}

func (r *codeRepository) Upsert(ctx context.Context, code *domain.VerificationCode) (string, error) {
	if code == nil || code.Email == "" || code.Code == "" {
		return "", domain.ErrInvalidPayload
	}
	if code.ID == "" {
		code.ID = uuid.NewString()
	}

	const upsert = `
	INSERT INTO unique_code (id, email, code, expires_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (email) DO UPDATE
	SET code = EXCLUDED.code,
		expires_at = EXCLUDED.expires_at
	RETURNING id;
	`

	var superseded string
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// The lock also covers the first issue for an email, when there is
		// no row yet to lock.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, code.Email); err != nil {
			return err
		}
		err := tx.QueryRow(ctx, `SELECT code FROM unique_code WHERE email = $1`, code.Email).Scan(&superseded)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return tx.QueryRow(ctx, upsert,
			code.ID,
			code.Email,
			code.Code,
			code.ExpiresAt.UTC(),
		).Scan(&code.ID)
	})
	if err != nil {
		return "", err
	}
	return superseded, nil
}

func (r *codeRepository) Delete(ctx context.Context, id, code string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM unique_code WHERE id = $1 AND code = $2`, id, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVerificationCodeNotFound
	}
	return nil
}

func (r *codeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM unique_code WHERE expires_at <= $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *codeRepository) scanOne(row pgx.Row) (*domain.VerificationCode, error) {
	var code domain.VerificationCode
	if err := row.Scan(&code.ID, &code.Email, &code.Code, &code.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVerificationCodeNotFound
		}
		return nil, err
	}
	code.ExpiresAt = utc(code.ExpiresAt)
	return &code, nil
}
