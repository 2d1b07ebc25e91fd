package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/job-tracker/internal/domain"
)

// ResetTokenRepository stores the single active reset token per email.
type ResetTokenRepository interface {
	// Save replaces any token already stored for the email.
	Save(ctx context.Context, token *domain.ResetToken) error
	Get(ctx context.Context, email string) (*domain.ResetToken, error)
	Delete(ctx context.Context, email string) error
	Ping(ctx context.Context) error
}

type passwordResetRepository struct {
	pool *pgxpool.Pool
}

// NewPasswordResetRepository constructs the Postgres-backed token store.
func NewPasswordResetRepository(pool *pgxpool.Pool) ResetTokenRepository {
	return &passwordResetRepository{pool: pool}
}

func (r *passwordResetRepository) Save(ctx context.Context, token *domain.ResetToken) error {
	const query = `
        INSERT INTO password_reset_tokens (email, token, expires_at)
        VALUES ($1,$2,$3)
        ON CONFLICT (email) DO UPDATE SET token=EXCLUDED.token, expires_at=EXCLUDED.expires_at, created_at=NOW()
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		token.Email,
		token.Token,
		token.ExpiresAt,
	).Scan(&token.CreatedAt)
}

func (r *passwordResetRepository) Get(ctx context.Context, email string) (*domain.ResetToken, error) {
	const query = `
        SELECT email, token, expires_at, created_at
        FROM password_reset_tokens WHERE email=$1 AND expires_at > NOW()`
	var token domain.ResetToken
	if err := r.pool.QueryRow(ctx, query, email).Scan(
		&token.Email,
		&token.Token,
		&token.ExpiresAt,
		&token.CreatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &token, nil
}

func (r *passwordResetRepository) Delete(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE email=$1`, email)
	return err
}

func (r *passwordResetRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
