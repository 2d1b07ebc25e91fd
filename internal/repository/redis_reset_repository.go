package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/job-tracker/internal/domain"
)

const resetKeyPrefix = "password_reset:"

type redisResetRepository struct {
	client *redis.Client
}

// NewRedisResetRepository stores reset tokens as expiring Redis keys.
func NewRedisResetRepository(client *redis.Client) ResetTokenRepository {
	return &redisResetRepository{client: client}
}

type redisResetValue struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *redisResetRepository) Save(ctx context.Context, token *domain.ResetToken) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("reset token for %s already expired", token.Email)
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(redisResetValue{
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
	})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, resetKeyPrefix+token.Email, payload, ttl).Err()
}

func (r *redisResetRepository) Get(ctx context.Context, email string) (*domain.ResetToken, error) {
	raw, err := r.client.Get(ctx, resetKeyPrefix+email).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var val redisResetValue
	if err := json.Unmarshal(raw, &val); err != nil {
		return nil, fmt.Errorf("decode reset token: %w", err)
	}
	return &domain.ResetToken{
		Email:     email,
		Token:     val.Token,
		ExpiresAt: val.ExpiresAt,
		CreatedAt: val.CreatedAt,
	}, nil
}

func (r *redisResetRepository) Delete(ctx context.Context, email string) error {
	return r.client.Del(ctx, resetKeyPrefix+email).Err()
}

func (r *redisResetRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
