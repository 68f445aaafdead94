package repository

import (
	"context"
	"errors"
	"time"

	"golang-etf-decision/pkg/common"

	"github.com/redis/go-redis/v9"
)

// GuardRepository stores the external risk guard flag shared with other services.
type GuardRepository interface {
	IsActive(ctx context.Context) (bool, error)
	Activate(ctx context.Context, reason string, ttl time.Duration) error
	Deactivate(ctx context.Context) error
	Reason(ctx context.Context) (string, error)
}

type guardRepository struct {
	client *redis.Client
}

func NewGuardRepository(client *redis.Client) GuardRepository {
	return &guardRepository{client: client}
}

func (r *guardRepository) IsActive(ctx context.Context) (bool, error) {
	n, err := r.client.Exists(ctx, common.RedisKeyRiskGuard).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Activate sets the guard. A zero ttl keeps it until Deactivate.
func (r *guardRepository) Activate(ctx context.Context, reason string, ttl time.Duration) error {
	if reason == "" {
		reason = "manual"
	}
	return r.client.Set(ctx, common.RedisKeyRiskGuard, reason, ttl).Err()
}

func (r *guardRepository) Deactivate(ctx context.Context) error {
	return r.client.Del(ctx, common.RedisKeyRiskGuard).Err()
}

func (r *guardRepository) Reason(ctx context.Context) (string, error) {
	reason, err := r.client.Get(ctx, common.RedisKeyRiskGuard).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return reason, err
}
