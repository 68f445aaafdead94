package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang-etf-decision/pkg/common"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// UsageProgressRepository remembers how much of a loss usage event was already committed,
// so a redelivered event only allocates the remainder.
type UsageProgressRepository interface {
	IsDone(ctx context.Context, key string) (bool, error)
	Committed(ctx context.Context, key string) (decimal.Decimal, error)
	AddCommitted(ctx context.Context, key string, amount decimal.Decimal) error
	MarkDone(ctx context.Context, key string) error
}

type usageProgressRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewUsageProgressRepository(client *redis.Client, ttl time.Duration) UsageProgressRepository {
	return &usageProgressRepository{client: client, ttl: ttl}
}

func (r *usageProgressRepository) IsDone(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, common.RedisKeyTaxLossUsageDone+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *usageProgressRepository) Committed(ctx context.Context, key string) (decimal.Decimal, error) {
	raw, err := r.client.Get(ctx, common.RedisKeyTaxLossUsageProgress+key).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt progress for %s: %w", key, err)
	}
	return v, nil
}

// AddCommitted is not atomic. Callers serialize per key.
func (r *usageProgressRepository) AddCommitted(ctx context.Context, key string, amount decimal.Decimal) error {
	current, err := r.Committed(ctx, key)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, common.RedisKeyTaxLossUsageProgress+key, current.Add(amount).String(), r.ttl).Err()
}

func (r *usageProgressRepository) MarkDone(ctx context.Context, key string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, common.RedisKeyTaxLossUsageDone+key, time.Now().UTC().Format(time.RFC3339), r.ttl)
		pipe.Del(ctx, common.RedisKeyTaxLossUsageProgress+key)
		return nil
	})
	return err
}
