package repository

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// EventRepository appends JSON payloads to redis streams.
type EventRepository interface {
	Publish(ctx context.Context, stream string, payload interface{}) (string, error)
}

type eventRepository struct {
	client *redis.Client
	maxLen int64
}

func NewEventRepository(client *redis.Client, maxLen int64) EventRepository {
	return &eventRepository{client: client, maxLen: maxLen}
}

func (r *eventRepository) Publish(ctx context.Context, stream string, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"payload": data},
		MaxLen: r.maxLen,
		Approx: true,
	}).Result()
}
