package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LeventeLantos/reminderbot/internal/model"
)

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

type deliveredValue struct {
	Stage  model.Stage `json:"stage"`
	SentAt time.Time   `json:"sentAt"`
}

func deliveredKey(reminderID int64, stage model.Stage) string {
	return fmt.Sprintf("reminder:%d:%s", reminderID, stage)
}

func (c *RedisCache) RecordDelivered(ctx context.Context, reminderID int64, stage model.Stage, sentAt time.Time) error {
	b, err := json.Marshal(deliveredValue{
		Stage:  stage,
		SentAt: sentAt.UTC(),
	})
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, deliveredKey(reminderID, stage), b, c.ttl).Err()
}

func (c *RedisCache) WasDelivered(ctx context.Context, reminderID int64, stage model.Stage) (bool, error) {
	n, err := c.rdb.Exists(ctx, deliveredKey(reminderID, stage)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
