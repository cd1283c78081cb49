package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/rapidreserve/config"
	"github.com/Domenick1991/rapidreserve/internal/domain"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type RedisCache struct {
	client      *redis.Client
	snapshotTTL time.Duration
	dedupeTTL   time.Duration
}

func NewRedisCache(cfg config.RedisConfig, snapshotTTL, dedupeTTL time.Duration) *RedisCache {
	return NewRedisCacheFromClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		snapshotTTL, dedupeTTL,
	)
}

func NewRedisCacheFromClient(client *redis.Client, snapshotTTL, dedupeTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, snapshotTTL: snapshotTTL, dedupeTTL: dedupeTTL}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetCapacity returns nil, nil on a miss.
func (c *RedisCache) GetCapacity(ctx context.Context, eventID int64) (*domain.EventCapacity, error) {
	data, err := c.client.Get(ctx, capacityKey(eventID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var capacity domain.EventCapacity
	if err := json.Unmarshal(data, &capacity); err != nil {
		return nil, err
	}
	return &capacity, nil
}

func (c *RedisCache) SetCapacity(ctx context.Context, capacity domain.EventCapacity) error {
	payload, err := json.Marshal(capacity)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, capacityKey(capacity.EventID), payload, c.snapshotTTL).Err()
}

func (c *RedisCache) InvalidateCapacity(ctx context.Context, eventID int64) error {
	return c.client.Del(ctx, capacityKey(eventID)).Err()
}

// MarkSeen records key and reports whether this call was the first to do so.
func (c *RedisCache) MarkSeen(ctx context.Context, key string) (bool, error) {
	return c.client.SetNX(ctx, seenKey(key), "1", c.dedupeTTL).Result()
}

// Forget drops a seen marker so a failed delivery can be handled again.
func (c *RedisCache) Forget(ctx context.Context, key string) error {
	return c.client.Del(ctx, seenKey(key)).Err()
}

func capacityKey(eventID int64) string {
	return fmt.Sprintf("cache:capacity:%d", eventID)
}

func seenKey(key string) string {
	return "lifecycle:seen:" + key
}
