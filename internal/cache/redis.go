package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/market-backoffice/internal/config"
	"github.com/ignatzorin/market-backoffice/internal/models"
)

// NewRedisClient подключается к Redis и проверяет соединение.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: не удалось подключиться: %w", err)
	}
	return client, nil
}

// RedisAdminCache хранит записи администраторов в Redis в виде JSON.
type RedisAdminCache struct {
	client redis.Cmdable
}

func NewRedisAdminCache(client redis.Cmdable) *RedisAdminCache {
	return &RedisAdminCache{client: client}
}

func (c *RedisAdminCache) Get(ctx context.Context, email string) (*models.Admin, bool, error) {
	raw, err := c.client.Get(ctx, adminKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis admin cache: get: %w", err)
	}

	var admin models.Admin
	if err := json.Unmarshal(raw, &admin); err != nil {
		return nil, false, fmt.Errorf("redis admin cache: decode: %w", err)
	}
	return &admin, true, nil
}

func (c *RedisAdminCache) Set(ctx context.Context, email string, admin *models.Admin, ttl time.Duration) error {
	if admin == nil {
		return nil
	}
	raw, err := json.Marshal(admin)
	if err != nil {
		return fmt.Errorf("redis admin cache: encode: %w", err)
	}
	if err := c.client.Set(ctx, adminKey(email), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis admin cache: set: %w", err)
	}
	return nil
}
