package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultConnectRetries = 30
	defaultRetryDelay     = 2 * time.Second
)

// RedisService implements the Cache interface using Redis
type RedisService struct {
	client     *redis.Client
	logger     *slog.Logger
	retries    int
	retryDelay time.Duration
}

var _ Cache = (*RedisService)(nil)

// NewRedisService connects to redisURL, which is either a redis:// URL or a
// bare host:port address.
func NewRedisService(redisURL string, logger *slog.Logger) (*RedisService, error) {
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisService{
		client:     redis.NewClient(opts),
		logger:     logger,
		retries:    defaultConnectRetries,
		retryDelay: defaultRetryDelay,
	}, nil
}

func parseRedisURL(redisURL string) (*redis.Options, error) {
	if redisURL == "" {
		return nil, errors.New("redis url is empty")
	}
	if !strings.Contains(redisURL, "://") {
		return &redis.Options{Addr: redisURL}, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return opts, nil
}

func (r *RedisService) Ping(ctx context.Context) error {
	cmd := r.client.Ping(ctx)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	r.logger.Debug("Redis ping successful", "result", cmd.Val())
	return nil
}

func (r *RedisService) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if err := r.client.Set(ctx, key, value, expiration).Err(); err != nil {
		r.logger.Error("Redis SET failed", "key", key, "error", err)
		return fmt.Errorf("redis set failed: %w", err)
	}

	r.logger.Debug("Redis SET successful", "key", key, "expiration", expiration)
	return nil
}

func (r *RedisService) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Redis key not found", "key", key)
		return "", nil
	}
	if err != nil {
		r.logger.Error("Redis GET failed", "key", key, "error", err)
		return "", fmt.Errorf("redis get failed: %w", err)
	}

	r.logger.Debug("Redis GET successful", "key", key, "value_length", len(value))
	return value, nil
}

func (r *RedisService) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}

	r.logger.Info("Redis connection closed")
	return nil
}

// Client exposes the underlying client for Pub/Sub.
func (r *RedisService) Client() *redis.Client {
	return r.client
}

func (r *RedisService) WaitForConnection(ctx context.Context) error {
	for i := 0; i < r.retries; i++ {
		err := r.Ping(ctx)
		if err == nil {
			r.logger.Info("Redis connection established")
			return nil
		}
		r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
		case <-time.After(r.retryDelay):
		}
	}

	return fmt.Errorf("redis did not become available after %d attempts", r.retries)
}
