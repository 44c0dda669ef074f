package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/banking/fincrime-service/internal/config"
	"github.com/banking/fincrime-service/internal/domain"
)

// analysisKeyPrefix namespaces analysis entries in a shared Redis
const analysisKeyPrefix = "fincrime:analysis:"

// RedisCache backs the analysis cache with Redis so multiple instances
// share computed analyses. Selected over MemoryCache when Redis is
// enabled in configuration.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection before
// returning
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		client: client,
		ttl:    cfg.AnalysisCacheTTL,
	}, nil
}

func analysisKey(txID string) string {
	return analysisKeyPrefix + txID
}

// Get implements AnalysisCache
func (c *RedisCache) Get(ctx context.Context, txID string) (*domain.AIAnalysis, error) {
	data, err := c.client.Get(ctx, analysisKey(txID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached analysis for %s: %w", txID, err)
	}

	var analysis domain.AIAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("failed to decode cached analysis for %s: %w", txID, err)
	}
	return &analysis, nil
}

// Set implements AnalysisCache
func (c *RedisCache) Set(ctx context.Context, txID string, analysis *domain.AIAnalysis) error {
	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to encode analysis for %s: %w", txID, err)
	}
	return c.client.Set(ctx, analysisKey(txID), data, c.ttl).Err()
}

// Delete implements AnalysisCache
func (c *RedisCache) Delete(ctx context.Context, txID string) error {
	return c.client.Del(ctx, analysisKey(txID)).Err()
}

// Close releases the client's connection pool
func (c *RedisCache) Close() error {
	return c.client.Close()
}
