package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/andresuchdata/inventory-metrics/backend-go/internal/config"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	inventorySummaryKeyPrefix = "inventory:summary:"
	inventoryScanBatchSize    = 100
	defaultSummaryTTL         = time.Minute
	pingTimeout               = 5 * time.Second
)

// InventorySummaryCache stores computed summaries keyed by the request that produced them.
type InventorySummaryCache interface {
	GetSummary(ctx context.Context, key string) (*domain.AggregateResult, bool, error)
	SetSummary(ctx context.Context, key string, result *domain.AggregateResult) error
	InvalidateAll(ctx context.Context) error
}

type redisInventorySummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopInventorySummaryCache struct{}

// NewInventorySummaryCache connects to Redis when caching is enabled and
// returns a no-op cache otherwise.
func NewInventorySummaryCache(cfg config.CacheConfig) (InventorySummaryCache, error) {
	if !cfg.Enabled {
		return &noopInventorySummaryCache{}, nil
	}

	opts, err := summaryRedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s failed: %w", opts.Addr, err)
	}

	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Dur("ttl", summaryTTL(cfg)).Msg("summary cache connected")
	return NewRedisInventorySummaryCache(client, summaryTTL(cfg)), nil
}

// NewRedisInventorySummaryCache wraps an existing client without pinging it.
func NewRedisInventorySummaryCache(client *redis.Client, ttl time.Duration) InventorySummaryCache {
	if ttl <= 0 {
		ttl = defaultSummaryTTL
	}
	return &redisInventorySummaryCache{client: client, ttl: ttl}
}

func NewNoopInventorySummaryCache() InventorySummaryCache {
	return &noopInventorySummaryCache{}
}

// summaryRedisOptions prefers REDIS_URL and falls back to host/port fields.
func summaryRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if url := strings.TrimSpace(cfg.RedisURL); url != "" {
		opt, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host := strings.TrimSpace(cfg.RedisHost)
	if host == "" {
		host = "127.0.0.1"
	}
	port := strings.TrimSpace(cfg.RedisPort)
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func summaryTTL(cfg config.CacheConfig) time.Duration {
	if cfg.SummaryTTLSeconds <= 0 {
		return defaultSummaryTTL
	}
	return time.Duration(cfg.SummaryTTLSeconds) * time.Second
}

func (c *redisInventorySummaryCache) GetSummary(ctx context.Context, key string) (*domain.AggregateResult, bool, error) {
	payload, err := c.client.Get(ctx, buildInventorySummaryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result domain.AggregateResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode inventory summary cache: %w", err)
	}

	return &result, true, nil
}

func (c *redisInventorySummaryCache) SetSummary(ctx context.Context, key string, result *domain.AggregateResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode inventory summary cache: %w", err)
	}

	if err := c.client.Set(ctx, buildInventorySummaryKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateAll removes every summary key, unlinking them in scan-sized batches.
func (c *redisInventorySummaryCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, inventorySummaryKeyPrefix+"*", inventoryScanBatchSize).Iterator()

	batch := make([]string, 0, inventoryScanBatchSize)
	removed := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis unlink failed: %w", err)
		}
		removed += len(batch)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == inventoryScanBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	if err := flush(); err != nil {
		return err
	}

	log.Debug().Int("keys", removed).Msg("summary cache invalidated")
	return nil
}

func (n *noopInventorySummaryCache) GetSummary(ctx context.Context, key string) (*domain.AggregateResult, bool, error) {
	return nil, false, nil
}

func (n *noopInventorySummaryCache) SetSummary(ctx context.Context, key string, result *domain.AggregateResult) error {
	return nil
}

func (n *noopInventorySummaryCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildInventorySummaryKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return inventorySummaryKeyPrefix + "default"
	}
	sum := sha1.Sum([]byte(key))
	return inventorySummaryKeyPrefix + hex.EncodeToString(sum[:])
}
