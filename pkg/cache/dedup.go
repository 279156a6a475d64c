// Package cache provides short-lived deduplication keyed by content
// fingerprints, backed by Redis when configured and an in-process map
// otherwise.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
)

// Deduper records fingerprints with a TTL and answers whether one was
// already recorded inside its window.
type Deduper interface {
	// CheckAndSet returns true when key was already recorded within its TTL.
	// Otherwise it records key for ttl and returns false.
	CheckAndSet(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Fingerprint derives the dedup key for an outbound reply.
func Fingerprint(phone, text string) string {
	sum := sha256.Sum256([]byte(phone + ":" + text))
	return hex.EncodeToString(sum[:])
}

// NewDeduper picks the backend from config: Redis when an address is set,
// the in-process fallback otherwise.
func NewDeduper(cfg *config.RedisConfig, logger *slog.Logger) Deduper {
	if cfg != nil && cfg.Addr != "" {
		logger.Info("Using Redis for reply deduplication", "addr", cfg.Addr)
		return NewRedisDeduper(redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}))
	}
	logger.Info("Redis not configured, using in-process reply deduplication")
	return NewMemoryDeduper()
}

// RedisDeduper implements Deduper on a Redis SET NX.
type RedisDeduper struct {
	client *redis.Client
}

// NewRedisDeduper creates a RedisDeduper around an existing client.
func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

// CheckAndSet implements Deduper. SETNX makes check-and-record atomic across
// engine replicas.
func (d *RedisDeduper) CheckAndSet(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	set, err := d.client.SetNX(ctx, "dedup:"+key, 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Close releases the underlying Redis connection.
func (d *RedisDeduper) Close() error {
	return d.client.Close()
}

// MemoryDeduper is the single-process fallback.
type MemoryDeduper struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryDeduper creates an empty MemoryDeduper.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// CheckAndSet implements Deduper.
func (d *MemoryDeduper) CheckAndSet(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if expiry, ok := d.entries[key]; ok && now.Before(expiry) {
		return true, nil
	}
	// Expired entries are purged lazily on write so the map cannot grow
	// without bound between hits.
	for k, expiry := range d.entries {
		if now.After(expiry) {
			delete(d.entries, k)
		}
	}
	d.entries[key] = now.Add(ttl)
	return false, nil
}
