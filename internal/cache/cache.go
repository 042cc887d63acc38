// Package cache provides the time-boxed key-value stores used to hold the
// latest correlation finding.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/tattva/tattva/internal/config"
	"github.com/tattva/tattva/internal/pkg/logger"
	"github.com/tattva/tattva/internal/pkg/security"
)

// Cache is a byte-oriented key-value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. ok is false when the key is absent or
	// expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous entry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases the backend.
	Close() error
}

// New creates the cache selected by cfg.Type. A Redis backend that cannot be
// reached at startup is replaced by a no-op cache so requests always compute.
func New(cfg config.CacheConfig, log *logger.Logger) (Cache, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryCache(), nil

	case "redis":
		rc, err := NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Warn("Redis not available, caching disabled", "url", security.RedactURL(cfg.RedisURL), "error", err)
			return Noop{}, nil
		}
		log.Info("Connected to Redis for caching", "url", security.RedactURL(cfg.RedisURL))
		return rc, nil

	case "none":
		return Noop{}, nil

	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}

// Noop is a cache that stores nothing.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Close() error                                             { return nil }
