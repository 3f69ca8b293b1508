// Package cache stores analysis payloads keyed by scope and token fingerprint.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/johnquangdev/focus-group-analyzer/pkg/config"
)

// Store is a byte-value cache with per-entry expiration
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// New builds the store selected by cfg.Driver
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Cache.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.GetRedisAddr(), cfg.Cache.Password, cfg.Cache.DB)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}

// Fingerprint hashes an ordered token list. Equal lists give equal keys.
func Fingerprint(tokens []string) string {
	d := xxhash.New()
	for _, t := range tokens {
		_, _ = d.WriteString(t)
		_, _ = d.Write([]byte{0})
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
