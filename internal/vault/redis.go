package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"autolearner-go/internal/config"
	"autolearner-go/internal/learner"
)

const defaultRedisKeyPrefix = "autolearner:content:"

// RedisVault caches payloads as plain string values in Redis.
// Keys never expire; payloads are immutable.
type RedisVault struct {
	name   string
	prefix string
	rdb    *redis.Client
}

// NewRedisVault creates a Redis-backed vault. No connection is made until
// the first command; call ValidateSetup to check reachability.
func NewRedisVault(cfg config.VaultConfig) (*RedisVault, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis vault requires redis_addr to be set")
	}

	prefix := cfg.RedisKeyPrefix
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	return &RedisVault{name: cfg.Name, prefix: prefix, rdb: rdb}, nil
}

func (v *RedisVault) key(ref string) string {
	return v.prefix + ref
}

func (v *RedisVault) PutContent(ctx context.Context, ref string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	if err := v.rdb.Set(ctx, v.key(ref), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", ref, err)
	}
	return nil
}

func (v *RedisVault) GetContent(ctx context.Context, ref string, w io.Writer) error {
	data, err := v.rdb.Get(ctx, v.key(ref)).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s", learner.ErrContentNotFound, ref)
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", ref, err)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

// ValidateSetup pings the server.
func (v *RedisVault) ValidateSetup(ctx context.Context) error {
	if err := v.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the client connection pool.
func (v *RedisVault) Close() error {
	return v.rdb.Close()
}

var _ learner.Vault = (*RedisVault)(nil)
