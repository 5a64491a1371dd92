// Package cache provides the byte stores behind the clean-result cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/redis/go-redis/v9"
)

// Store is a key/value store for encoded cache entries.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Options configures New.
type Options struct {
	Backend       string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New builds the store named by opts.Backend ("memory" or "redis").
func New(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "memory":
		return NewMemoryStore(ctx, opts.TTL)
	case "redis":
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.TTL)
	}
	return nil, fmt.Errorf("cache: unknown backend %q", opts.Backend)
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	c *bigcache.BigCache
}

const (
	memoryShards = 8
	memoryMaxMB  = 64
)

// NewMemoryStore creates an in-process store whose entries live for ttl.
func NewMemoryStore(ctx context.Context, ttl time.Duration) (*MemoryStore, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	// A handful of cleaned input files, each up to a few hundred KB.
	cfg := bigcache.Config{
		Shards:             memoryShards,
		LifeWindow:         ttl,
		CleanWindow:        time.Minute,
		MaxEntriesInWindow: 32,
		MaxEntrySize:       256 * 1024,
		HardMaxCacheSize:   memoryMaxMB,
		Verbose:            false,
	}

	c, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("cache: create memory store: %w", err)
	}
	return &MemoryStore{c: c}, nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := m.c.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	return m.c.Set(key, value)
}

func (m *MemoryStore) Close() error {
	return m.c.Close()
}

// RedisStore keeps entries in Redis so several processes share them.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

const redisKeyPrefix = "coinafrique:"

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: redis ping %s: %w", addr, err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, redisKeyPrefix+key, value, r.ttl).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
