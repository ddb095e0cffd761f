// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resume

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "video360:resume:"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL expires points; zero keeps them forever.
	TTL time.Duration
}

// RedisStore shares resume points across daemon instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("resume store: redis connection failed: %w", err)
	}
	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

// redisKey hashes the url; raw URLs may be long or carry tokens.
func redisKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return redisPrefix + hex.EncodeToString(sum[:])
}

func (s *RedisStore) Get(ctx context.Context, url string) (Point, error) {
	val, err := s.client.Get(ctx, redisKey(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Point{}, ErrNotFound
	}
	if err != nil {
		return Point{}, fmt.Errorf("resume store: get: %w", err)
	}
	var p Point
	if err := json.Unmarshal(val, &p); err != nil {
		return Point{}, fmt.Errorf("resume store: decode: %w", err)
	}
	return p, nil
}

func (s *RedisStore) Put(ctx context.Context, p Point) error {
	buf, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(p.URL), buf, s.ttl).Err(); err != nil {
		return fmt.Errorf("resume store: put: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, url string) error {
	if err := s.client.Del(ctx, redisKey(url)).Err(); err != nil {
		return fmt.Errorf("resume store: delete: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)
