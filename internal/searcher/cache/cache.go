// Package cache stores search results in Redis, keyed by the canonical query
// and the catalog fingerprint. Cache failures never fail a search: the
// result is computed locally and the error is counted.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/parser"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "catalog:search:"

// Store is the byte store behind the cache. Get reports a missing key with
// pkgredis.ErrMiss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

type Stats struct {
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Errors  int64  `json:"errors"`
	Breaker string `json:"breaker"`
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	logger  *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	errs   atomic.Int64
}

func New(store Store, ttl time.Duration, breaker *resilience.CircuitBreaker) *QueryCache {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("redis", resilience.BreakerConfig{})
	}
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		breaker: breaker,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Key returns the Redis key for opts against the catalog identified by
// fingerprint.
func Key(fingerprint string, opts *engine.Options) string {
	sum := sha256.Sum256([]byte(fingerprint + "|" + parser.CanonicalKey(opts)))
	return keyPrefix + hex.EncodeToString(sum[:16])
}

// GetOrCompute returns the cached result for opts or runs compute and caches
// its output. Concurrent misses on one key share a single compute. The bool
// reports whether the result came from Redis.
func (c *QueryCache) GetOrCompute(ctx context.Context, fingerprint string, opts *engine.Options, compute func() *engine.Result) (*engine.Result, bool) {
	key := Key(fingerprint, opts)
	if r, ok := c.get(ctx, key); ok {
		return r, true
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		r := compute()
		c.set(ctx, key, r)
		return r, nil
	})
	return v.(*engine.Result), false
}

func (c *QueryCache) get(ctx context.Context, key string) (*engine.Result, bool) {
	var data []byte
	err := c.breaker.Execute(func() error {
		b, err := c.store.Get(ctx, key)
		if errors.Is(err, pkgredis.ErrMiss) {
			return nil
		}
		data = b
		return err
	})
	if err != nil {
		c.fail("get", key, err)
		c.misses.Add(1)
		return nil, false
	}
	if data == nil {
		c.misses.Add(1)
		return nil, false
	}
	r, err := decodeResult(data)
	if err != nil {
		c.fail("decode", key, err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return r, true
}

func (c *QueryCache) set(ctx context.Context, key string, r *engine.Result) {
	data, err := encodeResult(r)
	if err != nil {
		c.fail("encode", key, err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.fail("set", key, err)
		return
	}
	c.logger.Debug("result cached", "key", key, "bytes", len(data))
}

func (c *QueryCache) fail(op, key string, err error) {
	c.errs.Add(1)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Debug("cache bypassed", "op", op, "error", err)
		return
	}
	c.logger.Warn("cache operation failed", "op", op, "key", key, "error", err)
}

// Invalidate deletes every cached result and returns the number of keys
// removed.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	var deleted int64
	err := c.breaker.Execute(func() error {
		n, err := c.store.DeletePrefix(ctx, keyPrefix)
		deleted = n
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Errors:  c.errs.Load(),
		Breaker: c.breaker.State().String(),
	}
}
