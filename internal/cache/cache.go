// Package cache is a bounded TTL cache on top of hashicorp/golang-lru.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultSize bounds the number of entries when New is used.
const DefaultSize = 1024

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache stores values for at most maxTTL; Set may shorten an entry's lifetime.
type Cache[K comparable, V any] struct {
	lru *expirable.LRU[K, item[V]]
	now func() time.Time
}

// New creates a cache holding up to DefaultSize entries for at most maxTTL.
func New[K comparable, V any](maxTTL time.Duration) *Cache[K, V] {
	return NewWithSize[K, V](DefaultSize, maxTTL)
}

// NewWithSize creates a cache bounded by size.
func NewWithSize[K comparable, V any](size int, maxTTL time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		lru: expirable.NewLRU[K, item[V]](size, nil, maxTTL),
		now: time.Now,
	}
}

// Get returns the value when present and not expired.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	var zero V
	it, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if !it.expiresAt.IsZero() && c.now().After(it.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	return it.value, true
}

// Set stores value. A zero ttl keeps the cache-wide maximum.
func (c *Cache[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	it := item[V]{value: value}
	if ttl > 0 {
		it.expiresAt = c.now().Add(ttl)
	}
	c.lru.Add(key, it)
}
