// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package cache wraps golang-lru with typed keys and values.
package cache

import lru "github.com/hashicorp/golang-lru"

// LRU is a fixed-capacity cache evicting the least recently used entry.
// Safe for concurrent use.
type LRU[K comparable, V any] struct {
	c *lru.Cache
}

// NewLRU creates a cache holding at most capacity entries.
// capacity must be > 0, or an error is returned.
func NewLRU[K comparable, V any](capacity int) (*LRU[K, V], error) {
	c, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &LRU[K, V]{c}, nil
}

// Get returns the cached value for key, if any.
func (l *LRU[K, V]) Get(key K) (V, bool) {
	if v, ok := l.c.Get(key); ok {
		return v.(V), true
	}
	var zero V
	return zero, false
}

// Add stores the value under key, evicting the oldest entry when full.
func (l *LRU[K, V]) Add(key K, value V) {
	l.c.Add(key, value)
}

// Len returns the number of cached entries.
func (l *LRU[K, V]) Len() int {
	return l.c.Len()
}

// GetOrLoad returns the cached value for key, calling load on a miss and
// caching its result. A failed load caches nothing.
func (l *LRU[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := l.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	l.Add(key, v)
	return v, nil
}
