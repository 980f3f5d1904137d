// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

// Package cache provides a Badger-backed TTL cache for slow-changing
// provider lookups. WHOIS and geolocation facts barely change, so caching
// them saves paid API calls across report builds.
package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/onside-hq/onside/internal/logging"
	"github.com/onside-hq/onside/internal/metrics"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a persistent key-value cache with per-entry TTL.
type Cache struct {
	db  *badger.DB
	log zerolog.Logger
}

// Open opens or creates the cache at path. An empty path selects an
// in-memory cache, used by tests and by deployments without a data volume.
func Open(path string) (*Cache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache at %q: %w", path, err)
	}
	return &Cache{
		db:  db,
		log: logging.With().Str("component", "cache").Logger(),
	}, nil
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.db.Close()
}

// key namespaces entries by class so whois and geo lookups for the same
// identity never collide.
func key(class, identity string) []byte {
	return []byte(class + ":" + identity)
}

// Get unmarshals the cached value for (class, identity) into out. It
// returns ErrMiss for absent or expired entries.
func (c *Cache) Get(class, identity string, out interface{}) error {
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(class, identity))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			metrics.CacheMisses.WithLabelValues(class).Inc()
			return ErrMiss
		}
		return fmt.Errorf("cache read failed: %w", err)
	}
	metrics.CacheHits.WithLabelValues(class).Inc()
	return nil
}

// Set stores value for (class, identity) with the given TTL.
func (c *Cache) Set(class, identity string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode failed: %w", err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key(class, identity), payload)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

// Delete removes the entry for (class, identity). Deleting an absent key
// is not an error.
func (c *Cache) Delete(class, identity string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(class, identity))
	})
	if err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}
