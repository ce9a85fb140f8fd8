// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hyperionx/hyperionx/internal/keypool"
)

// ErrAllKeysFailed indicates every search credential was tried and none
// produced a response. The turn degrades to an ungrounded answer.
var ErrAllKeysFailed = errors.New("all search credentials failed")

// Searcher is the interface the refiner and chat engine consume. The Adapter
// is the production implementation.
type Searcher interface {
	Search(ctx context.Context, req Request) ([]Result, error)
}

// Adapter wraps the low-level client with credential failover and caching.
//
// A search walks the pool's credentials in shuffled order so no key develops
// a persistent preference, releasing each failed key into cooldown before
// moving to the next. The first credential that answers wins.
type Adapter struct {
	client *Client
	pool   *keypool.Pool
	cache  *Cache

	// maxResults is the per-search result cap applied when a request does
	// not carry its own.
	maxResults int
}

// NewAdapter creates an adapter over the given client and credential pool.
// A nil cache disables caching.
func NewAdapter(client *Client, pool *keypool.Pool, cache *Cache) *Adapter {
	return &Adapter{
		client:     client,
		pool:       pool,
		cache:      cache,
		maxResults: DefaultMaxResults,
	}
}

// WithMaxResults overrides the default per-search result cap from
// configuration. Non-positive values keep the default.
func (a *Adapter) WithMaxResults(n int) *Adapter {
	if n > 0 {
		a.maxResults = n
	}
	return a
}

// Search performs a cached, failover-protected search.
func (a *Adapter) Search(ctx context.Context, req Request) ([]Result, error) {
	if req.Depth == "" {
		req.Depth = DepthBasic
	}
	if req.MaxResults <= 0 {
		req.MaxResults = a.maxResults
	}

	if a.cache != nil {
		if results, ok := a.cache.Get(req.Query, req.Depth); ok {
			log.Printf("search: cache hit for depth=%s", req.Depth)
			return results, nil
		}
	}

	if a.pool.Len() == 0 {
		return nil, keypool.ErrNoKeys
	}

	var lastErr error
	for _, key := range a.pool.Shuffled() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		start := time.Now()
		results, err := a.client.Search(ctx, key, req)
		if err != nil {
			lastErr = err
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			if IsKeyFailure(err) {
				a.pool.Release(key, false)
				log.Printf("search: key %s failed, trying next: %v", keypool.Fingerprint(key), err)
				continue
			}
			// Request-shape errors will fail on every key identically.
			a.pool.Release(key, true)
			return nil, err
		}

		a.pool.Release(key, true)
		log.Printf("search: %d results in %v via key %s", len(results), time.Since(start), keypool.Fingerprint(key))

		if a.cache != nil {
			a.cache.Put(req.Query, req.Depth, results)
		}
		return results, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrAllKeysFailed, lastErr)
}
