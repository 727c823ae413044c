// Package cache provides a Redis-backed cache of ranked result pages with
// singleflight deduplication of concurrent identical searches.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pooi/redsearch/internal/search/parser"
	"github.com/pooi/redsearch/pkg/logger"
	"github.com/pooi/redsearch/pkg/metrics"
	pkgredis "github.com/pooi/redsearch/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "rs:cache:"

// Page is one cached ranked result window.
type Page struct {
	IDs []string `json:"ids"`
}

// PageCache caches ranked document-id pages keyed by (index, normalized
// query, sort spec, window). Entries live in Redis with their own TTL,
// independent of the engine's ephemeral result keys.
type PageCache struct {
	client  *pkgredis.Client
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a PageCache with the given entry TTL. m may be nil.
func New(client *pkgredis.Client, ttl time.Duration, m *metrics.Metrics) *PageCache {
	return &PageCache{
		client:  client,
		ttl:     ttl,
		logger:  logger.WithComponent("page-cache"),
		metrics: m,
	}
}

func (c *PageCache) Get(ctx context.Context, index, query, sortSpec string, start, stop int64) (*Page, bool) {
	key := c.buildKey(index, query, sortSpec, start, stop)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var page Page
	if err := json.Unmarshal([]byte(data), &page); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return &page, true
}

func (c *PageCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *PageCache) Set(ctx context.Context, index, query, sortSpec string, start, stop int64, page *Page) {
	key := c.buildKey(index, query, sortSpec, start, stop)
	data, err := json.Marshal(page)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached page or computes and stores it, collapsing
// concurrent identical requests into a single computation.
func (c *PageCache) GetOrCompute(
	ctx context.Context,
	index, query, sortSpec string,
	start, stop int64,
	computeFn func() (*Page, error),
) (*Page, bool, error) {
	if page, ok := c.Get(ctx, index, query, sortSpec, start, stop); ok {
		return page, true, nil
	}
	key := c.buildKey(index, query, sortSpec, start, stop)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if page, ok := c.Get(ctx, index, query, sortSpec, start, stop); ok {
			return page, nil
		}
		page, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, index, query, sortSpec, start, stop, page)
		return page, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Page), false, nil
}

// Invalidate drops every cached page. Call after bulk reindexing.
func (c *PageCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating page cache: %w", err)
	}
	c.logger.Info("page cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *PageCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *PageCache) buildKey(index, query, sortSpec string, start, stop int64) string {
	raw := fmt.Sprintf("%s|%s|%s|%d|%d", index, normalizeQuery(query), sortSpec, start, stop)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuery renders the parsed term algebra in canonical order so that
// queries differing only in term order share a cache entry.
func normalizeQuery(query string) string {
	q := parser.Parse(query)
	want := make([]string, 0, len(q.Want))
	for term := range q.Want {
		want = append(want, term.Field+":"+term.Value)
	}
	unwant := make([]string, 0, len(q.Unwant))
	for term := range q.Unwant {
		unwant = append(unwant, term.Field+":"+term.Value)
	}
	sort.Strings(want)
	sort.Strings(unwant)
	parts := []string{strings.Join(want, ",")}
	if len(unwant) > 0 {
		parts = append(parts, "NOT:"+strings.Join(unwant, ","))
	}
	return strings.Join(parts, "|")
}
