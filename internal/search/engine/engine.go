// Package engine implements the inverted-index search engine on top of
// Redis set algebra: document indexing into token sets and sortable sorted
// sets, query evaluation through ephemeral TTL-bounded result keys, and
// weighted multi-field ranking.
package engine

import (
	"log/slog"
	"time"

	"github.com/pooi/redsearch/internal/search/tokenizer"
	"github.com/pooi/redsearch/pkg/config"
	"github.com/pooi/redsearch/pkg/logger"
	"github.com/pooi/redsearch/pkg/metrics"
	pkgredis "github.com/pooi/redsearch/pkg/redis"
)

// Engine evaluates index writes and queries against a single Redis
// namespace. It holds no mutable state of its own; every operation is an
// independently invocable unit of work and any number may run concurrently
// over the shared connection pool.
type Engine struct {
	store     *pkgredis.Client
	prefix    string
	resultTTL time.Duration
	tokenize  tokenizer.Tokenizer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates an Engine using cfg.Prefix as the key namespace and
// cfg.ResultTTL as the lifetime of ephemeral result keys. m may be nil.
func New(store *pkgredis.Client, cfg config.SearchConfig, m *metrics.Metrics) *Engine {
	ttl := cfg.ResultTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Engine{
		store:     store,
		prefix:    cfg.Prefix,
		resultTTL: ttl,
		tokenize:  tokenizer.Chars,
		metrics:   m,
		logger:    logger.WithComponent("search-engine"),
	}
}

// ResultTTL returns the configured lifetime of ephemeral result keys.
func (e *Engine) ResultTTL() time.Duration {
	return e.resultTTL
}

// observeStage records a latency sample for one engine stage.
func (e *Engine) observeStage(stage string, start time.Time) {
	if e.metrics != nil {
		e.metrics.QueryLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
