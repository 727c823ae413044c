package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pooi/redsearch/internal/search/keys"
	pkgerrors "github.com/pooi/redsearch/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// SortField names one sortable field and the sign of its contribution to
// the composite ranking score: +1 ascending, -1 descending.
type SortField struct {
	Field     string
	Direction int
}

// ParseSortSpec parses the textual sort form: space-separated field names,
// each optionally prefixed '+' or '-' (default '+').
func ParseSortSpec(spec string) []SortField {
	fields := strings.Fields(spec)
	out := make([]SortField, 0, len(fields))
	for _, f := range fields {
		direction := 1
		switch {
		case strings.HasPrefix(f, "-"):
			direction = -1
			f = f[1:]
		case strings.HasPrefix(f, "+"):
			f = f[1:]
		}
		if f == "" {
			continue
		}
		out = append(out, SortField{Field: f, Direction: direction})
	}
	return out
}

// RankAndPaginate orders the documents in resultKey by a weighted sum over
// the named sortable fields and returns the id sequence for the inclusive
// [start, stop] window (negative indices count from the end).
//
// The composite is built with a weighted sorted-set intersection (sum
// aggregation); the result key itself participates at weight 0, constraining
// membership without contributing to the score. Summing weighted scores is a
// best-effort approximation of multi-key ordering, not a lexicographic sort.
//
// An empty or absent result set returns an empty sequence without touching
// the store further.
func (e *Engine) RankAndPaginate(ctx context.Context, index, resultKey string, sortFields []SortField, start, stop int64) ([]string, error) {
	began := time.Now()
	defer e.observeStage("rank", began)

	if len(sortFields) == 0 {
		return nil, pkgerrors.New(pkgerrors.ErrInvalidInput, 400, "sort spec names no fields")
	}
	if resultKey == "" {
		if e.metrics != nil {
			e.metrics.QueriesTotal.WithLabelValues("zero_result").Inc()
		}
		return []string{}, nil
	}

	size, err := e.store.SCard(ctx, resultKey)
	if err != nil {
		return nil, fmt.Errorf("sizing result set %s: %w", resultKey, err)
	}
	if size == 0 {
		if e.metrics != nil {
			e.metrics.QueriesTotal.WithLabelValues("zero_result").Inc()
		}
		return []string{}, nil
	}

	zKeys := make([]string, 0, len(sortFields)+1)
	weights := make([]float64, 0, len(sortFields)+1)
	for _, sf := range sortFields {
		zKeys = append(zKeys, keys.Sort(e.prefix, index, sf.Field))
		weights = append(weights, float64(sf.Direction))
	}
	zKeys = append(zKeys, resultKey)
	weights = append(weights, 0)

	dest := keys.Ephemeral(e.prefix, index)
	_, err = e.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZInterStore(ctx, dest, &redis.ZStore{
			Keys:      zKeys,
			Weights:   weights,
			Aggregate: "SUM",
		})
		pipe.Expire(ctx, dest, e.resultTTL)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ranking into %s: %w", dest, err)
	}
	if e.metrics != nil {
		e.metrics.EphemeralKeysTotal.WithLabelValues("rank").Inc()
	}

	ids, err := e.store.ZRange(ctx, dest, start, stop)
	if err != nil {
		return nil, fmt.Errorf("reading ranked page from %s: %w", dest, err)
	}
	if e.metrics != nil {
		e.metrics.QueriesTotal.WithLabelValues("hit").Inc()
	}
	return ids, nil
}

// Search runs the full query-rank-paginate sequence and returns the ordered
// document ids for the requested window.
func (e *Engine) Search(ctx context.Context, index, query, sortSpec string, start, stop int64) ([]string, error) {
	resultKey, err := e.Query(ctx, index, query)
	if err != nil {
		if e.metrics != nil {
			e.metrics.QueriesTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	return e.RankAndPaginate(ctx, index, resultKey, ParseSortSpec(sortSpec), start, stop)
}
