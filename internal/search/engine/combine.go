package engine

import (
	"context"
	"fmt"

	"github.com/pooi/redsearch/internal/search/keys"
	"github.com/redis/go-redis/v9"
)

type combineOp string

const (
	opIntersect combineOp = "intersect"
	opUnion     combineOp = "union"
	opDiff      combineOp = "diff"
)

// combine stores the result of a set operation over srcKeys into a fresh
// ephemeral key and sets its TTL, in one atomic pipeline. The destination is
// never reused: every call allocates a new key, so concurrent queries cannot
// observe each other's intermediate results.
func (e *Engine) combine(ctx context.Context, index string, op combineOp, srcKeys []string) (string, error) {
	dest := keys.Ephemeral(e.prefix, index)

	_, err := e.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		switch op {
		case opIntersect:
			pipe.SInterStore(ctx, dest, srcKeys...)
		case opUnion:
			pipe.SUnionStore(ctx, dest, srcKeys...)
		case opDiff:
			pipe.SDiffStore(ctx, dest, srcKeys...)
		}
		pipe.Expire(ctx, dest, e.resultTTL)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s into %s: %w", op, dest, err)
	}
	if e.metrics != nil {
		e.metrics.EphemeralKeysTotal.WithLabelValues(string(op)).Inc()
	}
	return dest, nil
}

// Intersect stores the intersection of srcKeys into a fresh TTL-bounded key.
func (e *Engine) Intersect(ctx context.Context, index string, srcKeys []string) (string, error) {
	return e.combine(ctx, index, opIntersect, srcKeys)
}

// Union stores the union of srcKeys into a fresh TTL-bounded key.
func (e *Engine) Union(ctx context.Context, index string, srcKeys []string) (string, error) {
	return e.combine(ctx, index, opUnion, srcKeys)
}

// Diff stores srcKeys[0] minus the union of the rest into a fresh
// TTL-bounded key.
func (e *Engine) Diff(ctx context.Context, index string, srcKeys []string) (string, error) {
	return e.combine(ctx, index, opDiff, srcKeys)
}
