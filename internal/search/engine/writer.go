package engine

import (
	"context"
	"fmt"

	"github.com/pooi/redsearch/internal/search/keys"
	"github.com/pooi/redsearch/internal/search/tokenizer"
	"github.com/redis/go-redis/v9"
)

// IndexDocument tokenizes text and adds documentID to the token set of every
// produced token, recording each touched key in the document's footprint.
// All writes happen in one atomic pipeline. A nil tok selects the default
// character tokenizer.
//
// The returned count of touched token keys is informational; callers must
// not rely on it for correctness.
func (e *Engine) IndexDocument(ctx context.Context, index, field, documentID, text string, tok tokenizer.Tokenizer) (int, error) {
	if tok == nil {
		tok = e.tokenize
	}
	tokens := tok(text)
	docKey := keys.DocFootprint(e.prefix, index, documentID)

	idxKeys := make([]interface{}, 0, len(tokens))
	_, err := e.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, t := range tokens {
			k := keys.Token(e.prefix, index, field, t)
			pipe.SAdd(ctx, k, documentID)
			idxKeys = append(idxKeys, k)
		}
		if len(idxKeys) > 0 {
			pipe.SAdd(ctx, docKey, idxKeys...)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("indexing %s/%s field %s: %w", index, documentID, field, err)
	}
	if e.metrics != nil {
		e.metrics.IndexWritesTotal.WithLabelValues("token").Inc()
		e.metrics.IndexKeysTouched.Add(float64(len(idxKeys)))
	}
	e.logger.Debug("indexed document field",
		"index", index,
		"field", field,
		"document_id", documentID,
		"tokens", len(idxKeys),
	)
	return len(idxKeys), nil
}

// IndexSortField writes (documentID, score) into the field's sorted set and
// records the sort key in the document's footprint, atomically. Re-indexing
// the same (document, field) overwrites the previous score; sorted sets keep
// a single membership per document.
func (e *Engine) IndexSortField(ctx context.Context, index, field, documentID string, score float64) error {
	sortKey := keys.Sort(e.prefix, index, field)
	docKey := keys.DocFootprint(e.prefix, index, documentID)

	_, err := e.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, sortKey, redis.Z{Score: score, Member: documentID})
		pipe.SAdd(ctx, docKey, sortKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("indexing sort field %s/%s for %s: %w", index, field, documentID, err)
	}
	if e.metrics != nil {
		e.metrics.IndexWritesTotal.WithLabelValues("sort").Inc()
		e.metrics.IndexKeysTouched.Add(2)
	}
	return nil
}

// DeleteDocumentIndex removes every index key recorded in the document's
// footprint, then the footprint itself, in one atomic pipeline. It is the
// sole cleanup path: the write path never diffs old against new state, so
// this must run before any reindex of a previously indexed document.
//
// A document with no footprint is a no-op returning 0. Otherwise the count
// of removed keys (footprint members plus the footprint key) is returned.
func (e *Engine) DeleteDocumentIndex(ctx context.Context, index, documentID string) (int, error) {
	docKey := keys.DocFootprint(e.prefix, index, documentID)

	exists, err := e.store.Exists(ctx, docKey)
	if err != nil {
		return 0, fmt.Errorf("checking footprint %s: %w", docKey, err)
	}
	if !exists {
		return 0, nil
	}

	members, err := e.store.SMembers(ctx, docKey)
	if err != nil {
		return 0, fmt.Errorf("reading footprint %s: %w", docKey, err)
	}

	_, err = e.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(members) > 0 {
			pipe.Del(ctx, members...)
		}
		pipe.Del(ctx, docKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("deleting index footprint %s: %w", docKey, err)
	}
	if e.metrics != nil {
		e.metrics.DocsDeletedTotal.Inc()
	}
	e.logger.Debug("deleted document index",
		"index", index,
		"document_id", documentID,
		"keys_removed", len(members)+1,
	)
	return len(members) + 1, nil
}

// UpdateDocumentIndex is a delete-then-reindex convenience wrapper. The pair
// is NOT atomic: a crash after the delete leaves the document un-indexed
// until the caller retries. Callers that care must serialize updates per
// document id.
func (e *Engine) UpdateDocumentIndex(ctx context.Context, index, field, documentID, text string, tok tokenizer.Tokenizer) (int, error) {
	if _, err := e.DeleteDocumentIndex(ctx, index, documentID); err != nil {
		return 0, err
	}
	return e.IndexDocument(ctx, index, field, documentID, text, tok)
}

// UpdateSortField is the sortable-field counterpart of UpdateDocumentIndex,
// with the same non-atomicity caveat.
func (e *Engine) UpdateSortField(ctx context.Context, index, field, documentID string, score float64) error {
	if _, err := e.DeleteDocumentIndex(ctx, index, documentID); err != nil {
		return err
	}
	return e.IndexSortField(ctx, index, field, documentID, score)
}

// DropIndex deletes every key belonging to an index: token and sort sets,
// document footprints, in-flight query results, and the metadata hash.
// Intended for administrative cleanup, not the document lifecycle.
func (e *Engine) DropIndex(ctx context.Context, index string) (int64, error) {
	var removed int64
	for _, pattern := range keys.IndexPatterns(e.prefix, index) {
		n, err := e.store.FlushByPattern(ctx, pattern)
		removed += n
		if err != nil {
			return removed, fmt.Errorf("dropping index %s: %w", index, err)
		}
	}
	e.logger.Info("dropped index", "index", index, "keys_removed", removed)
	return removed, nil
}
