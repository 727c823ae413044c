package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pooi/redsearch/internal/search/keys"
)

// FieldMeta describes how one field of an index is treated at query time.
// Sortable fields carry a per-document numeric score in a sorted set and are
// matched as whole values; everything else is tokenizer-decomposed.
type FieldMeta struct {
	Sortable bool `json:"sortable"`
	// TokenizerTag is reserved for selecting a non-default tokenizer.
	TokenizerTag string `json:"tokenizer,omitempty"`
}

// WriteFieldMeta persists field metadata for an index. Writes are idempotent:
// re-registering a field overwrites its previous entry in the same hash.
func (e *Engine) WriteFieldMeta(ctx context.Context, index string, fields map[string]FieldMeta) error {
	if len(fields) == 0 {
		return nil
	}
	metaKey := keys.Meta(e.prefix, index)
	values := make(map[string]string, len(fields))
	for name, fm := range fields {
		data, err := json.Marshal(fm)
		if err != nil {
			return fmt.Errorf("marshaling meta for field %s: %w", name, err)
		}
		values[name] = string(data)
	}
	e.logger.Info("writing field meta", "key", metaKey, "fields", len(values))
	if err := e.store.HSet(ctx, metaKey, values); err != nil {
		return fmt.Errorf("writing field meta %s: %w", metaKey, err)
	}
	if e.metrics != nil {
		e.metrics.IndexWritesTotal.WithLabelValues("meta").Inc()
	}
	return nil
}

// readFieldMeta loads the metadata hash for an index. Fields with no entry
// are simply absent from the map; lookups fall back to the zero FieldMeta,
// which treats the field as non-sortable.
func (e *Engine) readFieldMeta(ctx context.Context, index string) (map[string]FieldMeta, error) {
	raw, err := e.store.HGetAll(ctx, keys.Meta(e.prefix, index))
	if err != nil {
		return nil, fmt.Errorf("reading field meta for %s: %w", index, err)
	}
	meta := make(map[string]FieldMeta, len(raw))
	for name, data := range raw {
		var fm FieldMeta
		if err := json.Unmarshal([]byte(data), &fm); err != nil {
			// A corrupt entry degrades to the non-sortable default.
			e.logger.Warn("skipping malformed field meta", "index", index, "field", name, "error", err)
			continue
		}
		meta[name] = fm
	}
	return meta, nil
}
