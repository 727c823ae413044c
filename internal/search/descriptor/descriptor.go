// Package descriptor drives the indexing API from typed per-document-type
// descriptors. An application registers one Descriptor per document type,
// listing each field's accessor and sortable flag, and calls Save, Update,
// or Delete from its own handlers after the domain write succeeds. There is
// no interception or reflection; indexing is an ordinary call sequence.
package descriptor

import (
	"context"
	"fmt"

	"github.com/pooi/redsearch/internal/search/engine"
	"github.com/pooi/redsearch/internal/search/tokenizer"
)

// Indexer is the slice of the engine the descriptor machinery calls.
type Indexer interface {
	WriteFieldMeta(ctx context.Context, index string, fields map[string]engine.FieldMeta) error
	IndexDocument(ctx context.Context, index, field, documentID, text string, tok tokenizer.Tokenizer) (int, error)
	IndexSortField(ctx context.Context, index, field, documentID string, score float64) error
	DeleteDocumentIndex(ctx context.Context, index, documentID string) (int, error)
}

// FieldSpec describes one indexed field of a document type.
type FieldSpec[T any] struct {
	Name     string
	Sortable bool
	// Value extracts the field's text, indexed under tokenizer units.
	Value func(T) string
	// Score extracts the numeric score for sortable fields. Required when
	// Sortable is true.
	Score func(T) float64
	// Tokenizer overrides the engine default for this field. Optional.
	Tokenizer tokenizer.Tokenizer
}

// Descriptor binds a document type to an index: its name, id accessor, and
// field specs.
type Descriptor[T any] struct {
	Index  string
	ID     func(T) string
	Fields []FieldSpec[T]
}

// meta builds the FieldMeta map the descriptor registers on every save.
func (d *Descriptor[T]) meta() map[string]engine.FieldMeta {
	m := make(map[string]engine.FieldMeta, len(d.Fields))
	for _, f := range d.Fields {
		m[f.Name] = engine.FieldMeta{Sortable: f.Sortable}
	}
	return m
}

// Save registers field metadata and indexes every field of doc: token
// entries for the field text and, for sortable fields, a scored sorted-set
// entry as well.
func (d *Descriptor[T]) Save(ctx context.Context, ix Indexer, doc T) error {
	if err := ix.WriteFieldMeta(ctx, d.Index, d.meta()); err != nil {
		return err
	}
	id := d.ID(doc)
	for _, f := range d.Fields {
		tok := f.Tokenizer
		if tok == nil && f.Sortable {
			// The query planner matches sortable fields as whole values, so
			// their token entries must be whole values too.
			tok = tokenizer.Whole
		}
		if _, err := ix.IndexDocument(ctx, d.Index, f.Name, id, f.Value(doc), tok); err != nil {
			return fmt.Errorf("indexing field %s: %w", f.Name, err)
		}
		if f.Sortable {
			if f.Score == nil {
				return fmt.Errorf("field %s is sortable but has no score accessor", f.Name)
			}
			if err := ix.IndexSortField(ctx, d.Index, f.Name, id, f.Score(doc)); err != nil {
				return fmt.Errorf("indexing sort field %s: %w", f.Name, err)
			}
		}
	}
	return nil
}

// Update removes the document's existing index footprint, then indexes doc
// as Save does. The delete and reindex are separate pipelines; a crash
// between them leaves the document un-indexed until the caller retries.
func (d *Descriptor[T]) Update(ctx context.Context, ix Indexer, doc T) error {
	if _, err := ix.DeleteDocumentIndex(ctx, d.Index, d.ID(doc)); err != nil {
		return err
	}
	return d.Save(ctx, ix, doc)
}

// Delete removes the document's index footprint. Deleting a document that
// was never indexed is a no-op.
func (d *Descriptor[T]) Delete(ctx context.Context, ix Indexer, documentID string) error {
	_, err := ix.DeleteDocumentIndex(ctx, d.Index, documentID)
	return err
}
