package descriptor

import (
	"context"
	"strconv"
	"testing"

	"github.com/pooi/redsearch/internal/search/engine"
	"github.com/pooi/redsearch/internal/search/tokenizer"
)

type call struct {
	op    string
	field string
	docID string
	text  string
	score float64
	whole bool
}

// fakeIndexer records the call sequence the descriptor issues.
type fakeIndexer struct {
	calls []call
	meta  map[string]engine.FieldMeta
}

func (f *fakeIndexer) WriteFieldMeta(_ context.Context, _ string, fields map[string]engine.FieldMeta) error {
	f.meta = fields
	f.calls = append(f.calls, call{op: "meta"})
	return nil
}

func (f *fakeIndexer) IndexDocument(_ context.Context, _, field, docID, text string, tok tokenizer.Tokenizer) (int, error) {
	whole := tok != nil && len(tok(text)) == 1 && tok(text)[0] == text
	f.calls = append(f.calls, call{op: "index", field: field, docID: docID, text: text, whole: whole})
	return 1, nil
}

func (f *fakeIndexer) IndexSortField(_ context.Context, _, field, docID string, score float64) error {
	f.calls = append(f.calls, call{op: "sort", field: field, docID: docID, score: score})
	return nil
}

func (f *fakeIndexer) DeleteDocumentIndex(_ context.Context, _, docID string) (int, error) {
	f.calls = append(f.calls, call{op: "delete", docID: docID})
	return 1, nil
}

type thing struct {
	ID   int64
	Name string
	Rank float64
}

var thingDescriptor = Descriptor[thing]{
	Index: "thing",
	ID:    func(t thing) string { return strconv.FormatInt(t.ID, 10) },
	Fields: []FieldSpec[thing]{
		{Name: "name", Value: func(t thing) string { return t.Name }},
		{
			Name:     "rank",
			Sortable: true,
			Value:    func(t thing) string { return strconv.FormatFloat(t.Rank, 'f', -1, 64) },
			Score:    func(t thing) float64 { return t.Rank },
		},
	},
}

func TestSaveOrderAndCalls(t *testing.T) {
	f := &fakeIndexer{}
	doc := thing{ID: 3, Name: "widget", Rank: 7}

	if err := thingDescriptor.Save(context.Background(), f, doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	wantOps := []string{"meta", "index", "index", "sort"}
	if len(f.calls) != len(wantOps) {
		t.Fatalf("calls = %+v, want ops %v", f.calls, wantOps)
	}
	for i, op := range wantOps {
		if f.calls[i].op != op {
			t.Errorf("call %d op = %s, want %s", i, f.calls[i].op, op)
		}
	}
	if !f.meta["rank"].Sortable || f.meta["name"].Sortable {
		t.Errorf("meta = %+v", f.meta)
	}
	if f.calls[3].score != 7 || f.calls[3].docID != "3" {
		t.Errorf("sort call = %+v", f.calls[3])
	}
	// Sortable fields default to whole-value token entries.
	if !f.calls[2].whole {
		t.Errorf("sortable field should index whole values: %+v", f.calls[2])
	}
	if f.calls[1].whole {
		t.Errorf("non-sortable field should use the default tokenizer: %+v", f.calls[1])
	}
}

func TestUpdateDeletesFirst(t *testing.T) {
	f := &fakeIndexer{}
	if err := thingDescriptor.Update(context.Background(), f, thing{ID: 3, Name: "w", Rank: 1}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(f.calls) == 0 || f.calls[0].op != "delete" {
		t.Fatalf("update must delete before reindexing, calls = %+v", f.calls)
	}
}

func TestDeletePassesDocumentID(t *testing.T) {
	f := &fakeIndexer{}
	if err := thingDescriptor.Delete(context.Background(), f, "42"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(f.calls) != 1 || f.calls[0].op != "delete" || f.calls[0].docID != "42" {
		t.Errorf("calls = %+v", f.calls)
	}
}

func TestSaveRejectsSortableWithoutScore(t *testing.T) {
	bad := Descriptor[thing]{
		Index: "thing",
		ID:    func(t thing) string { return "1" },
		Fields: []FieldSpec[thing]{
			{Name: "rank", Sortable: true, Value: func(t thing) string { return "x" }},
		},
	}
	if err := bad.Save(context.Background(), &fakeIndexer{}, thing{}); err == nil {
		t.Fatal("expected error for sortable field without score accessor")
	}
}
