package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pooi/redsearch/internal/search/engine"
	"github.com/pooi/redsearch/internal/search/tokenizer"
	"github.com/pooi/redsearch/pkg/config"
)

// fakeEngine serves canned results and records the last search arguments.
type fakeEngine struct {
	searchIDs  []string
	searchErr  error
	lastIndex  string
	lastQuery  string
	lastSort   string
	lastStart  int64
	lastStop   int64
	deleted    int
	docIndexed bool
}

func (f *fakeEngine) WriteFieldMeta(context.Context, string, map[string]engine.FieldMeta) error {
	return nil
}

func (f *fakeEngine) IndexDocument(_ context.Context, _, _, _, _ string, _ tokenizer.Tokenizer) (int, error) {
	f.docIndexed = true
	return 3, nil
}

func (f *fakeEngine) IndexSortField(context.Context, string, string, string, float64) error {
	return nil
}

func (f *fakeEngine) DeleteDocumentIndex(context.Context, string, string) (int, error) {
	f.deleted++
	return 2, nil
}

func (f *fakeEngine) UpdateDocumentIndex(_ context.Context, _, _, _, _ string, _ tokenizer.Tokenizer) (int, error) {
	f.deleted++
	f.docIndexed = true
	return 3, nil
}

func (f *fakeEngine) DropIndex(context.Context, string) (int64, error) {
	return 5, nil
}

func (f *fakeEngine) Search(_ context.Context, index, query, sortSpec string, start, stop int64) ([]string, error) {
	f.lastIndex, f.lastQuery, f.lastSort = index, query, sortSpec
	f.lastStart, f.lastStop = start, stop
	return f.searchIDs, f.searchErr
}

func newTestServer(t *testing.T, f *fakeEngine) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	New(f, nil, nil, config.SearchConfig{DefaultLimit: 10, MaxResults: 100}).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchEndpoint(t *testing.T) {
	f := &fakeEngine{searchIDs: []string{"1", "2"}}
	srv := newTestServer(t, f)

	resp, err := http.Get(srv.URL + "/api/v1/search/person?q=age:30,40&sort=%2Bage&start=0&stop=-1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Results []string `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.Results) != 2 {
		t.Errorf("results = %v", body.Results)
	}
	if f.lastIndex != "person" || f.lastQuery != "age:30,40" || f.lastSort != "+age" {
		t.Errorf("engine called with index=%q query=%q sort=%q", f.lastIndex, f.lastQuery, f.lastSort)
	}
	if f.lastStart != 0 || f.lastStop != -1 {
		t.Errorf("window = [%d, %d]", f.lastStart, f.lastStop)
	}
}

func TestSearchRequiresQueryAndSort(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{})

	for _, url := range []string{
		"/api/v1/search/person",
		"/api/v1/search/person?q=age:30",
		"/api/v1/search/person?sort=age",
	} {
		resp, err := http.Get(srv.URL + url)
		if err != nil {
			t.Fatalf("request %s: %v", url, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", url, resp.StatusCode)
		}
	}
}

func TestSearchWindowDefaultsToOnePage(t *testing.T) {
	f := &fakeEngine{searchIDs: []string{"1"}}
	srv := newTestServer(t, f)

	resp, err := http.Get(srv.URL + "/api/v1/search/person?q=age:30&sort=age")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if f.lastStart != 0 || f.lastStop != 9 {
		t.Errorf("window = [%d, %d], want [0, 9]", f.lastStart, f.lastStop)
	}
}

func TestSearchWindowCappedAtMaxResults(t *testing.T) {
	f := &fakeEngine{searchIDs: []string{"1"}}
	srv := newTestServer(t, f)

	resp, err := http.Get(srv.URL + "/api/v1/search/person?q=age:30&sort=age&start=5&stop=100000")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if f.lastStart != 5 || f.lastStop != 104 {
		t.Errorf("window = [%d, %d], want [5, 104]", f.lastStart, f.lastStop)
	}
}

func TestSearchNegativeStopPassesThrough(t *testing.T) {
	f := &fakeEngine{searchIDs: []string{"1"}}
	srv := newTestServer(t, f)

	resp, err := http.Get(srv.URL + "/api/v1/search/person?q=age:30&sort=age&start=0&stop=-1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if f.lastStop != -1 {
		t.Errorf("stop = %d, negative indices must reach the engine unchanged", f.lastStop)
	}
}

func TestSearchRejectsBadWindow(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{})

	resp, err := http.Get(srv.URL + "/api/v1/search/person?q=age:30&sort=age&start=abc")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestIndexDocEndpoint(t *testing.T) {
	f := &fakeEngine{}
	srv := newTestServer(t, f)

	payload, _ := json.Marshal(map[string]any{
		"document_id": "1",
		"field":       "name",
		"text":        "ann",
	})
	resp, err := http.Post(srv.URL+"/api/v1/index/person/doc", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !f.docIndexed {
		t.Error("engine.IndexDocument was not called")
	}

	var body map[string]int
	json.NewDecoder(resp.Body).Decode(&body)
	if body["keys_touched"] != 3 {
		t.Errorf("keys_touched = %d", body["keys_touched"])
	}
}

func TestIndexDocRejectsMissingFields(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{})

	resp, err := http.Post(srv.URL+"/api/v1/index/person/doc", "application/json",
		bytes.NewReader([]byte(`{"text":"ann"}`)))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDeleteDocEndpoint(t *testing.T) {
	f := &fakeEngine{}
	srv := newTestServer(t, f)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/index/person/doc/7", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if f.deleted != 1 {
		t.Errorf("delete calls = %d", f.deleted)
	}
}
