package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pooi/redsearch/internal/docstore"
	"github.com/pooi/redsearch/internal/search/descriptor"
	pkgerrors "github.com/pooi/redsearch/pkg/errors"
	"github.com/pooi/redsearch/pkg/logger"
)

// PersonDescriptor indexes the demo person type: name under character
// tokens, age and ctime as sortable scores.
var PersonDescriptor = descriptor.Descriptor[docstore.Person]{
	Index: "person",
	ID: func(p docstore.Person) string {
		return strconv.FormatInt(p.ID, 10)
	},
	Fields: []descriptor.FieldSpec[docstore.Person]{
		{
			Name:  "name",
			Value: func(p docstore.Person) string { return p.Name },
		},
		{
			Name:     "age",
			Sortable: true,
			Value:    func(p docstore.Person) string { return strconv.FormatInt(p.Age, 10) },
			Score:    func(p docstore.Person) float64 { return float64(p.Age) },
		},
		{
			Name:     "ctime",
			Sortable: true,
			Value:    func(p docstore.Person) string { return strconv.FormatInt(p.Ctime, 10) },
			Score:    func(p docstore.Person) float64 { return float64(p.Ctime) },
		},
	},
}

// PersonHandler serves the demo document type: the domain write goes to
// PostgreSQL first, then the same handler calls the indexing API. No
// interception; the sequence is explicit.
type PersonHandler struct {
	store   *docstore.PersonStore
	indexer descriptor.Indexer
}

func NewPersonHandler(store *docstore.PersonStore, indexer descriptor.Indexer) *PersonHandler {
	return &PersonHandler{store: store, indexer: indexer}
}

func (h *PersonHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/person", h.Create)
	mux.HandleFunc("PUT /api/v1/person/{id}", h.Update)
	mux.HandleFunc("GET /api/v1/person/{id}", h.Get)
	mux.HandleFunc("DELETE /api/v1/person/{id}", h.Delete)
}

func (h *PersonHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p docstore.Person
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	p.ID = 0
	if p.Ctime == 0 {
		p.Ctime = time.Now().UnixMilli()
	}

	saved, err := h.store.Save(r.Context(), p)
	if err != nil {
		h.fail(w, r, "saving person", err)
		return
	}
	if err := PersonDescriptor.Save(r.Context(), h.indexer, saved); err != nil {
		h.fail(w, r, "indexing person", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *PersonHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	var p docstore.Person
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	p.ID = id

	saved, err := h.store.Save(r.Context(), p)
	if err != nil {
		h.fail(w, r, "updating person", err)
		return
	}
	if err := PersonDescriptor.Update(r.Context(), h.indexer, saved); err != nil {
		h.fail(w, r, "reindexing person", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *PersonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	p, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "loading person", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PersonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	parsed, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	if err := h.store.Delete(r.Context(), parsed); err != nil {
		h.fail(w, r, "deleting person", err)
		return
	}
	if err := PersonDescriptor.Delete(r.Context(), h.indexer, id); err != nil {
		h.fail(w, r, "removing person index", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *PersonHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.FromContext(r.Context()).Error(msg, "error", err)
	status := pkgerrors.HTTPStatusCode(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, msg+" failed")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
