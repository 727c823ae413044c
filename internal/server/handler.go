// Package server exposes the index and query engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pooi/redsearch/internal/events"
	"github.com/pooi/redsearch/internal/search/cache"
	"github.com/pooi/redsearch/internal/search/engine"
	"github.com/pooi/redsearch/internal/search/tokenizer"
	"github.com/pooi/redsearch/pkg/config"
	"github.com/pooi/redsearch/pkg/logger"
	"github.com/pooi/redsearch/pkg/middleware"
)

// SearchEngine is the slice of the engine the HTTP layer calls.
type SearchEngine interface {
	WriteFieldMeta(ctx context.Context, index string, fields map[string]engine.FieldMeta) error
	IndexDocument(ctx context.Context, index, field, documentID, text string, tok tokenizer.Tokenizer) (int, error)
	IndexSortField(ctx context.Context, index, field, documentID string, score float64) error
	DeleteDocumentIndex(ctx context.Context, index, documentID string) (int, error)
	UpdateDocumentIndex(ctx context.Context, index, field, documentID, text string, tok tokenizer.Tokenizer) (int, error)
	DropIndex(ctx context.Context, index string) (int64, error)
	Search(ctx context.Context, index, query, sortSpec string, start, stop int64) ([]string, error)
}

type Handler struct {
	engine       SearchEngine
	cache        *cache.PageCache
	collector    *events.Collector
	logger       *slog.Logger
	defaultLimit int64
	maxResults   int64
}

func New(eng SearchEngine, pageCache *cache.PageCache, collector *events.Collector, cfg config.SearchConfig) *Handler {
	defaultLimit := int64(cfg.DefaultLimit)
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	maxResults := int64(cfg.MaxResults)
	if maxResults <= 0 {
		maxResults = 100
	}
	return &Handler{
		engine:       eng,
		cache:        pageCache,
		collector:    collector,
		logger:       logger.WithComponent("http-handler"),
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
	}
}

// Register wires every route onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/index/{index}/meta", h.WriteMeta)
	mux.HandleFunc("POST /api/v1/index/{index}/doc", h.IndexDoc)
	mux.HandleFunc("POST /api/v1/index/{index}/sort", h.IndexSort)
	mux.HandleFunc("PATCH /api/v1/index/{index}/doc", h.UpdateDoc)
	mux.HandleFunc("DELETE /api/v1/index/{index}/doc/{id}", h.DeleteDoc)
	mux.HandleFunc("DELETE /api/v1/index/{index}", h.DropIndex)
	mux.HandleFunc("GET /api/v1/search/{index}", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type metaRequest struct {
	Fields map[string]struct {
		Sortable bool `json:"sortable"`
	} `json:"fields"`
}

func (h *Handler) WriteMeta(w http.ResponseWriter, r *http.Request) {
	index := r.PathValue("index")
	var req metaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Fields) == 0 {
		h.writeError(w, http.StatusBadRequest, "body must carry a non-empty fields map")
		return
	}
	fields := make(map[string]engine.FieldMeta, len(req.Fields))
	for name, f := range req.Fields {
		fields[name] = engine.FieldMeta{Sortable: f.Sortable}
	}
	if err := h.engine.WriteFieldMeta(r.Context(), index, fields); err != nil {
		h.serverError(w, r, "writing field meta", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"index": index, "fields": len(fields)})
}

type indexRequest struct {
	DocumentID string  `json:"document_id"`
	Field      string  `json:"field"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	// Whole indexes the text as one atomic token instead of tokenizer
	// units. Required for fields the planner matches as whole values.
	Whole bool `json:"whole"`
}

func (req *indexRequest) tok() tokenizer.Tokenizer {
	if req.Whole {
		return tokenizer.Whole
	}
	return nil
}

func (req *indexRequest) valid() bool {
	return req.DocumentID != "" && req.Field != ""
}

func (h *Handler) IndexDoc(w http.ResponseWriter, r *http.Request) {
	index := r.PathValue("index")
	start := time.Now()
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.valid() {
		h.writeError(w, http.StatusBadRequest, "document_id and field are required")
		return
	}
	touched, err := h.engine.IndexDocument(r.Context(), index, req.Field, req.DocumentID, req.Text, req.tok())
	if err != nil {
		h.serverError(w, r, "indexing document", err)
		return
	}
	h.trackIndexEvent(r.Context(), events.EventIndexDoc, index, req.DocumentID, touched, start)
	h.writeJSON(w, http.StatusOK, map[string]any{"keys_touched": touched})
}

func (h *Handler) IndexSort(w http.ResponseWriter, r *http.Request) {
	index := r.PathValue("index")
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.valid() {
		h.writeError(w, http.StatusBadRequest, "document_id and field are required")
		return
	}
	if err := h.engine.IndexSortField(r.Context(), index, req.Field, req.DocumentID, req.Score); err != nil {
		h.serverError(w, r, "indexing sort field", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"indexed": true})
}

func (h *Handler) UpdateDoc(w http.ResponseWriter, r *http.Request) {
	index := r.PathValue("index")
	start := time.Now()
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.valid() {
		h.writeError(w, http.StatusBadRequest, "document_id and field are required")
		return
	}
	touched, err := h.engine.UpdateDocumentIndex(r.Context(), index, req.Field, req.DocumentID, req.Text, req.tok())
	if err != nil {
		h.serverError(w, r, "updating document index", err)
		return
	}
	h.trackIndexEvent(r.Context(), events.EventIndexDoc, index, req.DocumentID, touched, start)
	h.writeJSON(w, http.StatusOK, map[string]any{"keys_touched": touched})
}

func (h *Handler) DeleteDoc(w http.ResponseWriter, r *http.Request) {
	index := r.PathValue("index")
	id := r.PathValue("id")
	start := time.Now()
	removed, err := h.engine.DeleteDocumentIndex(r.Context(), index, id)
	if err != nil {
		h.serverError(w, r, "deleting document index", err)
		return
	}
	h.trackIndexEvent(r.Context(), events.EventDeleteDoc, index, id, removed, start)
	h.writeJSON(w, http.StatusOK, map[string]any{"keys_removed": removed})
}

func (h *Handler) DropIndex(w http.ResponseWriter, r *http.Request) {
	index := r.PathValue("index")
	removed, err := h.engine.DropIndex(r.Context(), index)
	if err != nil {
		h.serverError(w, r, "dropping index", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"keys_removed": removed})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	index := r.PathValue("index")
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	sortSpec := r.URL.Query().Get("sort")
	if sortSpec == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'sort' is required")
		return
	}
	from, ok := h.windowParam(w, r, "start", 0)
	if !ok {
		return
	}
	// An absent stop yields one default-sized page; an explicit window is
	// capped at maxResults so a caller cannot request an unbounded page.
	to, ok := h.windowParam(w, r, "stop", from+h.defaultLimit-1)
	if !ok {
		return
	}
	if from >= 0 && to >= from && to-from+1 > h.maxResults {
		to = from + h.maxResults - 1
	}

	var ids []string
	var err error
	cacheHit := false
	if h.cache != nil {
		var page *cache.Page
		page, cacheHit, err = h.cache.GetOrCompute(ctx, index, query, sortSpec, from, to, func() (*cache.Page, error) {
			got, serr := h.engine.Search(ctx, index, query, sortSpec, from, to)
			if serr != nil {
				return nil, serr
			}
			return &cache.Page{IDs: got}, nil
		})
		if page != nil {
			ids = page.IDs
		}
	} else {
		ids, err = h.engine.Search(ctx, index, query, sortSpec, from, to)
	}
	if err != nil {
		log.Error("search failed", "index", index, "query", query, "error", err)
		h.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if ids == nil {
		ids = []string{}
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"index", index,
		"query", query,
		"returned", len(ids),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	if h.collector != nil {
		eventType := events.EventQuery
		if len(ids) == 0 {
			eventType = events.EventZeroResult
		}
		h.collector.Track(events.QueryEvent{
			Type:      eventType,
			Index:     index,
			Query:     query,
			SortSpec:  sortSpec,
			Returned:  len(ids),
			CacheHit:  cacheHit,
			LatencyMs: latencyMs,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"index":   index,
		"query":   query,
		"results": ids,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusNotFound, "cache disabled")
		return
	}
	hits, misses := h.cache.Stats()
	h.writeJSON(w, http.StatusOK, map[string]any{"hits": hits, "misses": misses})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusNotFound, "cache disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.serverError(w, r, "invalidating cache", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"invalidated": true})
}

func (h *Handler) windowParam(w http.ResponseWriter, r *http.Request, name string, def int64) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return v, true
}

func (h *Handler) trackIndexEvent(ctx context.Context, t events.EventType, index, documentID string, keys int, start time.Time) {
	if h.collector == nil {
		return
	}
	h.collector.Track(events.IndexEvent{
		Type:        t,
		Index:       index,
		DocumentID:  documentID,
		KeysTouched: keys,
		LatencyMs:   time.Since(start).Milliseconds(),
		Timestamp:   time.Now().UTC(),
		RequestID:   middleware.GetRequestID(ctx),
	})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.FromContext(r.Context()).Error(msg, "error", err)
	h.writeError(w, http.StatusInternalServerError, msg+" failed")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("writing response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
