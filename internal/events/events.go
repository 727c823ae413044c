// Package events publishes search and indexing analytics to Kafka through a
// buffered, non-blocking collector.
package events

import "time"

type EventType string

const (
	EventQuery      EventType = "query"
	EventZeroResult EventType = "zero_result"
	EventIndexDoc   EventType = "index_document"
	EventDeleteDoc  EventType = "delete_document"
)

type QueryEvent struct {
	Type      EventType `json:"type"`
	Index     string    `json:"index"`
	Query     string    `json:"query"`
	SortSpec  string    `json:"sort_spec"`
	Returned  int       `json:"returned"`
	CacheHit  bool      `json:"cache_hit"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

type IndexEvent struct {
	Type        EventType `json:"type"`
	Index       string    `json:"index"`
	DocumentID  string    `json:"document_id"`
	KeysTouched int       `json:"keys_touched"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id"`
}
