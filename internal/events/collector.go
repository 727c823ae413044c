package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pooi/redsearch/pkg/kafka"
	"github.com/pooi/redsearch/pkg/logger"
)

// publisher is the slice of the Kafka producer the collector calls.
type publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector buffers events and publishes them to Kafka from a background
// goroutine. Track never blocks the request path: when the buffer is full,
// or after Close, the event is dropped.
type Collector struct {
	producer publisher
	eventCh  chan interface{}
	logger   *slog.Logger
	done     chan struct{}
	mu       sync.RWMutex
	closed   bool
}

func NewCollector(producer publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan interface{}, bufferSize),
		logger:   logger.WithComponent("events-collector"),
		done:     make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				if err := c.producer.Publish(ctx, kafka.Event{
					Key:   "search-events",
					Value: event,
				}); err != nil {
					c.logger.Error("failed to publish event", "error", err)
				}
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("events collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues an event for publication. Events tracked after Close, or
// while the buffer is full, are dropped. Handlers may still be in flight
// when shutdown begins, so the closed check and the send hold the same
// read lock Close takes exclusively.
func (c *Collector) Track(event interface{}) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("event dropped (buffer full)")
	}
}

// Close stops accepting events, closes the channel, and waits for the
// publishing goroutine to finish. Safe to call more than once.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	close(c.eventCh)
	<-c.done
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			if err := c.producer.Publish(context.Background(), kafka.Event{
				Key:   "search-events",
				Value: event,
			}); err != nil {
				c.logger.Error("failed to publish remaining event", "error", err)
			}
		default:
			return
		}
	}
}
