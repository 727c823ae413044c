package events

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pooi/redsearch/pkg/kafka"
)

// countingPublisher absorbs published events.
type countingPublisher struct {
	published atomic.Int64
}

func (p *countingPublisher) Publish(context.Context, kafka.Event) error {
	p.published.Add(1)
	return nil
}

func TestTrackAfterCloseIsDropped(t *testing.T) {
	c := NewCollector(&countingPublisher{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	cancel()
	c.Close()

	// Shutdown can begin while request handlers are still running; a
	// straggler Track must be a silent drop, not a send on a closed
	// channel.
	c.Track(QueryEvent{Type: EventQuery, Index: "person"})
}

func TestCloseIsIdempotent(t *testing.T) {
	c := NewCollector(&countingPublisher{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	cancel()
	c.Close()
	c.Close()
}

func TestConcurrentTrackDuringClose(t *testing.T) {
	c := NewCollector(&countingPublisher{}, 2)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Track(IndexEvent{Type: EventIndexDoc, Index: "person"})
			}
		}()
	}
	time.Sleep(time.Millisecond)
	cancel()
	c.Close()
	wg.Wait()
}

func TestTrackedEventsArePublished(t *testing.T) {
	p := &countingPublisher{}
	c := NewCollector(p, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	for i := 0; i < 5; i++ {
		c.Track(QueryEvent{Type: EventQuery, Index: "person"})
	}
	c.Close()

	if got := p.published.Load(); got != 5 {
		t.Errorf("published = %d, want 5", got)
	}
}

func TestTrackNeverBlocksWhenBufferIsFull(t *testing.T) {
	c := NewCollector(&countingPublisher{}, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Track(QueryEvent{Type: EventQuery})
		c.Track(QueryEvent{Type: EventQuery})
		c.Track(QueryEvent{Type: EventQuery})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Track blocked on a full buffer")
	}
}
