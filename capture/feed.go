package capture

import (
	"context"
	"sync"
)

// DefaultFeedCapacity bounds the number of events buffered between a source
// and its consumer.
const DefaultFeedCapacity = 256

// Feed is a bounded queue between one Source and one consumer. The source
// blocks when the queue is full.
type Feed struct {
	ch   chan Event
	once sync.Once
	done chan struct{}
	err  error
}

// NewFeed creates a feed. A non-positive capacity uses DefaultFeedCapacity.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &Feed{
		ch:   make(chan Event, capacity),
		done: make(chan struct{}),
	}
}

// Start runs src in a goroutine. The event channel is closed when src
// returns, after which Err reports its result.
func (f *Feed) Start(ctx context.Context, src Source) {
	go func() {
		err := src.Run(ctx, f.ch)
		f.finish(err)
	}()
}

func (f *Feed) finish(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.ch)
		close(f.done)
	})
}

// Events returns the receive side. It is closed once the source ends.
func (f *Feed) Events() <-chan Event { return f.ch }

// Done is closed once the source has returned.
func (f *Feed) Done() <-chan struct{} { return f.done }

// Err is the source's result. Only meaningful after Done is closed.
func (f *Feed) Err() error {
	<-f.done
	return f.err
}

// Len is the number of buffered events.
func (f *Feed) Len() int { return len(f.ch) }

// Cap is the feed capacity.
func (f *Feed) Cap() int { return cap(f.ch) }
