package streamable

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/mcpi-go/mcpi/internal/mcp"
)

// subscriberBufferCapacity bounds each subscriber's queue (§4.9: "recommended
// capacity 32"). The producer never blocks on a slow subscriber; it drops
// that subscriber's oldest buffered event instead (§4.9 backpressure: "MUST
// NOT drop events globally — only per slow subscriber").
const subscriberBufferCapacity = 32

// Broadcaster fans a session's events out to N independent SSE subscribers.
// Grounded on the teacher's gateway.SSEHub, generalized from "one shared
// channel fed into a blocking WriteEvent loop" (which can stall every
// subscriber behind the slowest) to one buffered channel per subscriber, so
// a lagging reader only loses its own events.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[uint64]*subscription
	nextSubID   uint64
	nextEventID uint64
	closed      bool
}

type subscription struct {
	ch chan *mcp.SSEEvent
}

// NewBroadcaster builds an empty, open broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[uint64]*subscription)}
}

// Subscribe registers a new subscriber and returns its event channel plus an
// unsubscribe function the caller must invoke when done reading.
func (b *Broadcaster) Subscribe() (<-chan *mcp.SSEEvent, func()) {
	sub := &subscription{ch: make(chan *mcp.SSEEvent, subscriberBufferCapacity)}

	b.mu.Lock()
	id := b.nextSubID
	b.nextSubID++
	b.subscribers[id] = sub
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		_, stillPresent := b.subscribers[id]
		if stillPresent {
			delete(b.subscribers, id)
		}
		b.mu.Unlock()
		// Close() may have already removed and closed this subscriber's
		// channel; closing it again here would panic.
		if stillPresent {
			close(sub.ch)
		}
	}
	return sub.ch, unsubscribe
}

// Publish assigns the event the next monotonic id (if it doesn't already
// carry one) and delivers it to every subscriber, dropping that
// subscriber's oldest queued event first if its buffer is full.
func (b *Broadcaster) Publish(event *mcp.SSEEvent) {
	if event.ID == "" {
		id := atomic.AddUint64(&b.nextEventID, 1)
		event.ID = strconv.FormatUint(id, 10)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		deliver(sub.ch, event)
	}
}

func deliver(ch chan *mcp.SSEEvent, event *mcp.SSEEvent) {
	for {
		select {
		case ch <- event:
			return
		default:
			select {
			case <-ch:
				log.Warn().Msg("sse subscriber lagging, dropped oldest buffered event")
			default:
				return
			}
		}
	}
}

// Close terminates every subscriber channel. Subscribers observe this as a
// closed channel and should end their stream.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}
