// Package eventsvc fans out change notifications of the class board to live subscribers.
package eventsvc

import (
	"sync"

	"github.com/trezcool/classboard/core"
)

type Kind string

const (
	KindWork      Kind = "work"
	KindNotices   Kind = "notices"
	KindCompleted Kind = "completed"
	KindRefresh   Kind = "refresh" // something changed, reload everything
)

// Event tells subscribers that a collection changed and should be listed again.
type Event struct {
	Kind   Kind   `json:"kind"`
	Source string `json:"source"` // local, storage, remote or poll
	At     int64  `json:"at"`
}

func NewEvent(kind Kind, source string) Event {
	return Event{Kind: kind, Source: source, At: core.NowMillis()}
}

// Hub broadcasts events to every subscriber. Sends never block: a subscriber whose buffer is
// full misses the event and catches up on the next poll.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{subs: make(map[int]chan Event), buffer: buffer}
}

// Subscribe returns the event channel and the func to stop receiving. The channel is closed by either.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.closed = true
}
