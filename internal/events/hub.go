package events

import (
	"sync"
	"time"
)

// Kind classifies a verification outcome.
type Kind string

const (
	KindAccepted Kind = "delivery.accepted"
	KindRejected Kind = "delivery.rejected"
)

// Event records one verification outcome. It never carries the body or
// signature material.
type Event struct {
	ID         int64     `json:"id"`
	Kind       Kind      `json:"kind"`
	At         time.Time `json:"at"`
	Path       string    `json:"path"`
	Provider   string    `json:"provider"`
	Reason     string    `json:"reason,omitempty"`
	DeliveryID string    `json:"delivery_id,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
}

// Hub is an in-memory pub/sub with a small ring buffer for late clients.
type Hub struct {
	now func() time.Time

	mu     sync.Mutex
	nextID int64
	ring   []Event
	start int
	size  int

	subs      map[int]chan Event
	nextSubID int
}

// DefaultCapacity is used when NewHub is given a non-positive capacity.
const DefaultCapacity = 256

func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Hub{
		now:  time.Now,
		ring: make([]Event, capacity),
		subs: make(map[int]chan Event),
	}
}

// Publish assigns ev an ID and timestamp, buffers it and fans it out.
// The stored copy is returned. IDs are assigned under the lock so the ring
// stays in ID order.
func (h *Hub) Publish(ev Event) Event {
	h.mu.Lock()
	h.nextID++
	ev.ID = h.nextID
	ev.At = h.now().UTC()
	h.pushLocked(ev)
	for _, ch := range h.subs {
		// Don't let slow clients block the request path.
		select {
		case ch <- ev:
		default:
		}
	}
	h.mu.Unlock()
	return ev
}

func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSubID
	h.nextSubID++
	ch := make(chan Event, 64)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

// SnapshotSince returns buffered events with ID > lastID, oldest-first.
// If lastID is 0, the full ring buffer snapshot is returned.
func (h *Hub) SnapshotSince(lastID int64) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Event, 0, h.size)
	for i := 0; i < h.size; i++ {
		ev := h.ring[(h.start+i)%len(h.ring)]
		if lastID == 0 || ev.ID > lastID {
			out = append(out, ev)
		}
	}
	return out
}

func (h *Hub) pushLocked(ev Event) {
	capacity := len(h.ring)
	if capacity == 0 {
		return
	}

	if h.size < capacity {
		idx := (h.start + h.size) % capacity
		h.ring[idx] = ev
		h.size++
		return
	}

	// Overwrite oldest.
	h.ring[h.start] = ev
	h.start = (h.start + 1) % capacity
}
