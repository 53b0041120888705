package telemetry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/irgordon/locker/api/internal/core/domain"
)

// subscriberBuffer bounds how far a slow websocket client may fall behind.
const subscriberBuffer = 32

// Hub fans entry change events out to the owner's open feeds.
// Events carry entry IDs only, never field values.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID][]chan domain.EntryEvent // userID -> client channels
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID][]chan domain.EntryEvent),
	}
}

// Subscribe registers a new feed for the user.
func (h *Hub) Subscribe(userID uuid.UUID) chan domain.EntryEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan domain.EntryEvent, subscriberBuffer)
	h.subscribers[userID] = append(h.subscribers[userID], ch)
	return ch
}

// Unsubscribe removes and closes a feed. Unknown channels are ignored.
func (h *Hub) Unsubscribe(userID uuid.UUID, ch chan domain.EntryEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[userID]
	for i, sub := range subs {
		if sub == ch {
			subs = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
	if len(subs) == 0 {
		delete(h.subscribers, userID)
		return
	}
	h.subscribers[userID] = subs
}

// Publish implements domain.EventPublisher.
func (h *Hub) Publish(userID uuid.UUID, event domain.EntryEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers[userID] {
		select {
		case ch <- event:
		default: // drop for slow consumers; never block a write request
		}
	}
}

// Subscribers reports the number of open feeds for a user.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}
