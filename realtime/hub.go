// Package realtime delivers newly stored chat messages to open streams.
package realtime

import (
	"context"
	"sync"

	"github.com/padraicbc/wagergenie/metrics"
	"github.com/padraicbc/wagergenie/models"
)

// Buffer is the per-subscriber queue length. A full queue drops messages.
const Buffer = 16

// Publisher hands a stored message to everyone streaming that user's chat.
type Publisher interface {
	Publish(ctx context.Context, msg *models.ChatMessage) error
}

// Hub fans messages out to subscribers of the same user.
type Hub struct {
	mu sync.RWMutex
	// user id -> set of subscriber channels
	subs map[int64]map[chan models.ChatMessage]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int64]map[chan models.ChatMessage]struct{})}
}

// Subscribe registers a stream for userID. The returned cancel func must be
// called once the stream ends; it closes the channel.
func (h *Hub) Subscribe(userID int64) (<-chan models.ChatMessage, func()) {
	ch := make(chan models.ChatMessage, Buffer)

	h.mu.Lock()
	if _, ok := h.subs[userID]; !ok {
		h.subs[userID] = make(map[chan models.ChatMessage]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()
	metrics.StreamSubscribers.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[userID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, userID)
				}
			}
			h.mu.Unlock()
			close(ch)
			metrics.StreamSubscribers.Dec()
		})
	}
}

// Broadcast delivers msg to every subscriber of msg.UserID without blocking.
func (h *Hub) Broadcast(msg models.ChatMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[msg.UserID] {
		select {
		case ch <- msg:
		default:
			metrics.StreamDroppedTotal.Inc()
		}
	}
}

// Publish implements Publisher for a single instance.
func (h *Hub) Publish(_ context.Context, msg *models.ChatMessage) error {
	h.Broadcast(*msg)
	return nil
}
