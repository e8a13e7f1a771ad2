// Package realtime fans out couple document changes to subscribers.
package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

const defaultBuffer = 8

// Observer receives hub events, typically for metrics.
type Observer interface {
	SubscriberAdded()
	SubscriberRemoved()
	MessageDelivered()
	MessageDropped()
}

type nopObserver struct{}

func (nopObserver) SubscriberAdded()   {}
func (nopObserver) SubscriberRemoved() {}
func (nopObserver) MessageDelivered()  {}
func (nopObserver) MessageDropped()    {}

// Hub routes published snapshots to the subscribers of each couple.
// Delivery is at-most-once: a subscriber whose buffer is full misses the
// message instead of blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[string]chan models.Snapshot
	buffer int
	obs    Observer
	log    *zap.Logger
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBuffer sets the per-subscriber buffer size.
func WithBuffer(n int) HubOption {
	return func(h *Hub) { h.buffer = n }
}

// WithObserver registers an observer of hub events.
func WithObserver(o Observer) HubOption {
	return func(h *Hub) { h.obs = o }
}

// NewHub returns an empty hub.
func NewHub(log *zap.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		subs:   make(map[string]map[string]chan models.Snapshot),
		buffer: defaultBuffer,
		obs:    nopObserver{},
		log:    log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a subscriber for coupleID. The returned cancel func
// removes it and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(coupleID string) (<-chan models.Snapshot, func()) {
	id := uuid.NewString()
	ch := make(chan models.Snapshot, h.buffer)

	h.mu.Lock()
	if h.subs[coupleID] == nil {
		h.subs[coupleID] = make(map[string]chan models.Snapshot)
	}
	h.subs[coupleID][id] = ch
	h.mu.Unlock()

	h.obs.SubscriberAdded()
	h.log.Debug("subscriber added", zap.String("couple_id", coupleID), zap.String("subscriber_id", id))

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[coupleID], id)
			if len(h.subs[coupleID]) == 0 {
				delete(h.subs, coupleID)
			}
			close(ch)
			h.mu.Unlock()

			h.obs.SubscriberRemoved()
			h.log.Debug("subscriber removed", zap.String("couple_id", coupleID), zap.String("subscriber_id", id))
		})
	}
}

// Publish sends snap to every subscriber of coupleID and returns how many
// received it.
func (h *Hub) Publish(coupleID string, snap models.Snapshot) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, ch := range h.subs[coupleID] {
		select {
		case ch <- snap:
			delivered++
			h.obs.MessageDelivered()
		default:
			h.obs.MessageDropped()
			h.log.Warn("subscriber too slow, dropping change",
				zap.String("couple_id", coupleID),
				zap.String("subscriber_id", id))
		}
	}
	return delivered
}

// Subscribers returns the number of subscribers of coupleID.
func (h *Hub) Subscribers(coupleID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[coupleID])
}
