// Package feed fans new activity entries out to live subscribers of the same tenant.
package feed

import (
	"log/slog"
	"sync"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/observability/metrics"
)

const defaultBuffer = 32

// Hub is an in-process publish/subscribe hub keyed by tenant id.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	closed bool
	logger *slog.Logger
}

// Subscription receives the entries published for one tenant. C is closed when the
// subscription or the hub is closed.
type Subscription struct {
	C <-chan *domain.ActivityEntry

	ch       chan *domain.ActivityEntry
	tenantID string
	hub      *Hub
	once     sync.Once
}

// NewHub creates a hub. buffer is the per-subscriber queue length.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a subscriber for tenantID.
func (h *Hub) Subscribe(tenantID string) *Subscription {
	ch := make(chan *domain.ActivityEntry, h.buffer)
	sub := &Subscription{C: ch, ch: ch, tenantID: tenantID, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	if h.subs[tenantID] == nil {
		h.subs[tenantID] = make(map[*Subscription]struct{})
	}
	h.subs[tenantID][sub] = struct{}{}
	metrics.FeedSubscribed()
	return sub
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[s.tenantID]; ok {
			if _, ok := set[s]; ok {
				delete(set, s)
				close(s.ch)
				metrics.FeedUnsubscribed()
			}
			if len(set) == 0 {
				delete(h.subs, s.tenantID)
			}
		}
	})
}

// Publish delivers e to every subscriber of its tenant without blocking.
// Subscribers whose queue is full miss the entry.
func (h *Hub) Publish(e *domain.ActivityEntry) {
	if e == nil || e.TenantID == "" {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[e.TenantID] {
		select {
		case sub.ch <- e:
		default:
			h.logger.Warn("feed subscriber lagging, entry dropped",
				slog.String("tenant_id", e.TenantID),
				slog.String("entry_id", e.ID),
			)
		}
	}
}

// Subscribers returns the number of live subscribers of tenantID.
func (h *Hub) Subscribers(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[tenantID])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for tenantID, set := range h.subs {
		for sub := range set {
			close(sub.ch)
			metrics.FeedUnsubscribed()
		}
		delete(h.subs, tenantID)
	}
}
