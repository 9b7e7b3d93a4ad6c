// Package realtime pushes newly appended messages to viewers that have a
// thread open.
package realtime

import (
	"context"
	"sync"

	"github.com/shinyyama/loops-backend/internal/metrics"
	"github.com/shinyyama/loops-backend/internal/model"
)

const defaultBuffer = 64

// Subscription receives the messages of one viewer-scoped thread. C is
// closed when the subscription ends, either through Unsubscribe or because
// the subscriber fell behind; in the latter case Overflowed reports true and
// the client is expected to reload the thread.
type Subscription struct {
	ListingID       uint64
	ViewerUID       string
	CounterpartyUID string

	C  <-chan model.Message
	ch chan model.Message

	closed     bool
	overflowed bool
}

func (s *Subscription) matches(msg model.Message) bool {
	return msg.ListingID == s.ListingID && msg.Involves(s.ViewerUID, s.CounterpartyUID)
}

// Hub fans messages out to the subscriptions of this process, one topic per
// listing.
type Hub struct {
	mu      sync.Mutex
	topics  map[uint64]map[*Subscription]struct{}
	buffer  int
	metrics *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		topics:  make(map[uint64]map[*Subscription]struct{}),
		buffer:  defaultBuffer,
		metrics: m,
	}
}

func (h *Hub) Subscribe(listingID uint64, viewerUID, counterpartyUID string) *Subscription {
	ch := make(chan model.Message, h.buffer)
	sub := &Subscription{
		ListingID:       listingID,
		ViewerUID:       viewerUID,
		CounterpartyUID: counterpartyUID,
		C:               ch,
		ch:              ch,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	topic, ok := h.topics[listingID]
	if !ok {
		topic = make(map[*Subscription]struct{})
		h.topics[listingID] = topic
	}
	topic[sub] = struct{}{}
	h.metrics.AddLiveSubscriptions(1)
	return sub
}

// Unsubscribe ends the subscription. Calling it more than once is fine.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)
	h.metrics.AddLiveSubscriptions(-1)

	topic := h.topics[sub.ListingID]
	delete(topic, sub)
	if len(topic) == 0 {
		delete(h.topics, sub.ListingID)
	}
}

// Overflowed reports whether the hub dropped the subscription because its
// buffer was full.
func (h *Hub) Overflowed(sub *Subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return sub.overflowed
}

// Publish delivers msg to local subscribers. It never blocks on a slow
// subscriber.
func (h *Hub) Publish(_ context.Context, msg model.Message) error {
	h.Deliver(msg)
	return nil
}

// Deliver pushes msg to every subscription of its listing whose pair is the
// message's sender and receiver.
func (h *Hub) Deliver(msg model.Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for sub := range h.topics[msg.ListingID] {
		if !sub.matches(msg) {
			continue
		}
		select {
		case sub.ch <- msg:
			delivered++
			h.metrics.IncDeliveries()
		default:
			sub.overflowed = true
			h.metrics.IncSlowSubscribers()
			h.removeLocked(sub)
		}
	}
	return delivered
}

// Subscribers returns the number of open subscriptions on a listing.
func (h *Hub) Subscribers(listingID uint64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[listingID])
}
