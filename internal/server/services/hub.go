package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/spendsync/internal/docstore"
	"github.com/dmitrijs2005/spendsync/internal/logging"
)

const subscriberBuffer = 64

type topic struct {
	owner      string
	collection string
}

// Hub fans document changes out to the watchers of an owner's collection.
// A watcher that falls behind by more than its buffer is dropped; its
// stream ends and the client resubscribes, receiving a fresh snapshot.
type Hub struct {
	mu   sync.Mutex
	subs map[topic]map[*subscription]struct{}
	log  logging.Logger
}

type subscription struct {
	ch     chan docstore.Change
	closed bool
}

func NewHub(log logging.Logger) *Hub {
	return &Hub{subs: map[topic]map[*subscription]struct{}{}, log: log}
}

// Subscribe registers a watcher. The returned channel is closed by cancel
// or when the watcher is dropped.
func (h *Hub) Subscribe(owner, collection string) (<-chan docstore.Change, func()) {
	t := topic{owner, collection}
	sub := &subscription{ch: make(chan docstore.Change, subscriberBuffer)}

	h.mu.Lock()
	if h.subs[t] == nil {
		h.subs[t] = map[*subscription]struct{}{}
	}
	h.subs[t][sub] = struct{}{}
	h.mu.Unlock()

	return sub.ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.remove(t, sub)
	}
}

func (h *Hub) Publish(ctx context.Context, owner, collection string, change docstore.Change) {
	t := topic{owner, collection}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[t] {
		select {
		case sub.ch <- change:
		default:
			h.log.Warn(ctx, "dropping slow watcher", "owner", owner, "collection", collection)
			h.remove(t, sub)
		}
	}
}

// Watchers counts the live subscriptions of a topic.
func (h *Hub) Watchers(owner, collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topic{owner, collection}])
}

// remove must be called with mu held.
func (h *Hub) remove(t topic, sub *subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)
	delete(h.subs[t], sub)
	if len(h.subs[t]) == 0 {
		delete(h.subs, t)
	}
}
