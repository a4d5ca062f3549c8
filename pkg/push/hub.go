package push

import (
	"context"
	"sync"
)

// Hub is an in-process Pusher that fans payloads out to subscribers, one
// stream per recipient. Slow consumers have messages dropped rather than
// blocking delivery. All methods are safe for concurrent use.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]struct{}
	bufferSize  int
	closed      bool
	done        chan struct{}
	cleanupWg   sync.WaitGroup
}

// Subscription is one recipient's live payload stream.
type Subscription struct {
	ch     chan Payload
	closed bool
	mu     sync.RWMutex
}

// Receive returns the channel on which pushed payloads arrive.
func (s *Subscription) Receive() <-chan Payload {
	return s.ch
}

// Close closes the subscription. It is idempotent.
func (s *Subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

func (s *Subscription) send(p Payload) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- p:
		return true
	default:
		return false
	}
}

// NewHub creates an in-process push hub. The bufferSize parameter sets the
// channel buffer per subscription; a minimum of 1 is enforced so sends stay
// non-blocking.
func NewHub(bufferSize int) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Subscription]struct{}),
		bufferSize:  max(bufferSize, 1),
		done:        make(chan struct{}),
	}
}

// Subscribe opens a payload stream for a recipient. The subscription is
// cleaned up automatically when ctx is cancelled. A closed hub returns an
// already-closed subscription.
func (h *Hub) Subscribe(ctx context.Context, recipientID string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{ch: make(chan Payload, h.bufferSize)}
	if h.closed {
		_ = sub.Close()
		return sub
	}

	subs, ok := h.subscribers[recipientID]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.subscribers[recipientID] = subs
	}
	subs[sub] = struct{}{}

	if ctx.Done() != nil {
		h.cleanupWg.Add(1)
		go func() {
			defer h.cleanupWg.Done()
			select {
			case <-ctx.Done():
				h.unsubscribe(recipientID, sub)
			case <-h.done:
			}
		}()
	}

	return sub
}

// Push implements Pusher. Payloads are sent non-blocking; subscriptions with
// full buffers are dropped and removed. Pushing to a recipient with no
// subscribers is not an error.
func (h *Hub) Push(ctx context.Context, recipientID string, payload Payload) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubClosed
	}

	for sub := range h.subscribers[recipientID] {
		if !sub.send(payload) {
			go h.unsubscribe(recipientID, sub)
		}
	}
	return nil
}

// Close shuts down the hub and closes all subscriptions. Safe to call more
// than once.
func (h *Hub) Close() error {
	h.mu.Lock()

	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.done)

	for _, subs := range h.subscribers {
		for sub := range subs {
			_ = sub.Close()
		}
	}
	clear(h.subscribers)
	h.mu.Unlock()

	h.cleanupWg.Wait()
	return nil
}

func (h *Hub) unsubscribe(recipientID string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subscribers[recipientID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subscribers, recipientID)
		}
	}
	_ = sub.Close()
}
