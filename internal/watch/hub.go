package watch

import (
	"context"
	"sync"
	"time"

	"github.com/dgallion1/mindoutline/internal/doctree"
	"github.com/google/uuid"
)

// Update carries the full re-parsed tree of a document. Err is set instead
// of Tree when the document could not be read or parsed.
type Update struct {
	Path    string        `json:"path"`
	Version int           `json:"version"`
	Tree    *doctree.Tree `json:"tree,omitempty"`
	Err     string        `json:"error,omitempty"`
	At      time.Time     `json:"at"`
}

// Hub fans updates out to subscribers. Each subscriber channel holds only
// the newest update; a slow reader skips intermediate versions.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]chan Update
	last   *Update
	closed bool
	done   chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]chan Update),
		done: make(chan struct{}),
	}
}

// Subscribe registers a subscriber until ctx ends or the hub closes, then
// closes the returned channel. The latest update, if any, is delivered
// immediately.
func (h *Hub) Subscribe(ctx context.Context) (string, <-chan Update) {
	id := uuid.NewString()
	ch := make(chan Update, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return id, ch
	}
	h.subs[id] = ch
	if h.last != nil {
		ch <- *h.last
	}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			h.unsubscribe(id)
		case <-h.done:
		}
	}()
	return id, ch
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish replaces whatever each subscriber has not read yet with u.
func (h *Hub) Publish(u Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.last = &u
	for _, ch := range h.subs {
		select {
		case ch <- u:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- u:
			default:
			}
		}
	}
}

// Last returns the most recent update.
func (h *Hub) Last() (Update, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return Update{}, false
	}
	return *h.last, true
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
