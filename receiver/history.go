package receiver

import (
	"sync"
	"time"
)

// Delivery is a verified webhook delivery as recorded by the receiver
type Delivery struct {
	Id         string    `json:"id"`
	ReceivedAt time.Time `json:"receivedAt"`
	Signature  string    `json:"signature"`
	BodyBytes  int       `json:"bodyBytes"`
	Body       string    `json:"body"`
}

// history keeps the most recent deliveries and fans new ones out to subscribers
type history struct {
	mu      sync.Mutex
	size    int
	entries []Delivery
	subs    map[chan Delivery]struct{}
}

func newHistory(size int) *history {
	if size <= 0 {
		size = 1
	}
	return &history{
		size: size,
		subs: make(map[chan Delivery]struct{}),
	}
}

func (h *history) add(d Delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, d)
	if len(h.entries) > h.size {
		h.entries = h.entries[len(h.entries)-h.size:]
	}
	for ch := range h.subs {
		// A subscriber that has fallen this far behind misses the delivery rather
		// than blocking the receiver
		select {
		case ch <- d:
		default:
		}
	}
}

// subscribe registers a new subscriber and returns, atomically with registration, the
// buffered deliveries that came after lastId. If lastId is empty or no longer
// buffered, all buffered deliveries are returned
func (h *history) subscribe(lastId string) ([]Delivery, chan Delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := 0
	if lastId != "" {
		for i, d := range h.entries {
			if d.Id == lastId {
				start = i + 1
				break
			}
		}
	}
	backlog := make([]Delivery, len(h.entries)-start)
	copy(backlog, h.entries[start:])

	ch := make(chan Delivery, 32)
	h.subs[ch] = struct{}{}
	return backlog, ch
}

func (h *history) unsubscribe(ch chan Delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, ch)
}

func (h *history) numSubscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *history) list() []Delivery {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Delivery, len(h.entries))
	copy(out, h.entries)
	return out
}
