package worker

import (
	"encoding/json"
	"sync"
	"time"
)

// Outcome is one processed-event record published to feed subscribers
type Outcome struct {
	DeliveryID string    `json:"deliveryId"`
	Type       string    `json:"type"`
	Result     string    `json:"result"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at"`
}

// Feed broadcasts sync outcomes to live subscribers (the websocket
// event feed). Slow subscribers drop messages rather than block the
// worker.
type Feed struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewFeed creates a new outcome feed
func NewFeed() *Feed {
	return &Feed{subs: map[chan []byte]struct{}{}}
}

// Subscribe registers a listener; call the returned cancel func when done
func (f *Feed) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 16)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish sends an outcome to every subscriber
func (f *Feed) Publish(outcome Outcome) {
	data, err := json.Marshal(outcome)
	if err != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- data:
		default:
			// subscriber is behind, drop
		}
	}
}
