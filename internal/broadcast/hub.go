package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Message is one payload published on a topic
type Message struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Hub is an in-process topic fan-out. Delivery is fire-and-forget: a
// subscriber whose buffer is full misses the message instead of blocking
// the publisher.
type Hub struct {
	mu         sync.RWMutex
	topics     map[string]map[*subscriber]struct{}
	bufferSize int
	logger     *zap.Logger
}

type subscriber struct {
	ch chan Message
}

// NewHub creates a hub whose subscribers buffer up to bufferSize messages
func NewHub(bufferSize int) *Hub {
	if bufferSize < 1 {
		bufferSize = 16
	}
	return &Hub{
		topics:     make(map[string]map[*subscriber]struct{}),
		bufferSize: bufferSize,
		logger:     zap.L(),
	}
}

// Subscribe registers interest in topic. The returned cancel func must be
// called to release the subscription; it closes the channel.
func (h *Hub) Subscribe(topic string) (<-chan Message, func()) {
	sub := &subscriber{ch: make(chan Message, h.bufferSize)}

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.topics[topic], sub)
			if len(h.topics[topic]) == 0 {
				delete(h.topics, topic)
			}
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Broadcast publishes payload to every current subscriber of topic
func (h *Hub) Broadcast(ctx context.Context, topic string, payload any) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "broadcast: context done")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrapf(err, "broadcast: marshal payload for %s", topic)
	}
	msg := Message{Topic: topic, Payload: raw}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.topics[topic] {
		select {
		case sub.ch <- msg:
		default:
			h.logger.Warn("dropping broadcast for slow subscriber", zap.String("topic", topic))
		}
	}
	return nil
}

// Subscribers returns the number of subscribers on topic
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
