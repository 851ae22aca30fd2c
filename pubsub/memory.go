package pubsub

import (
	"context"
	"errors"
	"sync"
)

const memoryBufferSize = 256

// ErrClosed is returned when using a closed transport.
var ErrClosed = errors.New("pubsub transport closed")

// MemoryTransport is an in-process broker. Publish blocks until every current
// subscriber of the topic has buffered the message.
type MemoryTransport struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscription]struct{}
	closed bool
}

var _ Transport = (*MemoryTransport)(nil)

// NewMemoryTransport creates an empty in-process broker.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{subs: make(map[string]map[*memorySubscription]struct{})}
}

// Publish delivers payload to the subscribers of topic.
func (t *MemoryTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return ErrClosed
	}

	for sub := range t.subs[topic] {
		msg := Message{Topic: topic, Payload: append([]byte(nil), payload...)}
		select {
		case sub.ch <- msg:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a subscription on topic.
func (t *MemoryTransport) Subscribe(_ context.Context, topic string) (Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}

	sub := &memorySubscription{
		transport: t,
		topic:     topic,
		ch:        make(chan Message, memoryBufferSize),
		done:      make(chan struct{}),
	}
	if t.subs[topic] == nil {
		t.subs[topic] = make(map[*memorySubscription]struct{})
	}
	t.subs[topic][sub] = struct{}{}
	return sub, nil
}

// Close ends every subscription.
func (t *MemoryTransport) Close() error {
	t.mu.RLock()
	var all []*memorySubscription
	for _, subs := range t.subs {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	t.mu.RUnlock()

	for _, sub := range all {
		sub.signalDone()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for topic, subs := range t.subs {
		for sub := range subs {
			close(sub.ch)
		}
		delete(t.subs, topic)
	}
	return nil
}

type memorySubscription struct {
	transport *MemoryTransport
	topic     string
	ch        chan Message
	done      chan struct{}
	once      sync.Once
}

func (s *memorySubscription) Channel() <-chan Message {
	return s.ch
}

func (s *memorySubscription) signalDone() {
	s.once.Do(func() { close(s.done) })
}

// Close unblocks pending publishes before taking the write lock.
func (s *memorySubscription) Close() error {
	s.signalDone()

	t := s.transport
	t.mu.Lock()
	defer t.mu.Unlock()
	if subs, ok := t.subs[s.topic]; ok {
		if _, ok := subs[s]; ok {
			delete(subs, s)
			close(s.ch)
		}
	}
	return nil
}
