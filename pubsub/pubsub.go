// Package pubsub hands ready orders from the watcher to the filler. Redis is
// used when a URL is configured, an in-process broker otherwise. Delivery is
// at-most-once per publish; the watcher republishes until the order leaves
// CREATED.
package pubsub

import (
	"context"
	"fmt"
)

// Message is one payload received on a topic.
type Message struct {
	Topic   string
	Payload []byte
}

// Publisher sends payloads to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Subscription delivers the messages of one topic. The channel is closed when
// the subscription ends, either through Close or a transport failure.
type Subscription interface {
	Channel() <-chan Message
	Close() error
}

// Subscriber opens subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// Transport is a publisher and subscriber sharing one connection.
type Transport interface {
	Publisher
	Subscriber
	Close() error
}

// OrdersTopic returns the topic carrying ready orders of a chain.
func OrdersTopic(chainID uint64) string {
	return fmt.Sprintf("orders:%d", chainID)
}
