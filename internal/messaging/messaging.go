package messaging

import "context"

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Subscriber defines an interface for subscribing to a message topic.
// Consume blocks until the context is cancelled.
type Subscriber interface {
	Consume(ctx context.Context, topic string, handler func(ctx context.Context, payload []byte) error) error
}

// Topics for the fulfillment lifecycle.
const (
	TopicOrdersPlaced   = "orders.placed"
	TopicOrdersPicked   = "orders.picked"
	TopicOrdersShipped  = "orders.shipped"
	TopicOrdersCanceled = "orders.canceled"
	TopicLabelRequests  = "labels.requested"
)
