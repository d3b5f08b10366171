package entity

import "time"

// EventStoreRecord is one persisted row of an aggregate's event stream,
// ordered by Version within a stream.
type EventStoreRecord struct {
	ID         string    `json:"id"`
	StreamID   string    `json:"stream_id"`
	StreamType string    `json:"stream_type"`
	Version    int       `json:"version"`
	EventType  string    `json:"event_type"`
	Payload    []byte    `json:"payload"`
	CreatedAt  time.Time `json:"created_at"`
}

// Event is a domain event appended to a stream. EventType names the
// concrete event for storage and replay dispatch.
type Event interface {
	EventType() string
}

// AggregateBase carries a stream's identity and current version. The
// version is what a fulfillment transition hands to SaveEvents as its
// expected value, so two racing appends cannot both win. OrderAggregate
// embeds it.
type AggregateBase struct {
	ID      string
	Version int
}

func (a *AggregateBase) GetAggregateID() string {
	return a.ID
}

func (a *AggregateBase) GetVersion() int {
	return a.Version
}
