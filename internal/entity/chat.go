package entity

import "time"

// ChatKind distinguishes sale conversations from report follow-ups.
type ChatKind string

const (
	ChatKindSale   ChatKind = "sale"
	ChatKindReport ChatKind = "report"
)

// ChatState is whether a chat still accepts messages.
type ChatState string

const (
	ChatStateOpen   ChatState = "open"
	ChatStateClosed ChatState = "closed"
)

// MessageAuthor identifies which side of a chat wrote a message.
type MessageAuthor string

const (
	AuthorCustomer MessageAuthor = "customer"
	AuthorSeller   MessageAuthor = "seller"
	AuthorAdmin    MessageAuthor = "admin"
)

// Chat is a conversation between a customer and a seller (or an admin, for
// report chats).
type Chat struct {
	ID        string    `json:"id"`
	Kind      ChatKind  `json:"kind"`
	State     ChatState `json:"state"`
	OrderID   string    `json:"order_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Message belongs to exactly one chat and is immutable once created.
// Messages are ordered by creation time.
type Message struct {
	ID        string        `json:"id"`
	ChatID    string        `json:"chat_id"`
	Author    MessageAuthor `json:"author"`
	Body      string        `json:"body"`
	CreatedAt time.Time     `json:"created_at"`
}
