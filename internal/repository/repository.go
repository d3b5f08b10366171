package repository

import (
	"context"
	"errors"

	"github.com/feriavirtual/backend/internal/entity"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ProductRepository handles persistence for Products.
type ProductRepository interface {
	FindAll(ctx context.Context) ([]entity.Product, error)
	FindByID(ctx context.Context, id string) (*entity.Product, error)
	// DecrementStock atomically reduces stock, failing if not enough is left.
	DecrementStock(ctx context.Context, productID string, quantity int) error
	// Seed inserts initial products if none exist.
	Seed(ctx context.Context, products []entity.Product) error
}

// OrderRepository is the read-model projection of the order event streams.
type OrderRepository interface {
	Save(ctx context.Context, order entity.Order) error
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	FindAll(ctx context.Context) ([]entity.Order, error)
	FindByBuyer(ctx context.Context, buyerID string) ([]entity.Order, error)
}

// ReportRepository handles persistence for Reports.
type ReportRepository interface {
	Create(ctx context.Context, report entity.Report) error
	FindByID(ctx context.Context, id string) (*entity.Report, error)
	FindAll(ctx context.Context) ([]entity.Report, error)
	Update(ctx context.Context, report entity.Report) error
}

// ReviewRepository handles persistence for Reviews. No update or delete:
// reviews are immutable once created.
type ReviewRepository interface {
	Create(ctx context.Context, review entity.Review) error
	FindByPost(ctx context.Context, postID string) ([]entity.Review, error)
}

// ChatRepository handles persistence for Chats and their Messages.
type ChatRepository interface {
	CreateChat(ctx context.Context, chat entity.Chat) error
	FindChat(ctx context.Context, id string) (*entity.Chat, error)
	FindChats(ctx context.Context) ([]entity.Chat, error)
	UpdateChatState(ctx context.Context, id string, state entity.ChatState) error
	AppendMessage(ctx context.Context, msg entity.Message) error
	FindMessages(ctx context.Context, chatID string) ([]entity.Message, error)
}

// PaymentOptionRepository handles persistence for PaymentOptions.
type PaymentOptionRepository interface {
	Create(ctx context.Context, opt entity.PaymentOption) error
	FindByBusiness(ctx context.Context, businessID string) ([]entity.PaymentOption, error)
	Delete(ctx context.Context, id string) error
}

// EventStore handles appending and loading events for an aggregate stream.
// SaveEvents enforces optimistic concurrency: it fails when the stream
// version moved past expectedVersion, which is what makes fulfillment
// transitions at-most-once.
type EventStore interface {
	SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error
	LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error)
}

// ErrVersionConflict is returned by SaveEvents when another writer got in
// first. Callers treat it as "the action already happened".
var ErrVersionConflict = errors.New("stream version conflict")
