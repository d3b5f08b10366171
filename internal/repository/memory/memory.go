// Package memory provides in-memory repository implementations. They back
// the unit tests and local development without a Postgres instance.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/repository"
)

// ProductRepository is an in-memory repository.ProductRepository.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]entity.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[string]entity.Product)}
}

func (r *ProductRepository) FindAll(ctx context.Context) ([]entity.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *ProductRepository) DecrementStock(ctx context.Context, productID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Stock < quantity {
		return fmt.Errorf("insufficient stock for product %s", productID)
	}
	p.Stock -= quantity
	r.products[productID] = p
	return nil
}

func (r *ProductRepository) Seed(ctx context.Context, products []entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.products) > 0 {
		return nil
	}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return nil
}

// OrderRepository is an in-memory repository.OrderRepository.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]entity.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]entity.Order)}
}

func (r *OrderRepository) Save(ctx context.Context, order entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]entity.OrderItem, len(order.Items))
	copy(items, order.Items)
	order.Items = items
	r.orders[order.ID] = order
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	items := make([]entity.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return &o, nil
}

func (r *OrderRepository) FindAll(ctx context.Context) ([]entity.Order, error) {
	return r.findFiltered(func(entity.Order) bool { return true })
}

func (r *OrderRepository) FindByBuyer(ctx context.Context, buyerID string) ([]entity.Order, error) {
	return r.findFiltered(func(o entity.Order) bool { return o.BuyerID == buyerID })
}

func (r *OrderRepository) findFiltered(keep func(entity.Order) bool) ([]entity.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.Order
	for _, o := range r.orders {
		if keep(o) {
			items := make([]entity.OrderItem, len(o.Items))
			copy(items, o.Items)
			o.Items = items
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// EventStore is an in-memory repository.EventStore with the same optimistic
// concurrency semantics as the Postgres one.
type EventStore struct {
	mu      sync.Mutex
	streams map[string][]entity.EventStoreRecord
	seq     int
}

func NewEventStore() *EventStore {
	return &EventStore{streams: make(map[string][]entity.EventStoreRecord)}
}

func (s *EventStore) SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := len(s.streams[streamID])
	if current != expectedVersion {
		return fmt.Errorf("stream %s: expected version %d, got %d: %w",
			streamID, expectedVersion, current, repository.ErrVersionConflict)
	}

	version := expectedVersion
	for _, event := range events {
		version++
		s.seq++
		payload, err := marshalEvent(event)
		if err != nil {
			return err
		}
		s.streams[streamID] = append(s.streams[streamID], entity.EventStoreRecord{
			ID:         fmt.Sprintf("evt-%d", s.seq),
			StreamID:   streamID,
			StreamType: streamType,
			Version:    version,
			EventType:  event.EventType(),
			Payload:    payload,
		})
	}
	return nil
}

func (s *EventStore) LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]entity.EventStoreRecord, len(s.streams[streamID]))
	copy(records, s.streams[streamID])
	return records, nil
}

// ReportRepository is an in-memory repository.ReportRepository.
type ReportRepository struct {
	mu      sync.RWMutex
	reports map[string]entity.Report
}

func NewReportRepository() *ReportRepository {
	return &ReportRepository{reports: make(map[string]entity.Report)}
}

func (r *ReportRepository) Create(ctx context.Context, report entity.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reports[report.ID]; exists {
		return fmt.Errorf("report %s already exists", report.ID)
	}
	r.reports[report.ID] = report
	return nil
}

func (r *ReportRepository) FindByID(ctx context.Context, id string) (*entity.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rep, nil
}

func (r *ReportRepository) FindAll(ctx context.Context) ([]entity.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.Report, 0, len(r.reports))
	for _, rep := range r.reports {
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *ReportRepository) Update(ctx context.Context, report entity.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reports[report.ID]; !ok {
		return repository.ErrNotFound
	}
	r.reports[report.ID] = report
	return nil
}

// ReviewRepository is an in-memory repository.ReviewRepository.
type ReviewRepository struct {
	mu      sync.RWMutex
	reviews []entity.Review
}

func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{}
}

func (r *ReviewRepository) Create(ctx context.Context, review entity.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviews = append(r.reviews, review)
	return nil
}

func (r *ReviewRepository) FindByPost(ctx context.Context, postID string) ([]entity.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.Review
	for _, rv := range r.reviews {
		if rv.PostID == postID {
			out = append(out, rv)
		}
	}
	return out, nil
}

// ChatRepository is an in-memory repository.ChatRepository.
type ChatRepository struct {
	mu       sync.RWMutex
	chats    map[string]entity.Chat
	messages map[string][]entity.Message
}

func NewChatRepository() *ChatRepository {
	return &ChatRepository{
		chats:    make(map[string]entity.Chat),
		messages: make(map[string][]entity.Message),
	}
}

func (r *ChatRepository) CreateChat(ctx context.Context, chat entity.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.chats[chat.ID]; exists {
		return fmt.Errorf("chat %s already exists", chat.ID)
	}
	r.chats[chat.ID] = chat
	return nil
}

func (r *ChatRepository) FindChat(ctx context.Context, id string) (*entity.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chats[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *ChatRepository) FindChats(ctx context.Context) ([]entity.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.Chat, 0, len(r.chats))
	for _, c := range r.chats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *ChatRepository) UpdateChatState(ctx context.Context, id string, state entity.ChatState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.State = state
	r.chats[id] = c
	return nil
}

func (r *ChatRepository) AppendMessage(ctx context.Context, msg entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chats[msg.ChatID]; !ok {
		return repository.ErrNotFound
	}
	r.messages[msg.ChatID] = append(r.messages[msg.ChatID], msg)
	return nil
}

func (r *ChatRepository) FindMessages(ctx context.Context, chatID string) ([]entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := make([]entity.Message, len(r.messages[chatID]))
	copy(msgs, r.messages[chatID])
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs, nil
}

// PaymentOptionRepository is an in-memory repository.PaymentOptionRepository.
type PaymentOptionRepository struct {
	mu   sync.RWMutex
	opts map[string]entity.PaymentOption
}

func NewPaymentOptionRepository() *PaymentOptionRepository {
	return &PaymentOptionRepository{opts: make(map[string]entity.PaymentOption)}
}

func (r *PaymentOptionRepository) Create(ctx context.Context, opt entity.PaymentOption) error {
	if err := opt.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts[opt.ID] = opt
	return nil
}

func (r *PaymentOptionRepository) FindByBusiness(ctx context.Context, businessID string) ([]entity.PaymentOption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.PaymentOption
	for _, o := range r.opts {
		if o.BusinessID == businessID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *PaymentOptionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.opts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.opts, id)
	return nil
}

func marshalEvent(event entity.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}
	return payload, nil
}
