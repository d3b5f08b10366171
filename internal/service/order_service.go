package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/messaging"
	"github.com/feriavirtual/backend/internal/repository"
)

// OrderService orchestrates order placement and reads. Fulfillment
// transitions live in internal/fulfillment.
type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	eventStore  repository.EventStore
	publisher   messaging.Publisher
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	eventStore repository.EventStore,
	publisher messaging.Publisher,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		eventStore:  eventStore,
		publisher:   publisher,
	}
}

// GetProducts returns all available products.
func (s *OrderService) GetProducts(ctx context.Context) ([]entity.Product, error) {
	return s.productRepo.FindAll(ctx)
}

// GetStock returns the storage view of the catalog: remaining units per
// listing.
func (s *OrderService) GetStock(ctx context.Context) ([]entity.StockLevel, error) {
	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	levels := make([]entity.StockLevel, len(products))
	for i, p := range products {
		levels[i] = entity.StockLevel{
			ProductID:  p.ID,
			Name:       p.Name,
			EAN:        p.EAN,
			Stock:      p.Stock,
			BusinessID: p.BusinessID,
		}
	}
	return levels, nil
}

// GetOrders returns the full order list for the fulfillment view.
func (s *OrderService) GetOrders(ctx context.Context) ([]entity.Order, error) {
	return s.orderRepo.FindAll(ctx)
}

// GetOrdersByBuyer returns the buyer's own orders.
func (s *OrderService) GetOrdersByBuyer(ctx context.Context, buyerID string) ([]entity.Order, error) {
	return s.orderRepo.FindByBuyer(ctx, buyerID)
}

// GetOrder returns a single order by id.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	return s.orderRepo.FindByID(ctx, id)
}

// PlaceOrder creates a new order from a checkout command. Replaying the
// same command (same order id) is a no-op, so client retries are safe.
func (s *OrderService) PlaceOrder(ctx context.Context, cmd *entity.PlaceOrder) error {
	slog.Info("Service: Placing order", "order_id", cmd.OrderID, "items", len(cmd.Items))

	if len(cmd.Items) == 0 {
		return fmt.Errorf("order must have at least one item")
	}

	records, err := s.eventStore.LoadEvents(ctx, cmd.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order history: %w", err)
	}
	if len(records) > 0 {
		slog.Info("Order already exists (idempotency)", "order_id", cmd.OrderID)
		return nil
	}

	// Fill in registered product data and check availability for every line
	// first. Item price and EAN come from the catalog, not from the client.
	var totalPrice float64
	items := make([]entity.OrderItem, len(cmd.Items))
	for i, item := range cmd.Items {
		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("unknown product %s: %w", item.ProductID, err)
		}
		if product.Stock < item.Quantity {
			return fmt.Errorf("insufficient stock for product %s", item.ProductID)
		}
		items[i] = entity.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			EAN:       product.EAN,
			Price:     product.Price,
			Quantity:  item.Quantity,
		}
		totalPrice += product.Price * float64(item.Quantity)
	}

	// Reserve stock only once the whole order validated, so a rejected
	// order never leaves earlier lines decremented.
	for _, item := range cmd.Items {
		if err := s.productRepo.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	placedEvent := entity.OrderPlaced{
		OrderID:    cmd.OrderID,
		BuyerID:    cmd.BuyerID,
		Items:      items,
		TotalPrice: totalPrice,
		PlacedAt:   time.Now(),
	}

	if err := s.eventStore.SaveEvents(ctx, cmd.OrderID, "order", 0, []entity.Event{placedEvent}); err != nil {
		return fmt.Errorf("failed to save OrderPlaced event: %w", err)
	}

	agg := entity.NewOrderAggregate(cmd.OrderID)
	if err := agg.ApplyEvent(placedEvent); err != nil {
		return fmt.Errorf("failed to apply OrderPlaced: %w", err)
	}
	if err := s.orderRepo.Save(ctx, agg.Order()); err != nil {
		return fmt.Errorf("failed to save order projection: %w", err)
	}

	if err := s.publisher.PublishEvent(ctx, messaging.TopicOrdersPlaced, cmd.OrderID, placedEvent); err != nil {
		return fmt.Errorf("failed to publish OrderPlaced event: %w", err)
	}

	slog.Info("Order placed", "order_id", cmd.OrderID, "total", totalPrice)
	return nil
}
