// Package fulfillment implements the order fulfillment lifecycle:
// pick -> scan-validate -> egress, with cancel reachable from pending and
// label reimprint available once the order is prepared.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/label"
	"github.com/feriavirtual/backend/internal/messaging"
	"github.com/feriavirtual/backend/internal/repository"
)

var (
	// ErrInvalidTransition is returned when an action is not allowed in the
	// order's current status.
	ErrInvalidTransition = errors.New("invalid order transition")
	// ErrPickOutOfBounds is returned when any picked quantity is zero or
	// exceeds the ordered quantity. The pick is rejected as a whole.
	ErrPickOutOfBounds = errors.New("picked quantity out of bounds")
	// ErrUnknownItem is returned when a pick or scan references a product
	// that is not part of the order.
	ErrUnknownItem = errors.New("product not in order")
	// ErrNotAllValidated blocks egress until every item passed scan
	// validation.
	ErrNotAllValidated = errors.New("not all items scan-validated")
	// ErrMissingShippingInfo blocks egress without tracking number and
	// courier.
	ErrMissingShippingInfo = errors.New("tracking number and courier are required")
	// ErrOrderNotFound is returned for an unknown order id.
	ErrOrderNotFound = errors.New("order not found")
)

// Machine drives fulfillment transitions for single orders. Every
// transition appends to the order's event stream with an optimistic version
// check, so a duplicate submission of the same action loses the version
// race and is rejected instead of applied twice.
type Machine struct {
	eventStore repository.EventStore
	orderRepo  repository.OrderRepository
	publisher  messaging.Publisher
	labels     label.Generator
}

func NewMachine(
	eventStore repository.EventStore,
	orderRepo repository.OrderRepository,
	publisher messaging.Publisher,
	labels label.Generator,
) *Machine {
	return &Machine{
		eventStore: eventStore,
		orderRepo:  orderRepo,
		publisher:  publisher,
		labels:     labels,
	}
}

// Pick records the picked quantity for every line item and moves the order
// from pending to prepared. The whole call is rejected, with no state
// change, if any item's quantity is outside (0, ordered].
func (m *Machine) Pick(ctx context.Context, orderID string, quantities map[string]int) (entity.Order, error) {
	agg, err := m.load(ctx, orderID)
	if err != nil {
		return entity.Order{}, err
	}
	if agg.Status != entity.OrderStatusPending {
		return entity.Order{}, fmt.Errorf("pick requires a pending order, order %s is %s: %w",
			orderID, agg.Status, ErrInvalidTransition)
	}

	for productID := range quantities {
		if found := itemFor(agg, productID); found == nil {
			return entity.Order{}, fmt.Errorf("pick references product %s: %w", productID, ErrUnknownItem)
		}
	}
	for i := range agg.Items {
		item := &agg.Items[i]
		picked, ok := quantities[item.ProductID]
		if !ok || picked <= 0 || picked > item.Quantity {
			return entity.Order{}, fmt.Errorf("product %s: picked %d of %d ordered: %w",
				item.ProductID, picked, item.Quantity, ErrPickOutOfBounds)
		}
	}

	event := entity.OrderPicked{OrderID: orderID, Quantities: quantities, PickedAt: time.Now()}
	if err := m.apply(ctx, agg, event); err != nil {
		return entity.Order{}, err
	}

	if err := m.publisher.PublishEvent(ctx, messaging.TopicOrdersPicked, orderID, event); err != nil {
		slog.Error("Failed to publish OrderPicked", "order_id", orderID, "err", err)
	}

	slog.Info("Order picked", "order_id", orderID, "items", len(quantities))
	return agg.Order(), nil
}

// Scan checks a scanned barcode against the item's registered EAN. A match
// marks the item validated and records the scanned value; a mismatch leaves
// the item unvalidated without failing the order. Scanning an already
// validated item is a no-op that reports true: a wrong scan after a correct
// one never un-validates.
func (m *Machine) Scan(ctx context.Context, orderID, productID, ean string) (bool, error) {
	agg, err := m.load(ctx, orderID)
	if err != nil {
		return false, err
	}
	if agg.Status != entity.OrderStatusPrepared {
		return false, fmt.Errorf("scan requires a prepared order, order %s is %s: %w",
			orderID, agg.Status, ErrInvalidTransition)
	}

	item := itemFor(agg, productID)
	if item == nil {
		return false, fmt.Errorf("scan references product %s: %w", productID, ErrUnknownItem)
	}
	if item.Validated {
		return true, nil
	}
	if ean != item.EAN {
		slog.Debug("Scan mismatch", "order_id", orderID, "product_id", productID)
		return false, nil
	}

	event := entity.ItemScanValidated{
		OrderID:    orderID,
		ProductID:  productID,
		ScannedEAN: ean,
		ScannedAt:  time.Now(),
	}
	if err := m.apply(ctx, agg, event); err != nil {
		return false, err
	}
	return true, nil
}

// Egress marks a prepared order as shipped. It requires every item to be
// scan-validated and a non-empty tracking number and courier name. On
// success the order becomes completed and a shipping label is generated.
func (m *Machine) Egress(ctx context.Context, orderID, trackingNumber, courier, notes string) (entity.Order, error) {
	agg, err := m.load(ctx, orderID)
	if err != nil {
		return entity.Order{}, err
	}
	if agg.Status != entity.OrderStatusPrepared {
		return entity.Order{}, fmt.Errorf("egress requires a prepared order, order %s is %s: %w",
			orderID, agg.Status, ErrInvalidTransition)
	}

	trackingNumber = strings.TrimSpace(trackingNumber)
	courier = strings.TrimSpace(courier)
	if trackingNumber == "" || courier == "" {
		return entity.Order{}, ErrMissingShippingInfo
	}

	order := agg.Order()
	if !order.AllValidated() {
		return entity.Order{}, fmt.Errorf("order %s: %w", orderID, ErrNotAllValidated)
	}

	event := entity.OrderShipped{
		OrderID:        orderID,
		TrackingNumber: trackingNumber,
		Courier:        courier,
		Notes:          notes,
		ShippedAt:      time.Now(),
	}
	if err := m.apply(ctx, agg, event); err != nil {
		return entity.Order{}, err
	}

	shipped := agg.Order()
	if err := m.labels.Generate(shipped); err != nil {
		slog.Error("Failed to generate shipping label", "order_id", orderID, "err", err)
	}
	if err := m.publisher.PublishEvent(ctx, messaging.TopicOrdersShipped, orderID, event); err != nil {
		slog.Error("Failed to publish OrderShipped", "order_id", orderID, "err", err)
	}

	slog.Info("Order shipped", "order_id", orderID, "courier", courier, "tracking", trackingNumber)
	return shipped, nil
}

// Cancel moves a pending order to canceled. Unconditional once requested,
// and irreversible.
func (m *Machine) Cancel(ctx context.Context, orderID string) (entity.Order, error) {
	agg, err := m.load(ctx, orderID)
	if err != nil {
		return entity.Order{}, err
	}
	if agg.Status != entity.OrderStatusPending {
		return entity.Order{}, fmt.Errorf("cancel requires a pending order, order %s is %s: %w",
			orderID, agg.Status, ErrInvalidTransition)
	}

	event := entity.OrderCanceled{OrderID: orderID, CanceledAt: time.Now()}
	if err := m.apply(ctx, agg, event); err != nil {
		return entity.Order{}, err
	}

	if err := m.publisher.PublishEvent(ctx, messaging.TopicOrdersCanceled, orderID, event); err != nil {
		slog.Error("Failed to publish OrderCanceled", "order_id", orderID, "err", err)
	}

	slog.Info("Order canceled", "order_id", orderID)
	return agg.Order(), nil
}

// Reimprint regenerates the shipping label for a prepared or completed
// order. It does not change order state.
func (m *Machine) Reimprint(ctx context.Context, orderID string) error {
	agg, err := m.load(ctx, orderID)
	if err != nil {
		return err
	}
	if agg.Status != entity.OrderStatusPrepared && agg.Status != entity.OrderStatusCompleted {
		return fmt.Errorf("reimprint requires a prepared or completed order, order %s is %s: %w",
			orderID, agg.Status, ErrInvalidTransition)
	}

	event := entity.LabelReprinted{OrderID: orderID, RequestedAt: time.Now()}
	if err := m.apply(ctx, agg, event); err != nil {
		return err
	}

	if err := m.labels.Generate(agg.Order()); err != nil {
		return fmt.Errorf("failed to regenerate label for order %s: %w", orderID, err)
	}
	return nil
}

func (m *Machine) load(ctx context.Context, orderID string) (*entity.OrderAggregate, error) {
	records, err := m.eventStore.LoadEvents(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}

	agg := entity.NewOrderAggregate(orderID)
	if err := agg.Rehydrate(records); err != nil {
		return nil, fmt.Errorf("failed to rehydrate order aggregate: %w", err)
	}
	return agg, nil
}

// apply appends the event at the aggregate's current version, applies it in
// memory and refreshes the read-model projection.
func (m *Machine) apply(ctx context.Context, agg *entity.OrderAggregate, event entity.Event) error {
	expected := agg.GetVersion()
	if err := m.eventStore.SaveEvents(ctx, agg.GetAggregateID(), "order", expected, []entity.Event{event}); err != nil {
		return fmt.Errorf("failed to save %s: %w", event.EventType(), err)
	}
	if err := agg.ApplyEvent(event); err != nil {
		return fmt.Errorf("failed to apply %s: %w", event.EventType(), err)
	}
	if err := m.orderRepo.Save(ctx, agg.Order()); err != nil {
		return fmt.Errorf("failed to update order projection: %w", err)
	}
	return nil
}

func itemFor(agg *entity.OrderAggregate, productID string) *entity.OrderItem {
	for i := range agg.Items {
		if agg.Items[i].ProductID == productID {
			return &agg.Items[i]
		}
	}
	return nil
}
