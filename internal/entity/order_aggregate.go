package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// OrderAggregate manages the state of an Order by replaying events. It is
// the authoritative source for fulfillment transition decisions; the orders
// table is only a projection of it.
type OrderAggregate struct {
	AggregateBase
	BuyerID        string
	Items          []OrderItem
	TotalPrice     float64
	Status         OrderStatus
	TrackingNumber string
	Courier        string
	ShippingNotes  string
	CreatedAt      time.Time
}

// NewOrderAggregate creates a new OrderAggregate to be rehydrated from history.
func NewOrderAggregate(id string) *OrderAggregate {
	return &OrderAggregate{
		AggregateBase: AggregateBase{ID: id, Version: 0},
		Status:        OrderStatusPending,
	}
}

// ApplyEvent mutates the aggregate state based on the event.
func (a *OrderAggregate) ApplyEvent(e Event) error {
	switch e := e.(type) {
	case OrderPlaced:
		a.BuyerID = e.BuyerID
		a.Items = make([]OrderItem, len(e.Items))
		copy(a.Items, e.Items)
		a.TotalPrice = e.TotalPrice
		a.Status = OrderStatusPending
		if a.CreatedAt.IsZero() {
			a.CreatedAt = e.PlacedAt
		}
	case OrderPicked:
		for i := range a.Items {
			a.Items[i].PickedQuantity = e.Quantities[a.Items[i].ProductID]
			// A fresh pick invalidates any earlier scan results.
			a.Items[i].Validated = false
			a.Items[i].ScannedEAN = ""
		}
		a.Status = OrderStatusPrepared
	case ItemScanValidated:
		for i := range a.Items {
			if a.Items[i].ProductID == e.ProductID {
				a.Items[i].Validated = true
				a.Items[i].ScannedEAN = e.ScannedEAN
			}
		}
	case OrderShipped:
		a.TrackingNumber = e.TrackingNumber
		a.Courier = e.Courier
		a.ShippingNotes = e.Notes
		a.Status = OrderStatusCompleted
	case OrderCanceled:
		a.Status = OrderStatusCanceled
	case LabelReprinted:
		// Side effect only, no state change.
	default:
		return fmt.Errorf("unknown event type for OrderAggregate: %s", e.EventType())
	}
	a.Version++
	return nil
}

// Rehydrate rebuilds the aggregate from a list of records.
func (a *OrderAggregate) Rehydrate(records []EventStoreRecord) error {
	for _, rec := range records {
		event, err := UnmarshalOrderEvent(rec.EventType, rec.Payload)
		if err != nil {
			return err
		}
		if err := a.ApplyEvent(event); err != nil {
			return fmt.Errorf("failed to apply event from stream: %w", err)
		}
	}
	return nil
}

// Order returns the current read-model view of the aggregate.
func (a *OrderAggregate) Order() Order {
	items := make([]OrderItem, len(a.Items))
	copy(items, a.Items)
	return Order{
		ID:             a.ID,
		BuyerID:        a.BuyerID,
		Items:          items,
		TotalPrice:     a.TotalPrice,
		Status:         a.Status,
		TrackingNumber: a.TrackingNumber,
		Courier:        a.Courier,
		ShippingNotes:  a.ShippingNotes,
		CreatedAt:      a.CreatedAt,
	}
}

// UnmarshalOrderEvent decodes a stored order-stream event payload back into
// its concrete event type.
func UnmarshalOrderEvent(eventType string, payload []byte) (Event, error) {
	var (
		event Event
		err   error
	)
	switch eventType {
	case "OrderPlaced":
		var e OrderPlaced
		err = json.Unmarshal(payload, &e)
		event = e
	case "OrderPicked":
		var e OrderPicked
		err = json.Unmarshal(payload, &e)
		event = e
	case "ItemScanValidated":
		var e ItemScanValidated
		err = json.Unmarshal(payload, &e)
		event = e
	case "OrderShipped":
		var e OrderShipped
		err = json.Unmarshal(payload, &e)
		event = e
	case "OrderCanceled":
		var e OrderCanceled
		err = json.Unmarshal(payload, &e)
		event = e
	case "LabelReprinted":
		var e LabelReprinted
		err = json.Unmarshal(payload, &e)
		event = e
	default:
		return nil, fmt.Errorf("unknown event type in order stream: %s", eventType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
	}
	return event, nil
}
