package entity

import (
	"time"
)

// Product represents a published listing in the marketplace.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	EAN         string  `json:"ean"`
	ImageURL    string  `json:"image_url"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock"`
	BusinessID  string  `json:"business_id"`
}

// StockLevel is the storage view of one listing: how many units remain
// available for sale. Placement reserves stock, so this moves with orders.
type StockLevel struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	EAN        string `json:"ean"`
	Stock      int    `json:"stock"`
	BusinessID string `json:"business_id"`
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPrepared  OrderStatus = "prepared"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// OrderItem is a line item within an order. PickedQuantity and the scan
// fields are filled in during fulfillment; they are zero-valued on a
// freshly placed order.
type OrderItem struct {
	ProductID      string  `json:"product_id"`
	Name           string  `json:"name"`
	EAN            string  `json:"ean"`
	Price          float64 `json:"price"`
	Quantity       int     `json:"quantity"`
	PickedQuantity int     `json:"picked_quantity"`
	ScannedEAN     string  `json:"scanned_ean,omitempty"`
	Validated      bool    `json:"validated"`
}

// Order represents a customer order. It is mutated only through the
// fulfillment transitions (pick, egress, cancel).
type Order struct {
	ID             string      `json:"id"`
	BuyerID        string      `json:"buyer_id"`
	Items          []OrderItem `json:"items"`
	TotalPrice     float64     `json:"total_price"`
	Status         OrderStatus `json:"status"`
	TrackingNumber string      `json:"tracking_number,omitempty"`
	Courier        string      `json:"courier,omitempty"`
	ShippingNotes  string      `json:"shipping_notes,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Item returns the line item for productID, or nil if the order has none.
func (o *Order) Item(productID string) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i]
		}
	}
	return nil
}

// AllValidated reports whether every line item passed scan validation.
// An order with no items is never considered validated.
func (o *Order) AllValidated() bool {
	if len(o.Items) == 0 {
		return false
	}
	for i := range o.Items {
		if !o.Items[i].Validated {
			return false
		}
	}
	return true
}

// --- Commands ---

// PlaceOrder is a command to create a new order.
type PlaceOrder struct {
	OrderID string      `json:"order_id"`
	BuyerID string      `json:"buyer_id"`
	Items   []OrderItem `json:"items"`
}
