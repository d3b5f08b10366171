package entity

import "time"

// Fulfillment lifecycle events. Each event appends to the order's stream
// and drives the read-model projection plus the Kafka topics in
// internal/messaging.

// OrderPlaced is emitted when an order is successfully placed.
type OrderPlaced struct {
	OrderID    string      `json:"order_id"`
	BuyerID    string      `json:"buyer_id"`
	Items      []OrderItem `json:"items"`
	TotalPrice float64     `json:"total_price"`
	PlacedAt   time.Time   `json:"placed_at"`
}

func (e OrderPlaced) EventType() string { return "OrderPlaced" }

// OrderPicked is emitted when the operator records picked quantities for
// every line item, moving the order from pending to prepared.
type OrderPicked struct {
	OrderID    string         `json:"order_id"`
	Quantities map[string]int `json:"quantities"` // product_id -> picked
	PickedAt   time.Time      `json:"picked_at"`
}

func (e OrderPicked) EventType() string { return "OrderPicked" }

// ItemScanValidated is emitted when a scanned barcode matched the item's
// registered EAN. Mismatched scans emit nothing.
type ItemScanValidated struct {
	OrderID    string    `json:"order_id"`
	ProductID  string    `json:"product_id"`
	ScannedEAN string    `json:"scanned_ean"`
	ScannedAt  time.Time `json:"scanned_at"`
}

func (e ItemScanValidated) EventType() string { return "ItemScanValidated" }

// OrderShipped is emitted on egress, moving the order from prepared to
// completed and triggering label generation.
type OrderShipped struct {
	OrderID        string    `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
	Courier        string    `json:"courier"`
	Notes          string    `json:"notes,omitempty"`
	ShippedAt      time.Time `json:"shipped_at"`
}

func (e OrderShipped) EventType() string { return "OrderShipped" }

// OrderCanceled is emitted when a pending order is canceled. Irreversible.
type OrderCanceled struct {
	OrderID    string    `json:"order_id"`
	CanceledAt time.Time `json:"canceled_at"`
}

func (e OrderCanceled) EventType() string { return "OrderCanceled" }

// LabelReprinted is emitted when the operator asks for the shipping label
// again. It does not change order state.
type LabelReprinted struct {
	OrderID     string    `json:"order_id"`
	RequestedAt time.Time `json:"requested_at"`
}

func (e LabelReprinted) EventType() string { return "LabelReprinted" }
