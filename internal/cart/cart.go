// Package cart implements the buyer's client-local shopping cart: a running
// total over selected line items, ending in a PlaceOrder command.
package cart

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/feriavirtual/backend/internal/entity"
)

// Line is one product in the cart.
type Line struct {
	ProductID string
	Name      string
	EAN       string
	Price     float64
	Quantity  int
}

// Cart accumulates lines before checkout. It lives entirely on the client;
// nothing is persisted until Checkout produces a PlaceOrder command.
type Cart struct {
	BuyerID string
	lines   []Line
}

func New(buyerID string) *Cart {
	return &Cart{BuyerID: buyerID}
}

// Add puts quantity units of a product into the cart, merging with an
// existing line for the same product.
func (c *Cart) Add(p entity.Product, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	for i := range c.lines {
		if c.lines[i].ProductID == p.ID {
			c.lines[i].Quantity += quantity
			c.lines[i].Price = p.Price
			return nil
		}
	}
	c.lines = append(c.lines, Line{
		ProductID: p.ID,
		Name:      p.Name,
		EAN:       p.EAN,
		Price:     p.Price,
		Quantity:  quantity,
	})
	return nil
}

// RemoveUnit takes one unit of a product out of the cart. Removing the last
// unit removes the line entirely. Removing an absent product is a no-op.
func (c *Cart) RemoveUnit(productID string) {
	for i := range c.lines {
		if c.lines[i].ProductID != productID {
			continue
		}
		c.lines[i].Quantity--
		if c.lines[i].Quantity <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
		return
	}
}

// Lines returns a copy of the current cart contents.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total is the sum of price times quantity over all lines.
func (c *Cart) Total() float64 {
	var total float64
	for _, l := range c.lines {
		total += l.Price * float64(l.Quantity)
	}
	return total
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// Checkout converts the cart into a PlaceOrder command and clears it. The
// command carries a fresh order id so the server can deduplicate retries.
func (c *Cart) Checkout() (*entity.PlaceOrder, error) {
	if c.Empty() {
		return nil, fmt.Errorf("cannot check out an empty cart")
	}

	items := make([]entity.OrderItem, len(c.lines))
	for i, l := range c.lines {
		items[i] = entity.OrderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			EAN:       l.EAN,
			Price:     l.Price,
			Quantity:  l.Quantity,
		}
	}
	c.lines = nil

	return &entity.PlaceOrder{
		OrderID: uuid.New().String(),
		BuyerID: c.BuyerID,
		Items:   items,
	}, nil
}
