package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/repository"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository backed by Postgres.
func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

// Save upserts the full projection of an order, items included. The order
// row and its items are replaced in one transaction so a reader never sees
// a half-applied fulfillment transition.
func (r *orderRepository) Save(ctx context.Context, order entity.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, buyer_id, total_price, status, tracking_number, courier, shipping_notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			tracking_number = EXCLUDED.tracking_number,
			courier = EXCLUDED.courier,
			shipping_notes = EXCLUDED.shipping_notes`,
		order.ID, order.BuyerID, order.TotalPrice, string(order.Status),
		order.TrackingNumber, order.Courier, order.ShippingNotes, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = $1", order.ID); err != nil {
		return fmt.Errorf("failed to clear order items: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, ean, price, quantity, picked_quantity, scanned_ean, validated)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			order.ID, item.ProductID, item.Name, item.EAN, item.Price,
			item.Quantity, item.PickedQuantity, item.ScannedEAN, item.Validated,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	var o entity.Order
	var status string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, buyer_id, total_price, status, tracking_number, courier, shipping_notes, created_at FROM orders WHERE id = $1",
		id,
	).Scan(&o.ID, &o.BuyerID, &o.TotalPrice, &status, &o.TrackingNumber, &o.Courier, &o.ShippingNotes, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	o.Status = entity.OrderStatus(status)

	items, err := r.loadItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *orderRepository) FindAll(ctx context.Context) ([]entity.Order, error) {
	return r.findWhere(ctx, "", nil)
}

func (r *orderRepository) FindByBuyer(ctx context.Context, buyerID string) ([]entity.Order, error) {
	return r.findWhere(ctx, "WHERE buyer_id = $1", []any{buyerID})
}

func (r *orderRepository) findWhere(ctx context.Context, where string, args []any) ([]entity.Order, error) {
	query := "SELECT id, buyer_id, total_price, status, tracking_number, courier, shipping_notes, created_at FROM orders " +
		where + " ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []entity.Order
	for rows.Next() {
		var o entity.Order
		var status string
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.TotalPrice, &status, &o.TrackingNumber, &o.Courier, &o.ShippingNotes, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Status = entity.OrderStatus(status)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]entity.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT product_id, name, ean, price, quantity, picked_quantity, scanned_ean, validated FROM order_items WHERE order_id = $1 ORDER BY id",
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []entity.OrderItem
	for rows.Next() {
		var item entity.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.EAN, &item.Price, &item.Quantity, &item.PickedQuantity, &item.ScannedEAN, &item.Validated); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order item rows: %w", err)
	}
	return items, nil
}
