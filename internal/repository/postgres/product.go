package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/repository"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new ProductRepository backed by Postgres.
func NewProductRepository(db *sql.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) FindAll(ctx context.Context) ([]entity.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, description, price, ean, image_url, category, stock, business_id FROM products ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []entity.Product
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.EAN, &p.ImageURL, &p.Category, &p.Stock, &p.BusinessID); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, price, ean, image_url, category, stock, business_id FROM products WHERE id = $1",
		id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.EAN, &p.ImageURL, &p.Category, &p.Stock, &p.BusinessID)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return &p, nil
}

func (r *productRepository) DecrementStock(ctx context.Context, productID string, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1",
		quantity, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("insufficient stock for product %s", productID)
	}
	return nil
}

func (r *productRepository) Seed(ctx context.Context, products []entity.Product) error {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil // already seeded
	}

	for _, p := range products {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO products (id, name, description, price, ean, image_url, category, stock, business_id) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
			p.ID, p.Name, p.Description, p.Price, p.EAN, p.ImageURL, p.Category, p.Stock, p.BusinessID,
		)
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}
	return nil
}
