package postgres

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("Database connected and migrated")
	return db, nil
}

func migrateDB(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price DOUBLE PRECISION NOT NULL DEFAULT 0,
			ean TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			stock INT NOT NULL DEFAULT 0,
			business_id TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			buyer_id TEXT NOT NULL DEFAULT '',
			total_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			tracking_number TEXT NOT NULL DEFAULT '',
			courier TEXT NOT NULL DEFAULT '',
			shipping_notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS order_items (
			id SERIAL PRIMARY KEY,
			order_id TEXT NOT NULL REFERENCES orders(id),
			product_id TEXT NOT NULL,
			name TEXT NOT NULL,
			ean TEXT NOT NULL DEFAULT '',
			price DOUBLE PRECISION NOT NULL DEFAULT 0,
			quantity INT NOT NULL DEFAULT 1,
			picked_quantity INT NOT NULL DEFAULT 0,
			scanned_ean TEXT NOT NULL DEFAULT '',
			validated BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			stream_id TEXT NOT NULL,
			stream_type TEXT NOT NULL,
			version INT NOT NULL,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (stream_id, version)
		);

		CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL DEFAULT '',
			chat_id TEXT NOT NULL DEFAULT '',
			business_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'open',
			open_reason TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			close_reason TEXT NOT NULL DEFAULT '',
			notes JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			closed_at TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS reviews (
			id TEXT PRIMARY KEY,
			post_id TEXT NOT NULL,
			buyer_id TEXT NOT NULL,
			score INT NOT NULL CHECK (score BETWEEN 1 AND 5),
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS chats (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT 'open',
			order_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL REFERENCES chats(id),
			author TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS payment_options (
			id TEXT PRIMARY KEY,
			business_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
	`)
	return err
}
