package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/repository"
)

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository creates a new ReviewRepository backed by Postgres.
func NewReviewRepository(db *sql.DB) repository.ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review entity.Review) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO reviews (id, post_id, buyer_id, score, description, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		review.ID, review.PostID, review.BuyerID, review.Score, review.Description, review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

func (r *reviewRepository) FindByPost(ctx context.Context, postID string) ([]entity.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, post_id, buyer_id, score, description, created_at FROM reviews WHERE post_id = $1 ORDER BY created_at DESC",
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []entity.Review
	for rows.Next() {
		var rv entity.Review
		if err := rows.Scan(&rv.ID, &rv.PostID, &rv.BuyerID, &rv.Score, &rv.Description, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}
