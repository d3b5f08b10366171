package entity

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidScore is returned for a review score outside 1..5.
var ErrInvalidScore = errors.New("review score must be between 1 and 5")

// Review is one buyer rating tied to a purchased product listing. There is
// no update path: reviews are immutable after creation.
type Review struct {
	ID          string    `json:"id"`
	PostID      string    `json:"post_id"`
	BuyerID     string    `json:"buyer_id"`
	Score       int       `json:"score"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewReview validates and builds a review. Score must be between 1 and 5
// inclusive.
func NewReview(id, postID, buyerID string, score int, description string) (Review, error) {
	if score < 1 || score > 5 {
		return Review{}, fmt.Errorf("got %d: %w", score, ErrInvalidScore)
	}
	if postID == "" {
		return Review{}, fmt.Errorf("review must reference a post")
	}
	return Review{
		ID:          id,
		PostID:      postID,
		BuyerID:     buyerID,
		Score:       score,
		Description: description,
		CreatedAt:   time.Now(),
	}, nil
}
