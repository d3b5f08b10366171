package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/repository"
)

// ReviewService creates and lists reviews. There is deliberately no update
// or delete: reviews are immutable once posted.
type ReviewService struct {
	repo repository.ReviewRepository
}

func NewReviewService(repo repository.ReviewRepository) *ReviewService {
	return &ReviewService{repo: repo}
}

// CreateReview validates and stores a review for a purchased listing.
func (s *ReviewService) CreateReview(ctx context.Context, postID, buyerID string, score int, description string) (*entity.Review, error) {
	review, err := entity.NewReview(uuid.New().String(), postID, buyerID, score, description)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to store review: %w", err)
	}
	return &review, nil
}

// GetReviews lists the reviews on a listing, newest first.
func (s *ReviewService) GetReviews(ctx context.Context, postID string) ([]entity.Review, error) {
	return s.repo.FindByPost(ctx, postID)
}
