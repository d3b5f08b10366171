package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/repository"
)

// PaymentOptionService manages a business's payment options.
type PaymentOptionService struct {
	repo repository.PaymentOptionRepository
}

func NewPaymentOptionService(repo repository.PaymentOptionRepository) *PaymentOptionService {
	return &PaymentOptionService{repo: repo}
}

// CreateLink registers a gateway checkout link for a business.
func (s *PaymentOptionService) CreateLink(ctx context.Context, businessID, gateway, url string) (*entity.PaymentOption, error) {
	opt, err := entity.NewLinkOption(uuid.New().String(), businessID, gateway, url)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, opt); err != nil {
		return nil, fmt.Errorf("failed to store payment option: %w", err)
	}
	return &opt, nil
}

// CreateTransfer registers bank transfer identifiers for a business.
func (s *PaymentOptionService) CreateTransfer(ctx context.Context, businessID string, transfer entity.BankTransfer) (*entity.PaymentOption, error) {
	opt, err := entity.NewTransferOption(uuid.New().String(), businessID, transfer)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, opt); err != nil {
		return nil, fmt.Errorf("failed to store payment option: %w", err)
	}
	return &opt, nil
}

// GetOptions lists a business's payment options.
func (s *PaymentOptionService) GetOptions(ctx context.Context, businessID string) ([]entity.PaymentOption, error) {
	return s.repo.FindByBusiness(ctx, businessID)
}

// DeleteOption removes a payment option.
func (s *PaymentOptionService) DeleteOption(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
