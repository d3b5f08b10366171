package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/repository"
)

// ErrReportClosed is returned for mutations on an already closed report.
var ErrReportClosed = errors.New("report is closed")

// ReportService manages the report lifecycle: opened by a buyer, annotated
// over time, closed only by an admin.
type ReportService struct {
	repo repository.ReportRepository
}

func NewReportService(repo repository.ReportRepository) *ReportService {
	return &ReportService{repo: repo}
}

// CreateReport opens a new report against an order, chat or business.
func (s *ReportService) CreateReport(ctx context.Context, openReason, description, orderID, chatID, businessID string) (*entity.Report, error) {
	if openReason == "" {
		return nil, fmt.Errorf("report requires an open reason")
	}

	report := entity.Report{
		ID:          uuid.New().String(),
		OrderID:     orderID,
		ChatID:      chatID,
		BusinessID:  businessID,
		Status:      entity.ReportStatusOpen,
		OpenReason:  openReason,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	slog.Info("Report opened", "report_id", report.ID, "order_id", orderID)
	return &report, nil
}

// GetReports lists every report, newest first.
func (s *ReportService) GetReports(ctx context.Context) ([]entity.Report, error) {
	return s.repo.FindAll(ctx)
}

// AppendNote adds a free-text note to an open report. Notes are append-only.
func (s *ReportService) AppendNote(ctx context.Context, reportID, body string) (*entity.Report, error) {
	report, err := s.repo.FindByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status == entity.ReportStatusClosed {
		return nil, fmt.Errorf("report %s: %w", reportID, ErrReportClosed)
	}

	report.Notes = append(report.Notes, entity.ReportNote{Body: body, CreatedAt: time.Now()})
	if err := s.repo.Update(ctx, *report); err != nil {
		return nil, fmt.Errorf("failed to append report note: %w", err)
	}
	return report, nil
}

// CloseReport closes a report with an optional reason. Admin-only at the
// delivery layer; closing twice is rejected.
func (s *ReportService) CloseReport(ctx context.Context, reportID, closeReason string) (*entity.Report, error) {
	report, err := s.repo.FindByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status == entity.ReportStatusClosed {
		return nil, fmt.Errorf("report %s: %w", reportID, ErrReportClosed)
	}

	now := time.Now()
	report.Status = entity.ReportStatusClosed
	report.CloseReason = closeReason
	report.ClosedAt = &now
	if err := s.repo.Update(ctx, *report); err != nil {
		return nil, fmt.Errorf("failed to close report: %w", err)
	}

	slog.Info("Report closed", "report_id", reportID)
	return report, nil
}
