package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/repository"
)

type reportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new ReportRepository backed by Postgres.
func NewReportRepository(db *sql.DB) repository.ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report entity.Report) error {
	notes, err := json.Marshal(report.Notes)
	if err != nil {
		return fmt.Errorf("failed to marshal report notes: %w", err)
	}
	if report.Notes == nil {
		notes = []byte("[]")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO reports (id, order_id, chat_id, business_id, status, open_reason, description, close_reason, notes, created_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		report.ID, report.OrderID, report.ChatID, report.BusinessID, string(report.Status),
		report.OpenReason, report.Description, report.CloseReason, notes, report.CreatedAt, report.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

func (r *reportRepository) FindByID(ctx context.Context, id string) (*entity.Report, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, order_id, chat_id, business_id, status, open_reason, description, close_reason, notes, created_at, closed_at FROM reports WHERE id = $1",
		id,
	)
	report, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}
	return report, nil
}

func (r *reportRepository) FindAll(ctx context.Context) ([]entity.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, order_id, chat_id, business_id, status, open_reason, description, close_reason, notes, created_at, closed_at FROM reports ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []entity.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

func (r *reportRepository) Update(ctx context.Context, report entity.Report) error {
	notes, err := json.Marshal(report.Notes)
	if err != nil {
		return fmt.Errorf("failed to marshal report notes: %w", err)
	}
	if report.Notes == nil {
		notes = []byte("[]")
	}

	res, err := r.db.ExecContext(ctx,
		"UPDATE reports SET status = $1, close_reason = $2, notes = $3, closed_at = $4 WHERE id = $5",
		string(report.Status), report.CloseReason, notes, report.ClosedAt, report.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*entity.Report, error) {
	var report entity.Report
	var status string
	var notes []byte
	err := row.Scan(&report.ID, &report.OrderID, &report.ChatID, &report.BusinessID, &status,
		&report.OpenReason, &report.Description, &report.CloseReason, &notes, &report.CreatedAt, &report.ClosedAt)
	if err != nil {
		return nil, err
	}
	report.Status = entity.ReportStatus(status)
	if err := json.Unmarshal(notes, &report.Notes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report notes: %w", err)
	}
	return &report, nil
}
