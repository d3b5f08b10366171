package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/repository"
)

type paymentOptionRepository struct {
	db *sql.DB
}

// NewPaymentOptionRepository creates a new PaymentOptionRepository backed by
// Postgres. The variant payload is stored as JSONB; the kind column is the
// discriminator.
func NewPaymentOptionRepository(db *sql.DB) repository.PaymentOptionRepository {
	return &paymentOptionRepository{db: db}
}

func (r *paymentOptionRepository) Create(ctx context.Context, opt entity.PaymentOption) error {
	if err := opt.Validate(); err != nil {
		return err
	}

	var payload any
	switch opt.Kind {
	case entity.PaymentKindLink:
		payload = opt.Link
	case entity.PaymentKindTransfer:
		payload = opt.Transfer
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payment payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO payment_options (id, business_id, kind, payload) VALUES ($1, $2, $3, $4)",
		opt.ID, opt.BusinessID, string(opt.Kind), raw,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment option: %w", err)
	}
	return nil
}

func (r *paymentOptionRepository) FindByBusiness(ctx context.Context, businessID string) ([]entity.PaymentOption, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, business_id, kind, payload FROM payment_options WHERE business_id = $1 ORDER BY created_at",
		businessID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment options: %w", err)
	}
	defer rows.Close()

	var opts []entity.PaymentOption
	for rows.Next() {
		var opt entity.PaymentOption
		var kind string
		var raw []byte
		if err := rows.Scan(&opt.ID, &opt.BusinessID, &kind, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan payment option: %w", err)
		}
		opt.Kind = entity.PaymentKind(kind)
		switch opt.Kind {
		case entity.PaymentKindLink:
			var link entity.PaymentLink
			if err := json.Unmarshal(raw, &link); err != nil {
				return nil, fmt.Errorf("failed to unmarshal link payload: %w", err)
			}
			opt.Link = &link
		case entity.PaymentKindTransfer:
			var transfer entity.BankTransfer
			if err := json.Unmarshal(raw, &transfer); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transfer payload: %w", err)
			}
			opt.Transfer = &transfer
		default:
			return nil, fmt.Errorf("unknown payment kind %q for option %s", kind, opt.ID)
		}
		opts = append(opts, opt)
	}
	return opts, rows.Err()
}

func (r *paymentOptionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM payment_options WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete payment option: %w", err)
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
