package paymentrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/toniautla/settlement/internal/domain"
	"github.com/toniautla/settlement/internal/pg"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.PaymentRecord, error) {
	query := `
        SELECT id, order_id, user_id, amount, currency, status, failure_reason, created_at
        FROM payment_records
        WHERE id = $1
    `
	row := r.db.QueryRow(ctx, query, id)
	var rec domain.PaymentRecord
	err := row.Scan(&rec.ID, &rec.OrderID, &rec.UserID, &rec.Amount, &rec.Currency,
		&rec.Status, &rec.FailureReason, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to get payment record", zap.Error(err))
		return nil, err
	}
	return &rec, nil
}

func (r *Repository) GetByOrderID(ctx context.Context, orderID int) (*domain.PaymentRecord, error) {
	query := `
        SELECT id, order_id, user_id, amount, currency, status, failure_reason, created_at
        FROM payment_records
        WHERE order_id = $1
        ORDER BY created_at DESC
        LIMIT 1
    `
	row := r.db.QueryRow(ctx, query, orderID)
	var rec domain.PaymentRecord
	err := row.Scan(&rec.ID, &rec.OrderID, &rec.UserID, &rec.Amount, &rec.Currency,
		&rec.Status, &rec.FailureReason, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to get payment record by order", zap.Error(err))
		return nil, err
	}
	return &rec, nil
}

// Save upserts on the processor transaction id so a repeated delivery of the
// same notification can never produce a second record.
func (r *Repository) Save(ctx context.Context, rec *domain.PaymentRecord) error {
	query := `
        INSERT INTO payment_records (id, order_id, user_id, amount, currency, status, failure_reason)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE
        SET status = EXCLUDED.status, failure_reason = EXCLUDED.failure_reason
        RETURNING created_at
    `
	row := r.db.QueryRow(ctx, query, rec.ID, rec.OrderID, rec.UserID, rec.Amount,
		rec.Currency, rec.Status, rec.FailureReason)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		zap.L().Error("failed to save payment record", zap.Error(err))
		return err
	}
	return nil
}
