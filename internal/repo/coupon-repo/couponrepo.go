package couponrepo

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

func (r *Repository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `
        SELECT id, code, discount_type, value, min_order_amount, max_uses, used_count, active, expires_at
        FROM coupons
        WHERE code = $1
    `
	row := r.db.QueryRow(ctx, query, code)
	var c domain.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.Value, &c.MinOrderAmount, &c.MaxUses, &c.UsedCount, &c.Active, &c.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to find coupon", zap.Error(err))
		return nil, err
	}
	return &c, nil
}

func (r *Repository) FindGrant(ctx context.Context, userID, couponID int) (*domain.UserCouponGrant, error) {
	query := `
        SELECT id, user_id, coupon_id, used_at, order_id
        FROM user_coupon_grants
        WHERE user_id = $1 AND coupon_id = $2
    `
	row := r.db.QueryRow(ctx, query, userID, couponID)
	var g domain.UserCouponGrant
	err := row.Scan(&g.ID, &g.UserID, &g.CouponID, &g.UsedAt, &g.OrderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to find coupon grant", zap.Error(err))
		return nil, err
	}
	return &g, nil
}

// IncrementUsage bumps used_count only while the redemption cap holds. A
// false return means the coupon is exhausted.
func (r *Repository) IncrementUsage(ctx context.Context, couponID int) (bool, error) {
	query := `
        UPDATE coupons
        SET used_count = used_count + 1
        WHERE id = $1 AND used_count < max_uses
    `
	tag, err := r.db.Exec(ctx, query, couponID)
	if err != nil {
		zap.L().Error("failed to increment coupon usage", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkGrantUsed consumes the per-user grant, creating it on first use. A
// false return means the grant was already consumed.
func (r *Repository) MarkGrantUsed(ctx context.Context, userID, couponID, orderID int) (bool, error) {
	query := `
        INSERT INTO user_coupon_grants (user_id, coupon_id, used_at, order_id)
        VALUES ($1, $2, now(), $3)
        ON CONFLICT (user_id, coupon_id) DO UPDATE
        SET used_at = now(), order_id = $3
        WHERE user_coupon_grants.used_at IS NULL
    `
	tag, err := r.db.Exec(ctx, query, userID, couponID, orderID)
	if err != nil {
		zap.L().Error("failed to mark coupon grant used", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
