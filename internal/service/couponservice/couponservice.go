package couponservice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/toniautla/settlement/internal/domain"
	"github.com/toniautla/settlement/internal/service/pricing"
)

type CouponRepo interface {
	FindByCode(ctx context.Context, code string) (*domain.Coupon, error)
	FindGrant(ctx context.Context, userID, couponID int) (*domain.UserCouponGrant, error)
	IncrementUsage(ctx context.Context, couponID int) (bool, error)
	MarkGrantUsed(ctx context.Context, userID, couponID, orderID int) (bool, error)
}

var (
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrCouponExpired      = errors.New("coupon expired")
	ErrCouponExhausted    = errors.New("coupon usage limit reached")
	ErrMinimumOrderNotMet = errors.New("order total below coupon minimum")
	ErrCouponAlreadyUsed  = errors.New("coupon already used")
)

type Service struct {
	couponRepo CouponRepo
}

func New(couponRepo CouponRepo) *Service {
	return &Service{
		couponRepo: couponRepo,
	}
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks the coupon without consuming anything, so a quote preview
// never burns a single-use grant. Redemption happens separately inside the
// checkout transaction.
func (s *Service) Validate(ctx context.Context, code string, userID int, preDiscountTotal decimal.Decimal) (*domain.Coupon, *pricing.Discount, error) {
	coupon, err := s.couponRepo.FindByCode(ctx, NormalizeCode(code))
	if err != nil {
		zap.L().Error("failed to look up coupon", zap.Error(err))
		return nil, nil, err
	}
	if coupon == nil || !coupon.Active {
		return nil, nil, ErrCouponNotFound
	}
	if time.Now().After(coupon.ExpiresAt) {
		return nil, nil, ErrCouponExpired
	}
	if coupon.UsedCount >= coupon.MaxUses {
		return nil, nil, ErrCouponExhausted
	}
	if preDiscountTotal.LessThan(coupon.MinOrderAmount) {
		return nil, nil, ErrMinimumOrderNotMet
	}

	grant, err := s.couponRepo.FindGrant(ctx, userID, coupon.ID)
	if err != nil {
		zap.L().Error("failed to look up coupon grant", zap.Error(err))
		return nil, nil, err
	}
	if grant != nil && grant.UsedAt != nil {
		return nil, nil, ErrCouponAlreadyUsed
	}

	return coupon, &pricing.Discount{Type: coupon.DiscountType, Value: coupon.Value}, nil
}

// Redeem consumes the coupon. Must run inside the transaction that commits
// the order; the conditional updates re-check the cap and the single-use
// constraint against concurrent redeemers.
func (s *Service) Redeem(ctx context.Context, userID, couponID, orderID int) error {
	ok, err := s.couponRepo.IncrementUsage(ctx, couponID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCouponExhausted
	}

	ok, err = s.couponRepo.MarkGrantUsed(ctx, userID, couponID, orderID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCouponAlreadyUsed
	}
	return nil
}
