package orderservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/toniautla/settlement/internal/domain"
	"github.com/toniautla/settlement/internal/pg"
	"github.com/toniautla/settlement/internal/processor"
	"github.com/toniautla/settlement/internal/service/pricing"
)

type OrderRepo interface {
	Save(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id int) (*domain.Order, error)
	FindByIDForUpdate(ctx context.Context, id int) (*domain.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID int, key string) (*domain.Order, error)
	FindOrdersByUserID(ctx context.Context, userID int) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID int, status string) error
}

type PaymentRepo interface {
	Save(ctx context.Context, rec *domain.PaymentRecord) error
	GetByOrderID(ctx context.Context, orderID int) (*domain.PaymentRecord, error)
}

type OutboxRepo interface {
	Enqueue(ctx context.Context, eventType string, payload any) error
}

type CouponService interface {
	Validate(ctx context.Context, code string, userID int, preDiscountTotal decimal.Decimal) (*domain.Coupon, *pricing.Discount, error)
	Redeem(ctx context.Context, userID, couponID, orderID int) error
}

type WalletLedger interface {
	Debit(ctx context.Context, userID int, amount decimal.Decimal, description string) error
	Credit(ctx context.Context, userID int, amount decimal.Decimal, txType, description string) error
}

type IntentCreator interface {
	CreateIntent(ctx context.Context, req processor.IntentRequest) (*processor.Intent, error)
}

var (
	ErrValidation        = errors.New("invalid checkout input")
	ErrPriceMismatch     = errors.New("price mismatch")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrProcessor         = errors.New("payment processor error")
)

// allowedTransitions is the full order state machine. Delivered and
// cancelled are terminal.
var allowedTransitions = map[string]map[string]bool{
	domain.OrderStatusPending: {
		domain.OrderStatusPurchased: true,
		domain.OrderStatusCancelled: true,
	},
	domain.OrderStatusPurchased: {
		domain.OrderStatusWarehouse: true,
		domain.OrderStatusCancelled: true,
	},
	domain.OrderStatusWarehouse: {
		domain.OrderStatusShipped:   true,
		domain.OrderStatusCancelled: true,
	},
	domain.OrderStatusShipped: {
		domain.OrderStatusDelivered: true,
		domain.OrderStatusCancelled: true,
	},
}

func CanTransition(from, to string) bool {
	return allowedTransitions[from][to]
}

type CheckoutItem struct {
	ProductRef string
	pricing.Item
}

type CheckoutInput struct {
	Items            []CheckoutItem
	Shipping         pricing.Shipping
	ShippingMethodID int
	AddressID        int
	CouponCode       string
	PaymentMethod    string
	Notes            string
	IdempotencyKey   string
	ExpectedTotal    decimal.Decimal
}

type CheckoutResult struct {
	Order        *domain.Order
	IntentID     string
	ClientSecret string
	// Duplicate marks a replayed idempotency key: the original order is
	// returned and nothing new was committed.
	Duplicate bool
}

type Service struct {
	orderRepo     OrderRepo
	paymentRepo   PaymentRepo
	outboxRepo    OutboxRepo
	couponService CouponService
	walletLedger  WalletLedger
	intents       IntentCreator
	txManager     pg.TXManager
	currency      string
}

func New(orderRepo OrderRepo, paymentRepo PaymentRepo, outboxRepo OutboxRepo,
	couponService CouponService, walletLedger WalletLedger, intents IntentCreator,
	txManager pg.TXManager, currency string) *Service {
	return &Service{
		orderRepo:     orderRepo,
		paymentRepo:   paymentRepo,
		outboxRepo:    outboxRepo,
		couponService: couponService,
		walletLedger:  walletLedger,
		intents:       intents,
		txManager:     txManager,
		currency:      currency,
	}
}

// Quote recomputes the breakdown server-side, validating the coupon without
// consuming it.
func (s *Service) Quote(ctx context.Context, userID int, items []CheckoutItem, shipping pricing.Shipping, couponCode string) (pricing.Breakdown, error) {
	input := pricing.Input{Shipping: shipping}
	for _, item := range items {
		input.Items = append(input.Items, item.Item)
	}

	quote := pricing.Quote(input)
	if couponCode != "" {
		_, discount, err := s.couponService.Validate(ctx, couponCode, userID, quote.PreDiscountTotal)
		if err != nil {
			return pricing.Breakdown{}, err
		}
		input.Discount = discount
		quote = pricing.Quote(input)
	}
	return quote, nil
}

// Checkout commits the order. Everything financial happens inside one
// transaction: order + items, coupon redemption, and for wallet payment the
// debit, the payment record and the purchased transition. The processor
// call for card payment happens strictly after commit.
func (s *Service) Checkout(ctx context.Context, userID int, in CheckoutInput) (*CheckoutResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	existing, err := s.orderRepo.FindByIdempotencyKey(ctx, userID, in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.replay(ctx, existing)
	}

	input := pricing.Input{Shipping: in.Shipping}
	for _, item := range in.Items {
		input.Items = append(input.Items, item.Item)
	}
	quote := pricing.Quote(input)

	var coupon *domain.Coupon
	if in.CouponCode != "" {
		var discount *pricing.Discount
		coupon, discount, err = s.couponService.Validate(ctx, in.CouponCode, userID, quote.PreDiscountTotal)
		if err != nil {
			return nil, err
		}
		input.Discount = discount
		quote = pricing.Quote(input)
	}

	if !pricing.WithinTolerance(quote.Total, in.ExpectedTotal) {
		zap.L().Info("checkout price mismatch",
			zap.String("server_total", quote.Total.String()),
			zap.String("client_total", in.ExpectedTotal.String()))
		return nil, fmt.Errorf("%w: server computed %s, client expected %s",
			ErrPriceMismatch, quote.Total, in.ExpectedTotal)
	}

	order := &domain.Order{
		UserID:           userID,
		Status:           domain.OrderStatusPending,
		PaymentMethod:    in.PaymentMethod,
		Subtotal:         quote.Subtotal,
		ServiceFee:       quote.ServiceFee,
		InspectionFee:    quote.InspectionFee,
		ConsolidationFee: quote.ConsolidationFee,
		ShippingCost:     quote.ShippingCost,
		Discount:         quote.Discount,
		Total:            quote.Total,
		AddressID:        in.AddressID,
		ShippingMethodID: in.ShippingMethodID,
		Notes:            in.Notes,
		IdempotencyKey:   in.IdempotencyKey,
	}
	if coupon != nil {
		order.CouponCode = coupon.Code
	}
	for _, item := range in.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductRef:    item.ProductRef,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			LineTotal:     pricing.LineTotal(item.Item),
			Inspection:    item.Inspection,
			Consolidation: item.Consolidation,
		})
	}

	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		if err := s.orderRepo.Save(ctx, order); err != nil {
			return err
		}
		if coupon != nil {
			if err := s.couponService.Redeem(ctx, userID, coupon.ID, order.ID); err != nil {
				return err
			}
		}
		if in.PaymentMethod == domain.PaymentMethodWallet {
			desc := fmt.Sprintf("payment for order %d", order.ID)
			if err := s.walletLedger.Debit(ctx, userID, order.Total, desc); err != nil {
				return err
			}
			rec := &domain.PaymentRecord{
				ID:       "wallet-" + strconv.Itoa(order.ID),
				OrderID:  order.ID,
				UserID:   userID,
				Amount:   order.Total,
				Currency: s.currency,
				Status:   domain.PaymentStatusSucceeded,
			}
			if err := s.paymentRepo.Save(ctx, rec); err != nil {
				return err
			}
			if err := s.orderRepo.UpdateStatus(ctx, order.ID, domain.OrderStatusPurchased); err != nil {
				return err
			}
			order.Status = domain.OrderStatusPurchased
		}
		return s.outboxRepo.Enqueue(ctx, domain.EventOrderStatusChanged, map[string]any{
			"order_id": order.ID,
			"user_id":  userID,
			"status":   order.Status,
		})
	})
	if err != nil {
		if isIdempotencyConflict(err) {
			// Lost a race against a concurrent commit with the same key:
			// the winner's order is the canonical one.
			winner, ferr := s.orderRepo.FindByIdempotencyKey(ctx, userID, in.IdempotencyKey)
			if ferr == nil && winner != nil {
				return s.replay(ctx, winner)
			}
		}
		return nil, err
	}

	result := &CheckoutResult{Order: order}
	if in.PaymentMethod == domain.PaymentMethodCard {
		intent, err := s.createIntent(ctx, order)
		if err != nil {
			// Order stays pending and remains payable later.
			zap.L().Error("can't create payment intent",
				zap.Int("order_id", order.ID), zap.Error(err))
			return result, fmt.Errorf("%w: %v", ErrProcessor, err)
		}
		result.IntentID = intent.ID
		result.ClientSecret = intent.ClientSecret
	}
	return result, nil
}

// replay answers a repeated idempotency key with the already-committed
// order. A pending card order without a succeeded payment gets a fresh
// intent, so a failed processor call never strands the order unpayable.
func (s *Service) replay(ctx context.Context, existing *domain.Order) (*CheckoutResult, error) {
	zap.L().Info("duplicate checkout commit",
		zap.Int("order_id", existing.ID), zap.String("idempotency_key", existing.IdempotencyKey))

	result := &CheckoutResult{Order: existing, Duplicate: true}
	if existing.PaymentMethod != domain.PaymentMethodCard || existing.Status != domain.OrderStatusPending {
		return result, nil
	}

	rec, err := s.paymentRepo.GetByOrderID(ctx, existing.ID)
	if err != nil {
		return nil, err
	}
	if rec != nil && rec.Status == domain.PaymentStatusSucceeded {
		return result, nil
	}

	intent, err := s.createIntent(ctx, existing)
	if err != nil {
		zap.L().Error("can't create payment intent on replay",
			zap.Int("order_id", existing.ID), zap.Error(err))
		return result, fmt.Errorf("%w: %v", ErrProcessor, err)
	}
	result.IntentID = intent.ID
	result.ClientSecret = intent.ClientSecret
	return result, nil
}

func (s *Service) createIntent(ctx context.Context, order *domain.Order) (*processor.Intent, error) {
	return s.intents.CreateIntent(ctx, processor.IntentRequest{
		Amount:   order.Total.Shift(2).IntPart(),
		Currency: s.currency,
		Metadata: map[string]string{
			"order_id": strconv.Itoa(order.ID),
			"user_id":  strconv.Itoa(order.UserID),
			"purpose":  "order_payment",
		},
	})
}

// isIdempotencyConflict reports a unique violation on the per-user
// idempotency key, which the pre-commit lookup cannot rule out under
// concurrency.
func isIdempotencyConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" &&
		strings.Contains(pgErr.ConstraintName, "idempotency_key")
}

// UpdateStatus applies an operator-driven transition. Cancelling a
// wallet-paid order credits the amount back in the same transaction.
func (s *Service) UpdateStatus(ctx context.Context, orderID int, next string) (*domain.Order, error) {
	var order *domain.Order
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orderRepo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if !CanTransition(order.Status, next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, next)
		}
		if err := s.orderRepo.UpdateStatus(ctx, orderID, next); err != nil {
			return err
		}
		if next == domain.OrderStatusCancelled &&
			order.PaymentMethod == domain.PaymentMethodWallet &&
			order.Status != domain.OrderStatusPending {
			desc := fmt.Sprintf("refund for cancelled order %d", orderID)
			if err := s.walletLedger.Credit(ctx, order.UserID, order.Total, domain.TxTypeCreditRefund, desc); err != nil {
				return err
			}
		}
		order.Status = next
		return s.outboxRepo.Enqueue(ctx, domain.EventOrderStatusChanged, map[string]any{
			"order_id": order.ID,
			"user_id":  order.UserID,
			"status":   next,
		})
	})
	if err != nil {
		if !errors.Is(err, ErrOrderNotFound) && !errors.Is(err, ErrInvalidTransition) {
			zap.L().Error("failed to update order status", zap.Error(err))
		}
		return nil, err
	}
	return order, nil
}

func (s *Service) GetOrders(ctx context.Context, userID int) ([]domain.Order, error) {
	orders, err := s.orderRepo.FindOrdersByUserID(ctx, userID)
	if err != nil {
		zap.L().Error("failed to get orders", zap.Error(err))
		return nil, err
	}
	return orders, nil
}

func (s *Service) GetOrder(ctx context.Context, userID, orderID int) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func validateInput(in CheckoutInput) error {
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrValidation)
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: non-positive quantity", ErrValidation)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: negative unit price", ErrValidation)
		}
	}
	if in.AddressID == 0 {
		return fmt.Errorf("%w: missing address", ErrValidation)
	}
	if in.ShippingMethodID == 0 {
		return fmt.Errorf("%w: missing shipping method", ErrValidation)
	}
	if in.PaymentMethod != domain.PaymentMethodWallet && in.PaymentMethod != domain.PaymentMethodCard {
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, in.PaymentMethod)
	}
	if in.IdempotencyKey == "" {
		return fmt.Errorf("%w: missing idempotency key", ErrValidation)
	}
	return nil
}
