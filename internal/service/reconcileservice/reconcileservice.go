package reconcileservice

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/toniautla/settlement/internal/domain"
	"github.com/toniautla/settlement/internal/dto"
	"github.com/toniautla/settlement/internal/pg"
)

type OrderRepo interface {
	FindByIDForUpdate(ctx context.Context, id int) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID int, status string) error
}

type PaymentRepo interface {
	GetByID(ctx context.Context, id string) (*domain.PaymentRecord, error)
	Save(ctx context.Context, rec *domain.PaymentRecord) error
}

type OutboxRepo interface {
	Enqueue(ctx context.Context, eventType string, payload any) error
}

type WalletLedger interface {
	Credit(ctx context.Context, userID int, amount decimal.Decimal, txType, description string) error
}

// Event types delivered by the payment processor.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventPaymentCanceled  = "payment_intent.canceled"
	EventDisputeCreated   = "charge.dispute.created"
)

const purposeWalletTopup = "wallet_topup"

type Service struct {
	orderRepo    OrderRepo
	paymentRepo  PaymentRepo
	outboxRepo   OutboxRepo
	walletLedger WalletLedger
	txManager    pg.TXManager
}

func New(orderRepo OrderRepo, paymentRepo PaymentRepo, outboxRepo OutboxRepo,
	walletLedger WalletLedger, txManager pg.TXManager) *Service {
	return &Service{
		orderRepo:    orderRepo,
		paymentRepo:  paymentRepo,
		outboxRepo:   outboxRepo,
		walletLedger: walletLedger,
		txManager:    txManager,
	}
}

// HandleEvent applies one verified processor notification. The processor's
// transaction id is the idempotency key: a replay of an already-recorded
// notification is acknowledged without side effects. All effects of a first
// delivery land in a single transaction.
func (s *Service) HandleEvent(ctx context.Context, ev dto.WebhookEventDTO) error {
	switch ev.Type {
	case EventPaymentSucceeded, EventPaymentFailed, EventPaymentCanceled, EventDisputeCreated:
	default:
		zap.L().Info("unhandled processor event type", zap.String("type", ev.Type))
		return nil
	}

	return s.txManager.Begin(ctx, func(ctx context.Context) error {
		existing, err := s.paymentRepo.GetByID(ctx, ev.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			zap.L().Info("duplicate processor notification",
				zap.String("id", ev.ID), zap.String("type", ev.Type))
			return nil
		}

		userID, userOK := metaID(ev, "user_id")
		orderID, orderOK := metaID(ev, "order_id")
		amount := decimal.New(ev.Amount, -2)

		rec := &domain.PaymentRecord{
			ID:       ev.ID,
			OrderID:  orderID,
			UserID:   userID,
			Amount:   amount,
			Currency: ev.Currency,
		}

		switch ev.Type {
		case EventPaymentSucceeded:
			rec.Status = domain.PaymentStatusSucceeded
			if ev.Metadata["purpose"] == purposeWalletTopup {
				if !userOK {
					// Record the money as operator-visible, but never credit
					// a wallet on an id we could not attribute.
					return s.paymentRepo.Save(ctx, rec)
				}
				desc := "wallet top-up " + ev.ID
				if err := s.walletLedger.Credit(ctx, userID, amount, domain.TxTypeTopup, desc); err != nil {
					return err
				}
				return s.paymentRepo.Save(ctx, rec)
			}
			if !orderOK {
				return s.paymentRepo.Save(ctx, rec)
			}
			return s.transitionOrder(ctx, rec, orderID, domain.OrderStatusPurchased)

		case EventPaymentFailed:
			// The order stays pending and remains retryable.
			rec.Status = domain.PaymentStatusFailed
			rec.FailureReason = ev.FailureReason
			return s.paymentRepo.Save(ctx, rec)

		case EventPaymentCanceled:
			rec.Status = domain.PaymentStatusFailed
			rec.FailureReason = "canceled by processor"
			if !orderOK {
				return s.paymentRepo.Save(ctx, rec)
			}
			return s.transitionOrder(ctx, rec, orderID, domain.OrderStatusCancelled)

		case EventDisputeCreated:
			rec.Status = domain.PaymentStatusDisputed
			rec.FailureReason = ev.FailureReason
			return s.paymentRepo.Save(ctx, rec)
		}
		return nil
	})
}

// metaID extracts one id stamped into the intent metadata at creation
// time. Top-up intents carry no order_id, so an absent key is normal; a
// present but unparsable value means a signed notification carried
// garbage and is logged before the caller falls back to record-only.
func metaID(ev dto.WebhookEventDTO, key string) (int, bool) {
	raw, present := ev.Metadata[key]
	if !present {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		zap.L().Error("malformed processor notification metadata",
			zap.String("id", ev.ID), zap.String(key, raw))
		return 0, false
	}
	return id, true
}

func (s *Service) transitionOrder(ctx context.Context, rec *domain.PaymentRecord, orderID int, next string) error {
	order, err := s.orderRepo.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		// Record the payment anyway so the money is operator-visible.
		zap.L().Error("processor notification for unknown order",
			zap.Int("order_id", orderID), zap.String("payment_id", rec.ID))
		return s.paymentRepo.Save(ctx, rec)
	}

	if err := s.paymentRepo.Save(ctx, rec); err != nil {
		return err
	}

	switch next {
	case domain.OrderStatusPurchased:
		if order.Status != domain.OrderStatusPending {
			zap.L().Info("order already advanced, payment recorded only",
				zap.Int("order_id", orderID), zap.String("status", order.Status))
			return nil
		}
	case domain.OrderStatusCancelled:
		if order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusPurchased {
			zap.L().Info("order not cancellable, payment recorded only",
				zap.Int("order_id", orderID), zap.String("status", order.Status))
			return nil
		}
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, next); err != nil {
		return err
	}
	return s.outboxRepo.Enqueue(ctx, domain.EventOrderStatusChanged, map[string]any{
		"order_id": orderID,
		"user_id":  order.UserID,
		"status":   next,
	})
}
