package reconcileservice

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/toniautla/settlement/internal/domain"
	"github.com/toniautla/settlement/internal/dto"
	"github.com/toniautla/settlement/internal/pg"
)

type mocks struct {
	orderRepo    *MockOrderRepo
	paymentRepo  *MockPaymentRepo
	outboxRepo   *MockOutboxRepo
	walletLedger *MockWalletLedger
	txManager    *pg.MockTXManager
}

func NewMock(t *testing.T) (*Service, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		orderRepo:    NewMockOrderRepo(ctrl),
		paymentRepo:  NewMockPaymentRepo(ctrl),
		outboxRepo:   NewMockOutboxRepo(ctrl),
		walletLedger: NewMockWalletLedger(ctrl),
		txManager:    pg.NewMockTXManager(ctrl),
	}
	service := New(m.orderRepo, m.paymentRepo, m.outboxRepo, m.walletLedger, m.txManager)
	defer ctrl.Finish()
	return service, m
}

func passThrough(txManager *pg.MockTXManager) {
	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error {
		return fn(ctx)
	})
}

func orderEvent(eventType string) dto.WebhookEventDTO {
	return dto.WebhookEventDTO{
		ID:       "pi_1",
		Type:     eventType,
		Amount:   8548,
		Currency: "EUR",
		Metadata: map[string]string{
			"order_id": "10",
			"user_id":  "1",
			"purpose":  "order_payment",
		},
	}
}

func TestHandleEvent(t *testing.T) {
	service, m := NewMock(t)

	tests := []struct {
		name          string
		event         dto.WebhookEventDTO
		prepareMock   func()
		expectedError error
	}{
		{
			name:  "Unknown event type is acknowledged without effects",
			event: dto.WebhookEventDTO{ID: "evt_1", Type: "customer.created"},
			prepareMock: func() {
			},
			expectedError: nil,
		},
		{
			name:  "Replayed notification is a no-op",
			event: orderEvent(EventPaymentSucceeded),
			prepareMock: func() {
				passThrough(m.txManager)
				m.paymentRepo.EXPECT().GetByID(gomock.Any(), "pi_1").
					Return(&domain.PaymentRecord{ID: "pi_1", Status: domain.PaymentStatusSucceeded}, nil)
			},
			expectedError: nil,
		},
		{
			name:  "Success advances the pending order",
			event: orderEvent(EventPaymentSucceeded),
			prepareMock: func() {
				passThrough(m.txManager)
				m.paymentRepo.EXPECT().GetByID(gomock.Any(), "pi_1").Return(nil, nil)
				m.orderRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 10).
					Return(&domain.Order{ID: 10, UserID: 1, Status: domain.OrderStatusPending}, nil)
				m.paymentRepo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, rec *domain.PaymentRecord) error {
					assert.Equal(t, "pi_1", rec.ID)
					assert.Equal(t, domain.PaymentStatusSucceeded, rec.Status)
					assert.True(t, decimal.RequireFromString("85.48").Equal(rec.Amount))
					return nil
				})
				m.orderRepo.EXPECT().UpdateStatus(gomock.Any(), 10, domain.OrderStatusPurchased).Return(nil)
				m.outboxRepo.EXPECT().Enqueue(gomock.Any(), domain.EventOrderStatusChanged, gomock.Any()).Return(nil)
			},
			expectedError: nil,
		},
		{
			name: "Success for a wallet top-up credits the wallet",
			event: dto.WebhookEventDTO{
				ID:       "pi_2",
				Type:     EventPaymentSucceeded,
				Amount:   2550,
				Currency: "EUR",
				Metadata: map[string]string{
					"user_id": "1",
					"purpose": "wallet_topup",
				},
			},
			prepareMock: func() {
				passThrough(m.txManager)
				m.paymentRepo.EXPECT().GetByID(gomock.Any(), "pi_2").Return(nil, nil)
				m.walletLedger.EXPECT().Credit(gomock.Any(), 1, decimal.New(2550, -2),
					domain.TxTypeTopup, "wallet top-up pi_2").Return(nil)
				m.paymentRepo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:  "Success for an already advanced order records payment only",
			event: orderEvent(EventPaymentSucceeded),
			prepareMock: func() {
				passThrough(m.txManager)
				m.paymentRepo.EXPECT().GetByID(gomock.Any(), "pi_1").Return(nil, nil)
				m.orderRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 10).
					Return(&domain.Order{ID: 10, UserID: 1, Status: domain.OrderStatusShipped}, nil)
				m.paymentRepo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:  "Success for an unknown order still records the payment",
			event: orderEvent(EventPaymentSucceeded),
			prepareMock: func() {
				passThrough(m.txManager)
				m.paymentRepo.EXPECT().GetByID(gomock.Any(), "pi_1").Return(nil, nil)
				m.orderRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 10).Return(nil, nil)
				m.paymentRepo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
			},
			expectedError: nil,
		},
		{
			name: "Success with garbage order metadata records payment only",
			event: func() dto.WebhookEventDTO {
				ev := orderEvent(EventPaymentSucceeded)
				ev.Metadata["order_id"] = "not-a-number"
				return ev
			}(),
			prepareMock: func() {
				passThrough(m.txManager)
				m.paymentRepo.EXPECT().GetByID(gomock.Any(), "pi_1").Return(nil, nil)
				m.paymentRepo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, rec *domain.PaymentRecord) error {
					assert.Equal(t, domain.PaymentStatusSucceeded, rec.Status)
					assert.Equal(t, 0, rec.OrderID)
					return nil
				})
			},
			expectedError: nil,
		},
		{
			name: "Top-up with garbage user metadata does not credit a wallet",
			event: dto.WebhookEventDTO{
				ID:       "pi_3",
				Type:     EventPaymentSucceeded,
				Amount:   2550,
				Currency: "EUR",
				Metadata: map[string]string{
					"user_id": "1; DROP TABLE wallets",
					"purpose": "wallet_topup",
				},
			},
			prepareMock: func() {
				passThrough(m.txManager)
				m.paymentRepo.EXPECT().GetByID(gomock.Any(), "pi_3").Return(nil, nil)
				m.paymentRepo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, rec *domain.PaymentRecord) error {
					assert.Equal(t, 0, rec.UserID)
					return nil
				})
			},
			expectedError: nil,
		},
		{
			name: "Failure records the reason and leaves the order pending",
			event: func() dto.WebhookEventDTO {
				ev := orderEvent(EventPaymentFailed)
				ev.FailureReason = "card declined"
				return ev
			}(),
			prepareMock: func() {
				passThrough(m.txManager)
				m.paymentRepo.EXPECT().GetByID(gomock.Any(), "pi_1").Return(nil, nil)
				m.paymentRepo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, rec *domain.PaymentRecord) error {
					assert.Equal(t, domain.PaymentStatusFailed, rec.Status)
					assert.Equal(t, "card declined", rec.FailureReason)
					return nil
				})
			},
			expectedError: nil,
		},
		{
			name:  "Cancellation cancels a pending order",
			event: orderEvent(EventPaymentCanceled),
			prepareMock: func() {
				passThrough(m.txManager)
				m.paymentRepo.EXPECT().GetByID(gomock.Any(), "pi_1").Return(nil, nil)
				m.orderRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 10).
					Return(&domain.Order{ID: 10, UserID: 1, Status: domain.OrderStatusPending}, nil)
				m.paymentRepo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, rec *domain.PaymentRecord) error {
					assert.Equal(t, "canceled by processor", rec.FailureReason)
					return nil
				})
				m.orderRepo.EXPECT().UpdateStatus(gomock.Any(), 10, domain.OrderStatusCancelled).Return(nil)
				m.outboxRepo.EXPECT().Enqueue(gomock.Any(), domain.EventOrderStatusChanged, gomock.Any()).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:  "Cancellation of a shipped order records payment only",
			event: orderEvent(EventPaymentCanceled),
			prepareMock: func() {
				passThrough(m.txManager)
				m.paymentRepo.EXPECT().GetByID(gomock.Any(), "pi_1").Return(nil, nil)
				m.orderRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 10).
					Return(&domain.Order{ID: 10, UserID: 1, Status: domain.OrderStatusShipped}, nil)
				m.paymentRepo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
			},
			expectedError: nil,
		},
		{
			name: "Dispute records a disputed payment",
			event: func() dto.WebhookEventDTO {
				ev := orderEvent(EventDisputeCreated)
				ev.FailureReason = "fraudulent"
				return ev
			}(),
			prepareMock: func() {
				passThrough(m.txManager)
				m.paymentRepo.EXPECT().GetByID(gomock.Any(), "pi_1").Return(nil, nil)
				m.paymentRepo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, rec *domain.PaymentRecord) error {
					assert.Equal(t, domain.PaymentStatusDisputed, rec.Status)
					assert.Equal(t, "fraudulent", rec.FailureReason)
					return nil
				})
			},
			expectedError: nil,
		},
		{
			name:  "Lookup error fails the delivery for a retry",
			event: orderEvent(EventPaymentSucceeded),
			prepareMock: func() {
				passThrough(m.txManager)
				m.paymentRepo.EXPECT().GetByID(gomock.Any(), "pi_1").Return(nil, errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			err := service.HandleEvent(context.Background(), tt.event)
			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
