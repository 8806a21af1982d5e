package walletservice

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/toniautla/settlement/internal/domain"
	"github.com/toniautla/settlement/internal/pg"
	"github.com/toniautla/settlement/internal/processor"
)

func NewMock(t *testing.T) (*Service, *MockWalletRepo, *MockOutboxRepo, *MockIntentCreator, *pg.MockTXManager) {
	ctrl := gomock.NewController(t)
	walletRepo := NewMockWalletRepo(ctrl)
	outboxRepo := NewMockOutboxRepo(ctrl)
	intents := NewMockIntentCreator(ctrl)
	txManager := pg.NewMockTXManager(ctrl)
	service := New(walletRepo, outboxRepo, intents, txManager, "EUR")
	defer ctrl.Finish()
	return service, walletRepo, outboxRepo, intents, txManager
}

func passThrough(txManager *pg.MockTXManager) {
	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error {
		return fn(ctx)
	})
}

func TestGetOrCreate(t *testing.T) {
	service, walletRepo, _, _, txManager := NewMock(t)

	tests := []struct {
		name          string
		userID        int
		prepareMock   func()
		expectedError error
		checkBalance  string
	}{
		{
			name:   "Existing wallet returned as is",
			userID: 1,
			prepareMock: func() {
				walletRepo.EXPECT().GetByUserID(gomock.Any(), 1).Return(&domain.Wallet{ID: 1, UserID: 1, Balance: decimal.RequireFromString("12.00")}, nil)
			},
			expectedError: nil,
			checkBalance:  "12.00",
		},
		{
			name:   "New wallet gets the signup bonus",
			userID: 2,
			prepareMock: func() {
				walletRepo.EXPECT().GetByUserID(gomock.Any(), 2).Return(nil, nil)
				passThrough(txManager)
				walletRepo.EXPECT().Create(gomock.Any(), 2).Return(&domain.Wallet{ID: 2, UserID: 2, Balance: decimal.Zero}, nil)
				walletRepo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
					func(ctx context.Context, tx *domain.WalletTransaction) (*domain.WalletTransaction, error) {
						assert.Equal(t, domain.TxTypeCreditBonus, tx.Type)
						assert.True(t, SignupBonus.Equal(tx.Amount))
						return tx, nil
					})
				walletRepo.EXPECT().UpdateBalance(gomock.Any(), 2, SignupBonus).Return(nil)
			},
			expectedError: nil,
			checkBalance:  "5.00",
		},
		{
			name:   "Lookup error",
			userID: 3,
			prepareMock: func() {
				walletRepo.EXPECT().GetByUserID(gomock.Any(), 3).Return(nil, errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
		{
			name:   "Create error rolls back",
			userID: 4,
			prepareMock: func() {
				walletRepo.EXPECT().GetByUserID(gomock.Any(), 4).Return(nil, nil)
				passThrough(txManager)
				walletRepo.EXPECT().Create(gomock.Any(), 4).Return(nil, errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			wallet, err := service.GetOrCreate(context.Background(), tt.userID)
			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
				assert.Nil(t, wallet)
			} else {
				assert.NoError(t, err)
				assert.True(t, decimal.RequireFromString(tt.checkBalance).Equal(wallet.Balance))
			}
		})
	}
}

func TestCredit(t *testing.T) {
	service, walletRepo, outboxRepo, _, txManager := NewMock(t)

	tests := []struct {
		name          string
		amount        decimal.Decimal
		prepareMock   func()
		expectedError error
	}{
		{
			name:   "Successful credit",
			amount: decimal.RequireFromString("10.00"),
			prepareMock: func() {
				passThrough(txManager)
				walletRepo.EXPECT().GetByUserIDForUpdate(gomock.Any(), 1).Return(&domain.Wallet{ID: 1, UserID: 1, Balance: decimal.RequireFromString("5.00")}, nil)
				walletRepo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
					func(ctx context.Context, tx *domain.WalletTransaction) (*domain.WalletTransaction, error) {
						assert.Equal(t, domain.TxTypeCreditRefund, tx.Type)
						return tx, nil
					})
				walletRepo.EXPECT().UpdateBalance(gomock.Any(), 1, decimal.RequireFromString("15.00")).Return(nil)
				outboxRepo.EXPECT().Enqueue(gomock.Any(), domain.EventWalletBalanceChanged, gomock.Any()).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:          "Non-positive amount rejected",
			amount:        decimal.Zero,
			prepareMock:   func() {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:   "Missing wallet",
			amount: decimal.RequireFromString("10.00"),
			prepareMock: func() {
				passThrough(txManager)
				walletRepo.EXPECT().GetByUserIDForUpdate(gomock.Any(), 1).Return(nil, nil)
			},
			expectedError: ErrWalletNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			err := service.Credit(context.Background(), 1, tt.amount, domain.TxTypeCreditRefund, "order #42 refund")
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDebit(t *testing.T) {
	service, walletRepo, outboxRepo, _, txManager := NewMock(t)

	tests := []struct {
		name          string
		amount        decimal.Decimal
		prepareMock   func()
		expectedError error
	}{
		{
			name:   "Successful debit",
			amount: decimal.RequireFromString("15.00"),
			prepareMock: func() {
				passThrough(txManager)
				walletRepo.EXPECT().GetByUserIDForUpdate(gomock.Any(), 1).Return(&domain.Wallet{ID: 1, UserID: 1, Balance: decimal.RequireFromString("20.00")}, nil)
				walletRepo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
					func(ctx context.Context, tx *domain.WalletTransaction) (*domain.WalletTransaction, error) {
						assert.Equal(t, domain.TxTypeDebitPayment, tx.Type)
						return tx, nil
					})
				walletRepo.EXPECT().UpdateBalance(gomock.Any(), 1, decimal.RequireFromString("5.00")).Return(nil)
				outboxRepo.EXPECT().Enqueue(gomock.Any(), domain.EventWalletBalanceChanged, gomock.Any()).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:   "Balance re-read under lock rejects the second concurrent debit",
			amount: decimal.RequireFromString("15.00"),
			prepareMock: func() {
				// The first debit already ran: the locked re-read sees 5.00.
				passThrough(txManager)
				walletRepo.EXPECT().GetByUserIDForUpdate(gomock.Any(), 1).Return(&domain.Wallet{ID: 1, UserID: 1, Balance: decimal.RequireFromString("5.00")}, nil)
			},
			expectedError: ErrInsufficientBalance,
		},
		{
			name:          "Non-positive amount rejected",
			amount:        decimal.RequireFromString("-1.00"),
			prepareMock:   func() {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:   "Missing wallet",
			amount: decimal.RequireFromString("15.00"),
			prepareMock: func() {
				passThrough(txManager)
				walletRepo.EXPECT().GetByUserIDForUpdate(gomock.Any(), 1).Return(nil, nil)
			},
			expectedError: ErrWalletNotFound,
		},
		{
			name:   "Ledger write failure aborts the debit",
			amount: decimal.RequireFromString("15.00"),
			prepareMock: func() {
				passThrough(txManager)
				walletRepo.EXPECT().GetByUserIDForUpdate(gomock.Any(), 1).Return(&domain.Wallet{ID: 1, UserID: 1, Balance: decimal.RequireFromString("20.00")}, nil)
				walletRepo.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil, errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			err := service.Debit(context.Background(), 1, tt.amount, "order #42 payment")
			if tt.expectedError != nil {
				assert.Error(t, err)
				if errors.Is(tt.expectedError, ErrInvalidAmount) || errors.Is(tt.expectedError, ErrWalletNotFound) || errors.Is(tt.expectedError, ErrInsufficientBalance) {
					assert.ErrorIs(t, err, tt.expectedError)
				} else {
					assert.Equal(t, tt.expectedError.Error(), err.Error())
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTopup(t *testing.T) {
	service, walletRepo, _, intents, _ := NewMock(t)

	tests := []struct {
		name           string
		amount         decimal.Decimal
		prepareMock    func()
		expectedIntent *processor.Intent
		expectedError  error
	}{
		{
			name:   "Creates an intent in minor units",
			amount: decimal.RequireFromString("25.50"),
			prepareMock: func() {
				walletRepo.EXPECT().GetByUserID(gomock.Any(), 1).Return(&domain.Wallet{ID: 1, UserID: 1}, nil)
				intents.EXPECT().CreateIntent(gomock.Any(), gomock.Any()).DoAndReturn(
					func(ctx context.Context, req processor.IntentRequest) (*processor.Intent, error) {
						assert.Equal(t, int64(2550), req.Amount)
						assert.Equal(t, "EUR", req.Currency)
						assert.Equal(t, "wallet_topup", req.Metadata["purpose"])
						assert.Equal(t, "1", req.Metadata["user_id"])
						return &processor.Intent{ID: "pi_1", ClientSecret: "cs_1"}, nil
					})
			},
			expectedIntent: &processor.Intent{ID: "pi_1", ClientSecret: "cs_1"},
			expectedError:  nil,
		},
		{
			name:          "Non-positive amount rejected",
			amount:        decimal.Zero,
			prepareMock:   func() {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:   "Processor failure",
			amount: decimal.RequireFromString("10.00"),
			prepareMock: func() {
				walletRepo.EXPECT().GetByUserID(gomock.Any(), 1).Return(&domain.Wallet{ID: 1, UserID: 1}, nil)
				intents.EXPECT().CreateIntent(gomock.Any(), gomock.Any()).Return(nil, errors.New("processor down"))
			},
			expectedError: errors.New("processor down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			intent, err := service.Topup(context.Background(), 1, tt.amount)
			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
				assert.Nil(t, intent)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedIntent, intent)
			}
		})
	}
}

func TestGetTransactions(t *testing.T) {
	service, walletRepo, _, _, _ := NewMock(t)

	tests := []struct {
		name          string
		prepareMock   func()
		expectedCount int
		expectedError error
	}{
		{
			name: "Returns ledger entries",
			prepareMock: func() {
				walletRepo.EXPECT().GetByUserID(gomock.Any(), 1).Return(&domain.Wallet{ID: 1, UserID: 1}, nil)
				walletRepo.EXPECT().GetTransactionsByWalletID(gomock.Any(), 1).Return([]domain.WalletTransaction{
					{ID: 2, WalletID: 1, Type: domain.TxTypeDebitPayment},
					{ID: 1, WalletID: 1, Type: domain.TxTypeCreditBonus},
				}, nil)
			},
			expectedCount: 2,
		},
		{
			name: "No wallet means no entries",
			prepareMock: func() {
				walletRepo.EXPECT().GetByUserID(gomock.Any(), 1).Return(nil, nil)
			},
			expectedCount: 0,
		},
		{
			name: "Lookup error",
			prepareMock: func() {
				walletRepo.EXPECT().GetByUserID(gomock.Any(), 1).Return(nil, errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			txs, err := service.GetTransactions(context.Background(), 1)
			if tt.expectedError != nil {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Len(t, txs, tt.expectedCount)
			}
		})
	}
}
