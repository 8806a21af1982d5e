package walletservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/toniautla/settlement/internal/domain"
	"github.com/toniautla/settlement/internal/pg"
	"github.com/toniautla/settlement/internal/processor"
)

type WalletRepo interface {
	GetByUserID(ctx context.Context, userID int) (*domain.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, userID int) (*domain.Wallet, error)
	Create(ctx context.Context, userID int) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, walletID int, balance decimal.Decimal) error
	CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) (*domain.WalletTransaction, error)
	GetTransactionsByWalletID(ctx context.Context, walletID int) ([]domain.WalletTransaction, error)
}

type OutboxRepo interface {
	Enqueue(ctx context.Context, eventType string, payload any) error
}

type IntentCreator interface {
	CreateIntent(ctx context.Context, req processor.IntentRequest) (*processor.Intent, error)
}

// SignupBonus is credited once when a wallet is first created.
var SignupBonus = decimal.RequireFromString("5.00")

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrWalletNotFound      = errors.New("wallet not found")
)

type Service struct {
	walletRepo WalletRepo
	outboxRepo OutboxRepo
	intents    IntentCreator
	txManager  pg.TXManager
	currency   string
}

func New(walletRepo WalletRepo, outboxRepo OutboxRepo, intents IntentCreator, txManager pg.TXManager, currency string) *Service {
	return &Service{
		walletRepo: walletRepo,
		outboxRepo: outboxRepo,
		intents:    intents,
		txManager:  txManager,
		currency:   currency,
	}
}

// GetOrCreate returns the user's wallet, creating it with the one-time
// signup bonus on first need.
func (s *Service) GetOrCreate(ctx context.Context, userID int) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		return wallet, nil
	}

	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		wallet, err = s.walletRepo.Create(ctx, userID)
		if err != nil {
			return err
		}
		_, err = s.walletRepo.CreateTransaction(ctx, &domain.WalletTransaction{
			WalletID:    wallet.ID,
			Type:        domain.TxTypeCreditBonus,
			Amount:      SignupBonus,
			Description: "signup bonus",
			Status:      domain.TxStatusCompleted,
		})
		if err != nil {
			return err
		}
		wallet.Balance = SignupBonus
		return s.walletRepo.UpdateBalance(ctx, wallet.ID, wallet.Balance)
	})
	if err != nil {
		zap.L().Error("failed to create wallet", zap.Error(err))
		return nil, err
	}
	return wallet, nil
}

// Credit increases the balance inside one transaction holding the wallet
// row lock. Always succeeds for positive amounts.
func (s *Service) Credit(ctx context.Context, userID int, amount decimal.Decimal, txType, description string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if wallet == nil {
			return ErrWalletNotFound
		}
		_, err = s.walletRepo.CreateTransaction(ctx, &domain.WalletTransaction{
			WalletID:    wallet.ID,
			Type:        txType,
			Amount:      amount,
			Description: description,
			Status:      domain.TxStatusCompleted,
		})
		if err != nil {
			return err
		}
		newBalance := wallet.Balance.Add(amount)
		if err := s.walletRepo.UpdateBalance(ctx, wallet.ID, newBalance); err != nil {
			return err
		}
		return s.outboxRepo.Enqueue(ctx, domain.EventWalletBalanceChanged, map[string]any{
			"user_id": userID,
			"balance": newBalance,
		})
	})
	if err != nil {
		zap.L().Error("failed to credit wallet", zap.Error(err))
		return err
	}
	return nil
}

// Debit re-reads the balance under the row lock in the same transaction
// that records the debit, so two concurrent debits against a balance
// sufficient for only one can never both succeed.
func (s *Service) Debit(ctx context.Context, userID int, amount decimal.Decimal, description string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if wallet == nil {
			return ErrWalletNotFound
		}
		if wallet.Balance.LessThan(amount) {
			return fmt.Errorf("%w: balance %s, debit %s", ErrInsufficientBalance, wallet.Balance, amount)
		}
		_, err = s.walletRepo.CreateTransaction(ctx, &domain.WalletTransaction{
			WalletID:    wallet.ID,
			Type:        domain.TxTypeDebitPayment,
			Amount:      amount,
			Description: description,
			Status:      domain.TxStatusCompleted,
		})
		if err != nil {
			return err
		}
		newBalance := wallet.Balance.Sub(amount)
		if err := s.walletRepo.UpdateBalance(ctx, wallet.ID, newBalance); err != nil {
			return err
		}
		return s.outboxRepo.Enqueue(ctx, domain.EventWalletBalanceChanged, map[string]any{
			"user_id": userID,
			"balance": newBalance,
		})
	})
	if err != nil {
		if !errors.Is(err, ErrInsufficientBalance) {
			zap.L().Error("failed to debit wallet", zap.Error(err))
		}
		return err
	}
	return nil
}

// Topup requests a processor intent for a wallet top-up. The balance is
// credited only when the success notification is reconciled.
func (s *Service) Topup(ctx context.Context, userID int, amount decimal.Decimal) (*processor.Intent, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	intent, err := s.intents.CreateIntent(ctx, processor.IntentRequest{
		Amount:   amount.Shift(2).IntPart(),
		Currency: s.currency,
		Metadata: map[string]string{
			"user_id": strconv.Itoa(userID),
			"purpose": "wallet_topup",
		},
	})
	if err != nil {
		zap.L().Error("can't create top-up intent", zap.Error(err))
		return nil, err
	}
	return intent, nil
}

func (s *Service) GetTransactions(ctx context.Context, userID int) ([]domain.WalletTransaction, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, nil
	}
	txs, err := s.walletRepo.GetTransactionsByWalletID(ctx, wallet.ID)
	if err != nil {
		zap.L().Error("failed to fetch wallet transactions", zap.Error(err))
		return nil, err
	}
	return txs, nil
}
