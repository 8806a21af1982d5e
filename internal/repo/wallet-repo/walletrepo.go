package walletrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/toniautla/settlement/internal/domain"
	"github.com/toniautla/settlement/internal/pg"
)

type Repository struct {
	db        pg.Database
	txManager pg.TXManager
}

func New(db pg.Database, txManager pg.TXManager) *Repository {
	return &Repository{
		db:        db,
		txManager: txManager,
	}
}

func (r *Repository) GetByUserID(ctx context.Context, userID int) (*domain.Wallet, error) {
	query := `
        SELECT id, user_id, balance
        FROM wallets
        WHERE user_id = $1
    `
	row := r.db.QueryRow(ctx, query, userID)
	var wallet domain.Wallet
	err := row.Scan(&wallet.ID, &wallet.UserID, &wallet.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to get wallet", zap.Error(err))
		return nil, err
	}
	return &wallet, nil
}

// GetByUserIDForUpdate locks the wallet row for the rest of the enclosing
// transaction. Callers must already be inside TXManager.Begin.
func (r *Repository) GetByUserIDForUpdate(ctx context.Context, userID int) (*domain.Wallet, error) {
	query := `
        SELECT id, user_id, balance
        FROM wallets
        WHERE user_id = $1
        FOR UPDATE
    `
	row := r.db.QueryRow(ctx, query, userID)
	var wallet domain.Wallet
	err := row.Scan(&wallet.ID, &wallet.UserID, &wallet.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to lock wallet", zap.Error(err))
		return nil, err
	}
	return &wallet, nil
}

func (r *Repository) Create(ctx context.Context, userID int) (*domain.Wallet, error) {
	query := `
        INSERT INTO wallets (user_id, balance)
        VALUES ($1, 0)
        RETURNING id, user_id, balance
    `
	row := r.db.QueryRow(ctx, query, userID)
	var wallet domain.Wallet
	err := row.Scan(&wallet.ID, &wallet.UserID, &wallet.Balance)
	if err != nil {
		zap.L().Error("failed to create wallet", zap.Error(err))
		return nil, err
	}
	return &wallet, nil
}

func (r *Repository) UpdateBalance(ctx context.Context, walletID int, balance decimal.Decimal) error {
	query := `
        UPDATE wallets
        SET balance = $1
        WHERE id = $2
    `
	_, err := r.db.Exec(ctx, query, balance, walletID)
	if err != nil {
		zap.L().Error("failed to update wallet balance", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) (*domain.WalletTransaction, error) {
	query := `
        INSERT INTO wallet_transactions (wallet_id, type, amount, description, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	row := r.db.QueryRow(ctx, query, tx.WalletID, tx.Type, tx.Amount, tx.Description, tx.Status)
	if err := row.Scan(&tx.ID, &tx.CreatedAt); err != nil {
		zap.L().Error("failed to create wallet transaction", zap.Error(err))
		return nil, err
	}
	return tx, nil
}

func (r *Repository) GetTransactionsByWalletID(ctx context.Context, walletID int) ([]domain.WalletTransaction, error) {
	query := `
        SELECT id, wallet_id, type, amount, description, status, created_at
        FROM wallet_transactions
        WHERE wallet_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, walletID)
	if err != nil {
		zap.L().Error("failed to get wallet transactions", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var txs []domain.WalletTransaction
	for rows.Next() {
		var tx domain.WalletTransaction
		err := rows.Scan(&tx.ID, &tx.WalletID, &tx.Type, &tx.Amount, &tx.Description, &tx.Status, &tx.CreatedAt)
		if err != nil {
			zap.L().Error("failed to scan wallet transaction row", zap.Error(err))
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
