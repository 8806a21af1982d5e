package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type WalletResponseDTO struct {
	Balance decimal.Decimal `json:"balance" example:"500.50"`
}

type WalletTransactionDTO struct {
	Type        string          `json:"type" example:"debit-payment"`
	Amount      decimal.Decimal `json:"amount" example:"76.93"`
	Description string          `json:"description" example:"payment for order 17"`
	Status      string          `json:"status" example:"completed"`
	CreatedAt   time.Time       `json:"created_at" example:"2024-12-09T16:09:57+03:00"`
}

type TopupRequestDTO struct {
	Amount decimal.Decimal `json:"amount" example:"100.00"`
}

type TopupResponseDTO struct {
	IntentID     string `json:"intent_id" example:"pi_3MtwBwLkdIwHu7ix28a3tqPa"`
	ClientSecret string `json:"client_secret" example:"pi_3MtwBw_secret_YrKJUKribcBjcG8HVhfZluoGH"`
}
