package wallet

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/toniautla/settlement/internal/domain"
	"github.com/toniautla/settlement/internal/dto"
	"github.com/toniautla/settlement/internal/processor"
	"github.com/toniautla/settlement/pkg/auth"
	"github.com/toniautla/settlement/pkg/utils"
)

type Service interface {
	GetOrCreate(ctx context.Context, userID int) (*domain.Wallet, error)
	GetTransactions(ctx context.Context, userID int) ([]domain.WalletTransaction, error)
	Topup(ctx context.Context, userID int, amount decimal.Decimal) (*processor.Intent, error)
}

type WalletHandler struct {
	walletService Service
}

func New(walletService Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// GetWallet godoc
//
//	@Summary		Get current wallet balance
//	@Description	Retrieve the spendable wallet balance for the authenticated user.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.WalletResponseDTO	"Current balance"
//	@Failure		401	{object}	utils.Response			"User not authorized"
//	@Failure		500	{object}	utils.Response			"Internal server error"
//	@Router			/api/user/wallet [get]
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	wallet, err := h.walletService.GetOrCreate(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.WalletResponseDTO{
		Balance: wallet.Balance,
	})
}

// GetTransactions godoc
//
//	@Summary		Get wallet transaction history
//	@Description	Get the full credit/debit history for the authenticated user's wallet, newest first.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.WalletTransactionDTO	"Transaction history"
//	@Success		204	{object}	utils.Response				"No transactions"
//	@Failure		401	{object}	utils.Response				"User not authorized"
//	@Failure		500	{object}	utils.Response				"Internal server error"
//	@Router			/api/user/wallet/transactions [get]
func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	txs, err := h.walletService.GetTransactions(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch transactions")
		return
	}
	if len(txs) == 0 {
		utils.RespondWithError(w, http.StatusNoContent, "Transactions not found")
		return
	}

	response := make([]dto.WalletTransactionDTO, len(txs))
	for i, tx := range txs {
		response[i] = dto.WalletTransactionDTO{
			Type:        tx.Type,
			Amount:      tx.Amount,
			Description: tx.Description,
			Status:      tx.Status,
			CreatedAt:   tx.CreatedAt,
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, response)
}

// Topup godoc
//
//	@Summary		Request a wallet top-up
//	@Description	Create a payment intent for topping up the wallet; the balance is credited when the processor confirms the payment.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.TopupRequestDTO	true	"Top-up request payload"
//	@Success		200		{object}	dto.TopupResponseDTO	"Payment intent for the top-up"
//	@Failure		400		{object}	utils.Response			"Invalid amount"
//	@Failure		401		{object}	utils.Response			"User not authorized"
//	@Failure		502		{object}	utils.Response			"Payment processor error"
//	@Router			/api/user/wallet/topup [post]
func (h *WalletHandler) Topup(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	var req dto.TopupRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Amount.IsPositive() {
		utils.RespondWithError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	intent, err := h.walletService.Topup(r.Context(), userID, req.Amount)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadGateway, "payment processor error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.TopupResponseDTO{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
	})
}
