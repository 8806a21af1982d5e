package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/toniautla/settlement/internal/dto"
	"github.com/toniautla/settlement/pkg/sign"
	"github.com/toniautla/settlement/pkg/utils"
)

const signatureHeader = "Processor-Signature"

type Service interface {
	HandleEvent(ctx context.Context, ev dto.WebhookEventDTO) error
}

type WebhookHandler struct {
	reconcileService Service
	secret           string
}

func New(reconcileService Service, secret string) *WebhookHandler {
	return &WebhookHandler{
		reconcileService: reconcileService,
		secret:           secret,
	}
}

// HandleNotification godoc
//
//	@Summary		Payment processor webhook
//	@Description	Receives signed payment notifications. The signature covers the raw body and is verified before any field is trusted; replayed notifications are acknowledged without side effects.
//	@Tags			Webhooks
//	@Accept			json
//	@Produce		json
//	@Param			Processor-Signature	header		string	true	"t=<unix>,v1=<hex hmac-sha256>"
//	@Success		200					{object}	utils.Response	"Notification applied or acknowledged"
//	@Failure		400					{object}	utils.Response	"Invalid signature or payload"
//	@Failure		500					{object}	utils.Response	"Internal server error"
//	@Router			/api/webhooks/payment [post]
func (h *WebhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "can't read request body")
		return
	}

	header := r.Header.Get(signatureHeader)
	if err := sign.Verify(h.secret, header, body, sign.DefaultTolerance, time.Now()); err != nil {
		zap.L().Warn("webhook signature rejected", zap.Error(err))
		utils.RespondWithError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	var ev dto.WebhookEventDTO
	if err := json.Unmarshal(body, &ev); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if ev.ID == "" || ev.Type == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "missing event id or type")
		return
	}

	if err := h.reconcileService.HandleEvent(r.Context(), ev); err != nil {
		// The processor retries on 5xx; the reconciliation is idempotent.
		zap.L().Error("failed to apply processor notification",
			zap.String("id", ev.ID), zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "ok"})
}
