package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/toniautla/settlement/internal/domain"
	"github.com/toniautla/settlement/internal/dto"
	"github.com/toniautla/settlement/internal/service/couponservice"
	"github.com/toniautla/settlement/internal/service/orderservice"
	"github.com/toniautla/settlement/internal/service/pricing"
	"github.com/toniautla/settlement/internal/service/walletservice"
	"github.com/toniautla/settlement/pkg/auth"
	"github.com/toniautla/settlement/pkg/utils"
)

type Service interface {
	Quote(ctx context.Context, userID int, items []orderservice.CheckoutItem, shipping pricing.Shipping, couponCode string) (pricing.Breakdown, error)
	Checkout(ctx context.Context, userID int, in orderservice.CheckoutInput) (*orderservice.CheckoutResult, error)
}

type CheckoutHandler struct {
	orderService Service
}

func New(orderService Service) *CheckoutHandler {
	return &CheckoutHandler{
		orderService: orderService,
	}
}

// Quote godoc
//
//	@Summary		Preview an order total
//	@Description	Recompute the full price breakdown server-side, including coupon validation. Nothing is persisted and single-use coupons are not consumed.
//	@Tags			Checkout
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.QuoteRequestDTO	true	"Cart contents and shipping selection"
//	@Success		200		{object}	dto.QuoteResponseDTO	"Price breakdown"
//	@Failure		400		{object}	utils.Response			"Invalid request body"
//	@Failure		401		{object}	utils.Response			"User not authorized"
//	@Failure		422		{object}	utils.Response			"Coupon rejected"
//	@Failure		500		{object}	utils.Response			"Internal server error"
//	@Router			/api/user/checkout/quote [post]
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	var req dto.QuoteRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quote, err := h.orderService.Quote(r.Context(), userID, toItems(req.Items), toShipping(req.Shipping), req.CouponCode)
	if err != nil {
		if isCouponError(err) {
			utils.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dto.QuoteResponseDTO{
		Subtotal:         quote.Subtotal,
		ServiceFee:       quote.ServiceFee,
		InspectionFee:    quote.InspectionFee,
		ConsolidationFee: quote.ConsolidationFee,
		ShippingCost:     quote.ShippingCost,
		Discount:         quote.Discount,
		Total:            quote.Total,
	})
}

// Commit godoc
//
//	@Summary		Commit an order
//	@Description	Create the order with the chosen payment method. Wallet payments are debited immediately; card payments return a processor intent and stay pending until reconciled. Requires an Idempotency-Key header; repeating a key returns the original order.
//	@Tags			Checkout
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string					true	"Client-generated idempotency key"
//	@Param			request			body		dto.CheckoutRequestDTO	true	"Checkout payload"
//	@Success		201				{object}	dto.CheckoutResponseDTO	"Created order"
//	@Success		200				{object}	dto.CheckoutResponseDTO	"Order previously created with this idempotency key"
//	@Failure		400				{object}	utils.Response			"Invalid request"
//	@Failure		401				{object}	utils.Response			"User not authorized"
//	@Failure		402				{object}	utils.Response			"Insufficient wallet balance"
//	@Failure		409				{object}	utils.Response			"Price mismatch"
//	@Failure		422				{object}	utils.Response			"Coupon rejected"
//	@Failure		500				{object}	utils.Response			"Internal server error"
//	@Failure		502				{object}	utils.Response			"Payment processor error"
//	@Router			/api/user/checkout [post]
func (h *CheckoutHandler) Commit(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Idempotency-Key header is required")
		return
	}

	var req dto.CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := orderservice.CheckoutInput{
		Items:            toItems(req.Items),
		Shipping:         toShipping(req.Shipping),
		ShippingMethodID: req.Shipping.MethodID,
		AddressID:        req.AddressID,
		CouponCode:       req.CouponCode,
		PaymentMethod:    req.PaymentMethod,
		Notes:            req.Notes,
		IdempotencyKey:   key,
		ExpectedTotal:    req.ExpectedTotal,
	}

	result, err := h.orderService.Checkout(r.Context(), userID, input)
	if err != nil {
		switch {
		case errors.Is(err, orderservice.ErrValidation):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, orderservice.ErrPriceMismatch):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, walletservice.ErrInsufficientBalance):
			utils.RespondWithError(w, http.StatusPaymentRequired, "insufficient wallet balance")
		case isCouponError(err):
			utils.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, orderservice.ErrProcessor):
			// The order committed but no intent exists yet; replaying the
			// same Idempotency-Key opens a fresh one.
			utils.RespondWithError(w, http.StatusBadGateway, "payment processor error")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	code := http.StatusCreated
	if result.Duplicate {
		code = http.StatusOK
	}
	utils.RespondWithJSON(w, code, dto.CheckoutResponseDTO{
		Order:        toOrderDTO(result.Order),
		IntentID:     result.IntentID,
		ClientSecret: result.ClientSecret,
	})
}

func toItems(items []dto.CheckoutItemDTO) []orderservice.CheckoutItem {
	out := make([]orderservice.CheckoutItem, len(items))
	for i, it := range items {
		out[i] = orderservice.CheckoutItem{
			ProductRef: it.ProductRef,
			Item: pricing.Item{
				UnitPrice:          it.UnitPrice,
				Quantity:           it.Quantity,
				VariantAdjustments: it.VariantAdjustments,
				Inspection:         it.Inspection,
				Consolidation:      it.Consolidation,
			},
		}
	}
	return out
}

func toShipping(s dto.ShippingSelectionDTO) pricing.Shipping {
	return pricing.Shipping{
		BasePrice: s.BasePrice,
		PerKgRate: s.PerKgRate,
		WeightKg:  s.WeightKg,
		LengthCm:  s.LengthCm,
		WidthCm:   s.WidthCm,
		HeightCm:  s.HeightCm,
	}
}

func toOrderDTO(order *domain.Order) dto.OrderResponseDTO {
	items := make([]dto.OrderItemDTO, len(order.Items))
	for i, it := range order.Items {
		items[i] = dto.OrderItemDTO{
			ProductRef: it.ProductRef,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			LineTotal:  it.LineTotal,
		}
	}
	return dto.OrderResponseDTO{
		ID:               order.ID,
		Status:           order.Status,
		PaymentMethod:    order.PaymentMethod,
		Subtotal:         order.Subtotal,
		ServiceFee:       order.ServiceFee,
		InspectionFee:    order.InspectionFee,
		ConsolidationFee: order.ConsolidationFee,
		ShippingCost:     order.ShippingCost,
		Discount:         order.Discount,
		Total:            order.Total,
		CouponCode:       order.CouponCode,
		Items:            items,
		CreatedAt:        order.CreatedAt,
	}
}

func isCouponError(err error) bool {
	return errors.Is(err, couponservice.ErrCouponNotFound) ||
		errors.Is(err, couponservice.ErrCouponExpired) ||
		errors.Is(err, couponservice.ErrCouponExhausted) ||
		errors.Is(err, couponservice.ErrMinimumOrderNotMet) ||
		errors.Is(err, couponservice.ErrCouponAlreadyUsed)
}
