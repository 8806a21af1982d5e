package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/toniautla/settlement/internal/domain"
	"github.com/toniautla/settlement/internal/dto"
	"github.com/toniautla/settlement/internal/service/orderservice"
	"github.com/toniautla/settlement/pkg/auth"
	"github.com/toniautla/settlement/pkg/utils"
)

type Service interface {
	GetOrders(ctx context.Context, userID int) ([]domain.Order, error)
	GetOrder(ctx context.Context, userID, orderID int) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID int, next string) (*domain.Order, error)
}

type OrderHandler struct {
	orderService Service
}

func New(orderService Service) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// GetOrders godoc
//
//	@Summary		Get order history
//	@Description	Get all orders of the authenticated user, newest first.
//	@Tags			Orders
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.OrderResponseDTO	"Orders"
//	@Success		204	{object}	utils.Response			"No orders"
//	@Failure		401	{object}	utils.Response			"User not authorized"
//	@Failure		500	{object}	utils.Response			"Internal server error"
//	@Router			/api/user/orders [get]
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	orders, err := h.orderService.GetOrders(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	if len(orders) == 0 {
		utils.RespondWithError(w, http.StatusNoContent, "Orders not found")
		return
	}

	response := make([]dto.OrderResponseDTO, len(orders))
	for i := range orders {
		response[i] = toOrderDTO(&orders[i])
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// GetOrder godoc
//
//	@Summary		Get a single order
//	@Description	Get one order with its items; only the owner can read it.
//	@Tags			Orders
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int						true	"Order ID"
//	@Success		200	{object}	dto.OrderResponseDTO	"Order"
//	@Failure		401	{object}	utils.Response			"User not authorized"
//	@Failure		404	{object}	utils.Response			"Order not found"
//	@Failure		500	{object}	utils.Response			"Internal server error"
//	@Router			/api/user/orders/{id} [get]
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	orderID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, orderservice.ErrOrderNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toOrderDTO(order))
}

// UpdateStatus godoc
//
//	@Summary		Update order status
//	@Description	Operator transition through the fulfillment lifecycle. Cancelling a wallet-paid order refunds the wallet.
//	@Tags			Admin
//	@Security		ApiKeyAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int								true	"Order ID"
//	@Param			request	body		dto.UpdateOrderStatusRequestDTO	true	"Target status"
//	@Success		200		{object}	dto.OrderResponseDTO			"Updated order"
//	@Failure		400		{object}	utils.Response					"Invalid request"
//	@Failure		403		{object}	utils.Response					"Forbidden"
//	@Failure		404		{object}	utils.Response					"Order not found"
//	@Failure		409		{object}	utils.Response					"Invalid status transition"
//	@Failure		500		{object}	utils.Response					"Internal server error"
//	@Router			/api/admin/orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req dto.UpdateOrderStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, orderservice.ErrOrderNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, orderservice.ErrInvalidTransition):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toOrderDTO(order))
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
