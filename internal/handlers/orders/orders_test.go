package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/toniautla/settlement/internal/domain"
	"github.com/toniautla/settlement/internal/dto"
	"github.com/toniautla/settlement/internal/service/orderservice"
	"github.com/toniautla/settlement/pkg/auth"
	"github.com/toniautla/settlement/pkg/utils"
)

func NewMock(t *testing.T) (*OrderHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	handler := New(service)
	defer ctrl.Finish()
	return handler, service
}

func authRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), auth.UserIDKey, 1)
	return req.WithContext(ctx)
}

// withURLParam injects a chi route parameter the way the router would.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func testOrder(id int) domain.Order {
	return domain.Order{
		ID:            id,
		UserID:        1,
		Status:        domain.OrderStatusPurchased,
		PaymentMethod: domain.PaymentMethodWallet,
		Subtotal:      decimal.RequireFromString("50.00"),
		Total:         decimal.RequireFromString("85.48"),
		Items: []domain.OrderItem{
			{ProductRef: "sku-1", Quantity: 2, UnitPrice: decimal.RequireFromString("25.00"), LineTotal: decimal.RequireFromString("50.00")},
		},
		CreatedAt: time.Now(),
	}
}

func TestGetOrdersHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name          string
		prepareMock   func()
		expectedCode  int
		expectedLen   int
		expectedError string
	}{
		{
			name: "Successful fetch",
			prepareMock: func() {
				service.EXPECT().GetOrders(gomock.Any(), 1).Return([]domain.Order{testOrder(11), testOrder(10)}, nil)
			},
			expectedCode: http.StatusOK,
			expectedLen:  2,
		},
		{
			name: "No orders",
			prepareMock: func() {
				service.EXPECT().GetOrders(gomock.Any(), 1).Return(nil, nil)
			},
			expectedCode: http.StatusNoContent,
		},
		{
			name: "Service error",
			prepareMock: func() {
				service.EXPECT().GetOrders(gomock.Any(), 1).Return(nil, errors.New("db down"))
			},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "Failed to fetch orders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := authRequest("GET", "/api/user/orders", nil)
			rr := httptest.NewRecorder()

			handler.GetOrders(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)

			if tt.expectedError != "" {
				var resp utils.Response
				err := json.NewDecoder(rr.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedError, resp.Message)
				return
			}

			if tt.expectedCode == http.StatusOK {
				var resp []dto.OrderResponseDTO
				err := json.NewDecoder(rr.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Len(t, resp, tt.expectedLen)
				assert.Equal(t, 11, resp[0].ID)
			}
		})
	}
}

func TestGetOrderHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name          string
		orderID       string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name:    "Successful fetch",
			orderID: "10",
			prepareMock: func() {
				order := testOrder(10)
				service.EXPECT().GetOrder(gomock.Any(), 1, 10).Return(&order, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:          "Invalid order id",
			orderID:       "abc",
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "invalid order id",
		},
		{
			name:    "Order not found",
			orderID: "99",
			prepareMock: func() {
				service.EXPECT().GetOrder(gomock.Any(), 1, 99).Return(nil, orderservice.ErrOrderNotFound)
			},
			expectedCode:  http.StatusNotFound,
			expectedError: "Order not found",
		},
		{
			name:    "Service error",
			orderID: "10",
			prepareMock: func() {
				service.EXPECT().GetOrder(gomock.Any(), 1, 10).Return(nil, errors.New("db down"))
			},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := authRequest("GET", "/api/user/orders/"+tt.orderID, nil)
			req = withURLParam(req, "id", tt.orderID)
			rr := httptest.NewRecorder()

			handler.GetOrder(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)

			if tt.expectedError != "" {
				var resp utils.Response
				err := json.NewDecoder(rr.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedError, resp.Message)
				return
			}

			var resp dto.OrderResponseDTO
			err := json.NewDecoder(rr.Body).Decode(&resp)
			assert.NoError(t, err)
			assert.Equal(t, 10, resp.ID)
			assert.Len(t, resp.Items, 1)
		})
	}
}

func TestUpdateStatusHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name          string
		orderID       string
		body          string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name:    "Successful transition",
			orderID: "10",
			body:    `{"status":"WAREHOUSE"}`,
			prepareMock: func() {
				order := testOrder(10)
				order.Status = domain.OrderStatusWarehouse
				service.EXPECT().UpdateStatus(gomock.Any(), 10, "WAREHOUSE").Return(&order, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:          "Invalid order id",
			orderID:       "abc",
			body:          `{"status":"WAREHOUSE"}`,
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "invalid order id",
		},
		{
			name:          "Invalid request body",
			orderID:       "10",
			body:          `{invalid json`,
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "invalid request body",
		},
		{
			name:    "Order not found",
			orderID: "99",
			body:    `{"status":"WAREHOUSE"}`,
			prepareMock: func() {
				service.EXPECT().UpdateStatus(gomock.Any(), 99, "WAREHOUSE").Return(nil, orderservice.ErrOrderNotFound)
			},
			expectedCode:  http.StatusNotFound,
			expectedError: "Order not found",
		},
		{
			name:    "Invalid transition",
			orderID: "10",
			body:    `{"status":"PENDING"}`,
			prepareMock: func() {
				service.EXPECT().UpdateStatus(gomock.Any(), 10, "PENDING").Return(nil, orderservice.ErrInvalidTransition)
			},
			expectedCode:  http.StatusConflict,
			expectedError: orderservice.ErrInvalidTransition.Error(),
		},
		{
			name:    "Service error",
			orderID: "10",
			body:    `{"status":"WAREHOUSE"}`,
			prepareMock: func() {
				service.EXPECT().UpdateStatus(gomock.Any(), 10, "WAREHOUSE").Return(nil, errors.New("db down"))
			},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := authRequest("PATCH", "/api/admin/orders/"+tt.orderID+"/status", []byte(tt.body))
			req = withURLParam(req, "id", tt.orderID)
			rr := httptest.NewRecorder()

			handler.UpdateStatus(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)

			if tt.expectedError != "" {
				var resp utils.Response
				err := json.NewDecoder(rr.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedError, resp.Message)
				return
			}

			var resp dto.OrderResponseDTO
			err := json.NewDecoder(rr.Body).Decode(&resp)
			assert.NoError(t, err)
			assert.Equal(t, domain.OrderStatusWarehouse, resp.Status)
		})
	}
}
