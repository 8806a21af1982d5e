package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderItemDTO struct {
	ProductRef string          `json:"product_ref" example:"SKU-1042"`
	Quantity   int             `json:"quantity" example:"2"`
	UnitPrice  decimal.Decimal `json:"unit_price" example:"50.00"`
	LineTotal  decimal.Decimal `json:"line_total" example:"100.00"`
}

type OrderResponseDTO struct {
	ID               int             `json:"id" example:"17"`
	Status           string          `json:"status" example:"PENDING"`
	PaymentMethod    string          `json:"payment_method" example:"card"`
	Subtotal         decimal.Decimal `json:"subtotal" example:"50.00"`
	ServiceFee       decimal.Decimal `json:"service_fee" example:"1.50"`
	InspectionFee    decimal.Decimal `json:"inspection_fee" example:"6.99"`
	ConsolidationFee decimal.Decimal `json:"consolidation_fee" example:"0"`
	ShippingCost     decimal.Decimal `json:"shipping_cost" example:"26.99"`
	Discount         decimal.Decimal `json:"discount" example:"0"`
	Total            decimal.Decimal `json:"total" example:"85.48"`
	CouponCode       string          `json:"coupon_code,omitempty" example:"WELCOME10"`
	Items            []OrderItemDTO  `json:"items"`
	CreatedAt        time.Time       `json:"created_at" example:"2024-12-09T16:09:57+03:00"`
}

type UpdateOrderStatusRequestDTO struct {
	Status string `json:"status" example:"WAREHOUSE"`
}
