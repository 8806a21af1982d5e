package dto

import "github.com/shopspring/decimal"

type CheckoutItemDTO struct {
	ProductRef         string            `json:"product_ref" example:"SKU-1042"`
	Quantity           int               `json:"quantity" example:"2"`
	UnitPrice          decimal.Decimal   `json:"unit_price" example:"50.00"`
	VariantAdjustments []decimal.Decimal `json:"variant_adjustments,omitempty"`
	Inspection         bool              `json:"inspection"`
	Consolidation      bool              `json:"consolidation"`
}

type ShippingSelectionDTO struct {
	MethodID  int             `json:"method_id" example:"3"`
	BasePrice decimal.Decimal `json:"base_price" example:"24.99"`
	PerKgRate decimal.Decimal `json:"per_kg_rate" example:"5.00"`
	WeightKg  decimal.Decimal `json:"weight_kg" example:"1.0"`
	LengthCm  decimal.Decimal `json:"length_cm" example:"30"`
	WidthCm   decimal.Decimal `json:"width_cm" example:"20"`
	HeightCm  decimal.Decimal `json:"height_cm" example:"10"`
}

type QuoteRequestDTO struct {
	Items      []CheckoutItemDTO    `json:"items"`
	Shipping   ShippingSelectionDTO `json:"shipping"`
	CouponCode string               `json:"coupon_code,omitempty" example:"WELCOME10"`
}

type QuoteResponseDTO struct {
	Subtotal         decimal.Decimal `json:"subtotal" example:"50.00"`
	ServiceFee       decimal.Decimal `json:"service_fee" example:"1.50"`
	InspectionFee    decimal.Decimal `json:"inspection_fee" example:"6.99"`
	ConsolidationFee decimal.Decimal `json:"consolidation_fee" example:"0"`
	ShippingCost     decimal.Decimal `json:"shipping_cost" example:"26.99"`
	Discount         decimal.Decimal `json:"discount" example:"8.55"`
	Total            decimal.Decimal `json:"total" example:"76.93"`
}

type CheckoutRequestDTO struct {
	Items         []CheckoutItemDTO    `json:"items"`
	Shipping      ShippingSelectionDTO `json:"shipping"`
	AddressID     int                  `json:"address_id" example:"12"`
	CouponCode    string               `json:"coupon_code,omitempty" example:"WELCOME10"`
	PaymentMethod string               `json:"payment_method" example:"wallet"`
	ExpectedTotal decimal.Decimal      `json:"expected_total" example:"76.93"`
	Notes         string               `json:"notes,omitempty"`
}

type CheckoutResponseDTO struct {
	Order        OrderResponseDTO `json:"order"`
	ClientSecret string           `json:"client_secret,omitempty"`
	IntentID     string           `json:"intent_id,omitempty"`
}
