package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/toniautla/settlement/internal/domain"
)

// Quote is a pure function: the lifecycle manager recomputes every total
// server-side and never trusts a client-supplied figure, so identical inputs
// must always produce an identical breakdown.

var (
	PerItemServiceFee     = decimal.RequireFromString("1.50")
	PerItemInspectionRate = decimal.RequireFromString("6.99")
	ConsolidationFlatFee  = decimal.RequireFromString("4.99")
	ShippingSurcharge     = decimal.RequireFromString("2.00")
	MismatchTolerance     = decimal.RequireFromString("0.01")

	volumetricDivisor = decimal.NewFromInt(5000)
	weightStep        = decimal.RequireFromString("0.3")
	one               = decimal.NewFromInt(1)
	hundred           = decimal.NewFromInt(100)
)

type Item struct {
	UnitPrice          decimal.Decimal
	Quantity           int
	VariantAdjustments []decimal.Decimal
	Inspection         bool
	Consolidation      bool
}

type Shipping struct {
	BasePrice decimal.Decimal
	PerKgRate decimal.Decimal
	WeightKg  decimal.Decimal
	LengthCm  decimal.Decimal
	WidthCm   decimal.Decimal
	HeightCm  decimal.Decimal
}

// Discount is the descriptor returned by coupon validation.
type Discount struct {
	Type  string
	Value decimal.Decimal
}

type Input struct {
	Items    []Item
	Shipping Shipping
	Discount *Discount
}

type Breakdown struct {
	Subtotal         decimal.Decimal
	ServiceFee       decimal.Decimal
	InspectionFee    decimal.Decimal
	ConsolidationFee decimal.Decimal
	ShippingCost     decimal.Decimal
	PreDiscountTotal decimal.Decimal
	Discount         decimal.Decimal
	Total            decimal.Decimal
}

func Quote(in Input) Breakdown {
	var b Breakdown

	itemCount := int64(0)
	for _, item := range in.Items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		line := item.UnitPrice.Mul(qty)
		for _, adj := range item.VariantAdjustments {
			line = line.Add(adj)
		}
		b.Subtotal = b.Subtotal.Add(line)
		itemCount += int64(item.Quantity)

		if item.Inspection {
			b.InspectionFee = b.InspectionFee.Add(PerItemInspectionRate.Mul(qty))
		}
		if item.Consolidation && b.ConsolidationFee.IsZero() {
			b.ConsolidationFee = ConsolidationFlatFee
		}
	}
	b.Subtotal = b.Subtotal.Round(2)
	b.ServiceFee = PerItemServiceFee.Mul(decimal.NewFromInt(itemCount))
	b.ShippingCost = shippingCost(in.Shipping)

	b.PreDiscountTotal = b.Subtotal.
		Add(b.ServiceFee).
		Add(b.InspectionFee).
		Add(b.ConsolidationFee).
		Add(b.ShippingCost)

	if in.Discount != nil {
		b.Discount = discountAmount(*in.Discount, b.PreDiscountTotal).Round(2)
	}

	b.Total = b.PreDiscountTotal.Sub(b.Discount).Round(2)
	if b.Total.IsNegative() {
		b.Total = decimal.Zero
	}
	return b
}

// LineTotal computes a single item's line total the same way Quote does.
func LineTotal(item Item) decimal.Decimal {
	line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	for _, adj := range item.VariantAdjustments {
		line = line.Add(adj)
	}
	return line.Round(2)
}

func shippingCost(s Shipping) decimal.Decimal {
	volumetric := s.LengthCm.Mul(s.WidthCm).Mul(s.HeightCm).Div(volumetricDivisor)
	chargeable := s.WeightKg
	if volumetric.GreaterThan(chargeable) {
		chargeable = volumetric
	}

	multiplier := one
	excess := chargeable.Sub(one)
	if excess.IsPositive() {
		multiplier = one.Add(excess.Mul(weightStep))
	} else {
		excess = decimal.Zero
	}

	cost := s.BasePrice.Mul(multiplier).
		Add(s.PerKgRate.Mul(excess)).
		Add(ShippingSurcharge)

	floor := s.BasePrice.Add(ShippingSurcharge)
	if cost.LessThan(floor) {
		cost = floor
	}
	return cost.Round(2)
}

func discountAmount(d Discount, preDiscountTotal decimal.Decimal) decimal.Decimal {
	switch d.Type {
	case domain.DiscountTypePercentage:
		return preDiscountTotal.Mul(d.Value).Div(hundred)
	default:
		if d.Value.GreaterThan(preDiscountTotal) {
			return preDiscountTotal
		}
		return d.Value
	}
}

// WithinTolerance reports whether two totals agree within the rounding
// tolerance used for client-submitted expectations.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(MismatchTolerance)
}
