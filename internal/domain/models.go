package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int       `db:"id"`
	Login        string    `db:"login"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// Order statuses. Pending is initial; delivered and cancelled are terminal.
const (
	OrderStatusPending   string = "PENDING"
	OrderStatusPurchased string = "PURCHASED"
	OrderStatusWarehouse string = "WAREHOUSE"
	OrderStatusShipped   string = "SHIPPED"
	OrderStatusDelivered string = "DELIVERED"
	OrderStatusCancelled string = "CANCELLED"
)

const (
	PaymentMethodWallet string = "wallet"
	PaymentMethodCard   string = "card"
)

type Order struct {
	ID               int             `db:"id"`
	UserID           int             `db:"user_id"`
	Status           string          `db:"status"`
	PaymentMethod    string          `db:"payment_method"`
	Subtotal         decimal.Decimal `db:"subtotal"`
	ServiceFee       decimal.Decimal `db:"service_fee"`
	InspectionFee    decimal.Decimal `db:"inspection_fee"`
	ConsolidationFee decimal.Decimal `db:"consolidation_fee"`
	ShippingCost     decimal.Decimal `db:"shipping_cost"`
	Discount         decimal.Decimal `db:"discount"`
	Total            decimal.Decimal `db:"total"`
	CouponCode       string          `db:"coupon_code"`
	AddressID        int             `db:"address_id"`
	ShippingMethodID int             `db:"shipping_method_id"`
	Notes            string          `db:"notes"`
	IdempotencyKey   string          `db:"idempotency_key"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
	Items            []OrderItem     `db:"-"`
}

type OrderItem struct {
	ID            int             `db:"id"`
	OrderID       int             `db:"order_id"`
	ProductRef    string          `db:"product_ref"`
	Quantity      int             `db:"quantity"`
	UnitPrice     decimal.Decimal `db:"unit_price"`
	LineTotal     decimal.Decimal `db:"line_total"`
	Inspection    bool            `db:"inspection"`
	Consolidation bool            `db:"consolidation"`
}

type Wallet struct {
	ID      int             `db:"id"`
	UserID  int             `db:"user_id"`
	Balance decimal.Decimal `db:"balance"`
}

// Wallet transaction types. Credits increase the balance, debits decrease it.
const (
	TxTypeCreditBonus  string = "credit-bonus"
	TxTypeCreditRefund string = "credit-refund"
	TxTypeTopup        string = "topup"
	TxTypeDebitPayment string = "debit-payment"
)

const TxStatusCompleted string = "completed"

type WalletTransaction struct {
	ID          int             `db:"id"`
	WalletID    int             `db:"wallet_id"`
	Type        string          `db:"type"`
	Amount      decimal.Decimal `db:"amount"`
	Description string          `db:"description"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
}

const (
	DiscountTypeFixed      string = "fixed"
	DiscountTypePercentage string = "percentage"
)

type Coupon struct {
	ID             int             `db:"id"`
	Code           string          `db:"code"`
	DiscountType   string          `db:"discount_type"`
	Value          decimal.Decimal `db:"value"`
	MinOrderAmount decimal.Decimal `db:"min_order_amount"`
	MaxUses        int             `db:"max_uses"`
	UsedCount      int             `db:"used_count"`
	Active         bool            `db:"active"`
	ExpiresAt      time.Time       `db:"expires_at"`
}

type UserCouponGrant struct {
	ID       int        `db:"id"`
	UserID   int        `db:"user_id"`
	CouponID int        `db:"coupon_id"`
	UsedAt   *time.Time `db:"used_at"`
	OrderID  *int       `db:"order_id"`
}

// Payment record statuses. All three are terminal for idempotency purposes.
const (
	PaymentStatusSucceeded string = "succeeded"
	PaymentStatusFailed    string = "failed"
	PaymentStatusDisputed  string = "disputed"
)

// PaymentRecord is keyed by the processor's transaction identifier, which
// doubles as the idempotency key for webhook deliveries.
type PaymentRecord struct {
	ID            string          `db:"id"`
	OrderID       int             `db:"order_id"`
	UserID        int             `db:"user_id"`
	Amount        decimal.Decimal `db:"amount"`
	Currency      string          `db:"currency"`
	Status        string          `db:"status"`
	FailureReason string          `db:"failure_reason"`
	CreatedAt     time.Time       `db:"created_at"`
}

// Outbox event types relayed to the notification sink.
const (
	EventOrderStatusChanged   string = "order.status_changed"
	EventWalletBalanceChanged string = "wallet.balance_changed"
)

type OutboxEvent struct {
	ID        int        `db:"id"`
	Type      string     `db:"type"`
	Payload   []byte     `db:"payload"`
	CreatedAt time.Time  `db:"created_at"`
	SentAt    *time.Time `db:"sent_at"`
}
