package orderrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/toniautla/settlement/internal/domain"
	"github.com/toniautla/settlement/internal/pg"
)

type Repository struct {
	db        pg.Database
	txManager pg.TXManager
}

func New(db pg.Database, txManager pg.TXManager) *Repository {
	return &Repository{
		db:        db,
		txManager: txManager,
	}
}

const orderColumns = `id, user_id, status, payment_method, subtotal, service_fee, inspection_fee,
        consolidation_fee, shipping_cost, discount, total, coupon_code, address_id,
        shipping_method_id, notes, idempotency_key, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.PaymentMethod, &o.Subtotal, &o.ServiceFee,
		&o.InspectionFee, &o.ConsolidationFee, &o.ShippingCost, &o.Discount, &o.Total,
		&o.CouponCode, &o.AddressID, &o.ShippingMethodID, &o.Notes, &o.IdempotencyKey,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Save inserts the order and its items as one unit. Joins an open
// transaction when the caller started one through the same manager.
func (r *Repository) Save(ctx context.Context, order *domain.Order) error {
	orderQuery := `
        INSERT INTO orders (user_id, status, payment_method, subtotal, service_fee, inspection_fee,
            consolidation_fee, shipping_cost, discount, total, coupon_code, address_id,
            shipping_method_id, notes, idempotency_key)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        RETURNING id, created_at, updated_at
    `
	itemQuery := `
        INSERT INTO order_items (order_id, product_ref, quantity, unit_price, line_total, inspection, consolidation)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	err := r.txManager.Begin(ctx, func(ctx context.Context) error {
		row := r.db.QueryRow(ctx, orderQuery,
			order.UserID, order.Status, order.PaymentMethod, order.Subtotal, order.ServiceFee,
			order.InspectionFee, order.ConsolidationFee, order.ShippingCost, order.Discount,
			order.Total, order.CouponCode, order.AddressID, order.ShippingMethodID,
			order.Notes, order.IdempotencyKey,
		)
		if err := row.Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
			zap.L().Error("can't save order", zap.Error(err))
			return err
		}
		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			row := r.db.QueryRow(ctx, itemQuery,
				item.OrderID, item.ProductRef, item.Quantity, item.UnitPrice,
				item.LineTotal, item.Inspection, item.Consolidation,
			)
			if err := row.Scan(&item.ID); err != nil {
				zap.L().Error("can't save order item", zap.Error(err))
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id int) (*domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE id = $1
    `
	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find order", zap.Error(err))
		return nil, err
	}

	items, err := r.findItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// FindByIDForUpdate locks the order row. Callers must already be inside
// TXManager.Begin.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id int) (*domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE id = $1
        FOR UPDATE
    `
	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't lock order", zap.Error(err))
		return nil, err
	}
	return order, nil
}

func (r *Repository) FindByIdempotencyKey(ctx context.Context, userID int, key string) (*domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE user_id = $1 AND idempotency_key = $2
    `
	order, err := scanOrder(r.db.QueryRow(ctx, query, userID, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find order by idempotency key", zap.Error(err))
		return nil, err
	}

	items, err := r.findItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *Repository) FindOrdersByUserID(ctx context.Context, userID int) ([]domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		zap.L().Error("can't get orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			zap.L().Error("can't scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, orderID int, status string) error {
	query := `
        UPDATE orders
        SET status = $1, updated_at = now()
        WHERE id = $2
    `
	_, err := r.db.Exec(ctx, query, status, orderID)
	if err != nil {
		zap.L().Error("failed to update order status", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) findItems(ctx context.Context, orderID int) ([]domain.OrderItem, error) {
	query := `
        SELECT id, order_id, product_ref, quantity, unit_price, line_total, inspection, consolidation
        FROM order_items
        WHERE order_id = $1
        ORDER BY id
    `
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		zap.L().Error("can't get order items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductRef, &item.Quantity,
			&item.UnitPrice, &item.LineTotal, &item.Inspection, &item.Consolidation)
		if err != nil {
			zap.L().Error("can't scan order item row", zap.Error(err))
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
