package store

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront-svc/models"

	"github.com/jmoiron/sqlx"
)

const orderColumns = `id, user_id, customer_name, customer_email, customer_phone, address, city, state, pincode,
	items, total_amount, payment_method, payment_status, order_status, razorpay_order_id, razorpay_payment_id,
	created_at, updated_at`

type stockLine struct {
	ID       int `json:"id"`
	Quantity int `json:"quantity"`
}

// CreateOrder deducts stock for every line and inserts the order in one transaction.
// A refused deduction returns *StockError and leaves nothing behind.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	lines := make([]stockLine, len(order.Items))
	for i, item := range order.Items {
		lines[i] = stockLine{ID: item.ID, Quantity: item.Quantity}
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode stock lines: %w", err)
	}

	return s.transact(ctx, func(tx *sqlx.Tx) error {
		var ok bool
		var message string
		if err := tx.QueryRowxContext(ctx,
			"SELECT success, message FROM deduct_stock($1::jsonb)",
			string(payload),
		).Scan(&ok, &message); err != nil {
			return fmt.Errorf("failed to deduct stock: %w", err)
		}
		if !ok {
			return &StockError{Message: message}
		}

		err := tx.QueryRowxContext(ctx,
			`INSERT INTO orders (user_id, customer_name, customer_email, customer_phone, address, city, state, pincode,
				items, total_amount, payment_method, payment_status, order_status, razorpay_order_id, razorpay_payment_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			RETURNING id, created_at, updated_at`,
			order.UserID, order.Name, order.Email, order.Phone, order.Address, order.City, order.State, order.Pincode,
			order.Items, order.TotalAmount, order.PaymentMethod, order.PaymentStatus, order.OrderStatus,
			order.RazorpayOrderID, order.RazorpayPaymentID,
		).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
		if isUniqueViolation(err) {
			return ErrPaymentReused
		}
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		return nil
	})
}

func (s *Store) OrdersByEmail(ctx context.Context, email string) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT "+orderColumns+" FROM orders WHERE LOWER(customer_email) = LOWER($1) ORDER BY created_at DESC",
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, nil
}

// ListOrders returns every order, optionally filtered by order status.
func (s *Store) ListOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	orders := []models.Order{}
	var err error
	if status == "" {
		err = s.db.SelectContext(ctx, &orders, "SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC")
	} else {
		err = s.db.SelectContext(ctx, &orders,
			"SELECT "+orderColumns+" FROM orders WHERE order_status = $1 ORDER BY created_at DESC",
			status,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int, status models.OrderStatus) (models.Order, error) {
	var order models.Order
	err := s.db.QueryRowxContext(ctx,
		"UPDATE orders SET order_status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 RETURNING "+orderColumns,
		status, id,
	).StructScan(&order)
	if err != nil {
		return models.Order{}, notFound(err)
	}
	return order, nil
}
