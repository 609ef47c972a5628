package store

import (
	"context"
	"fmt"

	"storefront-svc/models"
)

const failedOrderColumns = `id, user_id, customer_name, customer_email, customer_phone, address, city, state, pincode,
	items, total_amount, expected_amount, payment_method, razorpay_order_id, razorpay_payment_id,
	failure_reason, failure_message, admin_notes, resolved, created_at, updated_at`

func (s *Store) CreateFailedOrder(ctx context.Context, f *models.FailedOrder) error {
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO failed_orders (user_id, customer_name, customer_email, customer_phone, address, city, state, pincode,
			items, total_amount, expected_amount, payment_method, razorpay_order_id, razorpay_payment_id,
			failure_reason, failure_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`,
		f.UserID, f.Name, f.Email, f.Phone, f.Address, f.City, f.State, f.Pincode,
		f.Items, f.TotalAmount, f.ExpectedAmount, f.PaymentMethod, f.RazorpayOrderID, f.RazorpayPaymentID,
		f.FailureReason, f.FailureMessage,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert failed order: %w", err)
	}
	return nil
}

// ListFailedOrders returns the review queue. A nil resolved returns everything.
func (s *Store) ListFailedOrders(ctx context.Context, resolved *bool) ([]models.FailedOrder, error) {
	out := []models.FailedOrder{}
	var err error
	if resolved == nil {
		err = s.db.SelectContext(ctx, &out, "SELECT "+failedOrderColumns+" FROM failed_orders ORDER BY created_at DESC")
	} else {
		err = s.db.SelectContext(ctx, &out,
			"SELECT "+failedOrderColumns+" FROM failed_orders WHERE resolved = $1 ORDER BY created_at DESC",
			*resolved,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list failed orders: %w", err)
	}
	return out, nil
}

func (s *Store) ResolveFailedOrder(ctx context.Context, id int, resolved bool, notes *string) (models.FailedOrder, error) {
	var f models.FailedOrder
	err := s.db.QueryRowxContext(ctx,
		`UPDATE failed_orders SET resolved = $1, admin_notes = COALESCE($2, admin_notes), updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 RETURNING `+failedOrderColumns,
		resolved, notes, id,
	).StructScan(&f)
	if err != nil {
		return models.FailedOrder{}, notFound(err)
	}
	return f, nil
}
