package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"storefront-svc/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStoreTest(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, "postgres"), mock
}

func testOrder() *models.Order {
	return &models.Order{
		Customer: models.Customer{Name: "Asha", Email: "asha@example.com", Phone: "9999999999",
			Address: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001"},
		Items: models.OrderItems{
			{ID: 1, Name: "Silk Saree", Quantity: 2, Price: decimal.NewFromInt(500)},
			{ID: 3, Name: "Jhumka", Quantity: 1, Price: decimal.RequireFromString("249.5")},
		},
		TotalAmount:   decimal.RequireFromString("1249.5"),
		PaymentMethod: models.PaymentMethodCOD,
		PaymentStatus: models.PaymentStatusPending,
		OrderStatus:   models.OrderStatusPending,
	}
}

func TestCreateOrder_Commits(t *testing.T) {
	s, mock := setupStoreTest(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT success, message FROM deduct_stock($1::jsonb)")).
		WithArgs(`[{"id":1,"quantity":2},{"id":3,"quantity":1}]`).
		WillReturnRows(sqlmock.NewRows([]string{"success", "message"}).AddRow(true, "Stock deducted"))
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(7, now, now))
	mock.ExpectCommit()

	order := testOrder()
	require.NoError(t, s.CreateOrder(context.Background(), order))
	assert.Equal(t, 7, order.ID)
	assert.Equal(t, now, order.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_StockRefusalRollsBack(t *testing.T) {
	s, mock := setupStoreTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT success, message FROM deduct_stock($1::jsonb)")).
		WillReturnRows(sqlmock.NewRows([]string{"success", "message"}).AddRow(false, "Insufficient stock for Jhumka"))
	mock.ExpectRollback()

	err := s.CreateOrder(context.Background(), testOrder())
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Insufficient stock for Jhumka", stockErr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_InsertFailureRollsBack(t *testing.T) {
	s, mock := setupStoreTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT success, message FROM deduct_stock($1::jsonb)")).
		WillReturnRows(sqlmock.NewRows([]string{"success", "message"}).AddRow(true, "Stock deducted"))
	mock.ExpectQuery("INSERT INTO orders").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.CreateOrder(context.Background(), testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert order")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_PaymentReused(t *testing.T) {
	s, mock := setupStoreTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT success, message FROM deduct_stock($1::jsonb)")).
		WillReturnRows(sqlmock.NewRows([]string{"success", "message"}).AddRow(true, "Stock deducted"))
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_razorpay_payment_id_key"})
	mock.ExpectRollback()

	err := s.CreateOrder(context.Background(), testOrder())
	assert.ErrorIs(t, err, ErrPaymentReused)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductsByIDs(t *testing.T) {
	s, mock := setupStoreTest(t)

	rows := sqlmock.NewRows([]string{"id", "name", "price", "discount_price", "stock", "created_at", "updated_at"}).
		AddRow(1, "Silk Saree", "650.00", "500.00", 10, time.Now(), time.Now()).
		AddRow(3, "Jhumka", "249.50", nil, 4, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = ANY($1)")).
		WithArgs("{1,3,8}").
		WillReturnRows(rows)

	products, err := s.ProductsByIDs(context.Background(), []int{1, 3, 8})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.True(t, products[1].UnitPrice().Equal(decimal.NewFromInt(500)))
	assert.True(t, products[3].UnitPrice().Equal(decimal.RequireFromString("249.5")))
	assert.NotContains(t, products, 8)
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	s, mock := setupStoreTest(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE orders SET order_status = $1")).
		WithArgs("shipped", 404).
		WillReturnError(sql.ErrNoRows)

	_, err := s.UpdateOrderStatus(context.Background(), 404, models.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateFailedOrder(t *testing.T) {
	s, mock := setupStoreTest(t)
	orderID, paymentID := "order_1", "pay_1"

	mock.ExpectQuery("INSERT INTO failed_orders").
		WithArgs(nil, "Asha", "asha@example.com", "9999999999", "12 MG Road", "Pune", "MH", "411001",
			sqlmock.AnyArg(), "1249.5", "1249.5", "online", orderID, paymentID, "amount_mismatch", "Paid 1 paise").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, time.Now(), time.Now()))

	o := testOrder()
	f := &models.FailedOrder{
		Customer:          o.Customer,
		Items:             o.Items,
		TotalAmount:       o.TotalAmount,
		ExpectedAmount:    o.TotalAmount,
		PaymentMethod:     models.PaymentMethodOnline,
		RazorpayOrderID:   &orderID,
		RazorpayPaymentID: &paymentID,
		FailureReason:     models.FailureReasonAmountMismatch,
		FailureMessage:    "Paid 1 paise",
	}
	require.NoError(t, s.CreateFailedOrder(context.Background(), f))
	assert.Equal(t, 11, f.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFailedOrders_All(t *testing.T) {
	s, mock := setupStoreTest(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM failed_orders ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	failed, err := s.ListFailedOrders(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.NotNil(t, failed)
}
