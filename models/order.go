package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Totals and prices go out as JSON numbers, the way the storefront sends them in.
	decimal.MarshalJSONWithoutQuotes = true
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
)

// OrderItem is the validated, server-priced snapshot of a cart line.
type OrderItem struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// OrderItems is stored as a JSONB column.
type OrderItems []OrderItem

// Value encodes as a string: lib/pq would send a []byte as bytea.
func (items OrderItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (items *OrderItems) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*items = OrderItems{}
		return nil
	default:
		return errors.New("unsupported type for order items")
	}
	return json.Unmarshal(data, items)
}

// Customer holds the contact and shipping columns shared by orders and failed orders.
type Customer struct {
	Name    string `json:"customer_name" db:"customer_name"`
	Email   string `json:"customer_email" db:"customer_email"`
	Phone   string `json:"customer_phone" db:"customer_phone"`
	Address string `json:"address" db:"address"`
	City    string `json:"city" db:"city"`
	State   string `json:"state" db:"state"`
	Pincode string `json:"pincode" db:"pincode"`
}

type Order struct {
	ID int `json:"id" db:"id"`
	Customer
	UserID            *string         `json:"user_id,omitempty" db:"user_id"`
	Items             OrderItems      `json:"items" db:"items"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	PaymentMethod     PaymentMethod   `json:"payment_method" db:"payment_method"`
	PaymentStatus     PaymentStatus   `json:"payment_status" db:"payment_status"`
	OrderStatus       OrderStatus     `json:"order_status" db:"order_status"`
	RazorpayOrderID   *string         `json:"razorpay_order_id,omitempty" db:"razorpay_order_id"`
	RazorpayPaymentID *string         `json:"razorpay_payment_id,omitempty" db:"razorpay_payment_id"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// CheckoutForm is the customer form submitted by the storefront.
type CheckoutForm struct {
	Name          string        `json:"name" binding:"required"`
	Email         string        `json:"email" binding:"required,email"`
	Phone         string        `json:"phone" binding:"required"`
	Address       string        `json:"address" binding:"required"`
	City          string        `json:"city" binding:"required"`
	State         string        `json:"state" binding:"required"`
	Pincode       string        `json:"pincode" binding:"required"`
	PaymentMethod PaymentMethod `json:"paymentMethod" binding:"required,oneof=cod online"`
}

func (f CheckoutForm) Customer() Customer {
	return Customer{
		Name:    f.Name,
		Email:   f.Email,
		Phone:   f.Phone,
		Address: f.Address,
		City:    f.City,
		State:   f.State,
		Pincode: f.Pincode,
	}
}

// CartItem is a line as claimed by the client. Price is never trusted.
type CartItem struct {
	ID       int             `json:"id" binding:"required,gt=0"`
	Quantity int             `json:"quantity" binding:"required,gt=0"`
	Price    decimal.Decimal `json:"price"`
}

type PaymentDetails struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

type CreateOrderRequest struct {
	FormData       CheckoutForm    `json:"formData"`
	Items          []CartItem      `json:"items" binding:"required,min=1,dive"`
	Total          decimal.Decimal `json:"total"`
	PaymentDetails *PaymentDetails `json:"paymentDetails"`
	UserID         *string         `json:"userId"`
}

type UpdateOrderStatusRequest struct {
	OrderStatus OrderStatus `json:"order_status" binding:"required"`
}

type OrderEvent struct {
	OrderID       int             `json:"order_id"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerEmail string          `json:"customer_email"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	OrderStatus   OrderStatus     `json:"order_status,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	EventType     string          `json:"event_type"` // order_created, order_status_changed, checkout_failed
}
