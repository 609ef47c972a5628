package models

import "github.com/shopspring/decimal"

// GatewayPayment is the subset of a Razorpay payment entity the checkout relies on.
// Amount is in the smallest currency unit (paise).
type GatewayPayment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method"`
	Email    string `json:"email"`
}

type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type CreatePaymentOrderRequest struct {
	Items []CartItem `json:"items" binding:"required,min=1,dive"`
}

type CreatePaymentOrderResponse struct {
	Success  bool            `json:"success"`
	OrderID  string          `json:"orderId"`
	Amount   int64           `json:"amount"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
	KeyID    string          `json:"keyId"`
}
