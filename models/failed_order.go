package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type FailureReason string

const (
	FailureReasonPriceVerification     FailureReason = "price_verification"
	FailureReasonSignatureVerification FailureReason = "signature_verification"
	FailureReasonPaymentStatusInvalid  FailureReason = "payment_status_invalid"
	FailureReasonAmountMismatch        FailureReason = "amount_mismatch"
)

// FailedOrder is a rejected checkout kept for manual reconciliation.
type FailedOrder struct {
	ID int `json:"id" db:"id"`
	Customer
	UserID            *string         `json:"user_id,omitempty" db:"user_id"`
	Items             OrderItems      `json:"items" db:"items"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	ExpectedAmount    decimal.Decimal `json:"expected_amount" db:"expected_amount"`
	PaymentMethod     PaymentMethod   `json:"payment_method" db:"payment_method"`
	RazorpayOrderID   *string         `json:"razorpay_order_id,omitempty" db:"razorpay_order_id"`
	RazorpayPaymentID *string         `json:"razorpay_payment_id,omitempty" db:"razorpay_payment_id"`
	FailureReason     FailureReason   `json:"failure_reason" db:"failure_reason"`
	FailureMessage    string          `json:"failure_message" db:"failure_message"`
	AdminNotes        *string         `json:"admin_notes,omitempty" db:"admin_notes"`
	Resolved          bool            `json:"resolved" db:"resolved"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

type ResolveFailedOrderRequest struct {
	Resolved   *bool   `json:"resolved" binding:"required"`
	AdminNotes *string `json:"admin_notes"`
}
