// Package checkout turns a storefront cart into a persisted order. It re-prices every
// line from the catalog, verifies online payments against the gateway and keeps a
// FailedOrder record for every rejected payment.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storefront-svc/gateway"
	"storefront-svc/guard"
	"storefront-svc/middleware"
	"storefront-svc/models"
	"storefront-svc/store"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
}

type FailedOrderStore interface {
	CreateFailedOrder(ctx context.Context, failed *models.FailedOrder) error
}

type PaymentGateway interface {
	VerifySignature(orderID, paymentID, signature string) error
	FetchPayment(ctx context.Context, paymentID string) (models.GatewayPayment, error)
}

type Guard interface {
	CheckRate(ctx context.Context, client string) error
	Claim(ctx context.Context, fingerprint string) error
	Complete(ctx context.Context, fingerprint string) error
	Release(ctx context.Context, fingerprint string) error
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

// Notifier must not block the caller.
type Notifier interface {
	OrderPlaced(order models.Order)
}

// Options carries the tolerances applied during verification.
type Options struct {
	// TotalTolerance bounds the gap between client and server totals. A gap equal to it
	// is rejected.
	TotalTolerance decimal.Decimal
	// AmountTolerance is the largest accepted gap, in paise, between the captured amount
	// and the server total.
	AmountTolerance int64
}

type Service struct {
	catalog  Catalog
	orders   OrderStore
	failures FailedOrderStore
	gateway  PaymentGateway
	guard    Guard
	events   EventPublisher
	notifier Notifier
	opts     Options
	logger   *zap.Logger
}

// NewService wires the pipeline. events and notifier may be nil.
func NewService(
	catalog Catalog,
	orders OrderStore,
	failures FailedOrderStore,
	gw PaymentGateway,
	g Guard,
	events EventPublisher,
	notifier Notifier,
	opts Options,
	logger *zap.Logger,
) *Service {
	return &Service{
		catalog:  catalog,
		orders:   orders,
		failures: failures,
		gateway:  gw,
		guard:    g,
		events:   events,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
	}
}

// CheckRate counts a submission from client and rejects it once the client is over the limit.
func (s *Service) CheckRate(ctx context.Context, client string) error {
	err := s.guard.CheckRate(ctx, client)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, guard.ErrRateLimited):
		return s.reject(&Error{
			Status:  http.StatusTooManyRequests,
			Message: "Too many order attempts. Please wait a minute and try again.",
			Err:     err,
		})
	default:
		return s.reject(internal("Failed to process order", err))
	}
}

// PlaceOrder runs a validated request through the pipeline and returns the persisted order.
func (s *Service) PlaceOrder(ctx context.Context, req models.CreateOrderRequest) (order models.Order, err error) {
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "Checkout.PlaceOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment_method", string(req.FormData.PaymentMethod)),
		attribute.Int("items", len(req.Items)),
	)

	fingerprint := Fingerprint(req.FormData.Email, req.Items, req.Total)
	if err := s.guard.Claim(ctx, fingerprint); err != nil {
		if errors.Is(err, guard.ErrDuplicate) {
			return models.Order{}, s.reject(&Error{
				Status:  http.StatusBadRequest,
				Message: "Duplicate order detected. Please wait a few minutes before placing the same order again.",
				Err:     err,
			})
		}
		return models.Order{}, s.reject(internal("Failed to process order", err))
	}
	defer func() {
		if err != nil {
			span.RecordError(err)
			if rerr := s.guard.Release(context.WithoutCancel(ctx), fingerprint); rerr != nil {
				s.logger.Warn("Failed to release checkout fingerprint", zap.Error(rerr))
			}
			err = s.reject(err)
		}
	}()

	items, total, err := Quote(ctx, s.catalog, req.Items)
	if err != nil {
		return models.Order{}, err
	}

	attempt := failedAttempt(req, items, total)

	if !total.Sub(req.Total).Abs().LessThan(s.opts.TotalTolerance) {
		msg := fmt.Sprintf("Price mismatch: expected %s, received %s", total.StringFixed(2), req.Total.StringFixed(2))
		s.recordFailure(ctx, attempt, models.FailureReasonPriceVerification, msg)
		return models.Order{}, &Error{
			Status:  http.StatusBadRequest,
			Message: "Price verification failed. Please refresh your cart and try again.",
			Reason:  models.FailureReasonPriceVerification,
		}
	}

	order = models.Order{
		Customer:      req.FormData.Customer(),
		UserID:        req.UserID,
		Items:         items,
		TotalAmount:   total,
		PaymentMethod: req.FormData.PaymentMethod,
		PaymentStatus: models.PaymentStatusPending,
		OrderStatus:   models.OrderStatusPending,
	}

	if req.FormData.PaymentMethod == models.PaymentMethodOnline {
		if err := s.verifyPayment(ctx, req.PaymentDetails, total, attempt); err != nil {
			return models.Order{}, err
		}
		order.PaymentStatus = models.PaymentStatusPaid
		order.RazorpayOrderID = &req.PaymentDetails.RazorpayOrderID
		order.RazorpayPaymentID = &req.PaymentDetails.RazorpayPaymentID
	}

	if err := s.orders.CreateOrder(ctx, &order); err != nil {
		var stockErr *store.StockError
		switch {
		case errors.As(err, &stockErr):
			return models.Order{}, &Error{Status: http.StatusBadRequest, Message: stockErr.Message, Err: err}
		case errors.Is(err, store.ErrPaymentReused):
			return models.Order{}, &Error{
				Status:  http.StatusBadRequest,
				Message: "This payment has already been used for an order",
				Err:     err,
			}
		default:
			s.logger.Error("Failed to persist order",
				zap.String("email", order.Email),
				zap.Error(err),
			)
			return models.Order{}, internal("Failed to create order", err)
		}
	}

	span.SetAttributes(attribute.Int("order_id", order.ID))
	s.afterCreate(ctx, order, fingerprint)
	return order, nil
}

func (s *Service) verifyPayment(ctx context.Context, details *models.PaymentDetails, total decimal.Decimal, attempt models.FailedOrder) error {
	if details == nil || details.RazorpayOrderID == "" || details.RazorpayPaymentID == "" || details.RazorpaySignature == "" {
		return badRequest("Payment details are required for online payment")
	}
	attempt.RazorpayOrderID = &details.RazorpayOrderID
	attempt.RazorpayPaymentID = &details.RazorpayPaymentID

	if err := s.gateway.VerifySignature(details.RazorpayOrderID, details.RazorpayPaymentID, details.RazorpaySignature); err != nil {
		if !errors.Is(err, gateway.ErrSignatureMismatch) {
			return internal("Payment verification is unavailable", err)
		}
		s.recordFailure(ctx, attempt, models.FailureReasonSignatureVerification, "Razorpay signature does not match")
		return &Error{
			Status:  http.StatusBadRequest,
			Message: "Payment verification failed",
			Reason:  models.FailureReasonSignatureVerification,
			Err:     err,
		}
	}

	payment, err := s.gateway.FetchPayment(ctx, details.RazorpayPaymentID)
	if err != nil {
		s.logger.Error("Failed to fetch payment from gateway",
			zap.String("payment_id", details.RazorpayPaymentID),
			zap.Error(err),
		)
		return internal("Unable to verify payment. Please contact support.", err)
	}

	if payment.Status != "captured" && payment.Status != "authorized" {
		s.recordFailure(ctx, attempt, models.FailureReasonPaymentStatusInvalid,
			fmt.Sprintf("Payment status is %q", payment.Status))
		return &Error{
			Status:  http.StatusBadRequest,
			Message: "Payment was not completed",
			Reason:  models.FailureReasonPaymentStatusInvalid,
		}
	}

	expected := ToPaise(total)
	diff := payment.Amount - expected
	if diff < 0 {
		diff = -diff
	}
	if diff > s.opts.AmountTolerance {
		s.recordFailure(ctx, attempt, models.FailureReasonAmountMismatch,
			fmt.Sprintf("Paid %d paise, expected %d paise", payment.Amount, expected))
		return &Error{
			Status:  http.StatusBadRequest,
			Message: "Payment amount does not match order total",
			Reason:  models.FailureReasonAmountMismatch,
		}
	}
	return nil
}

// afterCreate runs the side effects of a persisted order. None of them fail the request.
func (s *Service) afterCreate(ctx context.Context, order models.Order, fingerprint string) {
	ctx = context.WithoutCancel(ctx)

	if err := s.guard.Complete(ctx, fingerprint); err != nil {
		s.logger.Warn("Failed to mark checkout fingerprint completed", zap.Int("order_id", order.ID), zap.Error(err))
	}

	middleware.RecordOrderCreated(string(order.PaymentMethod))

	if s.notifier != nil {
		s.notifier.OrderPlaced(order)
	}

	s.publish(ctx, models.OrderEvent{
		OrderID:       order.ID,
		CustomerName:  order.Name,
		CustomerEmail: order.Email,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		OrderStatus:   order.OrderStatus,
		EventType:     "order_created",
	})

	s.logger.Info("Order created",
		zap.Int("order_id", order.ID),
		zap.String("payment_method", string(order.PaymentMethod)),
		zap.String("payment_status", string(order.PaymentStatus)),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
}

// recordFailure keeps a FailedOrder row for reconciliation. Errors are logged only.
func (s *Service) recordFailure(ctx context.Context, attempt models.FailedOrder, reason models.FailureReason, message string) {
	attempt.FailureReason = reason
	attempt.FailureMessage = message

	s.logger.Warn("Checkout failed verification",
		zap.String("reason", string(reason)),
		zap.String("message", message),
		zap.String("email", attempt.Email),
	)
	middleware.RecordCheckoutFailure(string(reason))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.failures.CreateFailedOrder(ctx, &attempt); err != nil {
		s.logger.Error("Failed to record failed order",
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
	}

	s.publish(ctx, models.OrderEvent{
		OrderID:       attempt.ID,
		CustomerEmail: attempt.Email,
		TotalAmount:   attempt.TotalAmount,
		PaymentMethod: attempt.PaymentMethod,
		Reason:        string(reason),
		EventType:     "checkout_failed",
	})
}

func (s *Service) publish(ctx context.Context, event models.OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("event_type", event.EventType),
			zap.Int("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}

// reject counts a rejection and normalises err to *Error.
func (s *Service) reject(err error) error {
	var cerr *Error
	if !errors.As(err, &cerr) {
		cerr = internal("Failed to process order", err)
	}
	middleware.RecordCheckoutRejection(cerr.Status)
	return cerr
}

func failedAttempt(req models.CreateOrderRequest, items models.OrderItems, expected decimal.Decimal) models.FailedOrder {
	return models.FailedOrder{
		Customer:       req.FormData.Customer(),
		UserID:         req.UserID,
		Items:          items,
		TotalAmount:    req.Total,
		ExpectedAmount: expected,
		PaymentMethod:  req.FormData.PaymentMethod,
	}
}

// PriceCart quotes a cart from the catalog, for creating a gateway order before payment.
func (s *Service) PriceCart(ctx context.Context, cart []models.CartItem) (models.OrderItems, decimal.Decimal, error) {
	return Quote(ctx, s.catalog, cart)
}
