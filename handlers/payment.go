package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"storefront-svc/checkout"
	"storefront-svc/circuitbreaker"
	"storefront-svc/gateway"
	"storefront-svc/middleware"
	"storefront-svc/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type CartPricer interface {
	PriceCart(ctx context.Context, cart []models.CartItem) (models.OrderItems, decimal.Decimal, error)
}

type PaymentOrderCreator interface {
	KeyID() string
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (models.GatewayOrder, error)
}

type PaymentHandler struct {
	pricer  CartPricer
	gateway PaymentOrderCreator
	logger  *zap.Logger
}

func NewPaymentHandler(pricer CartPricer, gw PaymentOrderCreator, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		pricer:  pricer,
		gateway: gw,
		logger:  logger,
	}
}

// CreatePaymentOrder handles POST /api/payments/razorpay/order. The amount is always the
// catalog price of the cart.
func (h *PaymentHandler) CreatePaymentOrder(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-service").Start(c.Request.Context(), "CreatePaymentOrder")
	defer span.End()

	var req models.CreatePaymentOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Cart items are required")
		return
	}

	items, total, err := h.pricer.PriceCart(ctx, req.Items)
	if err != nil {
		span.RecordError(err)
		respondCheckoutError(c, h.logger, err)
		return
	}

	amount := checkout.ToPaise(total)
	receipt := uuid.New().String()
	span.SetAttributes(attribute.Int64("amount", amount), attribute.String("receipt", receipt))

	order, err := h.gateway.CreateOrder(ctx, amount, "INR", receipt, map[string]string{
		"items": strconv.Itoa(len(items)),
	})
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to create payment order",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("receipt", receipt),
			zap.Error(err),
		)

		var apiErr *gateway.APIError
		switch {
		case errors.Is(err, circuitbreaker.ErrCircuitOpen):
			respondError(c, http.StatusServiceUnavailable, "Payment service is temporarily unavailable")
		case errors.As(err, &apiErr):
			respondError(c, http.StatusBadGateway, "Payment gateway rejected the request")
		default:
			respondError(c, http.StatusInternalServerError, "Failed to create payment order")
		}
		return
	}

	c.JSON(http.StatusOK, models.CreatePaymentOrderResponse{
		Success:  true,
		OrderID:  order.ID,
		Amount:   order.Amount,
		Total:    total,
		Currency: order.Currency,
		KeyID:    h.gateway.KeyID(),
	})
}
