package handlers

import (
	"context"
	"net/http"
	"strings"

	"storefront-svc/middleware"
	"storefront-svc/models"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type Checkout interface {
	CheckRate(ctx context.Context, client string) error
	PlaceOrder(ctx context.Context, req models.CreateOrderRequest) (models.Order, error)
}

type OrderReader interface {
	OrdersByEmail(ctx context.Context, email string) ([]models.Order, error)
}

type OrderHandler struct {
	checkout Checkout
	orders   OrderReader
	logger   *zap.Logger
}

func NewOrderHandler(checkout Checkout, orders OrderReader, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		orders:   orders,
		logger:   logger,
	}
}

// CreateOrder handles POST /api/orders.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-service").Start(c.Request.Context(), "CreateOrder")
	defer span.End()

	if err := h.checkout.CheckRate(ctx, c.ClientIP()); err != nil {
		span.RecordError(err)
		respondCheckoutError(c, h.logger, err)
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RecordCheckoutRejection(http.StatusBadRequest)
		h.logger.Debug("Invalid order request", zap.Error(err))
		respondError(c, http.StatusBadRequest, "Missing or invalid order details")
		return
	}

	span.SetAttributes(
		attribute.String("payment_method", string(req.FormData.PaymentMethod)),
		attribute.Int("items", len(req.Items)),
	)

	order, err := h.checkout.PlaceOrder(ctx, req)
	if err != nil {
		span.RecordError(err)
		respondCheckoutError(c, h.logger, err)
		return
	}

	span.SetAttributes(attribute.Int("order.id", order.ID))
	c.JSON(http.StatusOK, gin.H{"success": true, "orderId": order.ID})
}

// ListOrders handles GET /api/orders?email=.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-service").Start(c.Request.Context(), "ListOrders")
	defer span.End()

	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		respondError(c, http.StatusBadRequest, "Email is required")
		return
	}

	orders, err := h.orders.OrdersByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch orders",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.Error(err),
		)
		respondError(c, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}
