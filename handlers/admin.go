package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"storefront-svc/middleware"
	"storefront-svc/models"
	"storefront-svc/store"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type AdminStore interface {
	ListOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int, status models.OrderStatus) (models.Order, error)
	ListFailedOrders(ctx context.Context, resolved *bool) ([]models.FailedOrder, error)
	ResolveFailedOrder(ctx context.Context, id int, resolved bool, notes *string) (models.FailedOrder, error)
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

// AdminHandler serves order fulfilment and the failed order review queue.
type AdminHandler struct {
	store  AdminStore
	events EventPublisher
	logger *zap.Logger
}

// NewAdminHandler builds the handler. events may be nil.
func NewAdminHandler(s AdminStore, events EventPublisher, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		store:  s,
		events: events,
		logger: logger,
	}
}

func (h *AdminHandler) ListOrders(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-service").Start(c.Request.Context(), "AdminListOrders")
	defer span.End()

	status := models.OrderStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		respondError(c, http.StatusBadRequest, "Invalid order status")
		return
	}

	orders, err := h.store.ListOrders(ctx, status)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to list orders", zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}

func (h *AdminHandler) UpdateOrderStatus(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-service").Start(c.Request.Context(), "AdminUpdateOrderStatus")
	defer span.End()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.OrderStatus.Valid() {
		respondError(c, http.StatusBadRequest, "Invalid order status")
		return
	}
	span.SetAttributes(attribute.Int("order.id", id), attribute.String("order.status", string(req.OrderStatus)))

	order, err := h.store.UpdateOrderStatus(ctx, id, req.OrderStatus)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Order not found")
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to update order status", zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to update order")
		return
	}

	if h.events != nil {
		event := models.OrderEvent{
			OrderID:       order.ID,
			CustomerName:  order.Name,
			CustomerEmail: order.Email,
			TotalAmount:   order.TotalAmount,
			PaymentMethod: order.PaymentMethod,
			PaymentStatus: order.PaymentStatus,
			OrderStatus:   order.OrderStatus,
			EventType:     "order_status_changed",
		}
		if err := h.events.PublishOrderEvent(ctx, event); err != nil {
			h.logger.Error("Failed to publish order_status_changed event", zap.Int("order_id", order.ID), zap.Error(err))
		}
	}

	h.logger.Info("Order status updated",
		zap.Int("order_id", order.ID),
		zap.String("status", string(order.OrderStatus)),
		zap.String("by", c.GetString(middleware.AdminSubjectKey)),
	)
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

func (h *AdminHandler) ListFailedOrders(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-service").Start(c.Request.Context(), "AdminListFailedOrders")
	defer span.End()

	var resolved *bool
	if raw := c.Query("resolved"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "resolved must be true or false")
			return
		}
		resolved = &v
	}

	failed, err := h.store.ListFailedOrders(ctx, resolved)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to list failed orders", zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch failed orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "failedOrders": failed})
}

func (h *AdminHandler) ResolveFailedOrder(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-service").Start(c.Request.Context(), "AdminResolveFailedOrder")
	defer span.End()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid failed order ID")
		return
	}

	var req models.ResolveFailedOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "resolved is required")
		return
	}

	failed, err := h.store.ResolveFailedOrder(ctx, id, *req.Resolved, req.AdminNotes)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Failed order not found")
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to update failed order", zap.String("trace_id", middleware.GetTraceID(ctx)), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to update failed order")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "failedOrder": failed})
}
