package handlers

import (
	"net/http"

	"storefront-svc/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SupportNotifier interface {
	SupportRequest(req models.SupportRequest)
}

type SupportHandler struct {
	notifier SupportNotifier
	logger   *zap.Logger
}

func NewSupportHandler(notifier SupportNotifier, logger *zap.Logger) *SupportHandler {
	return &SupportHandler{notifier: notifier, logger: logger}
}

// Submit handles POST /api/support. Delivery happens in the background.
func (h *SupportHandler) Submit(c *gin.Context) {
	var req models.SupportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Name, email, subject and message are required")
		return
	}

	h.notifier.SupportRequest(req)
	h.logger.Info("Support request received", zap.String("email", req.Email), zap.String("order_id", req.OrderID))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
