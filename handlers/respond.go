package handlers

import (
	"errors"
	"net/http"

	"storefront-svc/checkout"
	"storefront-svc/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// respondCheckoutError writes err as {success:false, message}. Anything that is not a
// *checkout.Error is reported as a generic 500.
func respondCheckoutError(c *gin.Context, logger *zap.Logger, err error) {
	var cerr *checkout.Error
	if errors.As(err, &cerr) {
		if cerr.Status >= http.StatusInternalServerError {
			logger.Error("Checkout failed",
				zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
				zap.Error(err),
			)
		}
		respondError(c, cerr.Status, cerr.Message)
		return
	}

	logger.Error("Unexpected checkout error",
		zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
		zap.Error(err),
	)
	respondError(c, http.StatusInternalServerError, "Internal server error")
}
