package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-svc/config"
	"storefront-svc/handlers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestRouter_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)
	cfg := &config.Config{ServiceName: "storefront-service", AdminJWTSecret: "test-secret"}

	router := newRouter(cfg, logger, routes{
		orders:   handlers.NewOrderHandler(nil, nil, logger),
		payments: handlers.NewPaymentHandler(nil, nil, logger),
		admin:    handlers.NewAdminHandler(nil, nil, logger),
		support:  handlers.NewSupportHandler(nil, logger),
	})

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
		{"GET", "/api/orders", http.StatusBadRequest},
		{"GET", "/api/admin/orders", http.StatusUnauthorized},
		{"PATCH", "/api/admin/failed-orders/1", http.StatusUnauthorized},
		{"GET", "/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
