package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-svc/circuitbreaker"
	"storefront-svc/config"
	"storefront-svc/gateway"
	"storefront-svc/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixedPricer struct {
	total decimal.Decimal
}

func (p fixedPricer) PriceCart(_ context.Context, cart []models.CartItem) (models.OrderItems, decimal.Decimal, error) {
	items := make(models.OrderItems, len(cart))
	for i, line := range cart {
		items[i] = models.OrderItem{ID: line.ID, Quantity: line.Quantity}
	}
	return items, p.total, nil
}

func setupPaymentTest(t *testing.T, handler http.HandlerFunc) *gin.Engine {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := zaptest.NewLogger(t)
	rzp := gateway.NewRazorpay(config.RazorpayConfig{
		KeyID:     "rzp_test",
		KeySecret: "secret",
		BaseURL:   server.URL + "/v1",
		Timeout:   time.Second,
	}, circuitbreaker.NewCircuitBreaker("razorpay", 1, time.Minute), logger)

	h := NewPaymentHandler(fixedPricer{total: decimal.RequireFromString("1249.50")}, rzp, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/payments/razorpay/order", h.CreatePaymentOrder)
	return router
}

func postPaymentOrder(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/payments/razorpay/order", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPaymentHandler_CreatePaymentOrder(t *testing.T) {
	var sent map[string]any
	router := setupPaymentTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		w.Write([]byte(`{"id":"order_9","amount":124950,"currency":"INR","receipt":"r","status":"created"}`))
	})

	w := postPaymentOrder(router, `{"items":[{"id":1,"quantity":2,"price":1}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.CreatePaymentOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "order_9", resp.OrderID)
	assert.Equal(t, int64(124950), resp.Amount)
	assert.Equal(t, "rzp_test", resp.KeyID)

	assert.Equal(t, float64(124950), sent["amount"])
	assert.Equal(t, "INR", sent["currency"])
	assert.Len(t, sent["receipt"], 36)
}

func TestPaymentHandler_CreatePaymentOrder_EmptyCart(t *testing.T) {
	router := setupPaymentTest(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("gateway must not be called")
	})

	w := postPaymentOrder(router, `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandler_CreatePaymentOrder_GatewayDown(t *testing.T) {
	router := setupPaymentTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	w := postPaymentOrder(router, `{"items":[{"id":1,"quantity":1}]}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = postPaymentOrder(router, `{"items":[{"id":1,"quantity":1}]}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
