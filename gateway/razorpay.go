package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront-svc/circuitbreaker"
	"storefront-svc/config"
	"storefront-svc/models"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	ErrSignatureMismatch = errors.New("payment signature mismatch")
	ErrNotConfigured     = errors.New("razorpay credentials are not configured")
)

// APIError is a non-2xx answer from the Razorpay REST API.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay: %d %s: %s", e.StatusCode, e.Code, e.Description)
}

type Razorpay struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewRazorpay(cfg config.RazorpayConfig, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Razorpay {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Razorpay{
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
		logger:  logger,
	}
}

func (r *Razorpay) KeyID() string {
	return r.keyID
}

// ComputeSignature returns the hex HMAC-SHA256 Razorpay attaches to a checkout callback.
func ComputeSignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (r *Razorpay) VerifySignature(orderID, paymentID, signature string) error {
	if r.keySecret == "" {
		return ErrNotConfigured
	}
	expected := ComputeSignature(r.keySecret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return ErrSignatureMismatch
	}
	return nil
}

// FetchPayment reads the authoritative payment entity.
func (r *Razorpay) FetchPayment(ctx context.Context, paymentID string) (models.GatewayPayment, error) {
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "Razorpay.FetchPayment")
	defer span.End()
	span.SetAttributes(attribute.String("razorpay.payment_id", paymentID))

	var payment models.GatewayPayment
	if err := r.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &payment); err != nil {
		span.RecordError(err)
		return models.GatewayPayment{}, err
	}

	span.SetAttributes(
		attribute.String("razorpay.status", payment.Status),
		attribute.Int64("razorpay.amount", payment.Amount),
	)
	return payment, nil
}

type createOrderBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// CreateOrder registers a Razorpay order for amount paise.
func (r *Razorpay) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (models.GatewayOrder, error) {
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "Razorpay.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("razorpay.amount", amount), attribute.String("razorpay.receipt", receipt))

	var order models.GatewayOrder
	body := createOrderBody{Amount: amount, Currency: currency, Receipt: receipt, Notes: notes}
	if err := r.do(ctx, http.MethodPost, "/orders", body, &order); err != nil {
		span.RecordError(err)
		return models.GatewayOrder{}, err
	}
	return order, nil
}

func (r *Razorpay) do(ctx context.Context, method, path string, in, out any) error {
	if r.keyID == "" || r.keySecret == "" {
		return ErrNotConfigured
	}

	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	// 4xx answers are the caller's problem and must not trip the breaker.
	var apiErr *APIError
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.SetBasicAuth(r.keyID, r.keySecret)
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("razorpay request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("failed to read razorpay response: %w", err)
		}

		if resp.StatusCode >= 300 {
			e := decodeAPIError(resp.StatusCode, data)
			if resp.StatusCode < 500 {
				apiErr = e
				return nil
			}
			return e
		}

		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode razorpay response: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Razorpay call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	if apiErr != nil {
		r.logger.Warn("Razorpay rejected request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", apiErr.StatusCode),
			zap.String("code", apiErr.Code),
		)
		return apiErr
	}
	return nil
}

func decodeAPIError(status int, data []byte) *APIError {
	var body struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	e := &APIError{StatusCode: status}
	if json.Unmarshal(data, &body) == nil {
		e.Code = body.Error.Code
		e.Description = body.Error.Description
	}
	if e.Description == "" {
		e.Description = http.StatusText(status)
	}
	return e
}
