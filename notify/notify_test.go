package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"storefront-svc/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testOrder() models.Order {
	return models.Order{
		ID: 7,
		Customer: models.Customer{
			Name:    "Asha <b>",
			Email:   "asha@example.com",
			Phone:   "9999999999",
			Address: "12 MG Road",
			City:    "Pune",
			State:   "MH",
			Pincode: "411001",
		},
		Items: models.OrderItems{
			{ID: 1, Name: "Silk Saree", Quantity: 2, Price: decimal.RequireFromString("500")},
		},
		TotalAmount:   decimal.RequireFromString("1000"),
		PaymentMethod: models.PaymentMethodCOD,
		PaymentStatus: models.PaymentStatusPending,
	}
}

func TestBrevoMailer_Send(t *testing.T) {
	var got brevoEmail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/smtp/email", r.URL.Path)
		assert.Equal(t, "brevo-key", r.Header.Get("api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"messageId":"<1@brevo>"}`))
	}))
	defer server.Close()

	m := NewBrevoMailer(server.URL+"/v3", "brevo-key", "orders@shop.test", "Shop")
	err := m.Send(context.Background(), Email{To: []string{"a@example.com"}, ReplyTo: "r@example.com", Subject: "Hi", HTML: "<p>x</p>"})
	require.NoError(t, err)

	assert.Equal(t, "orders@shop.test", got.Sender.Email)
	require.Len(t, got.To, 1)
	assert.Equal(t, "a@example.com", got.To[0].Email)
	require.NotNil(t, got.ReplyTo)
	assert.Equal(t, "r@example.com", got.ReplyTo.Email)
	assert.Equal(t, "<p>x</p>", got.HTMLContent)
}

func TestResendMailer_Send(t *testing.T) {
	var got resendEmail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"abc"}`))
	}))
	defer server.Close()

	m := NewResendMailer(server.URL, "re_key", "orders@shop.test", "Shop")
	require.NoError(t, m.Send(context.Background(), Email{To: []string{"a@example.com"}, Subject: "Hi", HTML: "<p>x</p>"}))
	assert.Equal(t, "Shop <orders@shop.test>", got.From)
	assert.Equal(t, []string{"a@example.com"}, got.To)
}

func TestMailer_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"bad key"}`))
	}))
	defer server.Close()

	err := NewResendMailer(server.URL, "x", "a@b.c", "").Send(context.Background(), Email{To: []string{"a@example.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestOrderPlacedEmails(t *testing.T) {
	emails, err := orderPlacedEmails(testOrder(), "admin@shop.test")
	require.NoError(t, err)
	require.Len(t, emails, 2)

	assert.Equal(t, []string{"asha@example.com"}, emails[0].To)
	assert.Equal(t, "Order #7 confirmed", emails[0].Subject)
	assert.Contains(t, emails[0].HTML, "₹1000.00")
	assert.Contains(t, emails[0].HTML, "Cash on delivery")
	assert.Contains(t, emails[0].HTML, "Asha &lt;b&gt;")

	assert.Equal(t, []string{"admin@shop.test"}, emails[1].To)
	assert.Equal(t, "asha@example.com", emails[1].ReplyTo)
}

type flakyMailer struct {
	mu       sync.Mutex
	failures int
	sent     []Email
	calls    int
}

func (f *flakyMailer) Send(_ context.Context, email Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("temporary failure")
	}
	f.sent = append(f.sent, email)
	return nil
}

func TestNotifier_RetriesUntilSent(t *testing.T) {
	mailer := &flakyMailer{failures: 2}
	n := NewNotifier(mailer, "", zaptest.NewLogger(t))
	n.backoff = time.Millisecond

	n.OrderPlaced(testOrder())
	require.NoError(t, n.Wait(context.Background()))

	assert.Equal(t, 3, mailer.calls)
	assert.Len(t, mailer.sent, 1)
}

func TestNotifier_GivesUpAfterAttempts(t *testing.T) {
	mailer := &flakyMailer{failures: 10}
	n := NewNotifier(mailer, "", zaptest.NewLogger(t))
	n.backoff = time.Millisecond

	n.OrderPlaced(testOrder())
	require.NoError(t, n.Wait(context.Background()))

	assert.Equal(t, 3, mailer.calls)
	assert.Empty(t, mailer.sent)
}

func TestNotifier_SupportRequest(t *testing.T) {
	mailer := &flakyMailer{}
	n := NewNotifier(mailer, "admin@shop.test", zaptest.NewLogger(t))

	n.SupportRequest(models.SupportRequest{
		Name:    "Asha",
		Email:   "asha@example.com",
		OrderID: "7",
		Subject: "Late delivery",
		Message: "Where is my order?",
	})
	require.NoError(t, n.Wait(context.Background()))

	require.Len(t, mailer.sent, 2)
	recipients := []string{mailer.sent[0].To[0], mailer.sent[1].To[0]}
	assert.ElementsMatch(t, []string{"admin@shop.test", "asha@example.com"}, recipients)
}

func TestNotifier_HandleOrderEvent(t *testing.T) {
	mailer := &flakyMailer{}
	n := NewNotifier(mailer, "", zaptest.NewLogger(t))

	err := n.HandleOrderEvent(context.Background(), models.OrderEvent{
		OrderID:       5,
		CustomerName:  "Asha",
		CustomerEmail: "asha@example.com",
		OrderStatus:   models.OrderStatusShipped,
		EventType:     "order_status_changed",
	})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Your order #5 has shipped", mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].HTML, "Hi Asha")

	require.NoError(t, n.HandleOrderEvent(context.Background(), models.OrderEvent{OrderID: 6, EventType: "order_created"}))
	require.NoError(t, n.HandleOrderEvent(context.Background(), models.OrderEvent{
		OrderID: 7, CustomerEmail: "asha@example.com", OrderStatus: models.OrderStatusPending, EventType: "order_status_changed",
	}))
	assert.Len(t, mailer.sent, 1)
}

func TestNotifier_HandleOrderEventReturnsSendError(t *testing.T) {
	n := NewNotifier(&flakyMailer{failures: 1}, "", zaptest.NewLogger(t))

	err := n.HandleOrderEvent(context.Background(), models.OrderEvent{
		OrderID: 5, CustomerEmail: "asha@example.com", OrderStatus: models.OrderStatusDelivered, EventType: "order_status_changed",
	})
	assert.Error(t, err)
}
