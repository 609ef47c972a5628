package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"storefront-svc/models"

	"github.com/IBM/sarama"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zaptest"
)

type mockProducer struct {
	sarama.SyncProducer
	sent []*sarama.ProducerMessage
	err  error
}

func (m *mockProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	if m.err != nil {
		return 0, 0, m.err
	}
	m.sent = append(m.sent, msg)
	return 0, int64(len(m.sent)), nil
}

func (m *mockProducer) Close() error {
	return nil
}

func TestPublisher_PublishOrderEvent(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	producer := &mockProducer{}
	p := NewPublisher(producer, "order_events", zaptest.NewLogger(t))

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	err := p.PublishOrderEvent(ctx, models.OrderEvent{
		OrderID:       12,
		CustomerEmail: "asha@example.com",
		TotalAmount:   decimal.RequireFromString("1000"),
		PaymentMethod: models.PaymentMethodCOD,
		PaymentStatus: models.PaymentStatusPending,
		EventType:     "order_created",
	})
	require.NoError(t, err)
	require.Len(t, producer.sent, 1)

	msg := producer.sent[0]
	assert.Equal(t, "order_events", msg.Topic)
	key, _ := msg.Key.Encode()
	assert.Equal(t, "12", string(key))

	value, _ := msg.Value.Encode()
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(value, &decoded))
	assert.Equal(t, "order_created", decoded["event_type"])
	assert.Equal(t, float64(1000), decoded["total_amount"])

	carrier := saramaHeaderCarrier(msg.Headers)
	assert.Contains(t, carrier.Get("traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestPublisher_SendFailure(t *testing.T) {
	producer := &mockProducer{err: errors.New("broker down")}
	p := NewPublisher(producer, "order_events", zaptest.NewLogger(t))

	err := p.PublishOrderEvent(context.Background(), models.OrderEvent{EventType: "checkout_failed", Reason: "amount_mismatch"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
