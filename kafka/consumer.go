package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"storefront-svc/config"
	"storefront-svc/models"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// EventHandler processes one order event. Returned errors are retried.
type EventHandler func(ctx context.Context, event models.OrderEvent) error

func InitConsumer(cfg config.KafkaConfig, logger *zap.Logger) (sarama.Consumer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Return.Errors = true
	saramaCfg.Consumer.Retry.Backoff = 1 * time.Second

	consumer, err := sarama.NewConsumer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Info("Kafka consumer initialized", zap.Strings("brokers", cfg.Brokers))
	return consumer, nil
}

// Consumer feeds every partition of a topic to an EventHandler until its context ends.
type Consumer struct {
	consumer   sarama.Consumer
	topic      string
	handler    EventHandler
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

func NewConsumer(consumer sarama.Consumer, topic string, handler EventHandler, logger *zap.Logger) *Consumer {
	return &Consumer{
		consumer:   consumer,
		topic:      topic,
		handler:    handler,
		maxRetries: 3,
		backoff:    time.Second,
		logger:     logger,
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	partitions, err := c.consumer.Partitions(c.topic)
	if err != nil {
		return fmt.Errorf("failed to list partitions: %w", err)
	}

	consumers := make([]sarama.PartitionConsumer, 0, len(partitions))
	for _, partition := range partitions {
		pc, err := c.consumer.ConsumePartition(c.topic, partition, sarama.OffsetNewest)
		if err != nil {
			for _, opened := range consumers {
				opened.AsyncClose()
			}
			return fmt.Errorf("failed to consume partition %d: %w", partition, err)
		}
		consumers = append(consumers, pc)
	}

	var wg sync.WaitGroup
	for _, pc := range consumers {
		wg.Add(1)
		go func(pc sarama.PartitionConsumer) {
			defer wg.Done()
			defer pc.Close()
			c.consumePartition(ctx, pc)
		}(pc)
	}

	c.logger.Info("Kafka consumer started", zap.String("topic", c.topic), zap.Int("partitions", len(partitions)))
	wg.Wait()
	return nil
}

func (c *Consumer) consumePartition(ctx context.Context, pc sarama.PartitionConsumer) {
	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-pc.Messages():
			if !ok {
				return
			}
			if err := c.handleMessageWithRetry(message); err != nil {
				c.logger.Error("Failed to handle message after retries",
					zap.Int32("partition", message.Partition),
					zap.Int64("offset", message.Offset),
					zap.Error(err),
				)
			}
		case err, ok := <-pc.Errors():
			if !ok {
				return
			}
			c.logger.Error("Kafka consumer error", zap.Error(err))
		}
	}
}

func (c *Consumer) handleMessageWithRetry(message *sarama.ConsumerMessage) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		err := c.handleMessage(message)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < c.maxRetries {
			backoff := time.Duration(attempt) * c.backoff
			c.logger.Warn("Retrying message handling",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			time.Sleep(backoff)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Consumer) handleMessage(message *sarama.ConsumerMessage) error {
	carrier := make(saramaHeaderCarrier, 0, len(message.Headers))
	for _, h := range message.Headers {
		carrier = append(carrier, *h)
	}
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), &carrier)

	ctx, span := otel.Tracer("storefront-service").Start(ctx, "ProcessOrderEvent")
	defer span.End()

	var event models.OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		// Malformed payloads never succeed; drop them instead of retrying.
		span.RecordError(err)
		c.logger.Error("Dropping malformed event", zap.Int64("offset", message.Offset), zap.Error(err))
		return nil
	}
	span.SetAttributes(attribute.String("event.type", event.EventType), attribute.Int("order.id", event.OrderID))

	if err := c.handler(ctx, event); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
