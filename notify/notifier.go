package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront-svc/middleware"
	"storefront-svc/models"

	"go.uber.org/zap"
)

// Notifier sends emails in the background. Failures are retried and then logged; they
// never reach the caller.
type Notifier struct {
	mailer     Mailer
	adminEmail string
	attempts   int
	backoff    time.Duration
	timeout    time.Duration
	logger     *zap.Logger
	wg         sync.WaitGroup
}

func NewNotifier(mailer Mailer, adminEmail string, logger *zap.Logger) *Notifier {
	return &Notifier{
		mailer:     mailer,
		adminEmail: adminEmail,
		attempts:   3,
		backoff:    time.Second,
		timeout:    15 * time.Second,
		logger:     logger,
	}
}

func (n *Notifier) OrderPlaced(order models.Order) {
	emails, err := orderPlacedEmails(order, n.adminEmail)
	if err != nil {
		n.logger.Error("Failed to render order email", zap.Int("order_id", order.ID), zap.Error(err))
		return
	}
	n.dispatch("order_created", emails)
}

func (n *Notifier) SupportRequest(req models.SupportRequest) {
	emails, err := supportEmails(req, n.adminEmail)
	if err != nil {
		n.logger.Error("Failed to render support email", zap.Error(err))
		return
	}
	n.dispatch("support_request", emails)
}

// HandleOrderEvent mails the customer about fulfilment updates. It sends synchronously so
// the event consumer can retry a failed delivery.
func (n *Notifier) HandleOrderEvent(ctx context.Context, event models.OrderEvent) error {
	if event.EventType != "order_status_changed" {
		return nil
	}
	email, ok, err := statusChangedEmail(event)
	if err != nil || !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.mailer.Send(ctx, email); err != nil {
		return fmt.Errorf("failed to send status email for order %d: %w", event.OrderID, err)
	}
	middleware.RecordNotificationSent("order_status_changed", "sent")
	n.logger.Info("Order status notification sent",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.Int("order_id", event.OrderID),
		zap.String("status", string(event.OrderStatus)),
	)
	return nil
}

// Wait blocks until queued emails are sent or ctx is done.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) dispatch(kind string, emails []Email) {
	for _, email := range emails {
		n.wg.Add(1)
		go func(email Email) {
			defer n.wg.Done()
			if err := n.sendWithRetry(email); err != nil {
				middleware.RecordNotificationSent(kind, "failed")
				n.logger.Error("Failed to send email after retries",
					zap.String("type", kind),
					zap.Strings("to", email.To),
					zap.Error(err),
				)
				return
			}
			middleware.RecordNotificationSent(kind, "sent")
		}(email)
	}
}

func (n *Notifier) sendWithRetry(email Email) error {
	var lastErr error
	for attempt := 1; attempt <= n.attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		err := n.mailer.Send(ctx, email)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < n.attempts {
			backoff := time.Duration(attempt) * n.backoff
			n.logger.Warn("Retrying email",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			time.Sleep(backoff)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", n.attempts, lastErr)
}
