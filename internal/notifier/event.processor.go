package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gateway "github.com/sekolahpay/canteen-ledger/internal/gateways"
	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/sekolahpay/canteen-ledger/internal/queue"
	"github.com/sekolahpay/canteen-ledger/pkg/logger"
	"github.com/sekolahpay/canteen-ledger/pkg/prom"
)

// Mailer is the downstream the processor hands composed emails to.
type Mailer interface {
	SendEmail(ctx context.Context, req *gateway.SendRequest) (*gateway.SendResponse, error)
}

type EmailNotificationProcessor struct {
	mailer      Mailer
	idempotency *IdempotencyService
}

func NewEmailNotificationProcessor(mailer Mailer, idempotency *IdempotencyService) *EmailNotificationProcessor {
	return &EmailNotificationProcessor{
		mailer:      mailer,
		idempotency: idempotency,
	}
}

func (p *EmailNotificationProcessor) GetType() string {
	return "transaction_event"
}

// Process delivers one transaction event as an email, with idempotency
// guarantees keyed on event_id.
func (p *EmailNotificationProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	// Step 1: Parse event
	var event model.TransactionEvent
	err := json.Unmarshal(queueMessage.Data, &event)
	if err != nil {
		logger.Error("Failed to unmarshal transaction event", "error", err)
		prom.ObserveNotification("unknown", "invalid")
		return err // Return error to trigger DLQ move
	}

	kind := string(event.Kind)

	// Events for users without an email on file are acked and dropped;
	// retrying will never grow them an address.
	if event.Email == "" {
		logger.Info("Event has no recipient email, skipping", "event_id", event.EventID, "user_id", event.UserID)
		prom.ObserveNotification(kind, "skipped")
		return nil
	}

	// Step 2: Acquire processing lock and check idempotency
	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, event.EventID)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			// Event already processed successfully - ACK to remove from queue
			logger.Info("Event already processed, skipping", "event_id", event.EventID)
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			// Max retries exceeded - record and ACK
			logger.Error("Max retries exceeded", "event_id", event.EventID)
			prom.ObserveNotification(kind, "dropped")
			return nil // ACK to move to DLQ
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			// Another consumer is processing - NACK to retry later
			logger.Info("Lock held by another consumer, will retry", "event_id", event.EventID)
			return errors.New("lock held by another consumer")
		}
		// Unexpected error - NACK to retry
		logger.Error("Failed to acquire lock", "event_id", event.EventID, "error", err)
		return err
	}

	// Ensure lock is released on exit (if not already marked success/failure)
	defer func() {
		if procCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, procCtx)
		}
	}()

	logger.Info("Processing transaction event",
		"event_id", event.EventID,
		"kind", kind,
		"user_id", event.UserID,
		"retry_count", procCtx.RetryCount,
		"is_retry", procCtx.IsRetry)

	// Step 3: Compose and send email
	req := &gateway.SendRequest{
		EventID: event.EventID,
		To:      event.Email,
		Subject: subjectFor(event),
		Body:    bodyFor(event),
		Kind:    kind,
	}

	res, err := p.mailer.SendEmail(ctx, req)
	if err != nil {
		// Step 4a: Sending failed - mark failure and retry
		logger.Error("Failed to send email", "event_id", event.EventID, "error", err)
		prom.ObserveNotification(kind, "failed")
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("Failed to mark failure", "event_id", event.EventID, "error", markErr)
		}
		return err // NACK to retry from queue
	}

	// Step 4b: Sending succeeded - mark success
	logger.Info("Email sent",
		"event_id", event.EventID,
		"to", event.Email,
		"status", res.Status,
		"retry_count", procCtx.RetryCount)

	if res.Status == gateway.StatusSent {
		prom.ObserveNotification(kind, "sent")

		// Mark as successfully processed (sets 24-hour processed marker)
		if markErr := p.idempotency.MarkSuccess(ctx, procCtx); markErr != nil {
			logger.Error("Failed to mark success", "event_id", event.EventID, "error", markErr)
			// Continue - email was sent successfully
		}

		return nil // ACK event
	}

	// Relay returned non-sent status - treat as failure
	logger.Warn("Email not sent", "event_id", event.EventID, "status", res.Status)
	prom.ObserveNotification(kind, "failed")
	if markErr := p.idempotency.MarkFailure(ctx, procCtx, errors.New("relay returned non-sent status")); markErr != nil {
		logger.Error("Failed to mark failure", "event_id", event.EventID, "error", markErr)
	}
	return errors.New("failed to send email")
}

func subjectFor(event model.TransactionEvent) string {
	switch event.Kind {
	case model.NotificationTopUp:
		return "Top-up received"
	case model.NotificationPurchase:
		return "Purchase confirmation"
	case model.NotificationRefund:
		return "Refund processed"
	default:
		return "Account activity"
	}
}

func bodyFor(event model.TransactionEvent) string {
	name := event.Name
	if name == "" {
		name = "there"
	}

	switch event.Kind {
	case model.NotificationTopUp:
		return fmt.Sprintf("Hi %s, a top-up of %d was credited. Your balance is now %d.", name, event.Amount, event.NewBalance)
	case model.NotificationPurchase:
		return fmt.Sprintf("Hi %s, a purchase of %d was charged. Your balance is now %d.", name, event.Amount, event.NewBalance)
	case model.NotificationRefund:
		return fmt.Sprintf("Hi %s, a refund of %d was credited. Your balance is now %d.", name, event.Amount, event.NewBalance)
	default:
		return fmt.Sprintf("Hi %s, there was activity on your account. Your balance is now %d.", name, event.NewBalance)
	}
}
