package model

import "time"

type NotificationKind string

const (
	NotificationTopUp    NotificationKind = "top_up"
	NotificationPurchase NotificationKind = "purchase"
	NotificationRefund   NotificationKind = "refund"
)

// TransactionEvent is what the ledger publishes after a commit. Delivery is
// best-effort; the notifier consumes these off the queue and talks to the
// mailer.
type TransactionEvent struct {
	EventID       string           `json:"event_id"`
	Kind          NotificationKind `json:"kind"`
	UserID        int64            `json:"user_id"`
	Email         string           `json:"email,omitempty"`
	Name          string           `json:"name,omitempty"`
	Amount        int64            `json:"amount"`
	NewBalance    int64            `json:"new_balance"`
	TransactionID int64            `json:"transaction_id"`
	OccurredAt    time.Time        `json:"occurred_at"`
}
