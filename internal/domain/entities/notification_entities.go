package entities

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind identifies what produced a notification job
type NotificationKind string

const (
	NotificationKindTransaction   NotificationKind = "transaction"
	NotificationKindBalanceReport NotificationKind = "balance_report"
	NotificationKindTest          NotificationKind = "test"
)

// NotificationJob is a formatted message bound for the messaging channel.
// Jobs are opaque to the dispatcher and processed in FIFO order.
type NotificationJob struct {
	ID          uuid.UUID        `json:"id"`
	Kind        NotificationKind `json:"kind"`
	Destination string           `json:"destination"`
	Text        string           `json:"text"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewNotificationJob creates a job with a fresh ID
func NewNotificationJob(kind NotificationKind, destination, text string) NotificationJob {
	return NotificationJob{
		ID:          uuid.New(),
		Kind:        kind,
		Destination: destination,
		Text:        text,
		CreatedAt:   time.Now(),
	}
}
