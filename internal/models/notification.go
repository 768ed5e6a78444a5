package models

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotificationTypeRequestCreated     NotificationType = "request_created"
	NotificationTypeRequestAccepted    NotificationType = "request_accepted"
	NotificationTypeRequestRejected    NotificationType = "request_rejected"
	NotificationTypeRequestCancelled   NotificationType = "request_cancelled"
	NotificationTypeSubscriptionUpdate NotificationType = "subscription_update"
	NotificationTypeSystemMessage      NotificationType = "system_message"
)

// Notification is a persisted intent describing an event for one recipient.
// Delivery to external channels is handled by Notifier implementations and
// is best effort; the record here is the source of truth.
type Notification struct {
	ID          string           `json:"id" db:"id"`
	RecipientID string           `json:"recipient_id" db:"recipient_id"`
	Type        NotificationType `json:"type" db:"type"`
	Title       string           `json:"title" db:"title"`
	Message     string           `json:"message" db:"message"`
	Payload     json.RawMessage  `json:"payload,omitempty" db:"payload"`
	IsRead      bool             `json:"is_read" db:"is_read"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	ReadAt      *time.Time       `json:"read_at,omitempty" db:"read_at"`
}
