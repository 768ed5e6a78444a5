package models

import "time"

type CollaborationStatus string

const (
	CollaborationStatusPending   CollaborationStatus = "pending"
	CollaborationStatusAccepted  CollaborationStatus = "accepted"
	CollaborationStatusRejected  CollaborationStatus = "rejected"
	CollaborationStatusCancelled CollaborationStatus = "cancelled"
)

func IsValidCollaborationStatus(status CollaborationStatus) bool {
	switch status {
	case CollaborationStatusPending, CollaborationStatusAccepted,
		CollaborationStatusRejected, CollaborationStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is valid from status.
func (s CollaborationStatus) IsTerminal() bool {
	return s == CollaborationStatusAccepted || s == CollaborationStatusRejected || s == CollaborationStatusCancelled
}

// CollaborationRequest is a proposal from one user to another, optionally
// scoped to a project. It starts pending and ends in exactly one of the
// terminal states; only the receiver resolves it, only the sender cancels it.
type CollaborationRequest struct {
	ID         string              `json:"id" db:"id"`
	SenderID   string              `json:"sender_id" db:"sender_id"`
	ReceiverID string              `json:"receiver_id" db:"receiver_id"`
	ProjectID  *string             `json:"project_id,omitempty" db:"project_id"`
	Message    string              `json:"message,omitempty" db:"message"`
	Status     CollaborationStatus `json:"status" db:"status"`
	CreatedAt  time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at" db:"updated_at"`
}

// CollaborationStats summarizes a user's request activity in both directions.
type CollaborationStats struct {
	SentTotal       int `json:"sent_total"`
	ReceivedTotal   int `json:"received_total"`
	PendingSent     int `json:"pending_sent"`
	PendingReceived int `json:"pending_received"`
	Accepted        int `json:"accepted"`
}
