package models

import "time"

type ProjectStatus string

const (
	ProjectStatusOpen       ProjectStatus = "open"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusClosed     ProjectStatus = "closed"
)

func IsValidProjectStatus(status ProjectStatus) bool {
	switch status {
	case ProjectStatusOpen, ProjectStatusInProgress, ProjectStatusCompleted, ProjectStatusClosed:
		return true
	}
	return false
}

// Project is a collaboration target posted by its owner.
type Project struct {
	ID             string        `json:"id" db:"id"`
	OwnerID        string        `json:"owner_id" db:"owner_id"`
	Title          string        `json:"title" db:"title"`
	Description    string        `json:"description" db:"description"`
	RequiredSkills []string      `json:"required_skills" db:"required_skills"`
	BudgetMin      *float64      `json:"budget_min,omitempty" db:"budget_min"`
	BudgetMax      *float64      `json:"budget_max,omitempty" db:"budget_max"`
	Timeline       string        `json:"timeline" db:"timeline"`
	Status         ProjectStatus `json:"status" db:"status"`
	IsRemote       bool          `json:"is_remote" db:"is_remote"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
	ExpiresAt      *time.Time    `json:"expires_at,omitempty" db:"expires_at"`
}

// IsOpen reports whether the project still accepts collaboration requests.
func (p Project) IsOpen() bool {
	return p.Status == ProjectStatusOpen || p.Status == ProjectStatusInProgress
}
