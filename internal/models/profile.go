package models

import "time"

// Profile holds the public-facing display data for a user, one per account.
type Profile struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	College      string    `json:"college" db:"college"`
	Major        string    `json:"major" db:"major"`
	Year         int       `json:"year" db:"year"`
	Bio          string    `json:"bio" db:"bio"`
	Skills       []string  `json:"skills" db:"skills"`
	Experience   string    `json:"experience" db:"experience"`
	GithubURL    string    `json:"github_url" db:"github_url"`
	LinkedinURL  string    `json:"linkedin_url" db:"linkedin_url"`
	PortfolioURL string    `json:"portfolio_url" db:"portfolio_url"`
	AvatarURL    string    `json:"avatar_url" db:"avatar_url"`
	IsPublic     bool      `json:"is_public" db:"is_public"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
