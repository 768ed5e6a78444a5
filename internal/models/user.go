package models

import "time"

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleAdmin   UserRole = "admin"
)

// roleRank orders roles so that admin implies every student permission.
var roleRank = map[UserRole]int{
	RoleStudent: 1,
	RoleAdmin:   2,
}

func IsValidRole(role UserRole) bool {
	_, ok := roleRank[role]
	return ok
}

// HasAtLeast reports whether role grants the permissions of required.
func HasAtLeast(role, required UserRole) bool {
	return roleRank[role] >= roleRank[required]
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
