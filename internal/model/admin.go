package model

import (
	"strings"
	"time"
)

// Admin represents a back-office operator who signs in to the SajuWooju
// admin console. Passwords are stored as bcrypt hashes. Admins are never
// hard-deleted; deactivation flips IsActive.
type Admin struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"` // bcrypt hash, never expose
	Name         string     `json:"name" db:"name"`
	Role         Role       `json:"role" db:"role"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// AdminProfile is the public view of an admin returned by the login and
// "me" endpoints.
type AdminProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// Profile returns the public fields of the admin.
func (a *Admin) Profile() AdminProfile {
	return AdminProfile{
		ID:    a.ID,
		Email: a.Email,
		Name:  a.Name,
		Role:  a.Role,
	}
}

// NormalizeEmail lower-cases and trims an email address. Emails are unique
// in their normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
