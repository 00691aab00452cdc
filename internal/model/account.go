// Package model defines domain entities for the application.
package model

import (
	"slices"
	"strings"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is one of the known roles.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// RoleSet is a set of roles allowed to perform an operation.
type RoleSet []Role

// NewRoleSet builds a RoleSet from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	return RoleSet(roles)
}

// Contains reports whether the role is a member of the set.
func (s RoleSet) Contains(r Role) bool {
	return slices.Contains(s, r)
}

// DefaultAvatarURL is assigned to accounts that never uploaded an avatar.
const DefaultAvatarURL = "https://res.cloudinary.com/demo/image/upload/v1/avatar-default.png"

// Account is a registered user of the service.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize
	Role         Role      `json:"role"`
	Avatar       string    `json:"avatar"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin returns true if the account has the admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Principal returns the request identity for this account.
func (a *Account) Principal() *Principal {
	return &Principal{ID: a.ID, Role: a.Role, Name: a.Name}
}

// NormalizeEmail lower-cases and trims an email address.
// Emails are unique case-insensitively, so every lookup goes through here.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
