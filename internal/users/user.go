// Package users holds the user records behind authentication. The backing
// store is an in-memory map seeded from configuration; durable storage is a
// deployment concern behind the Store interface.
package users

import (
	"strings"
	"time"

	"github.com/vantagehq/vantage/internal/rbac"
)

// Auth providers a user record can originate from.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User is a stored account. The password hash never marshals into responses.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	Role         rbac.Role `json:"role"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"created_at"`
}

// NormalizeEmail canonicalizes an email for lookups and uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
