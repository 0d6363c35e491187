// Package auth implements the token lifecycle: issuing, verifying, and
// rotating signed access/refresh token pairs, plus the server-side registry
// of currently valid refresh tokens.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vantagehq/vantage/internal/rbac"
)

// Identity is the verified subject carried by every token and threaded
// through request contexts. Immutable once issued; a new identity is only
// produced by re-authentication or refresh.
type Identity struct {
	UserID string    `json:"id"`
	Email  string    `json:"email"`
	Role   rbac.Role `json:"role"`
}

// Claims is the signed payload of both access and refresh tokens.
type Claims struct {
	UserID string    `json:"id"`
	Email  string    `json:"email"`
	Role   rbac.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity extracts the identity triple from the claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email, Role: c.Role}
}

// TokenPair is the result of issuance: a short-lived access token for
// per-request authentication and a long-lived refresh token whose only use
// is minting the next pair.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}
