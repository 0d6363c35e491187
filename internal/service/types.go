package service

import (
	"github.com/vantagehq/vantage/internal/auth"
	"github.com/vantagehq/vantage/internal/users"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the register request body.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// GoogleRequest carries the ID token produced by Google's sign-in widget.
type GoogleRequest struct {
	IDToken string `json:"idToken"`
}

// Session is the outcome of a successful authentication: the user record
// and the freshly minted, already registered token pair.
type Session struct {
	User users.User
	Pair auth.TokenPair
}
