package auth

import "errors"

var (
	// ErrExpired indicates a token whose expiry has passed. The signature
	// may still be valid; the caller must re-authenticate or refresh.
	ErrExpired = errors.New("auth: token expired")

	// ErrMalformed indicates a token that failed structural or signature
	// verification, including tokens carrying an unknown role.
	ErrMalformed = errors.New("auth: token malformed")

	// ErrRevoked indicates a refresh token that is not present in the
	// registry: it was rotated, logged out, swept, or never issued here.
	ErrRevoked = errors.New("auth: refresh token revoked")
)
