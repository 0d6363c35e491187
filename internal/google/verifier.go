// Package google verifies Google ID tokens for the sign-in-with-Google flow.
// Cryptographic verification (signature against Google's JWKS, audience,
// expiry) is delegated to go-oidc; the auth service only consumes the
// verified identity payload.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Issuer is Google's OIDC issuer URL.
const Issuer = "https://accounts.google.com"

// Payload is the verified subset of an ID token the auth service consumes.
type Payload struct {
	// Subject is Google's stable account identifier.
	Subject string
	Email   string
	// EmailVerified mirrors the provider's claim; accounts with an
	// unverified email must not be signed in.
	EmailVerified bool
	FullName      string
}

// Verifier validates a raw ID token and extracts its payload.
type Verifier interface {
	VerifyIDToken(ctx context.Context, rawToken string) (Payload, error)
}

// OIDCVerifier verifies against Google's published keys.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

var _ Verifier = (*OIDCVerifier)(nil)

// NewOIDCVerifier performs provider discovery against the Google issuer and
// pins the expected audience to clientID.
func NewOIDCVerifier(ctx context.Context, clientID string) (*OIDCVerifier, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, errors.New("google: client id is required")
	}
	provider, err := oidc.NewProvider(ctx, Issuer)
	if err != nil {
		return nil, fmt.Errorf("google: provider discovery: %w", err)
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (v *OIDCVerifier) VerifyIDToken(ctx context.Context, rawToken string) (Payload, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return Payload{}, fmt.Errorf("google: id token verification: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return Payload{}, fmt.Errorf("google: extracting claims: %w", err)
	}

	return Payload{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		FullName:      claims.Name,
	}, nil
}
