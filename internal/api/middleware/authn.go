package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vantagehq/vantage/internal/api/presenter"
	"github.com/vantagehq/vantage/internal/audit"
	"github.com/vantagehq/vantage/internal/auth"
	"github.com/vantagehq/vantage/internal/session"
)

// AccessVerifier is the part of the token service authentication needs.
type AccessVerifier interface {
	VerifyAccess(token string) (*auth.Claims, error)
}

// Authenticator guards routes with access-token checks. Require fails
// closed, Optional fails open; both attach the verified identity to the
// request context on success.
type Authenticator struct {
	verifier AccessVerifier
	auditor  audit.Auditor
}

func NewAuthenticator(verifier AccessVerifier, auditor audit.Auditor) *Authenticator {
	return &Authenticator{verifier: verifier, auditor: auditor}
}

// Require rejects the request unless a valid access token is presented
// in the session cookie or an Authorization bearer header.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := accessToken(r)
		if !ok {
			presenter.Error(w, r, "Access token required", http.StatusUnauthorized)
			return
		}

		claims, err := a.verifier.VerifyAccess(token)
		if err != nil {
			a.auditRejected(r, err)
			switch {
			case errors.Is(err, auth.ErrExpired):
				presenter.Error(w, r, "Access token expired", http.StatusUnauthorized)
			case errors.Is(err, auth.ErrMalformed):
				presenter.Error(w, r, "Invalid access token", http.StatusUnauthorized)
			default:
				presenter.Error(w, r, "Authentication failed", http.StatusUnauthorized)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r, claims)))
	})
}

// Optional attaches an identity when a valid token is present and lets
// the request through either way. Invalid tokens only log a warning;
// they never block anonymous access.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := accessToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := a.verifier.VerifyAccess(token)
		if err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("ignoring invalid optional access token")
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r, claims)))
	})
}

func withIdentity(r *http.Request, claims *auth.Claims) context.Context {
	identity := claims.Identity()
	log.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("user_id", identity.UserID).Str("role", string(identity.Role))
	})
	return auth.ContextWithIdentity(r.Context(), identity)
}

func (a *Authenticator) auditRejected(r *http.Request, err error) {
	if a.auditor == nil {
		return
	}
	ev := audit.Event{
		ID:        CorrelationCtx(r.Context()),
		Time:      time.Now(),
		Kind:      audit.KindTokenRejected,
		ClientKey: ClientKey(r),
		Error:     err.Error(),
	}
	if logErr := a.auditor.Log(ev); logErr != nil {
		log.Ctx(r.Context()).Error().Err(logErr).Msg("failed to write audit log entry for rejected token")
	}
}

// accessToken pulls the access token from the session cookie, falling
// back to a bearer Authorization header for non-browser clients.
func accessToken(r *http.Request) (string, bool) {
	if token, ok := session.AccessTokenFromRequest(r); ok {
		return token, true
	}
	header := r.Header.Get("Authorization")
	if token, found := strings.CutPrefix(header, "Bearer "); found && strings.TrimSpace(token) != "" {
		return strings.TrimSpace(token), true
	}
	return "", false
}
