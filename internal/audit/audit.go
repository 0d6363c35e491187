// Package audit records security-relevant events: authentication outcomes,
// token rotations and replays, logouts, and rate-limit denials. Auditors are
// selected by configuration; the in-memory auditor additionally backs the
// audit-logs API resource.
package audit

import "time"

// Event kinds. Grep-friendly dotted names, one per observable security event.
const (
	KindLoginSuccess  = "login.success"
	KindLoginFailure  = "login.failure"
	KindRegister      = "register"
	KindGoogleSuccess = "google.success"
	KindGoogleFailure = "google.failure"
	KindTokenRotated  = "token.rotated"
	KindTokenReplay   = "token.replay"
	KindLogout        = "logout"
	KindRateLimited   = "ratelimit.exceeded"
	KindTokenRejected = "token.rejected"
	KindPasswordReset = "password.reset.requested"
)

// Event is one audit record.
type Event struct {
	// ID is the request's correlation ID (X-Correlation-ID).
	ID string `json:"id"`

	// Time is when the event happened.
	Time time.Time `json:"time"`

	// Kind is one of the Kind* constants.
	Kind string `json:"kind"`

	// Actor is the user id the event concerns, when known.
	Actor string `json:"actor,omitempty"`

	// Email is the (normalized) email involved, when known. For failed
	// logins this records the attempted address.
	Email string `json:"email,omitempty"`

	// ClientKey is the rate-limiter view of the caller (ip or identity).
	ClientKey string `json:"client_key,omitempty"`

	// Error carries the server-side failure detail. Never sent to clients.
	Error string `json:"error,omitempty"`

	// Metadata holds event-specific extras (tier names, token ids, ...).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Auditor records events. Implementations must be safe for concurrent use.
type Auditor interface {
	Log(event Event) error
	Close() error
}
