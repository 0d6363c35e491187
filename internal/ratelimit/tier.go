// Package ratelimit implements tiered fixed-window request limiting. Buckets
// live behind the Store interface so tests use the in-memory map and
// deployments can substitute a shared counter store.
package ratelimit

import "time"

// Window is one fixed counting window: at most Max charged requests per Span.
type Window struct {
	Span time.Duration
	Max  int
}

// Tier is a named limiting policy applied to a route group. Composite tiers
// carry several windows; every window is charged per request and all of them
// must be under their max for the request to pass.
type Tier struct {
	Name    string
	Windows []Window

	// SkipSuccessful refunds the charge when the response status ends up
	// below 400, so only failed attempts accumulate. The charge is taken
	// up front regardless; otherwise concurrent bursts could overshoot.
	SkipSuccessful bool

	// UseIdentity keys the bucket on the authenticated identity when one
	// is present, falling back to the client IP.
	UseIdentity bool

	// Disabled turns the tier into a pass-through. Set via config override
	// only; no tier ships disabled.
	Disabled bool

	// Message is the human-readable text of the 429 body.
	Message string
}

// The tier table. Windows and maxima are fixed by sensitivity; config may
// override window/max per tier but never the counting policy.
var (
	TierLogin = Tier{
		Name:           "login",
		Windows:        []Window{{15 * time.Minute, 5}},
		SkipSuccessful: true,
		Message:        "Too many login attempts, please try again later.",
	}
	TierRegister = Tier{
		Name:    "register",
		Windows: []Window{{time.Hour, 3}},
		Message: "Too many accounts created, please try again later.",
	}
	TierPasswordReset = Tier{
		Name:    "password-reset",
		Windows: []Window{{time.Hour, 3}},
		Message: "Too many password reset requests, please try again later.",
	}
	TierRefresh = Tier{
		Name:           "refresh",
		Windows:        []Window{{15 * time.Minute, 10}},
		SkipSuccessful: true,
		Message:        "Too many token refresh attempts, please try again later.",
	}
	TierAPI = Tier{
		Name:    "api",
		Windows: []Window{{15 * time.Minute, 100}},
		Message: "Too many requests, please slow down.",
	}
	TierAuthenticatedAPI = Tier{
		Name:        "api-auth",
		Windows:     []Window{{15 * time.Minute, 300}},
		UseIdentity: true,
		Message:     "Too many requests, please slow down.",
	}
	TierWrite = Tier{
		Name:    "write",
		Windows: []Window{{15 * time.Minute, 50}},
		Message: "Too many write operations, please slow down.",
	}
	TierPublic = Tier{
		Name:    "public",
		Windows: []Window{{15 * time.Minute, 1000}},
		Message: "Too many requests, please slow down.",
	}
	TierHealth = Tier{
		Name:    "health",
		Windows: []Window{{15 * time.Minute, 10000}},
		Message: "Too many requests, please slow down.",
	}
	TierCritical = Tier{
		Name:    "critical",
		Windows: []Window{{time.Minute, 5}, {time.Hour, 20}},
		Message: "Too many attempts at a sensitive operation, please try again later.",
	}
)

// DefaultTiers lists every built-in tier, ordered roughly by sensitivity.
func DefaultTiers() []Tier {
	return []Tier{
		TierLogin, TierRegister, TierPasswordReset, TierRefresh,
		TierCritical, TierWrite, TierAPI, TierAuthenticatedAPI,
		TierPublic, TierHealth,
	}
}
