package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vantagehq/vantage/internal/api/presenter"
	"github.com/vantagehq/vantage/internal/audit"
	"github.com/vantagehq/vantage/internal/auth"
	"github.com/vantagehq/vantage/internal/metrics"
	"github.com/vantagehq/vantage/internal/ratelimit"
)

// rateLimitResponse is the 429 body.
type rateLimitResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
	Limit      int    `json:"limit"`
	Remaining  int    `json:"remaining"`
	ResetTime  string `json:"resetTime"`
}

// RateLimiter applies tiered fixed-window limits per client key.
type RateLimiter struct {
	limiter *ratelimit.Limiter
	auditor audit.Auditor
}

func NewRateLimiter(limiter *ratelimit.Limiter, auditor audit.Auditor) *RateLimiter {
	return &RateLimiter{limiter: limiter, auditor: auditor}
}

// Limit guards a route with the given tier. Identity-keyed tiers must be
// mounted after authentication so the identity key is available.
func (rl *RateLimiter) Limit(tier ratelimit.Tier) Gate {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r, tier)

			decision, err := rl.limiter.Allow(r.Context(), tier, key)
			if err != nil {
				presenter.Error(w, r, "Rate limit check failed", http.StatusInternalServerError)
				return
			}

			if !decision.Allowed {
				rl.deny(w, r, tier, key, decision)
				return
			}

			if !tier.SkipSuccessful {
				next.ServeHTTP(w, r)
				return
			}

			// Skip-successful tiers refund the charge when the handler
			// answers below 400, so only failures consume the budget.
			ww := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)
			if ww.statusCode < http.StatusBadRequest {
				if err := rl.limiter.Refund(r.Context(), decision); err != nil {
					log.Ctx(r.Context()).Warn().Err(err).Msg("failed to refund rate limit charge")
				}
			}
		})
	}
}

func (rl *RateLimiter) deny(w http.ResponseWriter, r *http.Request, tier ratelimit.Tier, key string, decision ratelimit.Decision) {
	metrics.RateLimitDenied(tier.Name)

	if rl.auditor != nil {
		ev := audit.Event{
			ID:        CorrelationCtx(r.Context()),
			Time:      time.Now(),
			Kind:      audit.KindRateLimited,
			ClientKey: key,
			Metadata:  map[string]any{"tier": tier.Name},
		}
		if err := rl.auditor.Log(ev); err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("failed to write audit log entry for rate limit")
		}
	}

	retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	message := tier.Message
	if message == "" {
		message = "Too many requests, please try again later."
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	presenter.JSON(w, r, rateLimitResponse{
		Error:      http.StatusText(http.StatusTooManyRequests),
		Message:    message,
		RetryAfter: retryAfter,
		Limit:      decision.Limit,
		Remaining:  decision.Remaining,
		ResetTime:  decision.ResetAt.UTC().Format(time.RFC3339),
	}, http.StatusTooManyRequests)
}

// rateLimitKey prefers the authenticated identity for identity-keyed
// tiers and falls back to the client address.
func rateLimitKey(r *http.Request, tier ratelimit.Tier) string {
	if tier.UseIdentity {
		if identity, ok := auth.IdentityFromContext(r.Context()); ok {
			return "user:" + identity.UserID
		}
	}
	return "ip:" + ClientKey(r)
}

// ClientKey derives the anonymous rate-limit key: the first entry of
// X-Forwarded-For when present (proxy deployment), else the bare remote
// address.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
