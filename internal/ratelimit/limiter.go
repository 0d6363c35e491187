package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter evaluates tiers against a Store.
type Limiter struct {
	store Store
	now   func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func NewLimiter(store Store, opts ...Option) *Limiter {
	l := &Limiter{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type charge struct {
	key     string
	resetAt time.Time
}

// Decision is the outcome of one Allow call. For denials the reported limit,
// remaining, and reset describe the exhausted window that holds out longest;
// for passes they describe the tightest window, which is what the client
// should pace itself against.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time

	charges []charge
}

// Allow charges one request against every window of the tier and reports
// whether all of them stayed within bounds. Denied requests keep their
// charges: a flood of 429s must not open the window early.
func (l *Limiter) Allow(ctx context.Context, tier Tier, clientKey string) (Decision, error) {
	if tier.Disabled {
		return Decision{Allowed: true}, nil
	}

	now := l.now().UTC()
	d := Decision{Allowed: true}
	haveTightest := false

	for i, w := range tier.Windows {
		key := bucketKey(tier.Name, i, clientKey)
		count, resetAt, err := l.store.Increment(ctx, key, w.Span, now)
		if err != nil {
			return Decision{}, err
		}
		d.charges = append(d.charges, charge{key: key, resetAt: resetAt})

		if count > w.Max {
			// Exhausted. Report the window that stays closed longest.
			if d.Allowed || resetAt.After(d.ResetAt) {
				d.Limit = w.Max
				d.ResetAt = resetAt
			}
			d.Allowed = false
			continue
		}
		if d.Allowed {
			remaining := w.Max - count
			if !haveTightest || remaining < d.Remaining {
				haveTightest = true
				d.Limit = w.Max
				d.Remaining = remaining
				d.ResetAt = resetAt
			}
		}
	}

	if !d.Allowed {
		d.Remaining = 0
		d.RetryAfter = d.ResetAt.Sub(now)
	}
	return d, nil
}

// Refund withdraws the charges taken by a previous Allow. Used by
// skip-successful tiers once the response status is known to be below 400.
func (l *Limiter) Refund(ctx context.Context, d Decision) error {
	for _, c := range d.charges {
		if err := l.store.Rollback(ctx, c.key, c.resetAt); err != nil {
			return err
		}
	}
	return nil
}

// SweepExpired drops lapsed buckets from the store.
func (l *Limiter) SweepExpired(ctx context.Context) (int, error) {
	return l.store.Sweep(ctx, l.now().UTC())
}

func bucketKey(tier string, window int, clientKey string) string {
	return fmt.Sprintf("%s:%d:%s", tier, window, clientKey)
}
