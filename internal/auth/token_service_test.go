package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vantagehq/vantage/internal/rbac"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestService(t *testing.T) (*TokenService, *MemoryRefreshStore, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	store := NewMemoryRefreshStore()
	svc, err := NewTokenService("test-access-secret", "test-refresh-secret",
		rbac.NewRegistry(), store, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc, store, clock
}

func testIdentity() Identity {
	return Identity{UserID: "u-100", Email: "ada@example.com", Role: rbac.RoleUser}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	svc, _, clock := newTestService(t)

	pair, err := svc.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("Issue returned empty tokens")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}

	wantAccessExp := clock.Now().Add(DefaultAccessTTL)
	if !pair.AccessExpiresAt.Equal(wantAccessExp) {
		t.Errorf("AccessExpiresAt = %v, want %v", pair.AccessExpiresAt, wantAccessExp)
	}
	wantRefreshExp := clock.Now().Add(DefaultRefreshTTL)
	if !pair.RefreshExpiresAt.Equal(wantRefreshExp) {
		t.Errorf("RefreshExpiresAt = %v, want %v", pair.RefreshExpiresAt, wantRefreshExp)
	}

	for name, verify := range map[string]func(string) (*Claims, error){
		"access":  svc.VerifyAccess,
		"refresh": svc.VerifyRefresh,
	} {
		token := pair.AccessToken
		if name == "refresh" {
			token = pair.RefreshToken
		}
		claims, err := verify(token)
		if err != nil {
			t.Fatalf("verify %s: %v", name, err)
		}
		if got, want := claims.Identity(), testIdentity(); got != want {
			t.Errorf("%s claims identity = %+v, want %+v", name, got, want)
		}
	}
}

func TestVerifyRejectsCrossTokenUse(t *testing.T) {
	svc, _, _ := newTestService(t)
	pair, err := svc.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := svc.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrMalformed) {
		t.Errorf("VerifyAccess(refresh token) = %v, want ErrMalformed", err)
	}
	if _, err := svc.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrMalformed) {
		t.Errorf("VerifyRefresh(access token) = %v, want ErrMalformed", err)
	}
}

func TestVerifyExpiry(t *testing.T) {
	svc, _, clock := newTestService(t)
	pair, err := svc.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock.Advance(16 * time.Minute)
	if _, err := svc.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrExpired) {
		t.Errorf("VerifyAccess after 16m = %v, want ErrExpired", err)
	}
	if _, err := svc.VerifyRefresh(pair.RefreshToken); err != nil {
		t.Errorf("VerifyRefresh after 16m = %v, want nil", err)
	}

	clock.Advance(7 * 24 * time.Hour)
	if _, err := svc.VerifyRefresh(pair.RefreshToken); !errors.Is(err, ErrExpired) {
		t.Errorf("VerifyRefresh after 7d = %v, want ErrExpired", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	svc, _, clock := newTestService(t)
	pair, err := svc.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	otherStore := NewMemoryRefreshStore()
	other, err := NewTokenService("another-access-secret", "another-refresh-secret",
		rbac.NewRegistry(), otherStore, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	foreign, err := other.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"garbage", "abc.def.ghi"},
		{"truncated", pair.AccessToken[:len(pair.AccessToken)-12]},
		{"tampered", pair.AccessToken + "x"},
		{"wrong secret", foreign.AccessToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.VerifyAccess(tt.token); !errors.Is(err, ErrMalformed) {
				t.Errorf("VerifyAccess = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	svc, _, clock := newTestService(t)

	// Sign a structurally valid token with the right secret but a role
	// outside the registry.
	now := clock.Now()
	claims := Claims{
		UserID: "u-100",
		Email:  "ada@example.com",
		Role:   "superuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			Subject:   "u-100",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			ID:        "test-jti",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-access-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = svc.VerifyAccess(signed)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("VerifyAccess = %v, want ErrMalformed", err)
	}
	if err == nil || !strings.Contains(err.Error(), "superuser") {
		t.Errorf("error should name the offending role, got %v", err)
	}
}

func TestIssueRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Issue(Identity{UserID: "u-1", Email: "x@example.com", Role: "superuser"}); err == nil {
		t.Fatal("Issue with unknown role should fail")
	}
	if _, err := svc.Issue(Identity{Email: "x@example.com", Role: rbac.RoleUser}); err == nil {
		t.Fatal("Issue without user id should fail")
	}
}

func TestRotate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := svc.Register(ctx, pair); err != nil {
		t.Fatalf("Register: %v", err)
	}

	next, err := svc.Rotate(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("rotation must mint a new refresh token")
	}

	// The rotated-out token is gone for good.
	if _, err := svc.Rotate(ctx, pair.RefreshToken); !errors.Is(err, ErrRevoked) {
		t.Errorf("second Rotate with old token = %v, want ErrRevoked", err)
	}

	// The replacement was registered atomically and rotates fine.
	if _, err := svc.Rotate(ctx, next.RefreshToken); err != nil {
		t.Errorf("Rotate with replacement token = %v, want nil", err)
	}
}

func TestRotateUnregisteredToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	// Signature-valid but never registered.
	pair, err := svc.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.Rotate(context.Background(), pair.RefreshToken); !errors.Is(err, ErrRevoked) {
		t.Errorf("Rotate = %v, want ErrRevoked", err)
	}
}

func TestRotateExpiredBeforeMembership(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := svc.Register(ctx, pair); err != nil {
		t.Fatalf("Register: %v", err)
	}

	clock.Advance(DefaultRefreshTTL + time.Minute)
	if _, err := svc.Rotate(ctx, pair.RefreshToken); !errors.Is(err, ErrExpired) {
		t.Errorf("Rotate of expired token = %v, want ErrExpired", err)
	}
}

func TestConcurrentRotationSingleWinner(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := svc.Register(ctx, pair); err != nil {
		t.Fatalf("Register: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Rotate(ctx, pair.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, revoked int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrRevoked):
			revoked++
		default:
			t.Errorf("unexpected rotation error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("concurrent rotations: %d succeeded, want exactly 1", wins)
	}
	if revoked != workers-1 {
		t.Errorf("concurrent rotations: %d revoked, want %d", revoked, workers-1)
	}
}

func TestUnregisterAndSessions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := svc.Register(ctx, pair); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if n, _ := svc.ActiveSessions(ctx); n != 1 {
		t.Errorf("ActiveSessions = %d, want 1", n)
	}
	if err := svc.Unregister(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if err := svc.Unregister(ctx, pair.RefreshToken); err != nil {
		t.Errorf("repeated Unregister should be a no-op, got %v", err)
	}
	if err := svc.Unregister(ctx, ""); err != nil {
		t.Errorf("Unregister with empty token should be a no-op, got %v", err)
	}
	if n, _ := svc.ActiveSessions(ctx); n != 0 {
		t.Errorf("ActiveSessions = %d, want 0", n)
	}
}

func TestSweepExpired(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	first, err := svc.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := svc.Register(ctx, first); err != nil {
		t.Fatalf("Register: %v", err)
	}

	clock.Advance(6 * 24 * time.Hour)
	second, err := svc.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := svc.Register(ctx, second); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// First token expires after 7 days total; advance past it but not past
	// the second token's window.
	clock.Advance(2 * 24 * time.Hour)
	removed, err := svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if removed != 1 {
		t.Errorf("SweepExpired removed %d, want 1", removed)
	}
	if n, _ := svc.ActiveSessions(ctx); n != 1 {
		t.Errorf("ActiveSessions after sweep = %d, want 1", n)
	}
}

func TestNewTokenServiceValidation(t *testing.T) {
	reg := rbac.NewRegistry()
	store := NewMemoryRefreshStore()

	if _, err := NewTokenService("", "refresh", reg, store); err == nil {
		t.Error("empty access secret should fail")
	}
	if _, err := NewTokenService("same", "same", reg, store); err == nil {
		t.Error("identical secrets should fail")
	}
	if _, err := NewTokenService("a", "b", nil, store); err == nil {
		t.Error("nil registry should fail")
	}
	if _, err := NewTokenService("a", "b", reg, nil); err == nil {
		t.Error("nil store should fail")
	}
	if _, err := NewTokenService("a", "b", reg, store, WithAccessTTL(-time.Minute)); err == nil {
		t.Error("negative ttl should fail")
	}
}
