package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/vantagehq/vantage/internal/audit"
	"github.com/vantagehq/vantage/internal/auth"
	"github.com/vantagehq/vantage/internal/google"
	"github.com/vantagehq/vantage/internal/rbac"
	"github.com/vantagehq/vantage/internal/users"
)

type fakeVerifier struct {
	payload google.Payload
	err     error
}

func (f *fakeVerifier) VerifyIDToken(_ context.Context, _ string) (google.Payload, error) {
	return f.payload, f.err
}

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

type testEnv struct {
	svc     *AuthService
	store   *users.MemoryStore
	auditor *audit.InMemoryAuditor
	clock   *fakeClock
}

func newTestEnv(t *testing.T, verifier google.Verifier) *testEnv {
	t.Helper()
	clock := newFakeClock()
	tokens, err := auth.NewTokenService(
		"test-access-secret", "test-refresh-secret",
		rbac.NewRegistry(), auth.NewMemoryRefreshStore(),
		auth.WithClock(clock.Now),
	)
	if err != nil {
		t.Fatalf("NewTokenService() failed: %v", err)
	}
	store := users.NewMemoryStore()
	auditor := audit.NewInMemoryAuditor()
	return &testEnv{
		svc:     NewAuthService(store, tokens, verifier, auditor),
		store:   store,
		auditor: auditor,
		clock:   clock,
	}
}

func (e *testEnv) seedUser(t *testing.T, email, password string, role rbac.Role) users.User {
	t.Helper()
	hash, err := users.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() failed: %v", err)
	}
	user := users.User{
		ID:           "u-" + email,
		Email:        email,
		FullName:     "Seeded User",
		PasswordHash: hash,
		Role:         role,
		Provider:     users.ProviderLocal,
		CreatedAt:    e.clock.Now(),
	}
	if err := e.store.Create(context.Background(), user); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return user
}

func (e *testEnv) lastAuditKind(t *testing.T) string {
	t.Helper()
	events, err := e.auditor.GetRecent(1)
	if err != nil {
		t.Fatalf("GetRecent() failed: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("no audit events recorded")
	}
	return events[0].Kind
}

func wantHTTPStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("want HTTP %d error, got nil", status)
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error %v is not an HTTPError", err)
	}
	if httpErr.StatusCode != status {
		t.Fatalf("status = %d, want %d (err: %v)", httpErr.StatusCode, status, err)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "ada@example.com", "correct horse battery", rbac.RoleUser)

	session, err := env.svc.Login(context.Background(), Credentials{
		Email:    "ADA@example.com ",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	if session.User.ID != user.ID {
		t.Errorf("session user = %q, want %q", session.User.ID, user.ID)
	}

	claims, err := env.svc.Tokens().VerifyAccess(session.Pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess() on fresh pair failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email || claims.Role != user.Role {
		t.Errorf("claims = %q/%q/%q, want user record values", claims.UserID, claims.Email, claims.Role)
	}

	if n, _ := env.svc.Tokens().ActiveSessions(context.Background()); n != 1 {
		t.Errorf("ActiveSessions() = %d, want 1", n)
	}
	if kind := env.lastAuditKind(t); kind != audit.KindLoginSuccess {
		t.Errorf("audit kind = %q, want %q", kind, audit.KindLoginSuccess)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "ada@example.com", "correct horse battery", rbac.RoleUser)

	tests := []struct {
		name  string
		creds Credentials
	}{
		{"unknown email", Credentials{Email: "nobody@example.com", Password: "whatever"}},
		{"wrong password", Credentials{Email: "ada@example.com", Password: "incorrect"}},
		{"empty password", Credentials{Email: "ada@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Login(context.Background(), tt.creds)
			wantHTTPStatus(t, err, http.StatusUnauthorized)
			if err.Error() != "invalid credentials" {
				t.Errorf("error message = %q, want %q", err.Error(), "invalid credentials")
			}
			if kind := env.lastAuditKind(t); kind != audit.KindLoginFailure {
				t.Errorf("audit kind = %q, want %q", kind, audit.KindLoginFailure)
			}
		})
	}

	if n, _ := env.svc.Tokens().ActiveSessions(context.Background()); n != 0 {
		t.Errorf("failed logins registered %d sessions", n)
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t, nil)

	session, err := env.svc.Register(context.Background(), RegisterRequest{
		Email:    "Grace@Example.com",
		Password: "long enough password",
		FullName: "  Grace Hopper  ",
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if session.User.Email != "grace@example.com" {
		t.Errorf("email = %q, want normalized lowercase", session.User.Email)
	}
	if session.User.FullName != "Grace Hopper" {
		t.Errorf("full name = %q, want trimmed", session.User.FullName)
	}
	if session.User.Role != rbac.RoleUser {
		t.Errorf("role = %q, want default %q", session.User.Role, rbac.RoleUser)
	}
	if session.User.Provider != users.ProviderLocal {
		t.Errorf("provider = %q, want %q", session.User.Provider, users.ProviderLocal)
	}

	stored, err := env.store.FindByEmail(context.Background(), "grace@example.com")
	if err != nil {
		t.Fatalf("registered user not in store: %v", err)
	}
	if err := users.VerifyPassword(stored.PasswordHash, "long enough password"); err != nil {
		t.Errorf("stored hash does not verify: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "taken@example.com", "some password", rbac.RoleUser)

	tests := []struct {
		name       string
		req        RegisterRequest
		wantStatus int
	}{
		{"duplicate email", RegisterRequest{Email: "Taken@example.com", Password: "long enough password"}, http.StatusConflict},
		{"missing email", RegisterRequest{Password: "long enough password"}, http.StatusBadRequest},
		{"not an email", RegisterRequest{Email: "not-an-email", Password: "long enough password"}, http.StatusBadRequest},
		{"short password", RegisterRequest{Email: "new@example.com", Password: "short"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Register(context.Background(), tt.req)
			wantHTTPStatus(t, err, tt.wantStatus)
		})
	}
}

func TestGoogleLogin(t *testing.T) {
	verified := google.Payload{
		Subject:       "google-sub-1",
		Email:         "New.Person@example.com",
		EmailVerified: true,
		FullName:      "New Person",
	}

	t.Run("creates a user on first sign-in", func(t *testing.T) {
		env := newTestEnv(t, &fakeVerifier{payload: verified})
		session, err := env.svc.GoogleLogin(context.Background(), GoogleRequest{IDToken: "raw-id-token"})
		if err != nil {
			t.Fatalf("GoogleLogin() failed: %v", err)
		}
		if session.User.Email != "new.person@example.com" {
			t.Errorf("email = %q, want normalized", session.User.Email)
		}
		if session.User.Provider != users.ProviderGoogle {
			t.Errorf("provider = %q, want %q", session.User.Provider, users.ProviderGoogle)
		}
		if session.User.Role != rbac.RoleUser {
			t.Errorf("role = %q, want %q", session.User.Role, rbac.RoleUser)
		}
		if kind := env.lastAuditKind(t); kind != audit.KindGoogleSuccess {
			t.Errorf("audit kind = %q, want %q", kind, audit.KindGoogleSuccess)
		}
	})

	t.Run("links an existing local account", func(t *testing.T) {
		env := newTestEnv(t, &fakeVerifier{payload: google.Payload{
			Subject: "google-sub-2", Email: "ada@example.com", EmailVerified: true, FullName: "Ada L.",
		}})
		seeded := env.seedUser(t, "ada@example.com", "local password", rbac.RoleAdmin)

		session, err := env.svc.GoogleLogin(context.Background(), GoogleRequest{IDToken: "raw-id-token"})
		if err != nil {
			t.Fatalf("GoogleLogin() failed: %v", err)
		}
		if session.User.ID != seeded.ID {
			t.Errorf("linked user id = %q, want existing %q", session.User.ID, seeded.ID)
		}
		if session.User.Role != rbac.RoleAdmin {
			t.Errorf("linking must not change the role, got %q", session.User.Role)
		}
		stored, _ := env.store.FindByID(context.Background(), seeded.ID)
		if stored.Provider != users.ProviderGoogle {
			t.Errorf("stored provider = %q, want %q", stored.Provider, users.ProviderGoogle)
		}
	})

	t.Run("rejects unverified email with 400", func(t *testing.T) {
		payload := verified
		payload.EmailVerified = false
		env := newTestEnv(t, &fakeVerifier{payload: payload})
		_, err := env.svc.GoogleLogin(context.Background(), GoogleRequest{IDToken: "raw-id-token"})
		wantHTTPStatus(t, err, http.StatusBadRequest)
	})

	t.Run("rejects failed verification with 401", func(t *testing.T) {
		env := newTestEnv(t, &fakeVerifier{err: fmt.Errorf("token used too late")})
		_, err := env.svc.GoogleLogin(context.Background(), GoogleRequest{IDToken: "raw-id-token"})
		wantHTTPStatus(t, err, http.StatusUnauthorized)
		if kind := env.lastAuditKind(t); kind != audit.KindGoogleFailure {
			t.Errorf("audit kind = %q, want %q", kind, audit.KindGoogleFailure)
		}
	})

	t.Run("responds 503 when not configured", func(t *testing.T) {
		env := newTestEnv(t, nil)
		_, err := env.svc.GoogleLogin(context.Background(), GoogleRequest{IDToken: "raw-id-token"})
		wantHTTPStatus(t, err, http.StatusServiceUnavailable)
	})
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "ada@example.com", "correct horse battery", rbac.RoleUser)

	session, err := env.svc.Login(context.Background(), Credentials{
		Email: "ada@example.com", Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}

	env.clock.Advance(time.Minute)
	pair, err := env.svc.Refresh(context.Background(), session.Pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if pair.RefreshToken == session.Pair.RefreshToken {
		t.Error("rotation returned the old refresh token")
	}
	if kind := env.lastAuditKind(t); kind != audit.KindTokenRotated {
		t.Errorf("audit kind = %q, want %q", kind, audit.KindTokenRotated)
	}

	// The old token must be dead now; a replay is audited.
	_, err = env.svc.Refresh(context.Background(), session.Pair.RefreshToken)
	wantHTTPStatus(t, err, http.StatusUnauthorized)
	if err.Error() != "refresh token revoked" {
		t.Errorf("replay error = %q, want %q", err.Error(), "refresh token revoked")
	}
	if kind := env.lastAuditKind(t); kind != audit.KindTokenReplay {
		t.Errorf("audit kind = %q, want %q", kind, audit.KindTokenReplay)
	}

	// The replacement still works.
	if _, err := env.svc.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("Refresh() with replacement failed: %v", err)
	}
}

func TestRefreshRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "ada@example.com", "correct horse battery", rbac.RoleUser)

	session, err := env.svc.Login(context.Background(), Credentials{
		Email: "ada@example.com", Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}

	t.Run("garbage token", func(t *testing.T) {
		_, err := env.svc.Refresh(context.Background(), "not.a.token")
		wantHTTPStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("access token in place of refresh token", func(t *testing.T) {
		_, err := env.svc.Refresh(context.Background(), session.Pair.AccessToken)
		wantHTTPStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("expired token", func(t *testing.T) {
		env.clock.Advance(8 * 24 * time.Hour)
		_, err := env.svc.Refresh(context.Background(), session.Pair.RefreshToken)
		wantHTTPStatus(t, err, http.StatusUnauthorized)
		if err.Error() != "refresh token expired" {
			t.Errorf("error = %q, want %q", err.Error(), "refresh token expired")
		}
	})
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "ada@example.com", "correct horse battery", rbac.RoleUser)

	session, err := env.svc.Login(context.Background(), Credentials{
		Email: "ada@example.com", Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}

	env.svc.Logout(context.Background(), session.Pair.RefreshToken)
	if n, _ := env.svc.Tokens().ActiveSessions(context.Background()); n != 0 {
		t.Errorf("ActiveSessions() = %d after logout, want 0", n)
	}
	if kind := env.lastAuditKind(t); kind != audit.KindLogout {
		t.Errorf("audit kind = %q, want %q", kind, audit.KindLogout)
	}

	// Logging out again, or with no cookie at all, stays silent.
	env.svc.Logout(context.Background(), session.Pair.RefreshToken)
	env.svc.Logout(context.Background(), "")

	// The logged-out token no longer refreshes.
	_, err = env.svc.Refresh(context.Background(), session.Pair.RefreshToken)
	wantHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "ada@example.com", "correct horse battery", rbac.RoleUser)

	got, err := env.svc.Me(context.Background(), auth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		t.Fatalf("Me() failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("Me() = %q, want %q", got.ID, user.ID)
	}

	if err := env.store.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("deleting user: %v", err)
	}
	_, err = env.svc.Me(context.Background(), auth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	wantHTTPStatus(t, err, http.StatusUnauthorized)
}
