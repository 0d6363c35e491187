package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/vantagehq/vantage/internal/api/middleware"
	"github.com/vantagehq/vantage/internal/api/presenter"
	"github.com/vantagehq/vantage/internal/audit"
	"github.com/vantagehq/vantage/internal/auth"
	"github.com/vantagehq/vantage/internal/buildinfo"
	"github.com/vantagehq/vantage/internal/ratelimit"
	"github.com/vantagehq/vantage/internal/rbac"
	"github.com/vantagehq/vantage/internal/service"
	"github.com/vantagehq/vantage/internal/session"
	"github.com/vantagehq/vantage/internal/tasks"
	"github.com/vantagehq/vantage/internal/users"
)

// The request logging middleware writes through the global logger; silence
// it so test output stays readable.
func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// env boots the whole HTTP surface against in-memory components. The token
// service runs on a controllable clock so expiry scenarios do not sleep;
// the rate limiter keeps real time, isolated per client via forwarded-for
// keys.
type env struct {
	ts      *httptest.Server
	users   *users.MemoryStore
	auditor *audit.InMemoryAuditor
	tasks   *tasks.Manager
	clock   *testClock
}

func newEnv(t *testing.T, mutate ...func(*Deps)) *env {
	t.Helper()

	clock := newTestClock()
	registry := rbac.NewRegistry()
	tokens, err := auth.NewTokenService(
		"test-access-secret", "test-refresh-secret",
		registry, auth.NewMemoryRefreshStore(),
		auth.WithClock(clock.Now),
	)
	if err != nil {
		t.Fatalf("NewTokenService() failed: %v", err)
	}

	store := users.NewMemoryStore()
	auditor := audit.NewInMemoryAuditor()
	manager := tasks.NewManager()

	deps := Deps{
		AuthService: service.NewAuthService(store, tokens, nil, auditor),
		Sessions:    session.NewManager(false, tokens.AccessTTL(), tokens.RefreshTTL()),
		Users:       store,
		Registry:    registry,
		Limiter:     ratelimit.NewLimiter(ratelimit.NewMemoryStore()),
		TaskManager: manager,
		Auditor:     auditor,
	}
	for _, m := range mutate {
		m(&deps)
	}

	ts := httptest.NewServer(NewServer(deps).Routes())
	t.Cleanup(ts.Close)

	return &env{ts: ts, users: store, auditor: auditor, tasks: manager, clock: clock}
}

// seedUser stores an account directly. MinCost keeps the many logins in
// this suite cheap; verification accepts any cost.
func (e *env) seedUser(t *testing.T, email, password string, role rbac.Role) users.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user := users.User{
		ID:           "u-" + email,
		Email:        email,
		FullName:     "Seeded User",
		PasswordHash: string(hash),
		Role:         role,
		Provider:     users.ProviderLocal,
		CreatedAt:    e.clock.Now(),
	}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return user
}

func (e *env) lastAuditKind(t *testing.T) string {
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

// browser carries one client's cookie state through a test the way a real
// browser would: Set-Cookie updates it, an expired Set-Cookie clears it.
// The key rides in X-Forwarded-For and isolates the client's rate-limit
// buckets from other browsers in the same test.
type browser struct {
	env     *env
	key     string
	cookies map[string]*http.Cookie
	headers http.Header
}

func (e *env) browser(key string) *browser {
	return &browser{
		env:     e,
		key:     key,
		cookies: make(map[string]*http.Cookie),
		headers: make(http.Header),
	}
}

func (b *browser) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, b.env.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("building %s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.key != "" {
		req.Header.Set("X-Forwarded-For", b.key)
	}
	for name, values := range b.headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	resp, err := b.env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	for _, c := range resp.Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = &http.Cookie{Name: c.Name, Value: c.Value}
	}
	return resp
}

// login authenticates through the login endpoint and leaves the session
// cookies on the browser.
func (b *browser) login(t *testing.T, email, password string) authResponse {
	t.Helper()
	resp := b.do(t, http.MethodPost, LoginRoute, service.Credentials{Email: email, Password: password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want %d (body: %s)", resp.StatusCode, http.StatusOK, readBody(t, resp))
	}
	var body authResponse
	decodeBody(t, resp, &body)
	return body
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return string(raw)
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
}

func wantStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("status = %d, want %d (body: %s)", resp.StatusCode, status, readBody(t, resp))
	}
}

// wantError asserts the status and the uniform error body, returning the
// body for further checks on the required field.
func wantError(t *testing.T, resp *http.Response, status int, message string) presenter.ErrorResponse {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("status = %d, want %d (body: %s)", resp.StatusCode, status, readBody(t, resp))
	}
	var body presenter.ErrorResponse
	decodeBody(t, resp, &body)
	if body.Error != http.StatusText(status) {
		t.Errorf("error = %q, want %q", body.Error, http.StatusText(status))
	}
	if body.Message != message {
		t.Errorf("message = %q, want %q", body.Message, message)
	}
	return body
}

func findCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("response did not set cookie %q", name)
	return nil
}

func TestHealthEndpoint(t *testing.T) {
	env := newEnv(t)
	b := env.browser("203.0.113.1")

	resp := b.do(t, http.MethodGet, HealthCheckRoute, nil)
	wantStatus(t, resp, http.StatusOK)
	if got := readBody(t, resp); got != "OK" {
		t.Errorf("body = %q, want %q", got, "OK")
	}
}

func TestInfoEndpoint(t *testing.T) {
	env := newEnv(t)
	b := env.browser("203.0.113.1")

	resp := b.do(t, http.MethodGet, InfoRoute, nil)
	wantStatus(t, resp, http.StatusOK)
	var info buildinfo.Info
	decodeBody(t, resp, &info)
	if info.Service != "Vantage" {
		t.Errorf("service = %q, want %q", info.Service, "Vantage")
	}
	if info.Version == "" {
		t.Error("version is empty")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newEnv(t)
	b := env.browser("203.0.113.1")

	resp := b.do(t, http.MethodGet, MetricsRoute, nil)
	wantStatus(t, resp, http.StatusOK)
	if body := readBody(t, resp); !strings.Contains(body, "# ") {
		t.Errorf("metrics exposition looks empty: %q", body)
	}
}

func TestCorrelationID(t *testing.T) {
	env := newEnv(t)

	t.Run("mints an id when the caller sends none", func(t *testing.T) {
		b := env.browser("203.0.113.1")
		resp := b.do(t, http.MethodGet, HealthCheckRoute, nil)
		wantStatus(t, resp, http.StatusOK)
		readBody(t, resp)
		if resp.Header.Get(middleware.CorrelationIDHeader) == "" {
			t.Error("response is missing a correlation id")
		}
	})

	t.Run("echoes a caller-supplied id into error bodies", func(t *testing.T) {
		b := env.browser("203.0.113.2")
		b.headers.Set(middleware.CorrelationIDHeader, "corr-12345")
		resp := b.do(t, http.MethodGet, MeRoute, nil)
		body := wantError(t, resp, http.StatusUnauthorized, "Access token required")
		if got := resp.Header.Get(middleware.CorrelationIDHeader); got != "corr-12345" {
			t.Errorf("header = %q, want %q", got, "corr-12345")
		}
		if body.CorrelationID != "corr-12345" {
			t.Errorf("body correlation id = %q, want %q", body.CorrelationID, "corr-12345")
		}
	})
}

func TestCORS(t *testing.T) {
	const origin = "https://dashboard.example.com"
	env := newEnv(t, func(d *Deps) { d.CORSOrigin = origin })

	t.Run("allows the configured origin with credentials", func(t *testing.T) {
		b := env.browser("203.0.113.1")
		b.headers.Set("Origin", origin)
		resp := b.do(t, http.MethodGet, HealthCheckRoute, nil)
		wantStatus(t, resp, http.StatusOK)
		readBody(t, resp)
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != origin {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, origin)
		}
		if resp.Header.Get("Access-Control-Allow-Credentials") != "true" {
			t.Error("credentials are not allowed for the dashboard origin")
		}
	})

	t.Run("ignores foreign origins", func(t *testing.T) {
		b := env.browser("203.0.113.2")
		b.headers.Set("Origin", "https://evil.example.com")
		resp := b.do(t, http.MethodGet, HealthCheckRoute, nil)
		wantStatus(t, resp, http.StatusOK)
		readBody(t, resp)
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q for a foreign origin", got)
		}
	})

	t.Run("answers preflight before any route logic", func(t *testing.T) {
		b := env.browser("203.0.113.3")
		b.headers.Set("Origin", origin)
		resp := b.do(t, http.MethodOptions, ContractsRoute, nil)
		wantStatus(t, resp, http.StatusNoContent)
		if methods := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(methods, "DELETE") {
			t.Errorf("allow-methods = %q, want DELETE included", methods)
		}
	})
}

func TestBurstGuard(t *testing.T) {
	env := newEnv(t, func(d *Deps) {
		d.BurstPerSecond = 1
		d.BurstSize = 1
	})
	b := env.browser("203.0.113.9")

	denied := 0
	for i := 0; i < 5; i++ {
		resp := b.do(t, http.MethodGet, HealthCheckRoute, nil)
		if resp.StatusCode == http.StatusTooManyRequests {
			denied++
			var body presenter.ErrorResponse
			decodeBody(t, resp, &body)
			if body.Message != "Request flood detected, slow down" {
				t.Errorf("message = %q, want the flood notice", body.Message)
			}
			if resp.Header.Get("Retry-After") == "" {
				t.Error("denial is missing a Retry-After header")
			}
			continue
		}
		wantStatus(t, resp, http.StatusOK)
		readBody(t, resp)
	}
	if denied == 0 {
		t.Error("five immediate requests against a burst of one were all allowed")
	}
}

func TestUnsupportedMethodOnResource(t *testing.T) {
	env := newEnv(t)
	env.seedUser(t, "viewer@example.com", "viewer password", rbac.RoleViewer)
	b := env.browser("203.0.113.1")
	b.login(t, "viewer@example.com", "viewer password")

	// TRACE maps to no CRUD action, so the resource gate answers 405
	// before any permission is consulted.
	resp := b.do(t, "TRACE", ContractMetricsRoute, nil)
	wantError(t, resp, http.StatusMethodNotAllowed, "Method TRACE is not supported")
}
