package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vantagehq/vantage/internal/audit"
	"github.com/vantagehq/vantage/internal/auth"
	"github.com/vantagehq/vantage/internal/google"
	"github.com/vantagehq/vantage/internal/metrics"
	"github.com/vantagehq/vantage/internal/rbac"
	"github.com/vantagehq/vantage/internal/users"
)

// AuthService orchestrates login, registration, Google sign-in, token
// rotation and logout on top of the user store and the token service.
// Every outcome is written to the auditor; failures carry an HTTP status
// via HTTPError so the handlers stay thin.
type AuthService struct {
	users   users.Store
	tokens  *auth.TokenService
	google  google.Verifier
	auditor audit.Auditor
}

// NewAuthService wires the service. verifier may be nil when Google
// sign-in is not configured; GoogleLogin then fails with 503.
func NewAuthService(store users.Store, tokens *auth.TokenService, verifier google.Verifier, auditor audit.Auditor) *AuthService {
	return &AuthService{
		users:   store,
		tokens:  tokens,
		google:  verifier,
		auditor: auditor,
	}
}

// Tokens exposes the underlying token service for middleware wiring.
func (s *AuthService) Tokens() *auth.TokenService {
	return s.tokens
}

// Login checks the credentials against the user store and starts a new
// session. Unknown emails and wrong passwords are indistinguishable to
// the client.
func (s *AuthService) Login(ctx context.Context, req Credentials) (*Session, error) {
	logger := log.Ctx(ctx)
	reqID, _ := ctx.Value("correlation_id").(string)

	email := users.NormalizeEmail(req.Email)
	ev := audit.Event{
		ID:    reqID,
		Time:  time.Now(),
		Kind:  audit.KindLoginFailure,
		Email: email,
	}
	defer func() {
		if err := s.auditor.Log(ev); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log entry for login")
		}
	}()

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		metrics.AuthAttempt("login", false)
		if errors.Is(err, users.ErrNotFound) {
			ev.Error = "unknown email"
			return nil, httpError(http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
		}
		ev.Error = err.Error()
		return nil, httpError(http.StatusInternalServerError, fmt.Errorf("looking up user: %w", err))
	}
	ev.Actor = user.ID

	if err := users.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		metrics.AuthAttempt("login", false)
		ev.Error = "password mismatch"
		return nil, httpError(http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
	}

	session, err := s.startSession(ctx, user)
	if err != nil {
		metrics.AuthAttempt("login", false)
		ev.Error = err.Error()
		return nil, err
	}

	metrics.AuthAttempt("login", true)
	ev.Kind = audit.KindLoginSuccess
	return session, nil
}

// Register creates a local account with the default role and starts a
// session for it.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	logger := log.Ctx(ctx)
	reqID, _ := ctx.Value("correlation_id").(string)

	email := users.NormalizeEmail(req.Email)
	ev := audit.Event{
		ID:    reqID,
		Time:  time.Now(),
		Kind:  audit.KindRegister,
		Email: email,
	}
	defer func() {
		if err := s.auditor.Log(ev); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log entry for register")
		}
	}()

	if email == "" || !strings.Contains(email, "@") {
		ev.Error = "invalid email"
		return nil, httpError(http.StatusBadRequest, fmt.Errorf("a valid email is required"))
	}
	if len(req.Password) < users.MinPasswordLength {
		ev.Error = "password too short"
		return nil, httpError(http.StatusBadRequest,
			fmt.Errorf("password must be at least %d characters", users.MinPasswordLength))
	}

	hash, err := users.HashPassword(req.Password)
	if err != nil {
		ev.Error = err.Error()
		return nil, httpError(http.StatusInternalServerError, fmt.Errorf("hashing password: %w", err))
	}

	user := users.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		Role:         rbac.RoleUser,
		Provider:     users.ProviderLocal,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		metrics.AuthAttempt("register", false)
		if errors.Is(err, users.ErrDuplicateEmail) {
			ev.Error = "email taken"
			return nil, httpError(http.StatusConflict, fmt.Errorf("email already registered"))
		}
		ev.Error = err.Error()
		return nil, httpError(http.StatusInternalServerError, fmt.Errorf("creating user: %w", err))
	}
	ev.Actor = user.ID

	session, err := s.startSession(ctx, user)
	if err != nil {
		metrics.AuthAttempt("register", false)
		ev.Error = err.Error()
		return nil, err
	}

	metrics.AuthAttempt("register", true)
	return session, nil
}

// GoogleLogin verifies the ID token with Google, creates or links the
// matching user record and starts a session.
func (s *AuthService) GoogleLogin(ctx context.Context, req GoogleRequest) (*Session, error) {
	logger := log.Ctx(ctx)
	reqID, _ := ctx.Value("correlation_id").(string)

	ev := audit.Event{
		ID:   reqID,
		Time: time.Now(),
		Kind: audit.KindGoogleFailure,
	}
	defer func() {
		if err := s.auditor.Log(ev); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log entry for google login")
		}
	}()

	if s.google == nil {
		ev.Error = "google sign-in not configured"
		return nil, httpError(http.StatusServiceUnavailable, fmt.Errorf("google sign-in is not configured"))
	}

	payload, err := s.google.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		metrics.AuthAttempt("google", false)
		ev.Error = err.Error()
		return nil, httpError(http.StatusUnauthorized, fmt.Errorf("google verification failed"))
	}
	email := users.NormalizeEmail(payload.Email)
	ev.Email = email

	if !payload.EmailVerified {
		metrics.AuthAttempt("google", false)
		ev.Error = "email not verified by google"
		return nil, httpError(http.StatusBadRequest, fmt.Errorf("google account email is not verified"))
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		// Existing account: link it to google on first google sign-in.
		if user.Provider != users.ProviderGoogle {
			user.Provider = users.ProviderGoogle
			if user.FullName == "" {
				user.FullName = payload.FullName
			}
			if err := s.users.Update(ctx, user); err != nil {
				ev.Error = err.Error()
				return nil, httpError(http.StatusInternalServerError, fmt.Errorf("linking google account: %w", err))
			}
		}
	case errors.Is(err, users.ErrNotFound):
		user = users.User{
			ID:        uuid.NewString(),
			Email:     email,
			FullName:  payload.FullName,
			Role:      rbac.RoleUser,
			Provider:  users.ProviderGoogle,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.users.Create(ctx, user); err != nil {
			ev.Error = err.Error()
			return nil, httpError(http.StatusInternalServerError, fmt.Errorf("creating user: %w", err))
		}
	default:
		ev.Error = err.Error()
		return nil, httpError(http.StatusInternalServerError, fmt.Errorf("looking up user: %w", err))
	}
	ev.Actor = user.ID

	session, err := s.startSession(ctx, user)
	if err != nil {
		metrics.AuthAttempt("google", false)
		ev.Error = err.Error()
		return nil, err
	}

	metrics.AuthAttempt("google", true)
	ev.Kind = audit.KindGoogleSuccess
	return session, nil
}

// Refresh rotates the presented refresh token into a new pair. Any token
// problem maps to 401; a verifiable token missing from the registry is a
// replay and audited as such.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	logger := log.Ctx(ctx)
	reqID, _ := ctx.Value("correlation_id").(string)

	ev := audit.Event{
		ID:   reqID,
		Time: time.Now(),
		Kind: audit.KindTokenRotated,
	}
	defer func() {
		if err := s.auditor.Log(ev); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log entry for refresh")
		}
	}()

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		metrics.AuthAttempt("refresh", false)
		ev.Kind = audit.KindTokenRejected
		ev.Error = err.Error()
		if errors.Is(err, auth.ErrExpired) {
			return auth.TokenPair{}, httpError(http.StatusUnauthorized, fmt.Errorf("refresh token expired"))
		}
		return auth.TokenPair{}, httpError(http.StatusUnauthorized, fmt.Errorf("invalid refresh token"))
	}
	ev.Actor = claims.UserID
	ev.Email = claims.Email

	pair, err := s.tokens.Rotate(ctx, refreshToken)
	if err != nil {
		metrics.AuthAttempt("refresh", false)
		ev.Error = err.Error()
		switch {
		case errors.Is(err, auth.ErrRevoked):
			ev.Kind = audit.KindTokenReplay
			return auth.TokenPair{}, httpError(http.StatusUnauthorized, fmt.Errorf("refresh token revoked"))
		case errors.Is(err, auth.ErrExpired), errors.Is(err, auth.ErrMalformed):
			ev.Kind = audit.KindTokenRejected
			return auth.TokenPair{}, httpError(http.StatusUnauthorized, fmt.Errorf("invalid refresh token"))
		default:
			ev.Kind = audit.KindTokenRejected
			return auth.TokenPair{}, httpError(http.StatusInternalServerError, fmt.Errorf("rotating refresh token: %w", err))
		}
	}

	metrics.AuthAttempt("refresh", true)
	return pair, nil
}

// Logout removes the refresh token from the registry. It never fails the
// client-visible outcome; problems are logged and audited only.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	logger := log.Ctx(ctx)
	reqID, _ := ctx.Value("correlation_id").(string)

	ev := audit.Event{
		ID:   reqID,
		Time: time.Now(),
		Kind: audit.KindLogout,
	}
	if claims, err := s.tokens.VerifyRefresh(refreshToken); err == nil {
		ev.Actor = claims.UserID
		ev.Email = claims.Email
	}

	if err := s.tokens.Unregister(ctx, refreshToken); err != nil {
		ev.Error = err.Error()
		logger.Warn().Err(err).Msg("failed to unregister refresh token on logout")
	}
	if err := s.auditor.Log(ev); err != nil {
		logger.Error().Err(err).Msg("failed to write audit log entry for logout")
	}
}

// RequestPasswordReset records a reset request for the given email. The
// outcome is identical whether or not an account exists so the endpoint
// cannot be used to enumerate addresses; delivery of the actual reset mail
// is out of scope here.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) {
	logger := log.Ctx(ctx)
	reqID, _ := ctx.Value("correlation_id").(string)

	email = users.NormalizeEmail(email)
	ev := audit.Event{
		ID:    reqID,
		Time:  time.Now(),
		Kind:  audit.KindPasswordReset,
		Email: email,
	}
	if user, err := s.users.FindByEmail(ctx, email); err == nil {
		ev.Actor = user.ID
	}
	if err := s.auditor.Log(ev); err != nil {
		logger.Error().Err(err).Msg("failed to write audit log entry for password reset")
	}
}

// Me resolves the authenticated identity back to its user record. A
// record deleted since token issuance reads as unauthenticated.
func (s *AuthService) Me(ctx context.Context, identity auth.Identity) (users.User, error) {
	user, err := s.users.FindByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, httpError(http.StatusUnauthorized, fmt.Errorf("user no longer exists"))
		}
		return users.User{}, httpError(http.StatusInternalServerError, fmt.Errorf("looking up user: %w", err))
	}
	return user, nil
}

// startSession mints a pair for the user and registers the refresh token.
// Issue is pure, so a registry failure here never leaks a usable pair.
func (s *AuthService) startSession(ctx context.Context, user users.User) (*Session, error) {
	pair, err := s.tokens.Issue(auth.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, httpError(http.StatusInternalServerError, fmt.Errorf("issuing token pair: %w", err))
	}
	if err := s.tokens.Register(ctx, pair); err != nil {
		return nil, httpError(http.StatusInternalServerError, fmt.Errorf("registering refresh token: %w", err))
	}
	return &Session{User: user, Pair: pair}, nil
}
