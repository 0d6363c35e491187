package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vantagehq/vantage/internal/rbac"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour

	DefaultIssuer = "vantage"
)

// TokenService mints and verifies the HS256 token pairs and owns every
// interaction with the refresh token registry. Access and refresh tokens are
// signed with distinct secrets so one can never stand in for the other.
//
// Expiry checks run against wall clock with no leeway window; a token is
// rejected the moment its exp passes. This is a fixed design choice, not an
// omission.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	registry      *rbac.Registry
	store         RefreshTokenStore
	now           func() time.Time
}

// ServiceOption configures TokenService behavior.
type ServiceOption func(*TokenService) error

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *TokenService) error {
		if ttl <= 0 {
			return errors.New("auth: access ttl must be positive")
		}
		s.accessTTL = ttl
		return nil
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *TokenService) error {
		if ttl <= 0 {
			return errors.New("auth: refresh ttl must be positive")
		}
		s.refreshTTL = ttl
		return nil
	}
}

// WithIssuer overrides the issuer claim minted into and required from tokens.
func WithIssuer(issuer string) ServiceOption {
	return func(s *TokenService) error {
		issuer = strings.TrimSpace(issuer)
		if issuer == "" {
			return errors.New("auth: issuer must not be empty")
		}
		s.issuer = issuer
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) ServiceOption {
	return func(s *TokenService) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

// NewTokenService constructs the service. Both secrets are required and must
// differ; a shared secret would collapse the access/refresh separation.
func NewTokenService(accessSecret, refreshSecret string, registry *rbac.Registry, store RefreshTokenStore, opts ...ServiceOption) (*TokenService, error) {
	accessSecret = strings.TrimSpace(accessSecret)
	refreshSecret = strings.TrimSpace(refreshSecret)
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: both token secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if registry == nil {
		return nil, errors.New("auth: role registry is required")
	}
	if store == nil {
		return nil, errors.New("auth: refresh token store is required")
	}

	svc := &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     DefaultAccessTTL,
		refreshTTL:    DefaultRefreshTTL,
		issuer:        DefaultIssuer,
		registry:      registry,
		store:         store,
		now:           time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// Issue mints a fresh token pair over identity. Pure: the refresh token is
// NOT registered; callers pair Issue with Register so that a failed response
// write never leaves a dangling registry entry.
func (s *TokenService) Issue(identity Identity) (TokenPair, error) {
	if strings.TrimSpace(identity.UserID) == "" {
		return TokenPair{}, errors.New("auth: identity user id is required")
	}
	if !s.registry.IsValidRole(identity.Role) {
		return TokenPair{}, fmt.Errorf("auth: cannot issue token for unknown role %q", identity.Role)
	}

	now := s.now().UTC()
	access, accessExp, err := s.mint(identity, now, s.accessTTL, s.accessSecret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("auth: sign access token: %w", err)
	}
	refresh, refreshExp, err := s.mint(identity, now, s.refreshTTL, s.refreshSecret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("auth: sign refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess verifies an access token and returns its claims. Fails with
// ErrExpired past expiry and ErrMalformed on any structural, signature, or
// claim problem, including a role no longer present in the registry.
func (s *TokenService) VerifyAccess(token string) (*Claims, error) {
	return s.verify(token, s.accessSecret)
}

// VerifyRefresh is VerifyAccess for refresh tokens, using the refresh secret.
// It performs no registry membership check; that belongs to Rotate.
func (s *TokenService) VerifyRefresh(token string) (*Claims, error) {
	return s.verify(token, s.refreshSecret)
}

// Rotate exchanges a registered refresh token for a fresh pair. Verification
// failures propagate as ErrExpired/ErrMalformed; a verifiable token that is
// not in the registry fails with ErrRevoked. On success the old token is
// unregistered and the new refresh token registered in one atomic step, so
// two concurrent rotations of the same token cannot both succeed.
func (s *TokenService) Rotate(ctx context.Context, oldToken string) (TokenPair, error) {
	claims, err := s.VerifyRefresh(oldToken)
	if err != nil {
		return TokenPair{}, err
	}

	pair, err := s.Issue(claims.Identity())
	if err != nil {
		return TokenPair{}, err
	}

	if err := s.store.Rotate(ctx, Fingerprint(oldToken), Fingerprint(pair.RefreshToken), pair.RefreshExpiresAt); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// Register adds the pair's refresh token to the registry. Called by the
// login, register, and google handlers after a successful Issue.
func (s *TokenService) Register(ctx context.Context, pair TokenPair) error {
	return s.store.Insert(ctx, Fingerprint(pair.RefreshToken), pair.RefreshExpiresAt)
}

// Unregister removes a refresh token from the registry. Unknown or empty
// tokens are ignored so logout stays idempotent.
func (s *TokenService) Unregister(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.store.Delete(ctx, Fingerprint(token))
}

// ActiveSessions reports how many refresh tokens are currently registered.
func (s *TokenService) ActiveSessions(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// SweepExpired drops registry entries whose tokens have expired anyway.
// Purely housekeeping: verification would reject them regardless.
func (s *TokenService) SweepExpired(ctx context.Context) (int, error) {
	return s.store.Sweep(ctx, s.now().UTC())
}

func (s *TokenService) mint(identity Identity, now time.Time, ttl time.Duration, secret []byte) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := Claims{
		UserID: identity.UserID,
		Email:  identity.Email,
		Role:   identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *TokenService) verify(token string, secret []byte) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformed)
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	if !s.registry.IsValidRole(claims.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrMalformed, claims.Role)
	}
	return claims, nil
}
