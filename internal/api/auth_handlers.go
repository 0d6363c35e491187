package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/vantagehq/vantage/internal/api/presenter"
	"github.com/vantagehq/vantage/internal/auth"
	"github.com/vantagehq/vantage/internal/service"
	"github.com/vantagehq/vantage/internal/session"
	"github.com/vantagehq/vantage/internal/users"
)

type authResponse struct {
	User    users.User `json:"user"`
	Message string     `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	User users.User `json:"user"`
}

// handleLogin checks credentials and starts a cookie session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload service.Credentials
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode login payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.Email == "" || payload.Password == "" {
		presenter.Error(w, r, "email and password are required", http.StatusBadRequest)
		return
	}

	sess, err := s.auth.Login(ctx, payload)
	if err != nil {
		presenter.Err(w, r, err, "login failed")
		return
	}

	s.sessions.Attach(w, sess.Pair.AccessToken, sess.Pair.RefreshToken)
	presenter.JSON(w, r, authResponse{User: sess.User, Message: "Login successful"}, http.StatusOK)
}

// handleRegister creates a local account and starts a cookie session.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload service.RegisterRequest
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode register payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	sess, err := s.auth.Register(ctx, payload)
	if err != nil {
		presenter.Err(w, r, err, "registration failed")
		return
	}

	s.sessions.Attach(w, sess.Pair.AccessToken, sess.Pair.RefreshToken)
	presenter.JSON(w, r, authResponse{User: sess.User, Message: "Registration successful"}, http.StatusCreated)
}

// handleGoogleLogin exchanges a verified Google ID token for a session.
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload service.GoogleRequest
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode google login payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.IDToken == "" {
		presenter.Error(w, r, "idToken is required", http.StatusBadRequest)
		return
	}

	sess, err := s.auth.GoogleLogin(ctx, payload)
	if err != nil {
		presenter.Err(w, r, err, "google sign-in failed")
		return
	}

	s.sessions.Attach(w, sess.Pair.AccessToken, sess.Pair.RefreshToken)
	presenter.JSON(w, r, authResponse{User: sess.User, Message: "Login successful"}, http.StatusOK)
}

// handleRefresh rotates the refresh cookie into a fresh token pair. Every
// failure clears the session cookies: a client that cannot refresh holds
// nothing worth keeping.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, ok := session.RefreshTokenFromRequest(r)
	if !ok {
		s.sessions.Clear(w)
		presenter.Error(w, r, "Refresh token required", http.StatusUnauthorized)
		return
	}

	pair, err := s.auth.Refresh(ctx, token)
	if err != nil {
		s.sessions.Clear(w)
		presenter.Err(w, r, err, "refresh failed")
		return
	}

	s.sessions.Attach(w, pair.AccessToken, pair.RefreshToken)
	presenter.JSON(w, r, messageResponse{Message: "Token refreshed"}, http.StatusOK)
}

// handleLogout unregisters the refresh token when one is presented and
// clears the cookies. The client-visible outcome is always success.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if token, ok := session.RefreshTokenFromRequest(r); ok {
		s.auth.Logout(ctx, token)
	}

	s.sessions.Clear(w)
	presenter.JSON(w, r, messageResponse{Message: "Logged out"}, http.StatusOK)
}

// handlePasswordReset records a reset request. The response never reveals
// whether the address has an account.
func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload struct {
		Email string `json:"email"`
	}
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode password reset payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.Email == "" {
		presenter.Error(w, r, "email is required", http.StatusBadRequest)
		return
	}

	s.auth.RequestPasswordReset(ctx, payload.Email)
	presenter.JSON(w, r, messageResponse{
		Message: "If an account exists for this address, a reset mail is on its way",
	}, http.StatusOK)
}

// handleMe resolves the authenticated identity to its current user record.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		presenter.Error(w, r, "Authentication required", http.StatusUnauthorized)
		return
	}

	user, err := s.auth.Me(ctx, identity)
	if err != nil {
		presenter.Err(w, r, err, "resolving user failed")
		return
	}
	presenter.JSON(w, r, userResponse{User: user}, http.StatusOK)
}
