package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vantagehq/vantage/internal/api/presenter"
	"github.com/vantagehq/vantage/internal/audit"
	"github.com/vantagehq/vantage/internal/auth"
	"github.com/vantagehq/vantage/internal/rbac"
	"github.com/vantagehq/vantage/internal/users"
)

// ownsUserRecord is the built-in ownership predicate for the users
// resource: the requester owns the record when the path id is their own.
// Admins bypass this in the ownership gate itself.
func ownsUserRecord(r *http.Request) (bool, error) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return false, nil
	}
	return identity.UserID == r.PathValue("id"), nil
}

type userListResponse struct {
	Users []users.User `json:"users"`
	Total int          `json:"total"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := s.users.List(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list users")
		presenter.Error(w, r, "failed to list users", http.StatusInternalServerError)
		return
	}
	presenter.JSON(w, r, userListResponse{Users: list, Total: len(list)}, http.StatusOK)
}

type createUserPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// handleCreateUser creates an account with an explicit role. Reaching this
// point requires users:create, which only admins hold.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload createUserPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode create user payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	email := users.NormalizeEmail(payload.Email)
	if email == "" || !strings.Contains(email, "@") {
		presenter.Error(w, r, "a valid email is required", http.StatusBadRequest)
		return
	}
	if len(payload.Password) < users.MinPasswordLength {
		presenter.Error(w, r,
			fmt.Sprintf("password must be at least %d characters", users.MinPasswordLength),
			http.StatusBadRequest)
		return
	}

	role := rbac.RoleUser
	if payload.Role != "" {
		role = rbac.Role(payload.Role)
		if !s.registry.IsValidRole(role) {
			presenter.Error(w, r, "unknown role", http.StatusBadRequest)
			return
		}
	}

	hash, err := users.HashPassword(payload.Password)
	if err != nil {
		logger.Error().Err(err).Msg("failed to hash password")
		presenter.Error(w, r, "failed to create user", http.StatusInternalServerError)
		return
	}

	user := users.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(payload.FullName),
		PasswordHash: hash,
		Role:         role,
		Provider:     users.ProviderLocal,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			presenter.Error(w, r, "email already registered", http.StatusConflict)
			return
		}
		logger.Error().Err(err).Msg("failed to create user")
		presenter.Error(w, r, "failed to create user", http.StatusInternalServerError)
		return
	}

	presenter.JSON(w, r, userResponse{User: user}, http.StatusCreated)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := s.users.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			presenter.Error(w, r, "User not found", http.StatusNotFound)
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to load user")
		presenter.Error(w, r, "failed to load user", http.StatusInternalServerError)
		return
	}
	presenter.JSON(w, r, userResponse{User: user}, http.StatusOK)
}

type updateUserPayload struct {
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
}

// handleUpdateUser edits a record the ownership gate already admitted the
// caller to. Role changes stay admin-only: owners edit their name, not
// their privileges.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	user, err := s.users.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			presenter.Error(w, r, "User not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Msg("failed to load user")
		presenter.Error(w, r, "failed to load user", http.StatusInternalServerError)
		return
	}

	var payload updateUserPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode update user payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	if payload.FullName != nil {
		user.FullName = strings.TrimSpace(*payload.FullName)
	}
	if payload.Role != nil {
		identity, _ := auth.IdentityFromContext(ctx)
		if identity.Role != rbac.RoleAdmin {
			presenter.Error(w, r, "only admins may change roles", http.StatusForbidden)
			return
		}
		role := rbac.Role(*payload.Role)
		if !s.registry.IsValidRole(role) {
			presenter.Error(w, r, "unknown role", http.StatusBadRequest)
			return
		}
		user.Role = role
	}

	if err := s.users.Update(ctx, user); err != nil {
		logger.Error().Err(err).Msg("failed to update user")
		presenter.Error(w, r, "failed to update user", http.StatusInternalServerError)
		return
	}
	presenter.JSON(w, r, userResponse{User: user}, http.StatusOK)
}

// handleDeleteUser removes an account. Admins cannot remove their own to
// keep at least the acting admin alive.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := r.PathValue("id")
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity.UserID == id {
		presenter.Error(w, r, "you cannot delete your own account", http.StatusBadRequest)
		return
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			presenter.Error(w, r, "User not found", http.StatusNotFound)
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to delete user")
		presenter.Error(w, r, "failed to delete user", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type auditLogListResponse struct {
	Logs  []audit.Event `json:"logs"`
	Total int           `json:"total"`
}

// handleListAuditLogs serves the audit-logs resource. Only the in-memory
// auditor is queryable; other auditors make this endpoint unavailable
// rather than silently empty.
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditLog == nil {
		presenter.Error(w, r, "audit log queries are not available with the configured auditor", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	logs, err := s.auditLog.GetRecent(limit)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to retrieve audit logs")
		presenter.Error(w, r, "failed to retrieve audit logs", http.StatusInternalServerError)
		return
	}
	presenter.JSON(w, r, auditLogListResponse{Logs: logs, Total: len(logs)}, http.StatusOK)
}
