package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vantagehq/vantage/internal/api/presenter"
	"github.com/vantagehq/vantage/internal/auth"
)

type contractListResponse struct {
	Contracts []Contract `json:"contracts"`
	Total     int        `json:"total"`
}

type contractResponse struct {
	Contract Contract `json:"contract"`
}

// contractPayload covers create and update; pointers distinguish omitted
// fields from zero values on partial updates.
type contractPayload struct {
	Title        *string    `json:"title"`
	Counterparty *string    `json:"counterparty"`
	Status       *string    `json:"status"`
	Value        *float64   `json:"value"`
	Currency     *string    `json:"currency"`
	EndsAt       *time.Time `json:"ends_at"`
}

func (s *Server) handleListContracts(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !validContractStatus(status) {
		presenter.Error(w, r, "unknown status filter", http.StatusBadRequest)
		return
	}

	list := s.contracts.List(status)
	presenter.JSON(w, r, contractListResponse{Contracts: list, Total: len(list)}, http.StatusOK)
}

func (s *Server) handleCreateContract(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	var payload contractPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode contract payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.Title == nil || strings.TrimSpace(*payload.Title) == "" {
		presenter.Error(w, r, "title is required", http.StatusBadRequest)
		return
	}
	if payload.Counterparty == nil || strings.TrimSpace(*payload.Counterparty) == "" {
		presenter.Error(w, r, "counterparty is required", http.StatusBadRequest)
		return
	}

	c := Contract{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(*payload.Title),
		Counterparty: strings.TrimSpace(*payload.Counterparty),
		Status:       ContractStatusDraft,
		UpdatedAt:    time.Now().UTC(),
	}
	if payload.Status != nil {
		if !validContractStatus(*payload.Status) {
			presenter.Error(w, r, "unknown contract status", http.StatusBadRequest)
			return
		}
		c.Status = *payload.Status
	}
	if payload.Value != nil {
		c.Value = *payload.Value
	}
	if payload.Currency != nil {
		c.Currency = strings.ToUpper(strings.TrimSpace(*payload.Currency))
	}
	if payload.EndsAt != nil {
		c.EndsAt = payload.EndsAt.UTC()
	}

	s.contracts.Put(c)
	presenter.JSON(w, r, contractResponse{Contract: c}, http.StatusCreated)
}

func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	c, ok := s.contracts.Get(r.PathValue("id"))
	if !ok {
		presenter.Error(w, r, "Contract not found", http.StatusNotFound)
		return
	}
	presenter.JSON(w, r, contractResponse{Contract: c}, http.StatusOK)
}

func (s *Server) handleUpdateContract(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	c, ok := s.contracts.Get(r.PathValue("id"))
	if !ok {
		presenter.Error(w, r, "Contract not found", http.StatusNotFound)
		return
	}

	var payload contractPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode contract payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	if payload.Title != nil {
		if strings.TrimSpace(*payload.Title) == "" {
			presenter.Error(w, r, "title must not be empty", http.StatusBadRequest)
			return
		}
		c.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Counterparty != nil {
		if strings.TrimSpace(*payload.Counterparty) == "" {
			presenter.Error(w, r, "counterparty must not be empty", http.StatusBadRequest)
			return
		}
		c.Counterparty = strings.TrimSpace(*payload.Counterparty)
	}
	if payload.Status != nil {
		if !validContractStatus(*payload.Status) {
			presenter.Error(w, r, "unknown contract status", http.StatusBadRequest)
			return
		}
		c.Status = *payload.Status
	}
	if payload.Value != nil {
		c.Value = *payload.Value
	}
	if payload.Currency != nil {
		c.Currency = strings.ToUpper(strings.TrimSpace(*payload.Currency))
	}
	if payload.EndsAt != nil {
		c.EndsAt = payload.EndsAt.UTC()
	}
	c.UpdatedAt = time.Now().UTC()

	s.contracts.Put(c)
	presenter.JSON(w, r, contractResponse{Contract: c}, http.StatusOK)
}

func (s *Server) handleDeleteContract(w http.ResponseWriter, r *http.Request) {
	if !s.contracts.Delete(r.PathValue("id")) {
		presenter.Error(w, r, "Contract not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type contractMetricsResponse struct {
	Metrics     ContractMetrics `json:"metrics"`
	GeneratedAt time.Time       `json:"generated_at"`
}

func (s *Server) handleContractMetrics(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, contractMetricsResponse{
		Metrics:     s.contracts.Metrics(),
		GeneratedAt: time.Now().UTC(),
	}, http.StatusOK)
}

// dashboardUser is the identity slice echoed on the authenticated dashboard.
type dashboardUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type dashboardResponse struct {
	Authenticated bool            `json:"authenticated"`
	User          *dashboardUser  `json:"user,omitempty"`
	Summary       ContractMetrics `json:"summary"`
	Recent        []Contract      `json:"recent,omitempty"`
}

// handleDashboard serves the landing payload. Anonymous callers get the
// headline numbers only; authenticated callers additionally get who they
// are and the most recently touched contracts.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	resp := dashboardResponse{Summary: s.contracts.Metrics()}

	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		resp.Authenticated = true
		resp.User = &dashboardUser{
			ID:    identity.UserID,
			Email: identity.Email,
			Role:  string(identity.Role),
		}
		resp.Recent = s.contracts.Recent(3)
	}

	presenter.JSON(w, r, resp, http.StatusOK)
}
