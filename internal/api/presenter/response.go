package presenter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/vantagehq/vantage/internal/service"
)

// ErrorResponse is the uniform error body. Required echoes what an
// authorization gate was missing (a permission or role name, or a list
// of them), never why the check failed internally.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message,omitempty"`
	Required      any    `json:"required,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	correlationID, _ := r.Context().Value("correlation_id").(string)
	resp := ErrorResponse{
		Error:         http.StatusText(status),
		Message:       msg,
		CorrelationID: correlationID,
	}
	JSON(w, r, resp, status)
}

// Denied writes a 403 with the required-but-missing role or permission.
func Denied(w http.ResponseWriter, r *http.Request, msg string, required any) {
	correlationID, _ := r.Context().Value("correlation_id").(string)
	resp := ErrorResponse{
		Error:         http.StatusText(http.StatusForbidden),
		Message:       msg,
		Required:      required,
		CorrelationID: correlationID,
	}
	JSON(w, r, resp, http.StatusForbidden)
}

// Err maps a service error to its HTTP status (400 when it carries none).
// Server-side failures log the full chain and answer with the short text
// only; 4xx detail is client-caused and safe to echo.
func Err(w http.ResponseWriter, r *http.Request, err error, short string) {
	status := http.StatusBadRequest // generic default status
	var httpError *service.HTTPError
	if errors.As(err, &httpError) {
		status = httpError.StatusCode
	}
	if status >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Msg(short)
		Error(w, r, short, status)
		return
	}
	Error(w, r, short+": "+err.Error(), status)
}
