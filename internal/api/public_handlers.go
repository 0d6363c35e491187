package api

import (
	"net/http"

	"github.com/vantagehq/vantage/internal/api/presenter"
	"github.com/vantagehq/vantage/internal/buildinfo"
)

// handleHealth answers liveness probes with a bare OK; no JSON envelope so
// the smallest possible check works.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleInfo reports the service identity and build metadata.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, buildinfo.GetBuildInfo(), http.StatusOK)
}
