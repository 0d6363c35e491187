package client

import (
	"context"
	"strconv"

	"github.com/vantagehq/vantage/internal/api"
	"github.com/vantagehq/vantage/internal/audit"
)

// ListAuditEventsOpts filters the admin audit event query. Zero fields
// are omitted.
type ListAuditEventsOpts struct {
	Limit int

	Kind          string
	Actor         string
	Email         string
	CorrelationID string
}

// ListAuditEvents retrieves recent security audit events. Requires an
// admin session.
func (c *Client) ListAuditEvents(ctx context.Context, opts ListAuditEventsOpts) ([]audit.Event, string, error) {
	ub := c.url().setPath(api.AdminAuditEventsRoute)
	if opts.Limit > 0 {
		ub = ub.addQueryParam("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Kind != "" {
		ub = ub.addQueryParam("kind", opts.Kind)
	}
	if opts.Actor != "" {
		ub = ub.addQueryParam("actor", opts.Actor)
	}
	if opts.Email != "" {
		ub = ub.addQueryParam("email", opts.Email)
	}
	if opts.CorrelationID != "" {
		ub = ub.addQueryParam("correlation_id", opts.CorrelationID)
	}

	var resp []audit.Event
	correlation, err := c.get(ctx, ub.build(), &resp)
	return resp, correlation, err
}

type sessionCountResponse struct {
	ActiveSessions int `json:"active_sessions"`
}

// SessionsCount reports how many refresh tokens are live on the server.
func (c *Client) SessionsCount(ctx context.Context) (int, string, error) {
	var resp sessionCountResponse
	correlation, err := c.get(ctx, c.url().
		setPath(api.AdminSessionsRoute).
		build(), &resp)
	return resp.ActiveSessions, correlation, err
}
