package client

import (
	"context"

	"github.com/vantagehq/vantage/internal/api"
	"github.com/vantagehq/vantage/internal/buildinfo"
)

// Info fetches the server's build information.
func (c *Client) Info(ctx context.Context) (*buildinfo.Info, string, error) {
	var info buildinfo.Info
	correlation, err := c.get(ctx, c.url().
		setPath(api.InfoRoute).
		build(), &info)
	return &info, correlation, err
}
