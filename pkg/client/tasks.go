package client

import (
	"context"
	"fmt"

	"github.com/vantagehq/vantage/internal/api"
	"github.com/vantagehq/vantage/internal/tasks"
)

// ListTasks retrieves the registered maintenance tasks and their states.
// Requires an admin session.
func (c *Client) ListTasks(ctx context.Context) ([]tasks.TaskStatus, error) {
	var list []tasks.TaskStatus
	if _, err := c.get(ctx, c.url().setPath(api.ListTasksRoute).build(), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// TriggerTask runs a task by name outside its schedule.
func (c *Client) TriggerTask(ctx context.Context, name string) error {
	url := c.url().setPath(api.TriggerTaskRoute).setPathParam("name", name).build()

	var res api.TriggerTaskResponse
	if _, err := c.post(ctx, url, nil, &res); err != nil {
		return err
	}
	if res.Status != "triggered" {
		return fmt.Errorf("task %q: unexpected response status %q", name, res.Status)
	}
	return nil
}

// GetTaskLogs retrieves the log tail of a task's latest run.
func (c *Client) GetTaskLogs(ctx context.Context, name string) ([]tasks.LogEntry, error) {
	url := c.url().setPath(api.LogsForTaskRoute).setPathParam("name", name).build()

	var entries []tasks.LogEntry
	if _, err := c.get(ctx, url, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
