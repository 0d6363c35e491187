package api

import (
	"errors"
	"net/http"

	"github.com/vantagehq/vantage/internal/api/presenter"
	"github.com/vantagehq/vantage/internal/tasks"
)

// handleListTasks responds with the registered maintenance tasks and their
// last/next run state.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, s.tasks.ListStatus(), http.StatusOK)
}

type TriggerTaskResponse struct {
	Status string `json:"status"`
}

// handleTriggerTask runs a task by name outside its schedule.
func (s *Server) handleTriggerTask(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		presenter.Error(w, r, "missing task name", http.StatusBadRequest)
		return
	}
	if err := s.tasks.Trigger(name); err != nil {
		var notFound tasks.TaskNotFoundError
		if errors.As(err, &notFound) {
			presenter.Error(w, r, err.Error(), http.StatusNotFound)
			return
		}
		presenter.Error(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	presenter.JSON(w, r, TriggerTaskResponse{
		Status: "triggered",
	}, http.StatusOK)
}

// handleLogsForTask retrieves the captured run logs of a task.
func (s *Server) handleLogsForTask(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		presenter.Error(w, r, "missing task name", http.StatusBadRequest)
		return
	}
	logs, err := s.tasks.GetLogs(name)
	if err != nil {
		var notFound tasks.TaskNotFoundError
		if errors.As(err, &notFound) {
			presenter.Error(w, r, err.Error(), http.StatusNotFound)
			return
		}
		presenter.Error(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	presenter.JSON(w, r, logs, http.StatusOK)
}
