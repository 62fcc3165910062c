package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/taskforge/taskforge/pkg/audit"
	"github.com/taskforge/taskforge/pkg/httputil"
	"github.com/taskforge/taskforge/pkg/middleware"
	"github.com/taskforge/taskforge/pkg/storage"
	"github.com/taskforge/taskforge/pkg/tasks"
)

const taskNotFoundMessage = "task not found or unauthorized"

// createTask handles POST /tasks/
func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromRequest(r)

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Status      string `json:"status"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid json")
		return
	}
	if !tasks.ValidTitle(req.Title) {
		httputil.WriteBadRequest(w, "title is required")
		return
	}
	status := tasks.StatusPending
	if req.Status != "" {
		status = tasks.Status(req.Status)
		if !status.Valid() {
			httputil.WriteBadRequest(w, "invalid status. must be Pending, In-Progress, or Completed")
			return
		}
	}

	var created *tasks.Task
	err := storage.InTx(r.Context(), s.db, func(tx *sql.Tx) error {
		task, err := s.tasks.Create(r.Context(), tx, user.ID, req.Title, req.Description, status)
		if err != nil {
			return err
		}
		created = task
		return s.audit.Record(r.Context(), tx, &user.ID, audit.ActionTaskCreated,
			fmt.Sprintf("Task %s created", task.Title))
	})
	if err != nil {
		s.metrics.TaskOperationsTotal.WithLabelValues("create", "error").Inc()
		s.logger.WithError(err).WithField("user_id", user.ID).Error("task creation failed")
		httputil.WriteInternalError(w)
		return
	}

	s.metrics.TaskOperationsTotal.WithLabelValues("create", "ok").Inc()
	httputil.WriteCreated(w, created)
}

// listTasks handles GET /tasks/
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromRequest(r)

	list, err := s.tasks.ListByOwner(r.Context(), user.ID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("task list failed")
		httputil.WriteInternalError(w)
		return
	}

	s.metrics.TaskOperationsTotal.WithLabelValues("list", "ok").Inc()
	httputil.WriteSuccess(w, map[string]interface{}{"tasks": list})
}

// getTask handles GET /tasks/{id}
func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromRequest(r)
	taskID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	task, err := s.tasks.GetByOwner(r.Context(), user.ID, taskID)
	if errors.Is(err, tasks.ErrNotFound) {
		httputil.WriteNotFound(w, taskNotFoundMessage)
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("task fetch failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, task)
}

// updateTask handles PUT /tasks/{id}
func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromRequest(r)
	taskID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid json")
		return
	}
	if req.Title != nil && !tasks.ValidTitle(*req.Title) {
		httputil.WriteBadRequest(w, "title is required")
		return
	}
	params := tasks.UpdateParams{Title: req.Title, Description: req.Description}
	if req.Status != nil {
		status := tasks.Status(*req.Status)
		if !status.Valid() {
			httputil.WriteBadRequest(w, "invalid status")
			return
		}
		params.Status = &status
	}

	var updated *tasks.Task
	err := storage.InTx(r.Context(), s.db, func(tx *sql.Tx) error {
		task, err := s.tasks.Update(r.Context(), tx, user.ID, taskID, params)
		if err != nil {
			return err
		}
		updated = task
		return s.audit.Record(r.Context(), tx, &user.ID, audit.ActionTaskUpdated,
			fmt.Sprintf("Task %d updated", taskID))
	})
	if errors.Is(err, tasks.ErrNotFound) {
		httputil.WriteNotFound(w, taskNotFoundMessage)
		return
	}
	if err != nil {
		s.metrics.TaskOperationsTotal.WithLabelValues("update", "error").Inc()
		s.logger.WithError(err).WithField("user_id", user.ID).Error("task update failed")
		httputil.WriteInternalError(w)
		return
	}

	s.metrics.TaskOperationsTotal.WithLabelValues("update", "ok").Inc()
	httputil.WriteSuccess(w, updated)
}

// deleteTask handles DELETE /tasks/{id}
func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromRequest(r)
	taskID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	err := storage.InTx(r.Context(), s.db, func(tx *sql.Tx) error {
		if err := s.tasks.Delete(r.Context(), tx, user.ID, taskID); err != nil {
			return err
		}
		return s.audit.Record(r.Context(), tx, &user.ID, audit.ActionTaskDeleted,
			fmt.Sprintf("Task %d deleted", taskID))
	})
	if errors.Is(err, tasks.ErrNotFound) {
		httputil.WriteNotFound(w, taskNotFoundMessage)
		return
	}
	if err != nil {
		s.metrics.TaskOperationsTotal.WithLabelValues("delete", "error").Inc()
		s.logger.WithError(err).WithField("user_id", user.ID).Error("task delete failed")
		httputil.WriteInternalError(w)
		return
	}

	s.metrics.TaskOperationsTotal.WithLabelValues("delete", "ok").Inc()
	httputil.WriteSuccess(w, map[string]string{"message": "Task deleted"})
}
