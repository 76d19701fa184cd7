package api

import (
	"errors"
	"net/http"

	"github.com/taskhive/taskhive/pkg/httputil"
	"github.com/taskhive/taskhive/pkg/middleware"
	"github.com/taskhive/taskhive/pkg/tasks"
)

// writeTaskError maps the task error taxonomy onto HTTP statuses
func (s *Server) writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tasks.ErrNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	case errors.Is(err, tasks.ErrAccessDenied), errors.Is(err, tasks.ErrForbidden):
		httputil.WriteForbidden(w, err.Error())
	case errors.Is(err, tasks.ErrBadRequest):
		httputil.WriteBadRequest(w, err.Error())
	default:
		s.logger.WithError(err).Error("task operation failed")
		httputil.WriteInternalError(w)
	}
}

// createTask handles POST /tasks
func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var input tasks.CreateTaskInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	p := middleware.PrincipalFromContext(r.Context())
	task, err := s.taskService.Create(r.Context(), input, p)
	if err != nil {
		s.writeTaskError(w, err)
		return
	}
	httputil.WriteCreated(w, task)
}

// listTasks handles GET /tasks
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	filter := tasks.Filter{
		Status:     tasks.TaskStatus(httputil.ParseQueryString(r, "status", "")),
		Search:     httputil.ParseQueryString(r, "search", ""),
		CreatorID:  httputil.ParseQueryString(r, "creatorId", ""),
		AssigneeID: httputil.ParseQueryString(r, "assigneeId", ""),
	}

	p := middleware.PrincipalFromContext(r.Context())
	list, err := s.taskService.List(r.Context(), filter, p)
	if err != nil {
		s.writeTaskError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// getTask handles GET /tasks/{id}
func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	task, err := s.taskService.Get(r.Context(), httputil.PathVar(r, "id"), p)
	if err != nil {
		s.writeTaskError(w, err)
		return
	}
	httputil.WriteSuccess(w, task)
}

// updateTask handles PATCH /tasks/{id}
func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var patch tasks.UpdateTaskPatch
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}

	p := middleware.PrincipalFromContext(r.Context())
	task, err := s.taskService.Update(r.Context(), httputil.PathVar(r, "id"), patch, p)
	if err != nil {
		s.writeTaskError(w, err)
		return
	}
	httputil.WriteSuccess(w, task)
}

// deleteTask handles DELETE /tasks/{id}
func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if err := s.taskService.Delete(r.Context(), httputil.PathVar(r, "id"), p); err != nil {
		s.writeTaskError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
