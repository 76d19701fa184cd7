package api

import (
	"errors"
	"net/http"

	"github.com/taskhive/taskhive/pkg/authz"
	"github.com/taskhive/taskhive/pkg/httputil"
	"github.com/taskhive/taskhive/pkg/middleware"
	"github.com/taskhive/taskhive/pkg/users"
)

// getProfile handles GET /users/me
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	user, err := s.userStore.GetByID(r.Context(), p.ID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			httputil.WriteNotFoundError(w, "user not found")
			return
		}
		s.logger.WithError(err).Error("profile lookup failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, user)
}

// listUsers handles GET /users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.userStore.List(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("user listing failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, list)
}

// setUserRoles handles PUT /users/{id}/roles
func (s *Server) setUserRoles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Roles []authz.RoleName `json:"roles"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	for _, role := range req.Roles {
		if !role.IsKnown() {
			httputil.WriteBadRequest(w, "unknown role: "+string(role))
			return
		}
	}

	userID := httputil.PathVar(r, "id")
	if err := s.userStore.SetRoles(r.Context(), userID, req.Roles); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			httputil.WriteNotFoundError(w, "user not found")
			return
		}
		s.logger.WithError(err).Error("role assignment failed")
		httputil.WriteInternalError(w)
		return
	}

	user, err := s.userStore.GetByID(r.Context(), userID)
	if err != nil {
		s.logger.WithError(err).Error("user reload failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, user)
}
