package api

import (
	"errors"
	"net/http"

	"github.com/taskhive/taskhive/pkg/httputil"
	"github.com/taskhive/taskhive/pkg/orgs"
	"github.com/taskhive/taskhive/pkg/users"
)

// listOrganizations handles GET /organizations
func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	list, err := s.orgService.List(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("organization listing failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, list)
}

// getOrganization handles GET /organizations/{id}
func (s *Server) getOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := s.orgService.Get(r.Context(), httputil.PathVar(r, "id"))
	if err != nil {
		if errors.Is(err, orgs.ErrNotFound) {
			httputil.WriteNotFoundError(w, "organization not found")
			return
		}
		s.logger.WithError(err).Error("organization lookup failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, org)
}

// createOrganization handles POST /organizations
func (s *Server) createOrganization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ParentID    string `json:"parentId"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	org, err := s.orgService.Create(r.Context(), req.Name, req.Description, req.ParentID)
	if err != nil {
		if errors.Is(err, orgs.ErrNotFound) {
			httputil.WriteBadRequest(w, "parent organization not found")
			return
		}
		s.logger.WithError(err).Error("organization creation failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteCreated(w, org)
}

// setOrganizationParent handles PUT /organizations/{id}/parent
func (s *Server) setOrganizationParent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParentID string `json:"parentId"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	id := httputil.PathVar(r, "id")
	if req.ParentID != "" {
		if _, err := s.orgService.Get(r.Context(), req.ParentID); err != nil {
			if errors.Is(err, orgs.ErrNotFound) {
				httputil.WriteBadRequest(w, "parent organization not found")
				return
			}
			s.logger.WithError(err).Error("parent lookup failed")
			httputil.WriteInternalError(w)
			return
		}
	}

	if err := s.orgService.SetParent(r.Context(), id, req.ParentID); err != nil {
		if errors.Is(err, orgs.ErrNotFound) {
			httputil.WriteNotFoundError(w, "organization not found")
			return
		}
		s.logger.WithError(err).Error("re-parenting failed")
		httputil.WriteInternalError(w)
		return
	}

	org, err := s.orgService.Get(r.Context(), id)
	if err != nil {
		s.logger.WithError(err).Error("organization reload failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, org)
}

// addOrganizationUser handles POST /organizations/{id}/users
func (s *Server) addOrganizationUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID == "" {
		httputil.WriteBadRequest(w, "userId is required")
		return
	}

	user, err := s.orgService.AddUser(r.Context(), httputil.PathVar(r, "id"), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, orgs.ErrNotFound):
			httputil.WriteNotFoundError(w, "organization not found")
		case errors.Is(err, users.ErrNotFound):
			httputil.WriteNotFoundError(w, "user not found")
		default:
			s.logger.WithError(err).Error("adding user to organization failed")
			httputil.WriteInternalError(w)
		}
		return
	}
	httputil.WriteSuccess(w, user)
}
