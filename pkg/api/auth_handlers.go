package api

import (
	"errors"
	"net/http"

	"github.com/taskhive/taskhive/pkg/auth"
	"github.com/taskhive/taskhive/pkg/httputil"
	"github.com/taskhive/taskhive/pkg/users"
)

// handleRegister handles POST /auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "email and password are required")
		return
	}

	user, err := s.authService.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			httputil.WriteConflict(w, "email already registered")
			return
		}
		s.logger.WithError(err).Error("registration failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteCreated(w, user)
}

// handleLogin handles POST /auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	token, user, err := s.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			httputil.WriteUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.WithError(err).Error("login failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"access_token": token,
		"user":         user,
	})
}
