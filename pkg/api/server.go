package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/taskhive/taskhive/pkg/audit"
	"github.com/taskhive/taskhive/pkg/auth"
	"github.com/taskhive/taskhive/pkg/authz"
	"github.com/taskhive/taskhive/pkg/httputil"
	"github.com/taskhive/taskhive/pkg/middleware"
	"github.com/taskhive/taskhive/pkg/observability"
	"github.com/taskhive/taskhive/pkg/orgs"
	"github.com/taskhive/taskhive/pkg/tasks"
	"github.com/taskhive/taskhive/pkg/users"
)

// Config holds the server's listen and timeout settings
type Config struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP API. Routes declare their access requirement up
// front and the guard middleware enforces it before the handler runs.
type Server struct {
	router *mux.Router
	logger *observability.Logger

	authService  *auth.Service
	taskService  *tasks.Service
	orgService   *orgs.Service
	userStore    users.Store
	auditStore   audit.Store
	guard        *middleware.Guard
	authMW       *middleware.AuthMiddleware
	loginLimiter *middleware.RateLimiter
	health       *observability.HealthChecker
	metrics      *observability.Metrics

	httpServer *http.Server
}

// Deps carries everything the server needs; nil metrics, health and
// loginLimiter are allowed.
type Deps struct {
	AuthService  *auth.Service
	TaskService  *tasks.Service
	OrgService   *orgs.Service
	UserStore    users.Store
	AuditStore   audit.Store
	LoginLimiter *middleware.RateLimiter
	Health       *observability.HealthChecker
	Metrics      *observability.Metrics
	Logger       *observability.Logger
}

// NewServer creates the API server and wires up all routes
func NewServer(cfg Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	s := &Server{
		router:       mux.NewRouter(),
		logger:       logger,
		authService:  deps.AuthService,
		taskService:  deps.TaskService,
		orgService:   deps.OrgService,
		userStore:    deps.UserStore,
		auditStore:   deps.AuditStore,
		guard:        middleware.NewGuard(deps.Metrics),
		authMW:       middleware.NewAuthMiddleware(deps.AuthService, true, logger),
		loginLimiter: deps.LoginLimiter,
		health:       deps.Health,
		metrics:      deps.Metrics,
	}

	s.setupRoutes()

	handler := http.Handler(s.router)
	handler = s.authMW.Handler(handler)
	if s.metrics != nil {
		handler = s.metrics.HTTPMiddleware(handler)
	}
	handler = httputil.LoggingMiddleware(logger)(handler)
	handler = httputil.RecoveryMiddleware(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// setupRoutes configures all API routes with their access requirements
func (s *Server) setupRoutes() {
	// Credential endpoints are open but throttled
	register := http.Handler(http.HandlerFunc(s.handleRegister))
	login := http.Handler(http.HandlerFunc(s.handleLogin))
	if s.loginLimiter != nil {
		register = s.loginLimiter.Handler(register)
		login = s.loginLimiter.Handler(login)
	}
	s.router.Handle("/auth/register", register).Methods("POST")
	s.router.Handle("/auth/login", login).Methods("POST")

	// Task routes: collection access is permission-gated, single-task
	// access is role-gated and further narrowed inside the service
	s.handle("/tasks", "POST", s.createTask, authz.RequirePermissions(authz.PermCreateTask))
	s.handle("/tasks", "GET", s.listTasks, authz.RequirePermissions(authz.PermReadTask))
	s.handle("/tasks/{id}", "GET", s.getTask, authz.RequireRoles(authz.RoleAdmin, authz.RoleOwner, authz.RoleUser))
	s.handle("/tasks/{id}", "PATCH", s.updateTask, authz.RequireRoles(authz.RoleAdmin, authz.RoleOwner, authz.RoleUser))
	s.handle("/tasks/{id}", "DELETE", s.deleteTask, authz.RequireRoles(authz.RoleAdmin, authz.RoleOwner, authz.RoleUser))

	// Organization routes
	s.handle("/organizations", "GET", s.listOrganizations, authz.RequirePermissions(authz.PermReadOrganization))
	s.handle("/organizations", "POST", s.createOrganization, authz.RequirePermissions(authz.PermCreateOrganization))
	s.handle("/organizations/{id}", "GET", s.getOrganization, authz.RequirePermissions(authz.PermReadOrganization))
	s.handle("/organizations/{id}/users", "POST", s.addOrganizationUser, authz.RequirePermissions(authz.PermUpdateOrganization))
	s.handle("/organizations/{id}/parent", "PUT", s.setOrganizationParent, authz.RequirePermissions(authz.PermUpdateOrganization))

	// User routes
	s.handle("/users/me", "GET", s.getProfile, authz.RequirePermissions(authz.PermReadOwnProfile))
	s.handle("/users", "GET", s.listUsers, authz.RequirePermissions(authz.PermReadUser))
	s.handle("/users/{id}/roles", "PUT", s.setUserRoles, authz.RequirePermissions(authz.PermAssignRoles))

	// Audit log access is for operators only
	s.handle("/auditlogs", "GET", s.listAuditLogs, authz.RequireRoles(authz.RoleAdmin, authz.RoleOwner))

	if s.health != nil {
		s.router.HandleFunc("/healthz", s.health.Liveness).Methods("GET")
		s.router.HandleFunc("/readyz", s.health.Readiness).Methods("GET")
	} else {
		s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	}
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
}

// handle registers a route behind the guard
func (s *Server) handle(path, method string, h http.HandlerFunc, req authz.Requirement) {
	s.router.Handle(path, s.guard.Require(req)(h)).Methods(method)
}

// ServeHTTP implements http.Handler; exported for handler tests
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// Start begins serving; it blocks until the listener fails or is closed
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}
