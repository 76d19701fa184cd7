package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/pkg/authz"
	"github.com/taskhive/taskhive/pkg/observability"
	"github.com/taskhive/taskhive/pkg/users"
)

// ErrInvalidCredentials indicates a failed email/password check
var ErrInvalidCredentials = errors.New("invalid credentials")

// RegisterInput is the data needed to register a new account
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Service implements registration, login, and principal resolution
type Service struct {
	users   users.Store
	roles   authz.RoleStore
	tokens  *TokenManager
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewService creates an authentication service
func NewService(userStore users.Store, roleStore authz.RoleStore, tokens *TokenManager,
	logger *observability.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Service{
		users:   userStore,
		roles:   roleStore,
		tokens:  tokens,
		logger:  logger,
		metrics: metrics,
	}
}

// Register creates a new account with the default USER role
func (s *Service) Register(ctx context.Context, input RegisterInput) (*users.User, error) {
	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &users.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: hash,
		Roles:        []authz.RoleName{authz.RoleUser},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// Login verifies credentials and issues a signed session token. The
// returned user never carries the password hash.
func (s *Service) Login(ctx context.Context, email, password string) (string, *users.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.recordLogin("failure")
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		s.recordLogin("failure")
		return "", nil, ErrInvalidCredentials
	}

	perms, err := s.permissionsForRoles(ctx, user.Roles)
	if err != nil {
		return "", nil, err
	}
	permNames := make([]string, len(perms))
	for i, p := range perms {
		permNames[i] = string(p)
	}

	token, err := s.tokens.Issue(user, permNames)
	if err != nil {
		return "", nil, err
	}

	user.PasswordHash = ""
	s.recordLogin("success")
	s.logger.WithField("user_id", user.ID).Info("user logged in")
	return token, user, nil
}

// ResolvePrincipal turns a bearer token into the request's Principal. The
// subject and organization come from the persisted user record and the
// permission set is recomputed from live role state, so role changes take
// effect without waiting for token expiry.
func (s *Service) ResolvePrincipal(ctx context.Context, token string) (*authz.Principal, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	perms, err := s.permissionsForRoles(ctx, user.Roles)
	if err != nil {
		return nil, err
	}

	return &authz.Principal{
		ID:             user.ID,
		Email:          user.Email,
		OrganizationID: user.OrganizationID,
		Roles:          user.Roles,
		Permissions:    perms,
	}, nil
}

// permissionsForRoles computes the union of the persisted permission sets
// of the given roles, preserving first-seen order
func (s *Service) permissionsForRoles(ctx context.Context, roleNames []authz.RoleName) ([]authz.PermissionName, error) {
	if len(roleNames) == 0 {
		// accounts with no role fall back to the guest grant
		return authz.RolePermissions(""), nil
	}
	roles, err := s.roles.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	byName := make(map[authz.RoleName]authz.Role, len(roles))
	for _, r := range roles {
		byName[r.Name] = r
	}

	seen := make(map[authz.PermissionName]bool)
	var out []authz.PermissionName
	for _, name := range roleNames {
		role, ok := byName[name]
		if !ok {
			continue
		}
		for _, p := range role.Permissions {
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) recordLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}
