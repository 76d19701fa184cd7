package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/pkg/audit"
	"github.com/taskhive/taskhive/pkg/auth"
	"github.com/taskhive/taskhive/pkg/authz"
	"github.com/taskhive/taskhive/pkg/orgs"
	"github.com/taskhive/taskhive/pkg/tasks"
	"github.com/taskhive/taskhive/pkg/users"
)

// In-memory stores backing the end-to-end handler tests.

type memUserStore struct {
	mu   sync.Mutex
	byID map[string]*users.User
}

func (m *memUserStore) GetByID(ctx context.Context, id string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memUserStore) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, users.ErrNotFound
}

func (m *memUserStore) Create(ctx context.Context, u *users.User) error {
	if _, err := m.GetByEmail(ctx, u.Email); err == nil {
		return users.ErrEmailTaken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *u
	m.byID[u.ID] = &copied
	return nil
}

func (m *memUserStore) SetOrganization(ctx context.Context, userID, orgID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return users.ErrNotFound
	}
	u.OrganizationID = orgID
	return nil
}

func (m *memUserStore) SetRoles(ctx context.Context, userID string, roles []authz.RoleName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return users.ErrNotFound
	}
	u.Roles = roles
	return nil
}

func (m *memUserStore) List(ctx context.Context) ([]users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []users.User{}
	for _, u := range m.byID {
		out = append(out, *u)
	}
	return out, nil
}

type memRoleStore struct{}

func (memRoleStore) ListRoles(ctx context.Context) ([]authz.Role, error) {
	var roles []authz.Role
	for _, name := range authz.KnownRoles() {
		roles = append(roles, authz.Role{
			ID:          string(name),
			Name:        name,
			Permissions: authz.RolePermissions(name),
		})
	}
	return roles, nil
}

func (memRoleStore) CreateRole(ctx context.Context, role *authz.Role) error { return nil }
func (memRoleStore) GrantPermission(ctx context.Context, roleID, permissionID string) error {
	return nil
}

type memOrgStore struct {
	mu   sync.Mutex
	orgs []orgs.Organization
}

func (m *memOrgStore) List(ctx context.Context) ([]orgs.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]orgs.Organization(nil), m.orgs...), nil
}

func (m *memOrgStore) Get(ctx context.Context, id string) (*orgs.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orgs {
		if m.orgs[i].ID == id {
			copied := m.orgs[i]
			return &copied, nil
		}
	}
	return nil, orgs.ErrNotFound
}

func (m *memOrgStore) Create(ctx context.Context, org *orgs.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orgs = append(m.orgs, *org)
	return nil
}

func (m *memOrgStore) SetParent(ctx context.Context, id, parentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orgs {
		if m.orgs[i].ID == id {
			m.orgs[i].ParentID = parentID
			return nil
		}
	}
	return orgs.ErrNotFound
}

type memTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*tasks.Task
}

func (m *memTaskStore) Get(ctx context.Context, id string) (*tasks.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, tasks.ErrNotFound
	}
	copied := *task
	return &copied, nil
}

func (m *memTaskStore) Create(ctx context.Context, task *tasks.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *memTaskStore) Update(ctx context.Context, task *tasks.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; !ok {
		return tasks.ErrNotFound
	}
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *memTaskStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return tasks.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memTaskStore) List(ctx context.Context, q tasks.Query) ([]tasks.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ScopeNone {
		return []tasks.Task{}, nil
	}
	out := []tasks.Task{}
	for _, t := range m.tasks {
		switch {
		case q.ScopeOrgIDs != nil:
			found := false
			for _, id := range q.ScopeOrgIDs {
				if t.OrganizationID == id {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		case q.ScopeOrgID != "":
			if t.OrganizationID != q.ScopeOrgID {
				continue
			}
		case q.ScopeAssigneeID != "":
			if t.AssigneeID != q.ScopeAssigneeID {
				continue
			}
		}
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if q.AssigneeID != "" && t.AssigneeID != q.AssigneeID {
			continue
		}
		if q.CreatorID != "" && t.CreatorID != q.CreatorID {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(q.Search)) {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

type memAuditStore struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (m *memAuditStore) Record(ctx context.Context, entry *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memAuditStore) List(ctx context.Context, filter audit.Filter) ([]*audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*audit.Entry{}
	for _, e := range m.entries {
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memAuditStore) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

type testEnv struct {
	server *Server
	users  *memUserStore
	audit  *memAuditStore
}

// newTestEnv wires a full in-memory server with the organization tree
//
//	root -> childA -> childB
//
// and one seeded account per role, all with password "pw".
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	userStore := &memUserStore{byID: make(map[string]*users.User)}
	orgStore := &memOrgStore{orgs: []orgs.Organization{
		{ID: "root", Name: "Root", Level: 1},
		{ID: "childA", Name: "Child A", ParentID: "root", Level: 2},
		{ID: "childB", Name: "Child B", ParentID: "childA", Level: 3},
	}}
	taskStore := &memTaskStore{tasks: make(map[string]*tasks.Task)}
	auditStore := &memAuditStore{}

	hash, err := auth.HashPassword("pw")
	require.NoError(t, err)
	seed := func(id, email, orgID string, roles ...authz.RoleName) {
		userStore.byID[id] = &users.User{
			ID: id, Email: email, PasswordHash: hash,
			OrganizationID: orgID, Roles: roles,
		}
	}
	seed("u-owner", "owner@example.com", "root", authz.RoleOwner)
	seed("u-admin", "admin@example.com", "childA", authz.RoleAdmin)
	seed("u-member", "member@example.com", "childB", authz.RoleUser)
	seed("u-guest", "guest@example.com", "childB")

	tm, err := auth.NewTokenManager([]byte("test-secret"), "taskhive-test", time.Hour)
	require.NoError(t, err)
	authService := auth.NewService(userStore, memRoleStore{}, tm, nil, nil)

	resolver, err := orgs.NewResolver(orgStore, nil, nil)
	require.NoError(t, err)
	orgService := orgs.NewService(orgStore, userStore, resolver, nil)
	taskService := tasks.NewService(taskStore, userStore, resolver, auditStore, tasks.ServiceConfig{}, nil)

	server := NewServer(Config{Host: "127.0.0.1", Port: "0"}, Deps{
		AuthService: authService,
		TaskService: taskService,
		OrgService:  orgService,
		UserStore:   userStore,
		AuditStore:  auditStore,
	})

	return &testEnv{server: server, users: userStore, audit: auditStore}
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/login",
		fmt.Sprintf(`{"email":%q,"password":"pw"}`, email), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("register", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/register",
			`{"email":"new@example.com","password":"pw","firstName":"New"}`, "")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/register",
			`{"email":"owner@example.com","password":"pw"}`, "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/register", `{"email":"x@example.com"}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("login issues a token", func(t *testing.T) {
		token := env.login(t, "owner@example.com")
		assert.NotEmpty(t, token)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/login",
			`{"email":"owner@example.com","password":"wrong"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRouteGuards(t *testing.T) {
	env := newTestEnv(t)
	member := env.login(t, "member@example.com")
	owner := env.login(t, "owner@example.com")
	guest := env.login(t, "guest@example.com")

	t.Run("unauthenticated listing is rejected", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/tasks", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("audit log is operator only", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/auditlogs", "", member)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(t, http.MethodGet, "/auditlogs", "", owner)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("roleless account keeps profile access only", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/users/me", "", guest)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "guest@example.com")

		rec = env.do(t, http.MethodGet, "/tasks", "", guest)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("organization creation needs the permission", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/organizations", `{"name":"New Org"}`, member)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(t, http.MethodPost, "/organizations", `{"name":"New Org"}`, owner)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	owner := env.login(t, "owner@example.com")
	member := env.login(t, "member@example.com")

	// Owner in root creates a task for a member two levels down
	rec := env.do(t, http.MethodPost, "/tasks",
		`{"title":"ship the release","assigneeId":"u-member"}`, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created tasks.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "childB", created.OrganizationID)
	assert.Equal(t, tasks.StatusTodo, created.Status)

	t.Run("member creation is forbidden despite the permission", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/tasks",
			`{"title":"sneaky","assigneeId":"u-member"}`, member)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("member sees their assignment", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/tasks", "", member)
		require.Equal(t, http.StatusOK, rec.Code)

		var list []tasks.Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		require.Len(t, list, 1)
		assert.Equal(t, created.ID, list[0].ID)
	})

	t.Run("member updates the task", func(t *testing.T) {
		rec := env.do(t, http.MethodPatch, "/tasks/"+created.ID,
			`{"status":"IN_PROGRESS"}`, member)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated tasks.Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, tasks.StatusInProgress, updated.Status)
	})

	t.Run("mutations are audited", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/auditlogs?entityType=Task", "", owner)
		require.Equal(t, http.StatusOK, rec.Code)

		var entries []audit.Entry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
		require.GreaterOrEqual(t, len(entries), 2)
	})

	t.Run("owner deletes the task", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/tasks/"+created.ID, "", owner)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(t, http.MethodGet, "/tasks/"+created.ID, "", owner)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestOrganizationEndpoints(t *testing.T) {
	env := newTestEnv(t)
	owner := env.login(t, "owner@example.com")

	t.Run("listing", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/organizations", "", owner)
		require.Equal(t, http.StatusOK, rec.Code)

		var list []orgs.Organization
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		assert.Len(t, list, 3)
	})

	t.Run("create child organization", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/organizations",
			`{"name":"Child C","parentId":"root"}`, owner)
		require.Equal(t, http.StatusCreated, rec.Code)

		var org orgs.Organization
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &org))
		assert.Equal(t, "root", org.ParentID)
		assert.Equal(t, 2, org.Level)
	})

	t.Run("unknown parent is a bad request", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/organizations",
			`{"name":"Orphan","parentId":"ghost"}`, owner)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("re-parent organization", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/organizations/childB/parent",
			`{"parentId":"root"}`, owner)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var org orgs.Organization
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &org))
		assert.Equal(t, "root", org.ParentID)

		rec = env.do(t, http.MethodPut, "/organizations/ghost/parent",
			`{"parentId":"root"}`, owner)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.do(t, http.MethodPut, "/organizations/childB/parent",
			`{"parentId":"ghost"}`, owner)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("add user to organization", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/organizations/childA/users",
			`{"userId":"u-member"}`, owner)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		moved, err := env.users.GetByID(context.Background(), "u-member")
		require.NoError(t, err)
		assert.Equal(t, "childA", moved.OrganizationID)
	})

	t.Run("role assignment validates role names", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/users/u-member/roles",
			`{"roles":["SUPERHERO"]}`, owner)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(t, http.MethodPut, "/users/u-member/roles",
			`{"roles":["ADMIN"]}`, owner)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "ADMIN")
	})
}
