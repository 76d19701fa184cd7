// Package api provides the HTTP REST API for the TaskHive service.
//
// # Overview
//
// The API is built on gorilla/mux and organized into domain-specific
// handler groups:
//
//   - Authentication: registration and login with rate-limited credential
//     endpoints
//   - Tasks: role-scoped CRUD over the task collection
//   - Organizations: hierarchy management and user membership
//   - Users: profile access and role assignment
//   - Audit: operator access to the change history
//
// # Access control
//
// Every route declares its requirement at registration time: either a set
// of roles (any one admits) or a set of permissions (all are needed). The
// guard middleware enforces the requirement before the handler runs;
// record-level scoping happens inside the services.
package api
