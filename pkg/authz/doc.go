// Package authz holds the role/permission catalog and the request-time
// authorization guard.
//
// The catalog is a closed enumeration of roles (OWNER, ADMIN, USER) and
// permissions with an authoritative role-to-permission table. A Seeder
// reconciles the persisted catalog with that table at startup without ever
// removing grants. The guard is a pure decision function over a route's
// declared Requirement and the request's Principal: role requirements match
// if any required role is held, permission requirements only if every
// required permission is held.
package authz
