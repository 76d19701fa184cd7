// Package auth implements credential and session primitives: bcrypt
// password hashing, HS256 session tokens, registration/login, and the
// per-request resolution of a bearer token into an authz.Principal.
package auth
