// Package middleware provides the HTTP request plumbing: bearer-token
// authentication, the per-route authorization guard, and a Redis-backed
// rate limiter for the credential endpoints.
package middleware
