// Package orgs manages the organization hierarchy: a rooted forest linked
// by parent references. The Resolver computes the descendant closure of an
// organization (itself plus all transitive descendants), which is the unit
// of visibility for hierarchy-scoped roles.
package orgs
