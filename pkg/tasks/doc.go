// Package tasks implements role-scoped task management. Reads and writes
// are evaluated against the caller's effective role: on listings OWNER
// sees the whole organization subtree, ADMIN exactly their own
// organization, USER only their assigned tasks. Single-task operations
// check the scope per record, except OWNER, whose point access is
// organization-agnostic. Every mutation lands in the audit trail with
// before/after snapshots.
package tasks
