// Package audit records who changed what. Entries carry before/after
// snapshots encoded at capture time so later mutation of the live entity
// cannot rewrite history. A cron-scheduled retention job prunes old
// entries.
package audit
