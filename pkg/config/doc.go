// Package config loads application configuration from environment
// variables with sensible defaults.
//
// Server settings:
//
//	TASKHIVE_HOST="0.0.0.0"
//	TASKHIVE_PORT="8080"
//	TASKHIVE_READ_TIMEOUT="15s"
//	TASKHIVE_WRITE_TIMEOUT="15s"
//	TASKHIVE_SHUTDOWN_TIMEOUT="30s"
//
// Storage settings:
//
//	TASKHIVE_POSTGRES_URL="postgres://localhost/taskhive"   # required
//	TASKHIVE_POSTGRES_MAX_CONNS="25"
//	TASKHIVE_REDIS_ADDR="localhost:6379"                    # optional, login throttling
//
// Auth settings:
//
//	TASKHIVE_TOKEN_SECRET="..."                             # required
//	TASKHIVE_TOKEN_ISSUER="taskhive"
//	TASKHIVE_TOKEN_TTL="1h"
//	TASKHIVE_LOGIN_RATE_LIMIT="10"
//	TASKHIVE_LOGIN_RATE_WINDOW="1m"
//	TASKHIVE_RESTRICT_ADMIN_ASSIGNMENT="false"
//
// Audit settings:
//
//	TASKHIVE_AUDIT_RETENTION_DAYS="90"
//	TASKHIVE_AUDIT_CLEANUP_SCHEDULE="0 3 * * *"
//
// Observability settings:
//
//	TASKHIVE_LOG_LEVEL="info"  # debug, info, warn, error
//	TASKHIVE_METRICS_ENABLED="true"
package config
