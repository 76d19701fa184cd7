package api

import (
	"net/http"

	"github.com/taskhive/taskhive/pkg/audit"
	"github.com/taskhive/taskhive/pkg/httputil"
)

// listAuditLogs handles GET /auditlogs
func (s *Server) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	filter := audit.Filter{
		EntityType: httputil.ParseQueryString(r, "entityType", ""),
		EntityID:   httputil.ParseQueryString(r, "entityId", ""),
		UserID:     httputil.ParseQueryString(r, "userId", ""),
		Limit:      httputil.ParseQueryInt(r, "limit", 0),
	}

	entries, err := s.auditStore.List(r.Context(), filter)
	if err != nil {
		s.logger.WithError(err).Error("audit log listing failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, entries)
}
