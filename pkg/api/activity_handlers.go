package api

import (
	"net/http"

	"github.com/taskforge/taskforge/pkg/httputil"
	"github.com/taskforge/taskforge/pkg/middleware"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// listActivity handles GET /activity, returning the caller's own audit
// trail newest first.
func (s *Server) listActivity(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromRequest(r)

	limit, err := httputil.ParseQueryInt(r, "limit", defaultActivityLimit)
	if err != nil || limit < 1 {
		httputil.WriteBadRequest(w, "invalid limit")
		return
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		httputil.WriteBadRequest(w, "invalid offset")
		return
	}

	entries, err := s.activity.ListByUser(r.Context(), user.ID, limit, offset)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("activity list failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"activity": entries})
}
