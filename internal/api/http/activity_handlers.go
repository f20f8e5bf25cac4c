package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listActivity(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth == nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth")
		return
	}
	actor := chi.URLParam(r, "actor")
	if actor != auth.Username && !auth.IsAdmin() {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "cannot read another user's activity")
		return
	}
	entries, err := s.activitySvc.List(r.Context(), actor)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"activity": entries})
}
