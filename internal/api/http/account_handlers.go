package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gemdesk/gemdesk/internal/domain/account"
)

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accountSvc.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts})
}

func (s *Server) listPendingAccounts(w http.ResponseWriter, r *http.Request) {
	pending, err := s.accountSvc.ListPending(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"accounts": pending})
}

func (s *Server) approveAccount(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	a, err := s.accountSvc.Approve(r.Context(), username)
	if err != nil {
		if err == account.ErrNotFound {
			respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if auth := authUserFromContext(r.Context()); auth != nil {
		s.activitySvc.Record(r.Context(), auth.Username, "account.approve", map[string]interface{}{
			"username": a.Username,
		})
	}
	respondJSON(w, http.StatusOK, a)
}

func (s *Server) rejectAccount(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if err := s.accountSvc.Reject(r.Context(), username); err != nil {
		if err == account.ErrNotFound {
			respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if auth := authUserFromContext(r.Context()); auth != nil {
		s.activitySvc.Record(r.Context(), auth.Username, "account.reject", map[string]interface{}{
			"username": username,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "REJECTED"})
}
