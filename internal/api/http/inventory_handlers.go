package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	appInventory "github.com/gemdesk/gemdesk/internal/application/inventory"
	"github.com/gemdesk/gemdesk/internal/domain/account"
	"github.com/gemdesk/gemdesk/internal/domain/stone"
	"github.com/gemdesk/gemdesk/internal/store"
)

func (s *Server) listStones(w http.ResponseWriter, r *http.Request) {
	view, err := s.inventorySvc.Combined(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) getStone(w http.ResponseWriter, r *http.Request) {
	stockID := chi.URLParam(r, "stockId")
	st, err := s.inventorySvc.GetStone(r.Context(), stockID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if st == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "stone not found")
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) searchStones(w http.ResponseWriter, r *http.Request) {
	q := appInventory.SearchQuery{
		Filter:        r.URL.Query().Get("q"),
		AvailableOnly: r.URL.Query().Get("available") == "true",
		Limit:         parseLimit(r, 100, 500),
	}
	stones, err := s.inventorySvc.Search(r.Context(), q)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"stones": stones})
}

type replaceShardRequest struct {
	Rows []stone.Row `json:"rows"`
}

// replaceShard uploads a supplier's full inventory. Suppliers may only
// replace their own shard; admins may replace any.
func (s *Server) replaceShard(w http.ResponseWriter, r *http.Request) {
	supplier := stone.NormalizeSupplier(chi.URLParam(r, "supplier"))
	auth := authUserFromContext(r.Context())
	if auth == nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth")
		return
	}
	if auth.Role == account.RoleSupplier && auth.Username != supplier {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "suppliers may only replace their own inventory")
		return
	}

	var req replaceShardRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	report, err := s.inventorySvc.ReplaceShard(r.Context(), supplier, req.Rows)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if !report.OK() {
		// The upload was rejected whole; nothing changed.
		respondJSON(w, http.StatusUnprocessableEntity, report)
		return
	}
	s.activitySvc.Record(r.Context(), auth.Username, "inventory.replace_shard", map[string]interface{}{
		"supplier": supplier,
		"rows":     report.Rows,
	})
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) getShard(w http.ResponseWriter, r *http.Request) {
	supplier := stone.NormalizeSupplier(chi.URLParam(r, "supplier"))
	auth := authUserFromContext(r.Context())
	if auth != nil && auth.Role == account.RoleSupplier && auth.Username != supplier {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "suppliers may only view their own inventory")
		return
	}
	shard, err := s.inventorySvc.Shard(r.Context(), supplier)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "shard not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, shard)
}

func (s *Server) deleteShard(w http.ResponseWriter, r *http.Request) {
	supplier := stone.NormalizeSupplier(chi.URLParam(r, "supplier"))
	if strings.TrimSpace(supplier) == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "supplier required")
		return
	}
	if err := s.inventorySvc.DeleteShard(r.Context(), supplier); err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if auth := authUserFromContext(r.Context()); auth != nil {
		s.activitySvc.Record(r.Context(), auth.Username, "inventory.delete_shard", map[string]interface{}{
			"supplier": supplier,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"supplier": supplier, "status": "DELETED"})
}

func (s *Server) rebuildCombined(w http.ResponseWriter, r *http.Request) {
	if err := s.inventorySvc.Rebuild(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "REBUILT"})
}
