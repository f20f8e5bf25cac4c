package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	appDeal "github.com/gemdesk/gemdesk/internal/application/deal"
	"github.com/gemdesk/gemdesk/internal/domain/account"
	domainDeal "github.com/gemdesk/gemdesk/internal/domain/deal"
)

type createDealRequest struct {
	StockID    string `json:"stock_id"`
	OfferPrice string `json:"offer_price"`
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

type batchDecisionRequest struct {
	Items []struct {
		DealID   string `json:"deal_id"`
		Decision string `json:"decision"`
	} `json:"items"`
}

func (s *Server) createDeal(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth == nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth")
		return
	}
	var req createDealRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	offer, err := decimal.NewFromString(req.OfferPrice)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid offer_price")
		return
	}
	d, err := s.dealSvc.CreateDeal(r.Context(), req.StockID, auth.Username, offer)
	if err != nil {
		if errors.Is(err, domainDeal.ErrStoneUnavailable) {
			respondError(w, http.StatusConflict, "STONE_UNAVAILABLE", err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// listDeals scopes the listing to the caller: suppliers see their own deals,
// clients theirs, admins everything.
func (s *Server) listDeals(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth == nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth")
		return
	}
	filter := appDeal.ListFilter{}
	switch auth.Role {
	case account.RoleSupplier:
		filter.Supplier = auth.Username
	case account.RoleClient:
		filter.Client = auth.Username
	}
	deals, err := s.dealSvc.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deals": deals})
}

func (s *Server) getDeal(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth == nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth")
		return
	}
	d, err := s.dealSvc.Get(r.Context(), chi.URLParam(r, "dealId"))
	if err != nil {
		if errors.Is(err, domainDeal.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if !auth.IsAdmin() && d.Supplier != auth.Username && d.Client != auth.Username {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "not a participant in this deal")
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) supplierDecision(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth == nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth")
		return
	}
	var req decisionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	decision, err := domainDeal.ParseDecision(req.Decision)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	d, err := s.dealSvc.SupplierRespond(r.Context(), chi.URLParam(r, "dealId"), auth.Username, decision)
	if err != nil {
		respondDealError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) adminDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	decision, err := domainDeal.ParseDecision(req.Decision)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	d, err := s.dealSvc.AdminRespond(r.Context(), chi.URLParam(r, "dealId"), decision)
	if err != nil {
		respondDealError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) supplierDecisionBatch(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth == nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth")
		return
	}
	items, ok := decodeBatch(w, r)
	if !ok {
		return
	}
	results := s.dealSvc.SupplierRespondBatch(r.Context(), auth.Username, items)
	respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) adminDecisionBatch(w http.ResponseWriter, r *http.Request) {
	items, ok := decodeBatch(w, r)
	if !ok {
		return
	}
	results := s.dealSvc.AdminRespondBatch(r.Context(), items)
	respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) dealHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.dealSvc.History(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"history": entries})
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.dealSvc.SupplierLeaderboard(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": rows})
}

func decodeBatch(w http.ResponseWriter, r *http.Request) ([]appDeal.BatchItem, bool) {
	var req batchDecisionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return nil, false
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "items required")
		return nil, false
	}
	items := make([]appDeal.BatchItem, 0, len(req.Items))
	for _, item := range req.Items {
		decision, err := domainDeal.ParseDecision(item.Decision)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid decision for deal "+item.DealID)
			return nil, false
		}
		items = append(items, appDeal.BatchItem{DealID: item.DealID, Decision: decision})
	}
	return items, true
}

func respondDealError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainDeal.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domainDeal.ErrNotOwner):
		respondError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, domainDeal.ErrAlreadyFinal), errors.Is(err, domainDeal.ErrInvalidPrecondition):
		respondError(w, http.StatusConflict, "INVALID_STATE", err.Error())
	default:
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
	}
}
