// Package httpapi exposes the marketplace over REST.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	appAccount "github.com/gemdesk/gemdesk/internal/application/account"
	appActivity "github.com/gemdesk/gemdesk/internal/application/activity"
	appAuth "github.com/gemdesk/gemdesk/internal/application/auth"
	appDeal "github.com/gemdesk/gemdesk/internal/application/deal"
	appInventory "github.com/gemdesk/gemdesk/internal/application/inventory"
	appNotify "github.com/gemdesk/gemdesk/internal/application/notify"
	"github.com/gemdesk/gemdesk/internal/domain/account"
	"github.com/gemdesk/gemdesk/internal/infrastructure/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	inventorySvc *appInventory.Service
	dealSvc      *appDeal.Service
	accountSvc   *appAccount.Service
	authSvc      *appAuth.Service
	notifySvc    *appNotify.Service
	activitySvc  *appActivity.Service
	sseHub       *sse.Hub

	sessionCookieName   string
	sessionCookieSecure bool
}

func NewServer(
	inventorySvc *appInventory.Service,
	dealSvc *appDeal.Service,
	accountSvc *appAccount.Service,
	authSvc *appAuth.Service,
	notifySvc *appNotify.Service,
	activitySvc *appActivity.Service,
	sseHub *sse.Hub,
	sessionCookieName string,
	sessionCookieSecure bool,
) *Server {
	return &Server{
		inventorySvc:        inventorySvc,
		dealSvc:             dealSvc,
		accountSvc:          accountSvc,
		authSvc:             authSvc,
		notifySvc:           notifySvc,
		activitySvc:         activitySvc,
		sseHub:              sseHub,
		sessionCookieName:   sessionCookieName,
		sessionCookieSecure: sessionCookieSecure,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.logout)
				r.Get("/me", s.me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Route("/accounts", func(r chi.Router) {
				r.Use(s.requireRole(string(account.RoleAdmin)))
				r.Get("/", s.listAccounts)
				r.Get("/pending", s.listPendingAccounts)
				r.Post("/{username}/approve", s.approveAccount)
				r.Post("/{username}/reject", s.rejectAccount)
			})

			r.Route("/stones", func(r chi.Router) {
				r.Get("/", s.listStones)
				r.Get("/search", s.searchStones)
				r.Get("/{stockId}", s.getStone)
			})

			r.Route("/shards", func(r chi.Router) {
				r.With(s.requireRole(string(account.RoleAdmin), string(account.RoleSupplier))).
					Put("/{supplier}", s.replaceShard)
				r.With(s.requireRole(string(account.RoleAdmin), string(account.RoleSupplier))).
					Get("/{supplier}", s.getShard)
				r.With(s.requireRole(string(account.RoleAdmin))).
					Delete("/{supplier}", s.deleteShard)
				r.With(s.requireRole(string(account.RoleAdmin))).
					Post("/rebuild", s.rebuildCombined)
			})

			r.Route("/deals", func(r chi.Router) {
				r.With(s.requireRole(string(account.RoleClient))).Post("/", s.createDeal)
				r.Get("/", s.listDeals)
				r.With(s.requireRole(string(account.RoleAdmin))).Get("/history", s.dealHistory)
				r.Get("/leaderboard", s.leaderboard)
				r.Get("/{dealId}", s.getDeal)
				r.With(s.requireRole(string(account.RoleSupplier))).
					Post("/{dealId}/supplier-decision", s.supplierDecision)
				r.With(s.requireRole(string(account.RoleSupplier))).
					Post("/supplier-decisions", s.supplierDecisionBatch)
				r.With(s.requireRole(string(account.RoleAdmin))).
					Post("/{dealId}/admin-decision", s.adminDecision)
				r.With(s.requireRole(string(account.RoleAdmin))).
					Post("/admin-decisions", s.adminDecisionBatch)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", s.listNotifications)
				r.Post("/{notificationId}/read", s.markNotificationRead)
				r.Post("/read-all", s.markAllNotificationsRead)
				r.Get("/sse", s.sseEndpoint)
			})

			r.Route("/activity", func(r chi.Router) {
				r.Get("/{actor}", s.listActivity)
			})
		})
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseLimit(r *http.Request, defaultLimit, maxLimit int) int {
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}
