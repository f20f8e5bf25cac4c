package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/gemdesk/gemdesk/internal/api/http"
	"github.com/gemdesk/gemdesk/internal/application/account"
	"github.com/gemdesk/gemdesk/internal/application/activity"
	"github.com/gemdesk/gemdesk/internal/application/auth"
	"github.com/gemdesk/gemdesk/internal/application/deal"
	"github.com/gemdesk/gemdesk/internal/application/inventory"
	"github.com/gemdesk/gemdesk/internal/application/notify"
	"github.com/gemdesk/gemdesk/internal/config"
	"github.com/gemdesk/gemdesk/internal/infrastructure/postgres"
	"github.com/gemdesk/gemdesk/internal/infrastructure/sse"
	"github.com/gemdesk/gemdesk/internal/store"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()

	// Record store backend: Postgres when a DSN is configured, otherwise
	// the in-memory store.
	var recordStore store.RecordStore
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db error: %v", err)
		}
		defer pool.Close()
		pg := postgres.NewStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("schema error: %v", err)
		}
		recordStore = store.WithRetry(pg, 3, 100*time.Millisecond)
		logger.Info().Msg("using postgres record store")
	} else {
		recordStore = store.NewMemoryStore()
		logger.Warn().Msg("DATABASE_URL not set, using in-memory record store")
	}

	// infrastructure
	sseHub := sse.NewHub()
	defer sseHub.Stop()

	// services
	inventorySvc := inventory.NewService(recordStore, logger)
	notifySvc := notify.NewService(recordStore, sseHub, logger)
	activitySvc := activity.NewService(recordStore, logger)
	accountSvc := account.NewService(recordStore, logger)
	sessionStore := auth.NewSessionStore(recordStore)
	authSvc := auth.NewService(accountSvc, sessionStore, cfg.SessionTTL, logger)
	dealSvc := deal.NewService(recordStore, inventorySvc, notifySvc, activitySvc, logger)

	if cfg.BootstrapAdminUser != "" {
		if err := accountSvc.EnsureAdmin(ctx, cfg.BootstrapAdminUser, cfg.BootstrapAdminPass); err != nil {
			log.Fatalf("admin bootstrap error: %v", err)
		}
	}

	// Rebuild the combined view once at startup so reads are consistent
	// with whatever shards the store already holds.
	if err := inventorySvc.Rebuild(ctx); err != nil {
		logger.Error().Err(err).Msg("initial inventory rebuild failed")
	}

	// API server
	apiServer := httpapi.NewServer(inventorySvc, dealSvc, accountSvc, authSvc, notifySvc, activitySvc, sseHub, cfg.SessionCookieName, cfg.SessionCookieSecure)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// background loops
	if cfg.ReconcileInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.ReconcileInterval)
			defer ticker.Stop()
			for range ticker.C {
				if err := inventorySvc.Rebuild(context.Background()); err != nil {
					logger.Error().Err(err).Msg("inventory rebuild failed")
				}
			}
		}()
	}

	if cfg.SessionPurgeInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.SessionPurgeInterval)
			defer ticker.Stop()
			for range ticker.C {
				if n, err := authSvc.PurgeExpired(context.Background()); err != nil {
					logger.Error().Err(err).Msg("session purge failed")
				} else if n > 0 {
					logger.Info().Int("purged", n).Msg("expired sessions removed")
				}
			}
		}()
	}

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
