// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/listingguard/internal/api"
	"github.com/tomtom215/listingguard/internal/config"
	"github.com/tomtom215/listingguard/internal/events"
	"github.com/tomtom215/listingguard/internal/logging"
	"github.com/tomtom215/listingguard/internal/screening"
	"github.com/tomtom215/listingguard/internal/supervisor"
	"github.com/tomtom215/listingguard/internal/supervisor/services"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.Logging.LoggingInit())
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("sanctions_backend", cfg.Sanctions.Backend).
		Str("flagged_listing_policy", cfg.Review.FlaggedListingPolicy).
		Bool("events_enabled", cfg.Events.Enabled).
		Msg("Starting ListingGuard with supervisor tree")

	watchConfig(config.ConfigFile())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open stores")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing stores")
		}
	}()

	policy, err := screening.Compile(cfg.Screening)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to compile screening rules")
	}

	history := screening.NewResilientHistory(st.ledger, cfg.History)
	engine := screening.NewEngine(policy, history, st.sanctions, st.ledger, cfg.Engine)
	logging.Info().Msg("Screening engine initialized")

	handler := api.NewHandler(api.Deps{
		Engine:    engine,
		Sanctions: st.sanctions,
		Reviewer:  st.ledger,
		Registry:  st.sanctions,
		Recorder:  st.ledger,
		Review:    cfg.Review,
		Ready:     st,
		Breaker:   history.State,
	})

	mwConfig := api.DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Server.RateLimitReqs
	mwConfig.RateLimitWindow = cfg.Server.RateLimitWindow
	mwConfig.RateLimitDisabled = cfg.Server.RateLimitDisabled
	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	if cfg.Server.Environment == "production" && len(cfg.Server.CORSOrigins) == 1 && cfg.Server.CORSOrigins[0] == "*" {
		logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*) in production")
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, api.NewChiMiddleware(mwConfig)),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if st.badger != nil && !cfg.Sanctions.InMemory {
		tree.AddStorageService(services.NewBadgerGCService(st.badger, 5*time.Minute, 0.5))
		logging.Info().Msg("Badger value-log GC added to supervisor tree")
	}

	if cfg.Events.Enabled {
		transport, err := newEventTransport(&cfg.Events, logging.NewWatermillLogger())
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize event transport")
		}
		defer func() {
			if err := transport.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event transport")
			}
		}()

		proc := events.NewProcessor(engine, st.ledger, cfg.Review)
		rc := routerConfig(&cfg.Events)
		tree.AddMessagingService(services.NewEventRouterService(func() (services.EventRouter, error) {
			return events.NewRouter(rc, proc, transport.Subscriber, transport.Publisher, logging.NewWatermillLogger())
		}))
		logging.Info().
			Str("transport", cfg.Events.Transport).
			Str("topic", rc.SubmittedTopic).
			Msg("Event router added to supervisor tree")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("ListingGuard stopped gracefully")
}
