// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

// Package main is the entry point for the OnSide server.
//
// OnSide is a self-hosted competitive-intelligence platform: it tracks
// competitors of a company, collects links about them from news, web
// search and video APIs, deduplicates what it finds, and renders periodic
// PDF reports with an optional LLM-written narrative.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered loading (defaults, YAML, env vars)
//  2. Database: embedded DuckDB with migrations
//  3. Cache: BadgerDB-backed WHOIS/geolocation lookup cache
//  4. Quota tracker: per-provider daily quotas and rate limits
//  5. Provider clients: GNews, IPInfo, WhoAPI, Custom Search, YouTube
//  6. Dedup service, insights generator, report builder and scheduler
//  7. HTTP Server: REST API behind JWT authentication
//
// Background services run under a suture supervisor tree so a crashing
// service restarts without taking the process down.
//
// # Configuration
//
// All settings come from environment variables or config.yaml. The
// minimum useful setup enables at least one provider:
//
//	export GNEWS_ENABLED=true
//	export GNEWS_API_KEY=your-key
//	export JWT_SECRET=$(openssl rand -base64 32)
//	export ADMIN_USERNAME=admin
//	export ADMIN_PASSWORD=secure-password
//	./onside
//
// For development without authentication:
//
//	export AUTH_MODE=none
//	./onside
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, drains in-flight requests, flushes pending
// usage counters and closes the database.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/onside-hq/onside/internal/api"
	"github.com/onside-hq/onside/internal/auth"
	"github.com/onside-hq/onside/internal/cache"
	"github.com/onside-hq/onside/internal/clients"
	"github.com/onside-hq/onside/internal/config"
	"github.com/onside-hq/onside/internal/database"
	"github.com/onside-hq/onside/internal/dedup"
	"github.com/onside-hq/onside/internal/insights"
	"github.com/onside-hq/onside/internal/logging"
	"github.com/onside-hq/onside/internal/quota"
	"github.com/onside-hq/onside/internal/report"
	"github.com/onside-hq/onside/internal/report/scheduler"
	"github.com/onside-hq/onside/internal/supervisor"
	"github.com/onside-hq/onside/internal/supervisor/services"
)

// usageFlushInterval is how often the quota tracker persists its counters.
const usageFlushInterval = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The default logger handles config errors; Init needs the config.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Starting OnSide")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	lookupCache, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open lookup cache")
	}
	defer func() {
		if err := lookupCache.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing lookup cache")
		}
	}()

	if cfg.Security.AuthMode == "none" {
		logging.Warn().Msg("Authentication is DISABLED (AUTH_MODE=none); never use this on public networks")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker := quota.NewTracker(db, usageFlushInterval)
	providers := buildProviders(ctx, cfg, tracker, lookupCache)

	deduper := dedup.NewService(db, cfg.Dedup)
	builder := report.NewBuilder(db, deduper, providers, cfg.Reports)
	sched := scheduler.New(db, builder, cfg.Reports)

	authManager := auth.NewManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)
	handler := api.NewHandler(db, authManager, cfg, builder, deduper, tracker)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	tree.AddDataService(tracker)
	tree.AddReportService(sched)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// buildProviders constructs the enabled provider adapters and registers
// each with the quota tracker. Disabled providers stay nil, which the
// report builder treats as a missing section.
func buildProviders(ctx context.Context, cfg *config.Config, tracker *quota.Tracker, lookupCache *cache.Cache) report.Providers {
	var providers report.Providers

	if p := cfg.Providers.GNews; p.Enabled {
		tracker.Register("gnews", int64(p.DailyQuota), p.RatePerSecond)
		providers.News = clients.NewGNews(p, tracker)
		logging.Info().Int("daily_quota", p.DailyQuota).Msg("GNews provider enabled")
	}
	if p := cfg.Providers.IPInfo; p.Enabled {
		tracker.Register("ipinfo", int64(p.DailyQuota), p.RatePerSecond)
		providers.Geo = clients.NewIPInfo(p, tracker, lookupCache, cfg.Cache.GeoTTL)
		logging.Info().Int("daily_quota", p.DailyQuota).Msg("IPInfo provider enabled")
	}
	if p := cfg.Providers.WhoAPI; p.Enabled {
		tracker.Register("whoapi", int64(p.DailyQuota), p.RatePerSecond)
		providers.Whois = clients.NewWhoAPI(p, tracker, lookupCache, cfg.Cache.WhoisTTL)
		logging.Info().Int("daily_quota", p.DailyQuota).Msg("WhoAPI provider enabled")
	}
	if p := cfg.Providers.CustomSearch; p.Enabled {
		tracker.Register("customsearch", int64(p.DailyQuota), p.RatePerSecond)
		searchClient, err := clients.NewCustomSearch(ctx, p, tracker)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize Custom Search client")
		}
		providers.Search = searchClient
		logging.Info().Int("daily_quota", p.DailyQuota).Msg("Custom Search provider enabled")
	}
	if p := cfg.Providers.YouTube; p.Enabled {
		tracker.Register("youtube", int64(p.DailyQuota), p.RatePerSecond)
		videoClient, err := clients.NewYouTube(ctx, p, tracker)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize YouTube client")
		}
		providers.Video = videoClient
		logging.Info().Int("daily_quota", p.DailyQuota).Msg("YouTube provider enabled")
	}

	generator := insights.NewGenerator(cfg.Insights)
	providers.Insights = generator
	if generator.Enabled() {
		logging.Info().Str("model", cfg.Insights.Model).Msg("LLM insights enabled")
	}

	return providers
}
