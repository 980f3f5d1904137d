// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

// Package api implements the HTTP API.
package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onside-hq/onside/internal/auth"
	"github.com/onside-hq/onside/internal/config"
	"github.com/onside-hq/onside/internal/database"
	"github.com/onside-hq/onside/internal/logging"
	"github.com/onside-hq/onside/internal/models"
)

// Store is the persistence surface the handlers need. *database.DB
// implements it.
type Store interface {
	Ping(ctx context.Context) error

	InsertCompany(ctx context.Context, c *models.Company) error
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	ListCompanies(ctx context.Context, limit, offset int) ([]*models.Company, int64, error)
	UpdateCompany(ctx context.Context, c *models.Company) error
	DeleteCompany(ctx context.Context, id uuid.UUID) error

	InsertCompetitor(ctx context.Context, c *models.Competitor) error
	GetCompetitor(ctx context.Context, id uuid.UUID) (*models.Competitor, error)
	ListCompetitors(ctx context.Context, companyID uuid.UUID) ([]*models.Competitor, error)
	UpdateCompetitor(ctx context.Context, c *models.Competitor) error
	DeleteCompetitor(ctx context.Context, id uuid.UUID) error

	ListLinks(ctx context.Context, filter database.LinkFilter) ([]*models.Link, int64, error)
	ListDedupeEntries(ctx context.Context, filter database.DedupeFilter) ([]*models.DedupeEntry, int64, error)
	GetDedupeEntry(ctx context.Context, id uuid.UUID) (*models.DedupeEntry, error)

	InsertReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error)
	ListReports(ctx context.Context, filter database.ReportFilter) ([]*models.Report, int64, error)

	InsertReportSchedule(ctx context.Context, s *models.ReportSchedule) error
	GetReportSchedule(ctx context.Context, id uuid.UUID) (*models.ReportSchedule, error)
	ListReportSchedules(ctx context.Context) ([]*models.ReportSchedule, error)
	DeleteReportSchedule(ctx context.Context, id uuid.UUID) error

	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	TouchUserLogin(ctx context.Context, id uuid.UUID) error
}

// Runner builds one report to a terminal state.
type Runner interface {
	Build(ctx context.Context, report *models.Report) error
}

// Rededuper replays dedupe decisions for a competitor's stored links.
type Rededuper interface {
	Rededupe(ctx context.Context, competitorID uuid.UUID) (int, error)
}

// UsageSource returns today's per-provider usage counters.
type UsageSource interface {
	Snapshot(ctx context.Context) ([]*models.APIUsage, error)
}

// Handler carries the dependencies of all endpoint handlers.
type Handler struct {
	store     Store
	auth      *auth.Manager
	cfg       *config.Config
	runner    Runner
	rededuper Rededuper
	usage     UsageSource
	log       zerolog.Logger

	// buildTimeout bounds the async builds this handler spawns.
	buildTimeout time.Duration
}

// NewHandler creates the API handler set. runner, rededuper and usage may
// be nil, which turns their endpoints into 503s.
func NewHandler(store Store, authManager *auth.Manager, cfg *config.Config, runner Runner, rededuper Rededuper, usage UsageSource) *Handler {
	buildTimeout := cfg.Reports.BuildTimeout
	if buildTimeout <= 0 {
		buildTimeout = 10 * time.Minute
	}
	return &Handler{
		store:        store,
		auth:         authManager,
		cfg:          cfg,
		runner:       runner,
		rededuper:    rededuper,
		usage:        usage,
		log:          logging.With().Str("component", "api").Logger(),
		buildTimeout: buildTimeout,
	}
}
