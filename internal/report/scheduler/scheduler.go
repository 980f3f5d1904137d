// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

// Package scheduler runs recurring report builds. Every check interval it
// claims the schedules that are due and builds their reports with bounded
// concurrency.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/onside-hq/onside/internal/config"
	"github.com/onside-hq/onside/internal/logging"
	"github.com/onside-hq/onside/internal/models"
)

// Store is the persistence surface the scheduler needs.
type Store interface {
	GetSchedulesDueForRun(ctx context.Context) ([]*models.ReportSchedule, error)
	UpdateScheduleRunStatus(ctx context.Context, id uuid.UUID, status string, nextRunAt time.Time) error
	InsertReport(ctx context.Context, r *models.Report) error
}

// Runner builds one report to a terminal state.
type Runner interface {
	Build(ctx context.Context, report *models.Report) error
}

// Run statuses recorded on the schedule row.
const (
	runStatusRunning   = "running"
	runStatusCompleted = "completed"
	runStatusFailed    = "failed"
)

// Scheduler claims due report schedules and runs their builds.
type Scheduler struct {
	store  Store
	runner Runner

	checkInterval     time.Duration
	maxConcurrent     int
	defaultPeriodDays int
	log               zerolog.Logger

	// now is replaced in tests.
	now func() time.Time
}

// New creates a scheduler.
func New(store Store, runner Runner, cfg config.ReportsConfig) *Scheduler {
	checkInterval := cfg.CheckInterval
	if checkInterval <= 0 {
		checkInterval = time.Minute
	}
	maxConcurrent := cfg.MaxConcurrentBuilds
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	periodDays := cfg.DefaultPeriodDays
	if periodDays < 1 {
		periodDays = 7
	}
	return &Scheduler{
		store:             store,
		runner:            runner,
		checkInterval:     checkInterval,
		maxConcurrent:     maxConcurrent,
		defaultPeriodDays: periodDays,
		log:               logging.With().Str("component", "scheduler").Logger(),
		now:               time.Now,
	}
}

// Serve runs the scheduler loop until ctx is cancelled. It satisfies the
// supervision tree's service interface.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.log.Info().Dur("interval", s.checkInterval).Msg("Report scheduler started")

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Report scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RunDue(ctx)
		}
	}
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string {
	return "report-scheduler"
}

// RunDue claims and runs every schedule whose next_run_at has passed. It
// returns once all claimed builds finish.
func (s *Scheduler) RunDue(ctx context.Context) {
	schedules, err := s.store.GetSchedulesDueForRun(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to query due schedules")
		return
	}
	if len(schedules) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for _, schedule := range schedules {
		// Claiming moves next_run_at forward so a concurrent tick or
		// another instance skips this schedule.
		nextRunAt := s.now().UTC().Add(schedule.Interval)
		if err := s.store.UpdateScheduleRunStatus(ctx, schedule.ID, runStatusRunning, nextRunAt); err != nil {
			s.log.Error().Err(err).Str("schedule_id", schedule.ID.String()).Msg("Failed to claim schedule")
			continue
		}

		g.Go(func() error {
			s.runSchedule(gctx, schedule, nextRunAt)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scheduler) runSchedule(ctx context.Context, schedule *models.ReportSchedule, nextRunAt time.Time) {
	periodDays := schedule.PeriodDays
	if periodDays < 1 {
		periodDays = s.defaultPeriodDays
	}

	now := s.now().UTC()
	report := &models.Report{
		CompanyID:   schedule.CompanyID,
		PeriodStart: now.AddDate(0, 0, -periodDays),
		PeriodEnd:   now,
		Status:      models.ReportStatusPending,
	}

	status := runStatusCompleted
	if err := s.store.InsertReport(ctx, report); err != nil {
		s.log.Error().Err(err).Str("schedule_id", schedule.ID.String()).Msg("Failed to create scheduled report")
		status = runStatusFailed
	} else if err := s.runner.Build(ctx, report); err != nil {
		s.log.Error().Err(err).
			Str("schedule_id", schedule.ID.String()).
			Str("report_id", report.ID.String()).
			Msg("Scheduled report build failed")
		status = runStatusFailed
	}

	// Recording the outcome must survive shutdown of the loop context.
	recordCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.UpdateScheduleRunStatus(recordCtx, schedule.ID, status, nextRunAt); err != nil {
		s.log.Error().Err(err).Str("schedule_id", schedule.ID.String()).Msg("Failed to record schedule outcome")
	}
}
