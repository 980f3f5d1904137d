// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onside-hq/onside/internal/models"
)

// InsertReport creates a report row in pending state.
func (db *DB) InsertReport(ctx context.Context, r *models.Report) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = models.ReportStatusPending
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO reports (id, company_id, period_start, period_end, status, pdf_path, error,
			duration_ms, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CompanyID, r.PeriodStart, r.PeriodEnd, r.Status, r.PDFPath, r.Error,
		r.DurationMS, r.CreatedAt, r.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// GetReport retrieves a report by ID.
func (db *DB) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, company_id, period_start, period_end, status, pdf_path, error,
			duration_ms, created_at, completed_at
		 FROM reports WHERE id = ?`, id)
	return scanReport(row)
}

// ReportFilter contains filter options for listing reports.
type ReportFilter struct {
	CompanyID *uuid.UUID
	Status    string
	Limit     int
	Offset    int
}

func (filter ReportFilter) buildWhereClause() (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.CompanyID != nil {
		conditions = append(conditions, "company_id = ?")
		args = append(args, *filter.CompanyID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}
	return whereClause, args
}

// ListReports lists reports with optional filtering and pagination.
func (db *DB) ListReports(ctx context.Context, filter ReportFilter) ([]*models.Report, int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	whereClause, args := filter.buildWhereClause()

	var total int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	limit, offset := clampPagination(filter.Limit, filter.Offset)
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, company_id, period_start, period_end, status, pdf_path, error,
			duration_ms, created_at, completed_at
		 FROM reports`+whereClause+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating reports: %w", err)
	}
	return reports, total, nil
}

// MarkReportBuilding transitions a pending report to building. The state
// machine only moves forward; a report already past pending is left alone
// and ErrNotFound is returned so callers skip it.
func (db *DB) MarkReportBuilding(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE reports SET status = ? WHERE id = ? AND status = ?`,
		models.ReportStatusBuilding, id, models.ReportStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark report building: %w", err)
	}
	return checkAffected(result)
}

// CompleteReport transitions a building report to completed with its
// artifact path and timing.
func (db *DB) CompleteReport(ctx context.Context, id uuid.UUID, pdfPath string, duration time.Duration) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	result, err := db.conn.ExecContext(ctx,
		`UPDATE reports SET status = ?, pdf_path = ?, duration_ms = ?, completed_at = ? WHERE id = ? AND status = ?`,
		models.ReportStatusCompleted, pdfPath, duration.Milliseconds(), now, id, models.ReportStatusBuilding)
	if err != nil {
		return fmt.Errorf("failed to complete report: %w", err)
	}
	return checkAffected(result)
}

// FailReport transitions a building report to failed with the error text.
func (db *DB) FailReport(ctx context.Context, id uuid.UUID, buildErr string, duration time.Duration) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	result, err := db.conn.ExecContext(ctx,
		`UPDATE reports SET status = ?, error = ?, duration_ms = ?, completed_at = ? WHERE id = ? AND status = ?`,
		models.ReportStatusFailed, buildErr, duration.Milliseconds(), now, id, models.ReportStatusBuilding)
	if err != nil {
		return fmt.Errorf("failed to fail report: %w", err)
	}
	return checkAffected(result)
}

// InsertReportSchedule creates a recurring report schedule.
func (db *DB) InsertReportSchedule(ctx context.Context, s *models.ReportSchedule) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.NextRunAt.IsZero() {
		s.NextRunAt = time.Now().UTC().Add(s.Interval)
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO report_schedules (id, company_id, interval_seconds, period_days, enabled,
			next_run_at, last_run_at, last_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.CompanyID, int64(s.Interval.Seconds()), s.PeriodDays, s.Enabled,
		s.NextRunAt, s.LastRunAt, s.LastStatus, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert report schedule: %w", err)
	}
	return nil
}

// GetReportSchedule retrieves a schedule by ID.
func (db *DB) GetReportSchedule(ctx context.Context, id uuid.UUID) (*models.ReportSchedule, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, company_id, interval_seconds, period_days, enabled, next_run_at,
			last_run_at, last_status, created_at
		 FROM report_schedules WHERE id = ?`, id)
	return scanSchedule(row)
}

// ListReportSchedules lists all schedules.
func (db *DB) ListReportSchedules(ctx context.Context) ([]*models.ReportSchedule, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, company_id, interval_seconds, period_days, enabled, next_run_at,
			last_run_at, last_status, created_at
		 FROM report_schedules ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list report schedules: %w", err)
	}
	defer rows.Close()
	return collectSchedules(rows)
}

// GetSchedulesDueForRun returns enabled schedules whose next_run_at has
// passed. The scheduler claims each one via UpdateScheduleRunStatus.
func (db *DB) GetSchedulesDueForRun(ctx context.Context) ([]*models.ReportSchedule, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, company_id, interval_seconds, period_days, enabled, next_run_at,
			last_run_at, last_status, created_at
		 FROM report_schedules WHERE enabled AND next_run_at <= ? ORDER BY next_run_at`,
		time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}
	defer rows.Close()
	return collectSchedules(rows)
}

// UpdateScheduleRunStatus records a run outcome and moves next_run_at.
func (db *DB) UpdateScheduleRunStatus(ctx context.Context, id uuid.UUID, status string, nextRunAt time.Time) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	result, err := db.conn.ExecContext(ctx,
		`UPDATE report_schedules SET last_status = ?, last_run_at = ?, next_run_at = ? WHERE id = ?`,
		status, now, nextRunAt, id)
	if err != nil {
		return fmt.Errorf("failed to update schedule run status: %w", err)
	}
	return checkAffected(result)
}

// DeleteReportSchedule deletes a schedule.
func (db *DB) DeleteReportSchedule(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx, `DELETE FROM report_schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report schedule: %w", err)
	}
	return checkAffected(result)
}

func scanReport(row rowScanner) (*models.Report, error) {
	r := &models.Report{}
	err := row.Scan(&r.ID, &r.CompanyID, &r.PeriodStart, &r.PeriodEnd, &r.Status,
		&r.PDFPath, &r.Error, &r.DurationMS, &r.CreatedAt, &r.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}
	return r, nil
}

func scanSchedule(row rowScanner) (*models.ReportSchedule, error) {
	s := &models.ReportSchedule{}
	var intervalSeconds int64
	err := row.Scan(&s.ID, &s.CompanyID, &intervalSeconds, &s.PeriodDays, &s.Enabled,
		&s.NextRunAt, &s.LastRunAt, &s.LastStatus, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan report schedule: %w", err)
	}
	s.Interval = time.Duration(intervalSeconds) * time.Second
	return s, nil
}

func collectSchedules(rows *sql.Rows) ([]*models.ReportSchedule, error) {
	var schedules []*models.ReportSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report schedules: %w", err)
	}
	return schedules, nil
}
