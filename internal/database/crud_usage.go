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
	"time"

	"github.com/onside-hq/onside/internal/models"
)

// UpsertAPIUsage adds request/error deltas to the (provider, day) counter
// row, creating it on first use. Called by the quota tracker's flush loop.
func (db *DB) UpsertAPIUsage(ctx context.Context, provider, day string, requests, errs, quotaLimit int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO api_usage (provider, day, requests, errors, quota_limit, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (provider, day) DO UPDATE SET
			requests = api_usage.requests + excluded.requests,
			errors = api_usage.errors + excluded.errors,
			quota_limit = excluded.quota_limit,
			updated_at = excluded.updated_at`,
		provider, day, requests, errs, quotaLimit, now)
	if err != nil {
		return fmt.Errorf("failed to upsert api usage: %w", err)
	}
	return nil
}

// GetAPIUsage returns the counter row for one provider and day.
func (db *DB) GetAPIUsage(ctx context.Context, provider, day string) (*models.APIUsage, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	u := &models.APIUsage{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT provider, day, requests, errors, quota_limit, updated_at
		 FROM api_usage WHERE provider = ? AND day = ?`, provider, day).
		Scan(&u.Provider, &u.Day, &u.Requests, &u.Errors, &u.QuotaLimit, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get api usage: %w", err)
	}
	return u, nil
}

// ListAPIUsageForDay returns all provider counters for one UTC day.
func (db *DB) ListAPIUsageForDay(ctx context.Context, day string) ([]*models.APIUsage, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT provider, day, requests, errors, quota_limit, updated_at
		 FROM api_usage WHERE day = ? ORDER BY provider`, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list api usage: %w", err)
	}
	defer rows.Close()

	var usage []*models.APIUsage
	for rows.Next() {
		u := &models.APIUsage{}
		if err := rows.Scan(&u.Provider, &u.Day, &u.Requests, &u.Errors, &u.QuotaLimit, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan api usage: %w", err)
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api usage: %w", err)
	}
	return usage, nil
}
