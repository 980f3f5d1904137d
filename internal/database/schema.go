// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package database

import (
	"context"
	"fmt"
)

// createTables creates all tables if they do not exist.
func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			id UUID PRIMARY KEY,
			name VARCHAR NOT NULL,
			domain VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS competitors (
			id UUID PRIMARY KEY,
			company_id UUID NOT NULL,
			name VARCHAR NOT NULL,
			domain VARCHAR NOT NULL,
			keywords VARCHAR NOT NULL, -- JSON-encoded string array
			channel_id VARCHAR NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS links (
			id UUID PRIMARY KEY,
			competitor_id UUID NOT NULL,
			provider VARCHAR NOT NULL,
			url VARCHAR NOT NULL,
			normalized_url VARCHAR NOT NULL,
			title VARCHAR NOT NULL DEFAULT '',
			description VARCHAR NOT NULL DEFAULT '',
			published_at TIMESTAMP,
			dedupe_status VARCHAR NOT NULL DEFAULT 'kept',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id UUID PRIMARY KEY,
			link_id UUID NOT NULL,
			source_name VARCHAR NOT NULL DEFAULT '',
			source_url VARCHAR NOT NULL DEFAULT '',
			image_url VARCHAR NOT NULL DEFAULT '',
			published_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reports (
			id UUID PRIMARY KEY,
			company_id UUID NOT NULL,
			period_start TIMESTAMP NOT NULL,
			period_end TIMESTAMP NOT NULL,
			status VARCHAR NOT NULL DEFAULT 'pending',
			pdf_path VARCHAR NOT NULL DEFAULT '',
			error VARCHAR NOT NULL DEFAULT '',
			duration_ms BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS report_schedules (
			id UUID PRIMARY KEY,
			company_id UUID NOT NULL,
			interval_seconds BIGINT NOT NULL,
			period_days INTEGER NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT true,
			next_run_at TIMESTAMP NOT NULL,
			last_run_at TIMESTAMP,
			last_status VARCHAR NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username VARCHAR NOT NULL UNIQUE,
			password_hash VARCHAR NOT NULL,
			role VARCHAR NOT NULL DEFAULT 'viewer',
			created_at TIMESTAMP NOT NULL,
			last_login_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS api_usage (
			provider VARCHAR NOT NULL,
			day VARCHAR NOT NULL, -- UTC date, YYYY-MM-DD
			requests BIGINT NOT NULL DEFAULT 0,
			errors BIGINT NOT NULL DEFAULT 0,
			quota_limit BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (provider, day)
		)`,
		`CREATE TABLE IF NOT EXISTS dedupe_log (
			id UUID PRIMARY KEY,
			competitor_id UUID NOT NULL,
			discarded_url VARCHAR NOT NULL,
			matched_url VARCHAR NOT NULL,
			matched_link_id UUID NOT NULL,
			reason VARCHAR NOT NULL,
			similarity_score DOUBLE NOT NULL DEFAULT 0,
			path_score DOUBLE NOT NULL DEFAULT 0,
			query_score DOUBLE NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// createIndexes creates secondary indexes for the hot lookup paths.
func (db *DB) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_competitors_company ON competitors (company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_links_competitor ON links (competitor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_links_normalized ON links (competitor_id, normalized_url)`,
		`CREATE INDEX IF NOT EXISTS idx_links_created ON links (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_company ON reports (company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_next_run ON report_schedules (next_run_at)`,
		`CREATE INDEX IF NOT EXISTS idx_dedupe_competitor ON dedupe_log (competitor_id)`,
	}

	for _, stmt := range indexes {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
