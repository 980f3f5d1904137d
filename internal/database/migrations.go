// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/onside-hq/onside/internal/logging"
)

// migration is one schema change applied exactly once, tracked in the
// schema_migrations table by version number.
type migration struct {
	Version     int
	Description string
	Statements  []string
}

// migrations is the ordered list of schema changes. Append only; never
// edit an applied migration.
var migrations = []migration{
	{
		Version:     1,
		Description: "add link description column default",
		Statements:  []string{}, // baseline schema carries it; placeholder for the first release
	},
}

// runVersionedMigrations applies pending migrations in order.
func (db *DB) runVersionedMigrations() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description VARCHAR NOT NULL,
		applied_at TIMESTAMP NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		for _, stmt := range m.Statements {
			if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
			}
		}
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
			m.Version, m.Description, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		logging.Info().Int("version", m.Version).Str("description", m.Description).Msg("Applied migration")
	}

	return nil
}
