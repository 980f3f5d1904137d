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

// InsertDedupeEntry writes one dedupe audit row. Every discarded
// candidate link produces exactly one entry.
func (db *DB) InsertDedupeEntry(ctx context.Context, e *models.DedupeEntry) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO dedupe_log (id, competitor_id, discarded_url, matched_url, matched_link_id,
			reason, similarity_score, path_score, query_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CompetitorID, e.DiscardedURL, e.MatchedURL, e.MatchedLinkID,
		e.Reason, e.SimilarityScore, e.PathScore, e.QueryScore, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert dedupe entry: %w", err)
	}
	return nil
}

// GetDedupeEntry retrieves a dedupe audit entry by ID.
func (db *DB) GetDedupeEntry(ctx context.Context, id uuid.UUID) (*models.DedupeEntry, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	e := &models.DedupeEntry{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, competitor_id, discarded_url, matched_url, matched_link_id,
			reason, similarity_score, path_score, query_score, created_at
		 FROM dedupe_log WHERE id = ?`, id).
		Scan(&e.ID, &e.CompetitorID, &e.DiscardedURL, &e.MatchedURL, &e.MatchedLinkID,
			&e.Reason, &e.SimilarityScore, &e.PathScore, &e.QueryScore, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dedupe entry: %w", err)
	}
	return e, nil
}

// DedupeFilter contains filter options for listing dedupe audit entries.
type DedupeFilter struct {
	CompetitorID *uuid.UUID
	Reason       string
	FromTime     *time.Time
	ToTime       *time.Time
	Limit        int
	Offset       int
}

func (filter DedupeFilter) buildWhereClause() (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.CompetitorID != nil {
		conditions = append(conditions, "competitor_id = ?")
		args = append(args, *filter.CompetitorID)
	}
	if filter.Reason != "" {
		conditions = append(conditions, "reason = ?")
		args = append(args, filter.Reason)
	}
	if filter.FromTime != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *filter.FromTime)
	}
	if filter.ToTime != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, *filter.ToTime)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}
	return whereClause, args
}

// ListDedupeEntries lists dedupe audit entries with optional filtering.
func (db *DB) ListDedupeEntries(ctx context.Context, filter DedupeFilter) ([]*models.DedupeEntry, int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	whereClause, args := filter.buildWhereClause()

	var total int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM dedupe_log"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count dedupe entries: %w", err)
	}

	limit, offset := clampPagination(filter.Limit, filter.Offset)
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, competitor_id, discarded_url, matched_url, matched_link_id,
			reason, similarity_score, path_score, query_score, created_at
		 FROM dedupe_log`+whereClause+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list dedupe entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.DedupeEntry
	for rows.Next() {
		e := &models.DedupeEntry{}
		if err := rows.Scan(&e.ID, &e.CompetitorID, &e.DiscardedURL, &e.MatchedURL, &e.MatchedLinkID,
			&e.Reason, &e.SimilarityScore, &e.PathScore, &e.QueryScore, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan dedupe entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating dedupe entries: %w", err)
	}
	return entries, total, nil
}
