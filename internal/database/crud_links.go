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

// InsertLink inserts a collected link.
func (db *DB) InsertLink(ctx context.Context, l *models.Link) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if l.DedupeStatus == "" {
		l.DedupeStatus = models.LinkStatusKept
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO links (id, competitor_id, provider, url, normalized_url, title, description,
			published_at, dedupe_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.CompetitorID, l.Provider, l.URL, l.NormalizedURL, l.Title, l.Description,
		l.PublishedAt, l.DedupeStatus, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert link: %w", err)
	}
	return nil
}

// GetLinkByNormalizedURL finds a competitor's link by its normalized URL.
// Used by the dedupe service for the exact-match fast path.
func (db *DB) GetLinkByNormalizedURL(ctx context.Context, competitorID uuid.UUID, normalized string) (*models.Link, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, competitor_id, provider, url, normalized_url, title, description,
			published_at, dedupe_status, created_at
		 FROM links WHERE competitor_id = ? AND normalized_url = ? AND dedupe_status = 'kept'
		 LIMIT 1`, competitorID, normalized)
	return scanLink(row)
}

// ListLinksByHost returns a competitor's kept links whose normalized URL
// starts with the given scheme-less host prefix. The dedupe service scans
// these for similarity candidates.
func (db *DB) ListLinksByHost(ctx context.Context, competitorID uuid.UUID, hostPrefix string) ([]*models.Link, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, competitor_id, provider, url, normalized_url, title, description,
			published_at, dedupe_status, created_at
		 FROM links WHERE competitor_id = ? AND dedupe_status = 'kept' AND normalized_url LIKE ?`,
		competitorID, hostPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list links by host: %w", err)
	}
	defer rows.Close()
	return collectLinks(rows)
}

// LinkFilter contains filter options for listing links.
type LinkFilter struct {
	CompetitorID *uuid.UUID
	Provider     string
	DedupeStatus string
	FromTime     *time.Time
	ToTime       *time.Time
	Limit        int
	Offset       int
}

// buildWhereClause builds the WHERE clause and args for link queries.
func (filter LinkFilter) buildWhereClause() (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.CompetitorID != nil {
		conditions = append(conditions, "competitor_id = ?")
		args = append(args, *filter.CompetitorID)
	}
	if filter.Provider != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, filter.Provider)
	}
	if filter.DedupeStatus != "" {
		conditions = append(conditions, "dedupe_status = ?")
		args = append(args, filter.DedupeStatus)
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

// ListLinks lists links with optional filtering and pagination.
func (db *DB) ListLinks(ctx context.Context, filter LinkFilter) ([]*models.Link, int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	whereClause, args := filter.buildWhereClause()

	var total int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM links"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count links: %w", err)
	}

	limit, offset := clampPagination(filter.Limit, filter.Offset)
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, competitor_id, provider, url, normalized_url, title, description,
			published_at, dedupe_status, created_at
		 FROM links`+whereClause+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links, err := collectLinks(rows)
	if err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

// ListKeptLinks returns all of a competitor's kept links in insertion
// order. Used by the re-dedupe pass, which replays dedupe decisions over
// the stored set.
func (db *DB) ListKeptLinks(ctx context.Context, competitorID uuid.UUID) ([]*models.Link, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, competitor_id, provider, url, normalized_url, title, description,
			published_at, dedupe_status, created_at
		 FROM links WHERE competitor_id = ? AND dedupe_status = 'kept' ORDER BY created_at`,
		competitorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list kept links: %w", err)
	}
	defer rows.Close()
	return collectLinks(rows)
}

// UpdateLinkDedupeStatus changes a stored link's dedupe status.
func (db *DB) UpdateLinkDedupeStatus(ctx context.Context, id uuid.UUID, status string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE links SET dedupe_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update link dedupe status: %w", err)
	}
	return checkAffected(result)
}

// CountLinksSince counts a competitor's kept links created after the
// given time. Used by report section summaries.
func (db *DB) CountLinksSince(ctx context.Context, competitorID uuid.UUID, since time.Time) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM links WHERE competitor_id = ? AND dedupe_status = 'kept' AND created_at >= ?`,
		competitorID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return count, nil
}

// InsertArticle inserts news story metadata attached to a link.
func (db *DB) InsertArticle(ctx context.Context, a *models.Article) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO articles (id, link_id, source_name, source_url, image_url, published_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.LinkID, a.SourceName, a.SourceURL, a.ImageURL, a.PublishedAt, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

func scanLink(row rowScanner) (*models.Link, error) {
	l := &models.Link{}
	err := row.Scan(&l.ID, &l.CompetitorID, &l.Provider, &l.URL, &l.NormalizedURL,
		&l.Title, &l.Description, &l.PublishedAt, &l.DedupeStatus, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan link: %w", err)
	}
	return l, nil
}

func collectLinks(rows *sql.Rows) ([]*models.Link, error) {
	var links []*models.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}
	return links, nil
}
