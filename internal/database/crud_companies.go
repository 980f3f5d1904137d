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

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/onside-hq/onside/internal/models"
)

// InsertCompany inserts a new company, assigning an ID and timestamps
// when the caller left them zero.
func (db *DB) InsertCompany(ctx context.Context, c *models.Company) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO companies (id, name, domain, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Domain, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert company: %w", err)
	}
	return nil
}

// GetCompany retrieves a company by ID.
func (db *DB) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	c := &models.Company{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, domain, created_at, updated_at FROM companies WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Domain, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// ListCompanies lists all companies ordered by name.
func (db *DB) ListCompanies(ctx context.Context, limit, offset int) ([]*models.Company, int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var total int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count companies: %w", err)
	}

	limit, offset = clampPagination(limit, offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, domain, created_at, updated_at FROM companies ORDER BY name LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []*models.Company
	for rows.Next() {
		c := &models.Company{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Domain, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating companies: %w", err)
	}
	return companies, total, nil
}

// UpdateCompany updates a company's name and domain.
func (db *DB) UpdateCompany(ctx context.Context, c *models.Company) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	c.UpdatedAt = time.Now().UTC()
	result, err := db.conn.ExecContext(ctx,
		`UPDATE companies SET name = ?, domain = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Domain, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	return checkAffected(result)
}

// DeleteCompany deletes a company and its competitors.
func (db *DB) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM competitors WHERE company_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete competitors: %w", err)
	}
	result, err := db.conn.ExecContext(ctx, `DELETE FROM companies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	return checkAffected(result)
}

// InsertCompetitor inserts a new competitor for a company.
func (db *DB) InsertCompetitor(ctx context.Context, c *models.Competitor) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	keywordsJSON, err := json.Marshal(c.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO competitors (id, company_id, name, domain, keywords, channel_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CompanyID, c.Name, c.Domain, string(keywordsJSON), c.ChannelID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert competitor: %w", err)
	}
	return nil
}

// GetCompetitor retrieves a competitor by ID.
func (db *DB) GetCompetitor(ctx context.Context, id uuid.UUID) (*models.Competitor, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, company_id, name, domain, keywords, channel_id, created_at, updated_at
		 FROM competitors WHERE id = ?`, id)
	return scanCompetitor(row)
}

// ListCompetitors lists the competitors of a company.
func (db *DB) ListCompetitors(ctx context.Context, companyID uuid.UUID) ([]*models.Competitor, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, company_id, name, domain, keywords, channel_id, created_at, updated_at
		 FROM competitors WHERE company_id = ? ORDER BY name`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitors: %w", err)
	}
	defer rows.Close()

	var competitors []*models.Competitor
	for rows.Next() {
		c, err := scanCompetitor(rows)
		if err != nil {
			return nil, err
		}
		competitors = append(competitors, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating competitors: %w", err)
	}
	return competitors, nil
}

// UpdateCompetitor updates a competitor's mutable fields.
func (db *DB) UpdateCompetitor(ctx context.Context, c *models.Competitor) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	keywordsJSON, err := json.Marshal(c.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}

	c.UpdatedAt = time.Now().UTC()
	result, err := db.conn.ExecContext(ctx,
		`UPDATE competitors SET name = ?, domain = ?, keywords = ?, channel_id = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Domain, string(keywordsJSON), c.ChannelID, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update competitor: %w", err)
	}
	return checkAffected(result)
}

// DeleteCompetitor deletes a competitor.
func (db *DB) DeleteCompetitor(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx, `DELETE FROM competitors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete competitor: %w", err)
	}
	return checkAffected(result)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCompetitor(row rowScanner) (*models.Competitor, error) {
	c := &models.Competitor{}
	var keywordsJSON string
	err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Domain, &keywordsJSON, &c.ChannelID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan competitor: %w", err)
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &c.Keywords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
	}
	return c, nil
}

// clampPagination normalizes limit and offset values.
func clampPagination(limit, offset int) (int, int) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// checkAffected converts a zero-row update/delete into ErrNotFound.
func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
