// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

// Package models defines the domain entities persisted by OnSide and the
// shared API response envelope.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is a tracked company with a set of competitors.
type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Competitor is one competitor of a company. Keywords drive news and
// search collection; Domain drives WHOIS/geolocation; ChannelID drives
// YouTube collection when known.
type Competitor struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	Keywords  []string  `json:"keywords"`
	ChannelID string    `json:"channel_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link dedupe statuses.
const (
	LinkStatusKept      = "kept"
	LinkStatusDuplicate = "duplicate"
)

// Link is a collected URL about a competitor.
type Link struct {
	ID            uuid.UUID  `json:"id"`
	CompetitorID  uuid.UUID  `json:"competitor_id"`
	Provider      string     `json:"provider"` // gnews, customsearch, youtube
	URL           string     `json:"url"`
	NormalizedURL string     `json:"normalized_url"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	DedupeStatus  string     `json:"dedupe_status"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Article carries news story metadata attached to a link.
type Article struct {
	ID          uuid.UUID  `json:"id"`
	LinkID      uuid.UUID  `json:"link_id"`
	SourceName  string     `json:"source_name"`
	SourceURL   string     `json:"source_url"`
	ImageURL    string     `json:"image_url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Report statuses. A report only moves forward through these states.
const (
	ReportStatusPending   = "pending"
	ReportStatusBuilding  = "building"
	ReportStatusCompleted = "completed"
	ReportStatusFailed    = "failed"
)

// Report is one generated competitive-intelligence report.
type Report struct {
	ID          uuid.UUID  `json:"id"`
	CompanyID   uuid.UUID  `json:"company_id"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	Status      string     `json:"status"`
	PDFPath     string     `json:"pdf_path,omitempty"`
	Error       string     `json:"error,omitempty"`
	DurationMS  int64      `json:"duration_ms"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ReportSchedule triggers recurring report builds for a company.
type ReportSchedule struct {
	ID         uuid.UUID     `json:"id"`
	CompanyID  uuid.UUID     `json:"company_id"`
	Interval   time.Duration `json:"interval"`
	PeriodDays int           `json:"period_days"`
	Enabled    bool          `json:"enabled"`
	NextRunAt  time.Time     `json:"next_run_at"`
	LastRunAt  *time.Time    `json:"last_run_at,omitempty"`
	LastStatus string        `json:"last_status,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// User is an operator account. PasswordHash is a bcrypt hash, never the
// plaintext password.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"` // admin or viewer
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// APIUsage is one (provider, day) usage counter row. Day is the UTC
// calendar date in YYYY-MM-DD form.
type APIUsage struct {
	Provider   string    `json:"provider"`
	Day        string    `json:"day"`
	Requests   int64     `json:"requests"`
	Errors     int64     `json:"errors"`
	QuotaLimit int64     `json:"quota_limit"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DedupeEntry is the audit trail row written whenever a candidate link is
// discarded as a duplicate.
type DedupeEntry struct {
	ID              uuid.UUID `json:"id"`
	CompetitorID    uuid.UUID `json:"competitor_id"`
	DiscardedURL    string    `json:"discarded_url"`
	MatchedURL      string    `json:"matched_url"`
	MatchedLinkID   uuid.UUID `json:"matched_link_id"`
	Reason          string    `json:"reason"` // exact or similarity
	SimilarityScore float64   `json:"similarity_score"`
	PathScore       float64   `json:"path_score"`
	QueryScore      float64   `json:"query_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// Dedupe reasons.
const (
	DedupeReasonExact      = "exact"
	DedupeReasonSimilarity = "similarity"
)
