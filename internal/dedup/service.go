// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package dedup

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onside-hq/onside/internal/config"
	"github.com/onside-hq/onside/internal/database"
	"github.com/onside-hq/onside/internal/logging"
	"github.com/onside-hq/onside/internal/metrics"
	"github.com/onside-hq/onside/internal/models"
)

// Store is the persistence surface the dedupe service needs.
type Store interface {
	GetLinkByNormalizedURL(ctx context.Context, competitorID uuid.UUID, normalized string) (*models.Link, error)
	ListLinksByHost(ctx context.Context, competitorID uuid.UUID, hostPrefix string) ([]*models.Link, error)
	ListKeptLinks(ctx context.Context, competitorID uuid.UUID) ([]*models.Link, error)
	InsertLink(ctx context.Context, l *models.Link) error
	UpdateLinkDedupeStatus(ctx context.Context, id uuid.UUID, status string) error
	InsertDedupeEntry(ctx context.Context, e *models.DedupeEntry) error
}

// Service decides whether collected links duplicate stored ones.
type Service struct {
	store       Store
	threshold   float64
	pathWeight  float64
	queryWeight float64
	log         zerolog.Logger

	// mu guards locks. Work on one competitor's links is serialized so
	// concurrent builds cannot both miss the exact-match lookup and store
	// the same normalized URL twice.
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewService creates a dedupe service with the configured scoring weights.
func NewService(store Store, cfg config.DedupConfig) *Service {
	return &Service{
		store:       store,
		threshold:   cfg.Threshold,
		pathWeight:  cfg.PathWeight,
		queryWeight: cfg.QueryWeight,
		log:         logging.With().Str("component", "dedup").Logger(),
		locks:       make(map[uuid.UUID]*sync.Mutex),
	}
}

// competitorLock returns the mutex serializing dedupe work for one
// competitor.
func (s *Service) competitorLock(competitorID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[competitorID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[competitorID] = lock
	}
	return lock
}

// Result is the outcome of deduplicating one batch of candidates.
type Result struct {
	// Kept are the candidates stored as new links.
	Kept []*models.Link

	// Discarded holds one audit entry per rejected duplicate.
	Discarded []*models.DedupeEntry

	// Invalid counts candidates whose URL could not be normalized.
	Invalid int
}

// Deduplicate processes candidate links for one competitor. Each candidate
// is normalized, checked for an exact normalized-URL match, then scored
// against the competitor's stored links on the same host. Candidates at or
// above the similarity threshold are discarded with an audit row; the rest
// are stored as kept links. Kept candidates become visible to later
// candidates in the same batch, so within-batch duplicates are caught too.
func (s *Service) Deduplicate(ctx context.Context, competitorID uuid.UUID, candidates []*models.Link) (*Result, error) {
	lock := s.competitorLock(competitorID)
	lock.Lock()
	defer lock.Unlock()

	result := &Result{}

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		normalized, err := Normalize(candidate.URL)
		if err != nil {
			s.log.Warn().Err(err).Str("url", candidate.URL).Msg("Rejected candidate link")
			result.Invalid++
			continue
		}
		candidate.CompetitorID = competitorID
		candidate.NormalizedURL = normalized

		entry, err := s.match(ctx, competitorID, candidate)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			if err := s.store.InsertDedupeEntry(ctx, entry); err != nil {
				return nil, fmt.Errorf("failed to record dedupe decision: %w", err)
			}
			metrics.DedupeDecisions.WithLabelValues(entry.Reason).Inc()
			result.Discarded = append(result.Discarded, entry)
			continue
		}

		candidate.DedupeStatus = models.LinkStatusKept
		if err := s.store.InsertLink(ctx, candidate); err != nil {
			return nil, fmt.Errorf("failed to store link: %w", err)
		}
		metrics.DedupeDecisions.WithLabelValues("kept").Inc()
		result.Kept = append(result.Kept, candidate)
	}

	s.log.Debug().
		Str("competitor_id", competitorID.String()).
		Int("kept", len(result.Kept)).
		Int("discarded", len(result.Discarded)).
		Int("invalid", result.Invalid).
		Msg("Deduplicated candidate batch")
	return result, nil
}

// match returns the audit entry for a duplicate candidate, or nil when the
// candidate is new.
func (s *Service) match(ctx context.Context, competitorID uuid.UUID, candidate *models.Link) (*models.DedupeEntry, error) {
	// Exact match on the normalized URL is the fast path.
	existing, err := s.store.GetLinkByNormalizedURL(ctx, competitorID, candidate.NormalizedURL)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up normalized URL: %w", err)
	}
	if existing != nil {
		return s.auditEntry(competitorID, candidate, existing, models.DedupeReasonExact, 1.0, 1.0, 1.0), nil
	}

	// Similarity scan over stored links on the same host.
	host := HostOf(candidate.NormalizedURL)
	stored, err := s.store.ListLinksByHost(ctx, competitorID, host)
	if err != nil {
		return nil, fmt.Errorf("failed to scan links for host %s: %w", host, err)
	}

	var (
		best      *models.Link
		bestScore float64
		bestPath  float64
		bestQuery float64
	)
	for _, link := range stored {
		total, path, query := Score(candidate.NormalizedURL, link.NormalizedURL, s.pathWeight, s.queryWeight)
		if total > bestScore {
			best, bestScore, bestPath, bestQuery = link, total, path, query
		}
	}
	if best != nil && bestScore >= s.threshold {
		return s.auditEntry(competitorID, candidate, best, models.DedupeReasonSimilarity, bestScore, bestPath, bestQuery), nil
	}
	return nil, nil
}

func (s *Service) auditEntry(competitorID uuid.UUID, candidate, matched *models.Link, reason string, score, path, query float64) *models.DedupeEntry {
	return &models.DedupeEntry{
		CompetitorID:    competitorID,
		DiscardedURL:    candidate.URL,
		MatchedURL:      matched.URL,
		MatchedLinkID:   matched.ID,
		Reason:          reason,
		SimilarityScore: score,
		PathScore:       path,
		QueryScore:      query,
	}
}

// Rededupe replays dedupe decisions over a competitor's stored kept links,
// oldest first. Later links that duplicate an earlier one are demoted to
// duplicate status with an audit row. Used when the threshold or weights
// change after collection. Returns the number of demoted links.
func (s *Service) Rededupe(ctx context.Context, competitorID uuid.UUID) (int, error) {
	lock := s.competitorLock(competitorID)
	lock.Lock()
	defer lock.Unlock()

	links, err := s.store.ListKeptLinks(ctx, competitorID)
	if err != nil {
		return 0, fmt.Errorf("failed to load links for re-dedupe: %w", err)
	}

	demoted := 0
	kept := make([]*models.Link, 0, len(links))
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return demoted, err
		}

		var (
			best       *models.Link
			bestScore  float64
			bestPath   float64
			bestQuery  float64
			bestReason string
		)
		for _, earlier := range kept {
			if earlier.NormalizedURL == link.NormalizedURL {
				best, bestScore, bestPath, bestQuery = earlier, 1.0, 1.0, 1.0
				bestReason = models.DedupeReasonExact
				break
			}
			total, path, query := Score(link.NormalizedURL, earlier.NormalizedURL, s.pathWeight, s.queryWeight)
			if total > bestScore {
				best, bestScore, bestPath, bestQuery = earlier, total, path, query
				bestReason = models.DedupeReasonSimilarity
			}
		}

		if best == nil || (bestReason == models.DedupeReasonSimilarity && bestScore < s.threshold) {
			kept = append(kept, link)
			continue
		}

		if err := s.store.UpdateLinkDedupeStatus(ctx, link.ID, models.LinkStatusDuplicate); err != nil {
			return demoted, fmt.Errorf("failed to demote link %s: %w", link.ID, err)
		}
		entry := s.auditEntry(competitorID, link, best, bestReason, bestScore, bestPath, bestQuery)
		if err := s.store.InsertDedupeEntry(ctx, entry); err != nil {
			return demoted, fmt.Errorf("failed to record re-dedupe decision: %w", err)
		}
		metrics.DedupeDecisions.WithLabelValues(bestReason).Inc()
		demoted++
	}

	s.log.Info().
		Str("competitor_id", competitorID.String()).
		Int("scanned", len(links)).
		Int("demoted", demoted).
		Msg("Re-dedupe pass finished")
	return demoted, nil
}
