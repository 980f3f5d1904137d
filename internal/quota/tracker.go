// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

// Package quota meters outbound provider calls against per-provider daily
// quotas and request rates. Every adapter reserves before calling out, so
// a spent quota stops traffic at the source instead of burning paid calls
// on 429 responses.
package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/onside-hq/onside/internal/database"
	"github.com/onside-hq/onside/internal/logging"
	"github.com/onside-hq/onside/internal/metrics"
	"github.com/onside-hq/onside/internal/models"
)

// ErrQuotaExceeded is returned by Reserve when the provider's daily quota
// is spent. Callers skip the provider until the next UTC day.
var ErrQuotaExceeded = errors.New("daily quota exceeded")

// ErrUnknownProvider is returned for providers never registered.
var ErrUnknownProvider = errors.New("unknown provider")

const dayFormat = "2006-01-02"

// UsageStore persists daily usage counters.
type UsageStore interface {
	UpsertAPIUsage(ctx context.Context, provider, day string, requests, errs, quotaLimit int64) error
	GetAPIUsage(ctx context.Context, provider, day string) (*models.APIUsage, error)
	ListAPIUsageForDay(ctx context.Context, day string) ([]*models.APIUsage, error)
}

type providerState struct {
	limiter *rate.Limiter
	quota   int64 // 0 = unlimited

	day         string
	loaded      bool
	used        int64 // requests today, including already persisted ones
	pendingReqs int64
	pendingErrs int64
}

// Tracker counts requests per provider per UTC day and enforces quotas and
// request rates. Hot counters live in memory and are flushed to the store
// on an interval and on shutdown.
type Tracker struct {
	store         UsageStore
	flushInterval time.Duration
	log           zerolog.Logger

	mu        sync.Mutex
	providers map[string]*providerState

	// now is replaced in tests to control day rollover.
	now func() time.Time
}

// NewTracker creates a tracker flushing counters every flushInterval.
func NewTracker(store UsageStore, flushInterval time.Duration) *Tracker {
	if flushInterval <= 0 {
		flushInterval = 30 * time.Second
	}
	return &Tracker{
		store:         store,
		flushInterval: flushInterval,
		providers:     make(map[string]*providerState),
		log:           logging.With().Str("component", "quota").Logger(),
		now:           time.Now,
	}
}

// Register adds a provider with its daily quota (0 = unlimited) and
// sustained request rate (0 = unthrottled).
func (t *Tracker) Register(provider string, dailyQuota int64, ratePerSecond float64) {
	limit := rate.Inf
	burst := 1
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
		burst = int(ratePerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.providers[provider] = &providerState{
		limiter: rate.NewLimiter(limit, burst),
		quota:   dailyQuota,
	}
}

// Reserve claims one request slot for the provider. It returns
// ErrQuotaExceeded when the daily quota is spent, and otherwise blocks on
// the provider's rate limiter until a slot is available or ctx is done.
func (t *Tracker) Reserve(ctx context.Context, provider string) error {
	t.mu.Lock()
	st, ok := t.providers[provider]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	if err := t.ensureDay(ctx, provider, st); err != nil {
		t.mu.Unlock()
		return err
	}

	if st.quota > 0 && st.used >= st.quota {
		t.mu.Unlock()
		metrics.QuotaRejections.WithLabelValues(provider).Inc()
		return fmt.Errorf("%w: %s used %d of %d", ErrQuotaExceeded, provider, st.used, st.quota)
	}

	st.used++
	st.pendingReqs++
	metrics.QuotaRequestsUsed.WithLabelValues(provider).Set(float64(st.used))
	limiter := st.limiter
	t.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		t.mu.Lock()
		st.used--
		st.pendingReqs--
		metrics.QuotaRequestsUsed.WithLabelValues(provider).Set(float64(st.used))
		t.mu.Unlock()
		return err
	}
	return nil
}

// RecordError counts a failed provider call for today's counters.
func (t *Tracker) RecordError(provider string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.providers[provider]; ok {
		st.pendingErrs++
	}
}

// ensureDay rolls counters over to the current UTC day, flushing leftovers
// from the previous day and loading today's persisted count on first use.
// Called with t.mu held.
func (t *Tracker) ensureDay(ctx context.Context, provider string, st *providerState) error {
	today := t.now().UTC().Format(dayFormat)
	if st.day == today && st.loaded {
		return nil
	}

	if st.day != "" && st.day != today && (st.pendingReqs > 0 || st.pendingErrs > 0) {
		if err := t.store.UpsertAPIUsage(ctx, provider, st.day, st.pendingReqs, st.pendingErrs, st.quota); err != nil {
			return fmt.Errorf("failed to flush %s counters for %s: %w", provider, st.day, err)
		}
	}

	st.day = today
	st.used = 0
	st.pendingReqs = 0
	st.pendingErrs = 0

	row, err := t.store.GetAPIUsage(ctx, provider, today)
	switch {
	case err == nil:
		st.used = row.Requests
	case errors.Is(err, database.ErrNotFound):
		// First call of the day.
	default:
		return fmt.Errorf("failed to load %s usage for %s: %w", provider, today, err)
	}

	st.loaded = true
	metrics.QuotaRequestsUsed.WithLabelValues(provider).Set(float64(st.used))
	return nil
}

// Flush persists all pending counters. Failed flushes keep the counters
// pending for the next attempt.
func (t *Tracker) Flush(ctx context.Context) error {
	type delta struct {
		provider   string
		day        string
		reqs, errs int64
		quota      int64
	}

	t.mu.Lock()
	var deltas []delta
	for name, st := range t.providers {
		if st.pendingReqs == 0 && st.pendingErrs == 0 {
			continue
		}
		deltas = append(deltas, delta{name, st.day, st.pendingReqs, st.pendingErrs, st.quota})
		st.pendingReqs = 0
		st.pendingErrs = 0
	}
	t.mu.Unlock()

	var firstErr error
	for _, d := range deltas {
		if err := t.store.UpsertAPIUsage(ctx, d.provider, d.day, d.reqs, d.errs, d.quota); err != nil {
			t.mu.Lock()
			if st, ok := t.providers[d.provider]; ok && st.day == d.day {
				st.pendingReqs += d.reqs
				st.pendingErrs += d.errs
			}
			t.mu.Unlock()
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to flush %s counters: %w", d.provider, err)
			}
		}
	}
	return firstErr
}

// Snapshot flushes pending counters and returns today's persisted usage
// for all providers. Providers without any traffic today are included
// with zero counters so the usage endpoint always lists every provider.
func (t *Tracker) Snapshot(ctx context.Context) ([]*models.APIUsage, error) {
	if err := t.Flush(ctx); err != nil {
		return nil, err
	}

	today := t.now().UTC().Format(dayFormat)
	rows, err := t.store.ListAPIUsageForDay(ctx, today)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		seen[r.Provider] = true
	}

	t.mu.Lock()
	for name, st := range t.providers {
		if !seen[name] {
			rows = append(rows, &models.APIUsage{
				Provider:   name,
				Day:        today,
				QuotaLimit: st.quota,
			})
		}
	}
	t.mu.Unlock()
	return rows, nil
}
