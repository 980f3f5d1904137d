// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package quota

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/onside-hq/onside/internal/database"
	"github.com/onside-hq/onside/internal/models"
)

// memUsageStore is an in-memory UsageStore for tracker tests.
type memUsageStore struct {
	mu   sync.Mutex
	rows map[string]*models.APIUsage // keyed provider|day
}

func newMemUsageStore() *memUsageStore {
	return &memUsageStore{rows: make(map[string]*models.APIUsage)}
}

func (m *memUsageStore) UpsertAPIUsage(_ context.Context, provider, day string, requests, errs, quotaLimit int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := provider + "|" + day
	row, ok := m.rows[key]
	if !ok {
		row = &models.APIUsage{Provider: provider, Day: day}
		m.rows[key] = row
	}
	row.Requests += requests
	row.Errors += errs
	row.QuotaLimit = quotaLimit
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memUsageStore) GetAPIUsage(_ context.Context, provider, day string) (*models.APIUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[provider+"|"+day]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, database.ErrNotFound
}

func (m *memUsageStore) ListAPIUsageForDay(_ context.Context, day string) ([]*models.APIUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.APIUsage
	for _, row := range m.rows {
		if row.Day == day {
			copied := *row
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memUsageStore) get(provider, day string) *models.APIUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[provider+"|"+day]
}

func TestReserveEnforcesDailyQuota(t *testing.T) {
	store := newMemUsageStore()
	tracker := NewTracker(store, time.Minute)
	tracker.Register("gnews", 3, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := tracker.Reserve(ctx, "gnews"); err != nil {
			t.Fatalf("Reserve %d returned error: %v", i, err)
		}
	}
	if err := tracker.Reserve(ctx, "gnews"); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("Reserve after quota = %v, want ErrQuotaExceeded", err)
	}
}

func TestReserveUnlimitedQuota(t *testing.T) {
	store := newMemUsageStore()
	tracker := NewTracker(store, time.Minute)
	tracker.Register("ipinfo", 0, 0)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if err := tracker.Reserve(ctx, "ipinfo"); err != nil {
			t.Fatalf("Reserve %d returned error: %v", i, err)
		}
	}
}

func TestReserveUnknownProvider(t *testing.T) {
	tracker := NewTracker(newMemUsageStore(), time.Minute)
	if err := tracker.Reserve(context.Background(), "nope"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Reserve = %v, want ErrUnknownProvider", err)
	}
}

func TestReserveLoadsPersistedUsage(t *testing.T) {
	store := newMemUsageStore()
	today := time.Now().UTC().Format(dayFormat)
	// A previous process already spent the whole quota today.
	if err := store.UpsertAPIUsage(context.Background(), "gnews", today, 5, 0, 5); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	tracker := NewTracker(store, time.Minute)
	tracker.Register("gnews", 5, 0)
	if err := tracker.Reserve(context.Background(), "gnews"); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("Reserve = %v, want ErrQuotaExceeded after restart", err)
	}
}

func TestFlushPersistsCounters(t *testing.T) {
	store := newMemUsageStore()
	tracker := NewTracker(store, time.Minute)
	tracker.Register("gnews", 100, 0)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := tracker.Reserve(ctx, "gnews"); err != nil {
			t.Fatalf("Reserve returned error: %v", err)
		}
	}
	tracker.RecordError("gnews")

	if err := tracker.Flush(ctx); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}

	today := time.Now().UTC().Format(dayFormat)
	row := store.get("gnews", today)
	if row == nil {
		t.Fatal("no usage row persisted")
	}
	if row.Requests != 4 {
		t.Errorf("requests = %d, want 4", row.Requests)
	}
	if row.Errors != 1 {
		t.Errorf("errors = %d, want 1", row.Errors)
	}
	if row.QuotaLimit != 100 {
		t.Errorf("quota_limit = %d, want 100", row.QuotaLimit)
	}

	// A second flush with nothing pending writes nothing new.
	if err := tracker.Flush(ctx); err != nil {
		t.Fatalf("second Flush returned error: %v", err)
	}
	if row := store.get("gnews", today); row.Requests != 4 {
		t.Errorf("requests after idle flush = %d, want 4", row.Requests)
	}
}

func TestDayRolloverResetsQuota(t *testing.T) {
	store := newMemUsageStore()
	tracker := NewTracker(store, time.Minute)
	tracker.Register("gnews", 2, 0)
	ctx := context.Background()

	day1 := time.Date(2026, 8, 22, 23, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return day1 }

	for i := 0; i < 2; i++ {
		if err := tracker.Reserve(ctx, "gnews"); err != nil {
			t.Fatalf("Reserve returned error: %v", err)
		}
	}
	if err := tracker.Reserve(ctx, "gnews"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Reserve = %v, want ErrQuotaExceeded", err)
	}

	// Midnight passes.
	tracker.now = func() time.Time { return day1.Add(2 * time.Hour) }

	if err := tracker.Reserve(ctx, "gnews"); err != nil {
		t.Errorf("Reserve after rollover returned error: %v", err)
	}

	// Yesterday's counters were flushed during rollover.
	row := store.get("gnews", day1.Format(dayFormat))
	if row == nil || row.Requests != 2 {
		t.Errorf("previous day row = %+v, want 2 requests", row)
	}
}

func TestReserveHonorsCancellation(t *testing.T) {
	store := newMemUsageStore()
	tracker := NewTracker(store, time.Minute)
	// 1 req/s with burst 1: the second reserve must wait, and the
	// cancelled context aborts the wait.
	tracker.Register("gnews", 0, 1)
	ctx := context.Background()

	if err := tracker.Reserve(ctx, "gnews"); err != nil {
		t.Fatalf("first Reserve returned error: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := tracker.Reserve(cancelled, "gnews"); err == nil {
		t.Error("expected error from cancelled context")
	}

	// The aborted reserve must not consume quota.
	if err := tracker.Flush(ctx); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	today := time.Now().UTC().Format(dayFormat)
	if row := store.get("gnews", today); row == nil || row.Requests != 1 {
		t.Errorf("persisted requests = %+v, want 1", row)
	}
}

func TestSnapshotIncludesIdleProviders(t *testing.T) {
	store := newMemUsageStore()
	tracker := NewTracker(store, time.Minute)
	tracker.Register("gnews", 100, 0)
	tracker.Register("youtube", 50, 0)
	ctx := context.Background()

	if err := tracker.Reserve(ctx, "gnews"); err != nil {
		t.Fatalf("Reserve returned error: %v", err)
	}

	rows, err := tracker.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	byProvider := make(map[string]*models.APIUsage, len(rows))
	for _, r := range rows {
		byProvider[r.Provider] = r
	}
	if got := byProvider["gnews"]; got == nil || got.Requests != 1 {
		t.Errorf("gnews snapshot = %+v, want 1 request", got)
	}
	if got := byProvider["youtube"]; got == nil || got.Requests != 0 || got.QuotaLimit != 50 {
		t.Errorf("youtube snapshot = %+v, want idle row with quota 50", got)
	}
}
