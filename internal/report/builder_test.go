// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package report

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/onside-hq/onside/internal/clients"
	"github.com/onside-hq/onside/internal/config"
	"github.com/onside-hq/onside/internal/database"
	"github.com/onside-hq/onside/internal/dedup"
	"github.com/onside-hq/onside/internal/insights"
	"github.com/onside-hq/onside/internal/models"
)

// stubStore tracks the report state machine in memory.
type stubStore struct {
	mu          sync.Mutex
	company     *models.Company
	competitors []*models.Competitor
	statuses    map[uuid.UUID]string
	pdfPath     string
	failText    string
	articles    []*models.Article
	linkCount   int64
}

func newStubStore() *stubStore {
	companyID := uuid.New()
	return &stubStore{
		company: &models.Company{ID: companyID, Name: "Initech", Domain: "initech.example"},
		competitors: []*models.Competitor{
			{ID: uuid.New(), CompanyID: companyID, Name: "Acme", Domain: "acme.example", Keywords: []string{"acme"}},
			{ID: uuid.New(), CompanyID: companyID, Name: "Globex", Domain: "globex.example", Keywords: []string{"globex"}, ChannelID: "UCglobex"},
		},
		statuses:  make(map[uuid.UUID]string),
		linkCount: 3,
	}
}

func (s *stubStore) GetCompany(_ context.Context, id uuid.UUID) (*models.Company, error) {
	if s.company == nil || s.company.ID != id {
		return nil, database.ErrNotFound
	}
	return s.company, nil
}

func (s *stubStore) ListCompetitors(_ context.Context, _ uuid.UUID) ([]*models.Competitor, error) {
	return s.competitors, nil
}

func (s *stubStore) InsertReport(_ context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[r.ID] = models.ReportStatusPending
	return nil
}

func (s *stubStore) MarkReportBuilding(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statuses[id] != models.ReportStatusPending {
		return database.ErrNotFound
	}
	s.statuses[id] = models.ReportStatusBuilding
	return nil
}

func (s *stubStore) CompleteReport(_ context.Context, id uuid.UUID, pdfPath string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statuses[id] != models.ReportStatusBuilding {
		return database.ErrNotFound
	}
	s.statuses[id] = models.ReportStatusCompleted
	s.pdfPath = pdfPath
	return nil
}

func (s *stubStore) FailReport(_ context.Context, id uuid.UUID, buildErr string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statuses[id] != models.ReportStatusBuilding {
		return database.ErrNotFound
	}
	s.statuses[id] = models.ReportStatusFailed
	s.failText = buildErr
	return nil
}

func (s *stubStore) InsertArticle(_ context.Context, a *models.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles = append(s.articles, a)
	return nil
}

func (s *stubStore) CountLinksSince(_ context.Context, _ uuid.UUID, _ time.Time) (int64, error) {
	return s.linkCount, nil
}

func (s *stubStore) status(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[id]
}

// keepAllDeduper stores nothing and keeps every candidate.
type keepAllDeduper struct{}

func (keepAllDeduper) Deduplicate(_ context.Context, competitorID uuid.UUID, candidates []*models.Link) (*dedup.Result, error) {
	for _, c := range candidates {
		c.ID = uuid.New()
		c.CompetitorID = competitorID
		c.DedupeStatus = models.LinkStatusKept
	}
	return &dedup.Result{Kept: candidates}, nil
}

// Provider stubs.
type stubNews struct{ err error }

func (s stubNews) Search(_ context.Context, _ string, _, _ time.Time, _ int) ([]clients.GNewsArticle, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []clients.GNewsArticle{{
		Title:       "Acme raises Series B",
		URL:         "https://news.example/acme-series-b",
		PublishedAt: time.Now().UTC(),
		Source:      clients.GNewsSource{Name: "Example News", URL: "https://news.example"},
	}}, nil
}

type stubSearch struct{ err error }

func (s stubSearch) Search(_ context.Context, _ string, _ int64) ([]clients.SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []clients.SearchResult{{Title: "Acme homepage", Link: "https://acme.example", DisplayLink: "acme.example"}}, nil
}

type stubVideo struct{ err error }

func (s stubVideo) ChannelStats(_ context.Context, channelID string) (*clients.ChannelStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &clients.ChannelStats{ChannelID: channelID, Title: "Globex", Subscribers: 1000}, nil
}

func (s stubVideo) RecentVideos(_ context.Context, _ string, _ time.Time, _ int64) ([]clients.Video, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []clients.Video{{VideoID: "v1", Title: "Globex keynote", URL: "https://www.youtube.com/watch?v=v1", PublishedAt: time.Now().UTC()}}, nil
}

type stubInsights struct {
	enabled bool
	err     error
}

func (s stubInsights) Enabled() bool { return s.enabled }

func (s stubInsights) Generate(_ context.Context, _ string, _, _ time.Time, _ []insights.CompetitorDigest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "Competitors were active this period.", nil
}

func testBuilder(t *testing.T, store Store, providers Providers) *Builder {
	t.Helper()
	return NewBuilder(store, keepAllDeduper{}, providers, config.ReportsConfig{
		OutputDir:           t.TempDir(),
		MaxConcurrentBuilds: 2,
		BuildTimeout:        time.Minute,
	})
}

func pendingReport(t *testing.T, store *stubStore) *models.Report {
	t.Helper()
	report := &models.Report{
		ID:          uuid.New(),
		CompanyID:   store.company.ID,
		PeriodStart: time.Now().UTC().AddDate(0, 0, -7),
		PeriodEnd:   time.Now().UTC(),
	}
	if err := store.InsertReport(context.Background(), report); err != nil {
		t.Fatalf("InsertReport failed: %v", err)
	}
	return report
}

func TestBuildCompletes(t *testing.T) {
	store := newStubStore()
	builder := testBuilder(t, store, Providers{
		News:     stubNews{},
		Search:   stubSearch{},
		Video:    stubVideo{},
		Insights: stubInsights{enabled: true},
	})
	report := pendingReport(t, store)

	if err := builder.Build(context.Background(), report); err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if got := store.status(report.ID); got != models.ReportStatusCompleted {
		t.Errorf("status = %q, want completed", got)
	}
	if store.pdfPath == "" {
		t.Fatal("no PDF path recorded")
	}
	info, err := os.Stat(store.pdfPath)
	if err != nil {
		t.Fatalf("PDF not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("PDF is empty")
	}
	if len(store.articles) == 0 {
		t.Error("no article metadata stored")
	}
}

func TestBuildDegradesOnProviderFailure(t *testing.T) {
	store := newStubStore()
	builder := testBuilder(t, store, Providers{
		News:   stubNews{err: errors.New("gnews down")},
		Search: stubSearch{},
	})
	report := pendingReport(t, store)

	if err := builder.Build(context.Background(), report); err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if got := store.status(report.ID); got != models.ReportStatusCompleted {
		t.Errorf("status = %q, want completed despite provider failure", got)
	}
}

func TestBuildDegradesOnInsightsFailure(t *testing.T) {
	store := newStubStore()
	builder := testBuilder(t, store, Providers{
		News:     stubNews{},
		Insights: stubInsights{enabled: true, err: errors.New("llm down")},
	})
	report := pendingReport(t, store)

	if err := builder.Build(context.Background(), report); err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if got := store.status(report.ID); got != models.ReportStatusCompleted {
		t.Errorf("status = %q, want completed despite insights failure", got)
	}
}

func TestBuildFailsWhenCompanyMissing(t *testing.T) {
	store := newStubStore()
	builder := testBuilder(t, store, Providers{News: stubNews{}})
	report := pendingReport(t, store)
	report.CompanyID = uuid.New() // no such company

	if err := builder.Build(context.Background(), report); err == nil {
		t.Fatal("expected error")
	}
	if got := store.status(report.ID); got != models.ReportStatusFailed {
		t.Errorf("status = %q, want failed", got)
	}
	if store.failText == "" {
		t.Error("no failure reason recorded")
	}
}

// deadlineStore outlives the build deadline during collection and rejects
// writes on an expired context, the way a real database driver would.
type deadlineStore struct {
	*stubStore
	delay time.Duration
}

func (s *deadlineStore) ListCompetitors(ctx context.Context, id uuid.UUID) ([]*models.Competitor, error) {
	time.Sleep(s.delay)
	return s.stubStore.ListCompetitors(ctx, id)
}

func (s *deadlineStore) CompleteReport(ctx context.Context, id uuid.UUID, pdfPath string, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.stubStore.CompleteReport(ctx, id, pdfPath, d)
}

func TestBuildRecordsCompletionPastDeadline(t *testing.T) {
	store := newStubStore()
	slow := &deadlineStore{stubStore: store, delay: 50 * time.Millisecond}
	builder := NewBuilder(slow, keepAllDeduper{}, Providers{News: stubNews{}}, config.ReportsConfig{
		OutputDir:           t.TempDir(),
		MaxConcurrentBuilds: 2,
		BuildTimeout:        10 * time.Millisecond,
	})
	report := pendingReport(t, store)

	if err := builder.Build(context.Background(), report); err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if got := store.status(report.ID); got != models.ReportStatusCompleted {
		t.Errorf("status = %q, want completed after deadline expiry", got)
	}
}

// completeFailStore rejects the completion write unconditionally.
type completeFailStore struct {
	*stubStore
	completeErr error
}

func (s *completeFailStore) CompleteReport(_ context.Context, _ uuid.UUID, _ string, _ time.Duration) error {
	return s.completeErr
}

func TestBuildFailsWhenCompletionRecordingFails(t *testing.T) {
	store := newStubStore()
	wrapped := &completeFailStore{stubStore: store, completeErr: errors.New("db gone")}
	builder := testBuilder(t, wrapped, Providers{News: stubNews{}})
	report := pendingReport(t, store)

	if err := builder.Build(context.Background(), report); err == nil {
		t.Fatal("expected error when completion cannot be recorded")
	}
	if got := store.status(report.ID); got != models.ReportStatusFailed {
		t.Errorf("status = %q, want failed rather than stranded in building", got)
	}
	if store.failText == "" {
		t.Error("no failure reason recorded")
	}
}

func TestBuildRequiresPendingClaim(t *testing.T) {
	store := newStubStore()
	builder := testBuilder(t, store, Providers{News: stubNews{}})
	report := pendingReport(t, store)
	store.statuses[report.ID] = models.ReportStatusCompleted

	if err := builder.Build(context.Background(), report); err == nil {
		t.Error("expected error for lost claim")
	}
	if got := store.status(report.ID); got != models.ReportStatusCompleted {
		t.Errorf("status = %q, completed report must not be touched", got)
	}
}

func TestCollectSectionWarnings(t *testing.T) {
	store := newStubStore()
	builder := testBuilder(t, store, Providers{
		News:   stubNews{err: errors.New("down")},
		Search: stubSearch{},
	})
	report := pendingReport(t, store)

	data, err := builder.collect(context.Background(), report)
	if err != nil {
		t.Fatalf("collect returned error: %v", err)
	}
	if len(data.Sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(data.Sections))
	}
	for _, s := range data.Sections {
		found := false
		for _, w := range s.Warnings {
			if w == "gnews" {
				found = true
			}
		}
		if !found {
			t.Errorf("section %s missing gnews warning", s.Competitor.Name)
		}
		if len(s.SearchHits) != 1 {
			t.Errorf("section %s search hits = %d, want 1", s.Competitor.Name, len(s.SearchHits))
		}
		if s.NewLinks != 3 {
			t.Errorf("section %s new links = %d, want 3", s.Competitor.Name, s.NewLinks)
		}
	}
}

func TestKeywordQuery(t *testing.T) {
	c := &models.Competitor{Name: "Acme", Keywords: []string{"acme corp", "acme inc"}}
	if got := keywordQuery(c); got != `"acme corp" OR "acme inc"` {
		t.Errorf("keywordQuery = %q", got)
	}
	if got := keywordQuery(&models.Competitor{Name: "Acme"}); got != "Acme" {
		t.Errorf("fallback keywordQuery = %q", got)
	}
}
