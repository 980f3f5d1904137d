// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

// Package report builds competitive-intelligence reports: it collects
// per-competitor sections from the provider adapters concurrently,
// deduplicates the links it gathers, optionally adds an LLM narrative,
// and renders the result to PDF.
package report

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/onside-hq/onside/internal/clients"
	"github.com/onside-hq/onside/internal/config"
	"github.com/onside-hq/onside/internal/dedup"
	"github.com/onside-hq/onside/internal/insights"
	"github.com/onside-hq/onside/internal/logging"
	"github.com/onside-hq/onside/internal/metrics"
	"github.com/onside-hq/onside/internal/models"
)

// Store is the persistence surface the builder needs.
type Store interface {
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	ListCompetitors(ctx context.Context, companyID uuid.UUID) ([]*models.Competitor, error)
	InsertReport(ctx context.Context, r *models.Report) error
	MarkReportBuilding(ctx context.Context, id uuid.UUID) error
	CompleteReport(ctx context.Context, id uuid.UUID, pdfPath string, duration time.Duration) error
	FailReport(ctx context.Context, id uuid.UUID, buildErr string, duration time.Duration) error
	InsertArticle(ctx context.Context, a *models.Article) error
	CountLinksSince(ctx context.Context, competitorID uuid.UUID, since time.Time) (int64, error)
}

// Provider adapter surfaces. Any of them may be nil on the builder, which
// disables that section.
type (
	NewsProvider interface {
		Search(ctx context.Context, query string, from, to time.Time, max int) ([]clients.GNewsArticle, error)
	}
	SearchProvider interface {
		Search(ctx context.Context, query string, num int64) ([]clients.SearchResult, error)
	}
	VideoProvider interface {
		ChannelStats(ctx context.Context, channelID string) (*clients.ChannelStats, error)
		RecentVideos(ctx context.Context, channelID string, since time.Time, max int64) ([]clients.Video, error)
	}
	WhoisProvider interface {
		Lookup(ctx context.Context, domain string) (*clients.WhoisInfo, error)
	}
	GeoProvider interface {
		LookupDomain(ctx context.Context, domain string) (*clients.GeoInfo, error)
	}
	InsightsProvider interface {
		Enabled() bool
		Generate(ctx context.Context, companyName string, periodStart, periodEnd time.Time, digests []insights.CompetitorDigest) (string, error)
	}
	Deduper interface {
		Deduplicate(ctx context.Context, competitorID uuid.UUID, candidates []*models.Link) (*dedup.Result, error)
	}
)

// CompetitorSection holds everything collected for one competitor.
// Warnings name the providers whose data is missing from the section.
type CompetitorSection struct {
	Competitor *models.Competitor
	Articles   []clients.GNewsArticle
	SearchHits []clients.SearchResult
	Channel    *clients.ChannelStats
	Videos     []clients.Video
	Whois      *clients.WhoisInfo
	Geo        *clients.GeoInfo
	NewLinks   int64
	Warnings   []string
}

// Data is the fully collected input to the PDF renderer.
type Data struct {
	Company     *models.Company
	PeriodStart time.Time
	PeriodEnd   time.Time
	Sections    []*CompetitorSection
	Insights    string
	GeneratedAt time.Time
}

// Builder assembles and renders reports.
type Builder struct {
	store    Store
	deduper  Deduper
	news     NewsProvider
	search   SearchProvider
	video    VideoProvider
	whois    WhoisProvider
	geo      GeoProvider
	insights InsightsProvider

	outputDir    string
	buildTimeout time.Duration
	maxParallel  int
	log          zerolog.Logger
}

// Providers bundles the optional provider adapters for the builder.
type Providers struct {
	News     NewsProvider
	Search   SearchProvider
	Video    VideoProvider
	Whois    WhoisProvider
	Geo      GeoProvider
	Insights InsightsProvider
}

// NewBuilder creates a report builder.
func NewBuilder(store Store, deduper Deduper, providers Providers, cfg config.ReportsConfig) *Builder {
	maxParallel := cfg.MaxConcurrentBuilds
	if maxParallel < 1 {
		maxParallel = 1
	}
	buildTimeout := cfg.BuildTimeout
	if buildTimeout <= 0 {
		buildTimeout = 10 * time.Minute
	}
	return &Builder{
		store:        store,
		deduper:      deduper,
		news:         providers.News,
		search:       providers.Search,
		video:        providers.Video,
		whois:        providers.Whois,
		geo:          providers.Geo,
		insights:     providers.Insights,
		outputDir:    cfg.OutputDir,
		buildTimeout: buildTimeout,
		maxParallel:  maxParallel,
		log:          logging.With().Str("component", "report").Logger(),
	}
}

// Build runs one report build end to end: claim the pending row, collect
// all sections, render the PDF, and record the outcome. The report row
// finishes in completed or failed state; a claim lost to another worker
// returns without touching the row.
func (b *Builder) Build(ctx context.Context, report *models.Report) error {
	if err := b.store.MarkReportBuilding(ctx, report.ID); err != nil {
		return fmt.Errorf("failed to claim report %s: %w", report.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.buildTimeout)
	defer cancel()

	start := time.Now()
	data, err := b.collect(ctx, report)
	if err == nil {
		var path string
		path, err = b.render(report, data)
		if err == nil {
			// The build deadline can expire during render, which takes no
			// context. Recording completion gets its own deadline so a
			// finished build never strands the row in building state.
			doneCtx, doneCancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = b.store.CompleteReport(doneCtx, report.ID, path, time.Since(start))
			doneCancel()
			if err == nil {
				metrics.ReportBuildsTotal.WithLabelValues("completed").Inc()
				metrics.ReportBuildDuration.Observe(time.Since(start).Seconds())
				b.log.Info().
					Str("report_id", report.ID.String()).
					Str("pdf", path).
					Dur("duration", time.Since(start)).
					Msg("Report completed")
				return nil
			}
			err = fmt.Errorf("failed to record completion: %w", err)
		}
	}

	// Failed builds still need their terminal row state. The original
	// context may already be dead, so the update gets its own deadline.
	failCtx, failCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer failCancel()
	if ferr := b.store.FailReport(failCtx, report.ID, err.Error(), time.Since(start)); ferr != nil {
		b.log.Error().Err(ferr).Str("report_id", report.ID.String()).Msg("Failed to mark report failed")
	}
	metrics.ReportBuildsTotal.WithLabelValues("failed").Inc()
	return fmt.Errorf("report %s build failed: %w", report.ID, err)
}

// collect gathers every section. Competitors are processed concurrently;
// individual provider failures degrade the section, never the report.
func (b *Builder) collect(ctx context.Context, report *models.Report) (*Data, error) {
	company, err := b.store.GetCompany(ctx, report.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company: %w", err)
	}
	competitors, err := b.store.ListCompetitors(ctx, company.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load competitors: %w", err)
	}
	if len(competitors) == 0 {
		return nil, fmt.Errorf("company %s has no competitors", company.Name)
	}

	sections := make([]*CompetitorSection, len(competitors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.maxParallel)
	for i, competitor := range competitors {
		g.Go(func() error {
			section, err := b.collectSection(gctx, report, competitor)
			if err != nil {
				return err
			}
			sections[i] = section
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := &Data{
		Company:     company,
		PeriodStart: report.PeriodStart,
		PeriodEnd:   report.PeriodEnd,
		Sections:    sections,
		GeneratedAt: time.Now().UTC(),
	}

	// Insights come last so the narrative sees the collected sections.
	if b.insights != nil && b.insights.Enabled() {
		narrative, err := b.insights.Generate(ctx, company.Name, report.PeriodStart, report.PeriodEnd, buildDigests(sections))
		if err != nil {
			b.log.Warn().Err(err).Str("report_id", report.ID.String()).Msg("Insights degraded")
		} else {
			data.Insights = narrative
		}
	}
	return data, nil
}

// collectSection gathers one competitor's data. Only context cancellation
// aborts it; provider errors are downgraded to section warnings.
func (b *Builder) collectSection(ctx context.Context, report *models.Report, competitor *models.Competitor) (*CompetitorSection, error) {
	section := &CompetitorSection{Competitor: competitor}
	slog := b.log.With().Str("competitor", competitor.Name).Logger()

	warn := func(provider string, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn().Err(err).Str("provider", provider).Msg("Section degraded")
		section.Warnings = append(section.Warnings, provider)
		return nil
	}

	if b.news != nil && len(competitor.Keywords) > 0 {
		articles, err := b.news.Search(ctx, keywordQuery(competitor), report.PeriodStart, report.PeriodEnd, 10)
		if err != nil {
			if werr := warn("gnews", err); werr != nil {
				return nil, werr
			}
		} else {
			section.Articles = articles
			if err := b.storeArticles(ctx, competitor, articles); err != nil {
				return nil, err
			}
		}
	}

	if b.search != nil && len(competitor.Keywords) > 0 {
		hits, err := b.search.Search(ctx, keywordQuery(competitor), 10)
		if err != nil {
			if werr := warn("customsearch", err); werr != nil {
				return nil, werr
			}
		} else {
			section.SearchHits = hits
			if err := b.storeSearchHits(ctx, competitor, hits); err != nil {
				return nil, err
			}
		}
	}

	if b.video != nil && competitor.ChannelID != "" {
		stats, err := b.video.ChannelStats(ctx, competitor.ChannelID)
		if err != nil {
			if werr := warn("youtube", err); werr != nil {
				return nil, werr
			}
		} else {
			section.Channel = stats
			videos, err := b.video.RecentVideos(ctx, competitor.ChannelID, report.PeriodStart, 10)
			if err != nil {
				if werr := warn("youtube", err); werr != nil {
					return nil, werr
				}
			} else {
				section.Videos = videos
				if err := b.storeVideos(ctx, competitor, videos); err != nil {
					return nil, err
				}
			}
		}
	}

	if b.whois != nil && competitor.Domain != "" {
		info, err := b.whois.Lookup(ctx, competitor.Domain)
		if err != nil {
			if werr := warn("whoapi", err); werr != nil {
				return nil, werr
			}
		} else {
			section.Whois = info
		}
	}

	if b.geo != nil && competitor.Domain != "" {
		geo, err := b.geo.LookupDomain(ctx, competitor.Domain)
		if err != nil {
			if werr := warn("ipinfo", err); werr != nil {
				return nil, werr
			}
		} else {
			section.Geo = geo
		}
	}

	count, err := b.store.CountLinksSince(ctx, competitor.ID, report.PeriodStart)
	if err != nil {
		return nil, fmt.Errorf("failed to count links for %s: %w", competitor.Name, err)
	}
	section.NewLinks = count
	return section, nil
}

// storeArticles dedupes and stores collected news links, attaching story
// metadata to the kept ones.
func (b *Builder) storeArticles(ctx context.Context, competitor *models.Competitor, articles []clients.GNewsArticle) error {
	if b.deduper == nil || len(articles) == 0 {
		return nil
	}

	byURL := make(map[string]clients.GNewsArticle, len(articles))
	candidates := make([]*models.Link, 0, len(articles))
	for _, a := range articles {
		byURL[a.URL] = a
		publishedAt := a.PublishedAt
		candidates = append(candidates, &models.Link{
			Provider:    "gnews",
			URL:         a.URL,
			Title:       a.Title,
			Description: a.Description,
			PublishedAt: &publishedAt,
		})
	}

	result, err := b.deduper.Deduplicate(ctx, competitor.ID, candidates)
	if err != nil {
		return fmt.Errorf("failed to dedupe articles for %s: %w", competitor.Name, err)
	}

	for _, link := range result.Kept {
		a, ok := byURL[link.URL]
		if !ok {
			continue
		}
		publishedAt := a.PublishedAt
		article := &models.Article{
			LinkID:      link.ID,
			SourceName:  a.Source.Name,
			SourceURL:   a.Source.URL,
			ImageURL:    a.Image,
			PublishedAt: &publishedAt,
		}
		if err := b.store.InsertArticle(ctx, article); err != nil {
			return fmt.Errorf("failed to store article: %w", err)
		}
	}
	return nil
}

func (b *Builder) storeSearchHits(ctx context.Context, competitor *models.Competitor, hits []clients.SearchResult) error {
	if b.deduper == nil || len(hits) == 0 {
		return nil
	}
	candidates := make([]*models.Link, 0, len(hits))
	for _, h := range hits {
		candidates = append(candidates, &models.Link{
			Provider:    "customsearch",
			URL:         h.Link,
			Title:       h.Title,
			Description: h.Snippet,
		})
	}
	if _, err := b.deduper.Deduplicate(ctx, competitor.ID, candidates); err != nil {
		return fmt.Errorf("failed to dedupe search hits for %s: %w", competitor.Name, err)
	}
	return nil
}

func (b *Builder) storeVideos(ctx context.Context, competitor *models.Competitor, videos []clients.Video) error {
	if b.deduper == nil || len(videos) == 0 {
		return nil
	}
	candidates := make([]*models.Link, 0, len(videos))
	for _, v := range videos {
		publishedAt := v.PublishedAt
		candidates = append(candidates, &models.Link{
			Provider:    "youtube",
			URL:         v.URL,
			Title:       v.Title,
			Description: v.Description,
			PublishedAt: &publishedAt,
		})
	}
	if _, err := b.deduper.Deduplicate(ctx, competitor.ID, candidates); err != nil {
		return fmt.Errorf("failed to dedupe videos for %s: %w", competitor.Name, err)
	}
	return nil
}

// render writes the PDF and returns its path.
func (b *Builder) render(report *models.Report, data *Data) (string, error) {
	filename := fmt.Sprintf("report-%s.pdf", report.ID)
	path := filepath.Join(b.outputDir, filename)
	if err := RenderPDF(path, data); err != nil {
		return "", fmt.Errorf("failed to render PDF: %w", err)
	}
	return path, nil
}

// keywordQuery renders a competitor's keywords as one OR query, falling
// back to the competitor name.
func keywordQuery(c *models.Competitor) string {
	if len(c.Keywords) == 0 {
		return c.Name
	}
	query := ""
	for i, kw := range c.Keywords {
		if i > 0 {
			query += " OR "
		}
		query += fmt.Sprintf("%q", kw)
	}
	return query
}

// buildDigests condenses sections into the insights prompt input.
func buildDigests(sections []*CompetitorSection) []insights.CompetitorDigest {
	digests := make([]insights.CompetitorDigest, 0, len(sections))
	for _, s := range sections {
		d := insights.CompetitorDigest{
			Name:     s.Competitor.Name,
			NewLinks: s.NewLinks,
		}
		for _, a := range s.Articles {
			d.Headlines = append(d.Headlines, a.Title)
		}
		for _, h := range s.SearchHits {
			d.SearchHits = append(d.SearchHits, h.Title)
		}
		for _, v := range s.Videos {
			d.VideoTitles = append(d.VideoTitles, v.Title)
		}
		digests = append(digests, d)
	}
	return digests
}
