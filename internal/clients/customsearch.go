// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package clients

import (
	"context"
	"fmt"

	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/onside-hq/onside/internal/config"
)

// SearchResult is one web hit from Google Custom Search.
type SearchResult struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	DisplayLink string `json:"display_link"`
}

// SearchClient adapts the Google Custom Search JSON API through the
// generated customsearch/v1 client.
type SearchClient struct {
	svc      *customsearch.Service
	engineID string
	env      *googleEnvelope
}

// NewCustomSearch creates a Custom Search adapter bound to the configured
// search engine ID.
func NewCustomSearch(ctx context.Context, cfg config.CustomSearchConfig, reserver QuotaReserver) (*SearchClient, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search service: %w", err)
	}
	return &SearchClient{
		svc:      svc,
		engineID: cfg.EngineID,
		env:      newGoogleEnvelope("customsearch", cfg.ProviderConfig, reserver),
	}, nil
}

// Search returns up to num web results for the query. The API caps num at
// 10 per request.
func (c *SearchClient) Search(ctx context.Context, query string, num int64) ([]SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("customsearch: query must not be empty")
	}
	if num <= 0 || num > 10 {
		num = 10
	}

	res, err := googleCall(ctx, c.env, func() (*customsearch.Search, error) {
		return c.svc.Cse.List().
			Q(query).
			Cx(c.engineID).
			Num(num).
			Context(ctx).
			Do()
	})
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(res.Items))
	for _, item := range res.Items {
		results = append(results, SearchResult{
			Title:       item.Title,
			Link:        item.Link,
			Snippet:     item.Snippet,
			DisplayLink: item.DisplayLink,
		})
	}
	return results, nil
}
