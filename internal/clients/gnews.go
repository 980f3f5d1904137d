// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package clients

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/onside-hq/onside/internal/config"
)

const defaultGNewsBaseURL = "https://gnews.io"

// GNewsSource identifies the publication an article came from.
type GNewsSource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// GNewsArticle is one news story returned by GNews.
type GNewsArticle struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Content     string      `json:"content"`
	URL         string      `json:"url"`
	Image       string      `json:"image"`
	PublishedAt time.Time   `json:"publishedAt"`
	Source      GNewsSource `json:"source"`
}

type gnewsResponse struct {
	TotalArticles int            `json:"totalArticles"`
	Articles      []GNewsArticle `json:"articles"`
}

// GNewsClient adapts the GNews v4 API.
type GNewsClient struct {
	client  *httpClient
	baseURL string
	apiKey  string
	lang    string
}

// NewGNews creates a GNews adapter.
func NewGNews(cfg config.ProviderConfig, reserver QuotaReserver) *GNewsClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGNewsBaseURL
	}
	return &GNewsClient{
		client:  newHTTPClient("gnews", cfg, reserver),
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		lang:    "en",
	}
}

// Search queries news coverage matching query within [from, to]. A zero
// from or to leaves that bound open. max caps results (GNews allows up to
// 100 on paid plans, 10 on free).
func (c *GNewsClient) Search(ctx context.Context, query string, from, to time.Time, max int) ([]GNewsArticle, error) {
	if query == "" {
		return nil, fmt.Errorf("gnews: query must not be empty")
	}
	if max <= 0 {
		max = 10
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("lang", c.lang)
	params.Set("max", strconv.Itoa(max))
	params.Set("sortby", "publishedAt")
	params.Set("apikey", c.apiKey)
	if !from.IsZero() {
		params.Set("from", from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		params.Set("to", to.UTC().Format(time.RFC3339))
	}

	var resp gnewsResponse
	if err := c.client.getJSON(ctx, c.baseURL+"/api/v4/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Articles, nil
}

// TopHeadlines returns current headlines for a category (general,
// business, technology, ...).
func (c *GNewsClient) TopHeadlines(ctx context.Context, category string, max int) ([]GNewsArticle, error) {
	if category == "" {
		category = "general"
	}
	if max <= 0 {
		max = 10
	}

	params := url.Values{}
	params.Set("category", category)
	params.Set("lang", c.lang)
	params.Set("max", strconv.Itoa(max))
	params.Set("apikey", c.apiKey)

	var resp gnewsResponse
	if err := c.client.getJSON(ctx, c.baseURL+"/api/v4/top-headlines?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Articles, nil
}
