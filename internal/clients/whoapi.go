// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package clients

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/onside-hq/onside/internal/cache"
	"github.com/onside-hq/onside/internal/config"
)

const defaultWhoAPIBaseURL = "https://api.whoapi.com"

// WhoisInfo is the registration record for one domain.
type WhoisInfo struct {
	Domain      string `json:"domain"`
	Registered  bool   `json:"registered"`
	Registrar   string `json:"whois_name"`
	WhoisServer string `json:"whois_server"`
	DateCreated string `json:"date_created"`
	DateUpdated string `json:"date_updated"`
	DateExpires string `json:"date_expires"`
}

// whoapiResponse wraps WhoisInfo with the API's own status envelope.
// Status "0" means success; anything else carries StatusDesc.
type whoapiResponse struct {
	WhoisInfo
	Status     string `json:"status"`
	StatusDesc string `json:"status_desc"`
}

// WhoAPIClient adapts the WhoAPI whois endpoint. Lookups go through the
// TTL cache first; registration facts change slowly.
type WhoAPIClient struct {
	client  *httpClient
	baseURL string
	apiKey  string
	cache   *cache.Cache
	ttl     time.Duration
}

// NewWhoAPI creates a WhoAPI adapter. lookupCache may be nil to disable
// caching.
func NewWhoAPI(cfg config.ProviderConfig, reserver QuotaReserver, lookupCache *cache.Cache, ttl time.Duration) *WhoAPIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultWhoAPIBaseURL
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &WhoAPIClient{
		client:  newHTTPClient("whoapi", cfg, reserver),
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		cache:   lookupCache,
		ttl:     ttl,
	}
}

// Lookup returns whois registration facts for a domain.
func (c *WhoAPIClient) Lookup(ctx context.Context, domain string) (*WhoisInfo, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" || !strings.Contains(domain, ".") {
		return nil, fmt.Errorf("whoapi: invalid domain %q", domain)
	}

	if c.cache != nil {
		var cached WhoisInfo
		err := c.cache.Get("whois", domain, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			c.client.log.Warn().Err(err).Str("domain", domain).Msg("Cache read failed, falling through")
		}
	}

	params := url.Values{}
	params.Set("domain", domain)
	params.Set("r", "whois")
	params.Set("apikey", c.apiKey)

	var resp whoapiResponse
	if err := c.client.getJSON(ctx, c.baseURL+"/?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != "0" {
		return nil, fmt.Errorf("whoapi: lookup of %s failed: %s (status %s)", domain, resp.StatusDesc, resp.Status)
	}

	info := resp.WhoisInfo
	if info.Domain == "" {
		info.Domain = domain
	}

	if c.cache != nil {
		if err := c.cache.Set("whois", domain, &info, c.ttl); err != nil {
			c.client.log.Warn().Err(err).Str("domain", domain).Msg("Cache write failed")
		}
	}
	return &info, nil
}
