// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package clients

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/onside-hq/onside/internal/cache"
	"github.com/onside-hq/onside/internal/config"
)

const defaultIPInfoBaseURL = "https://ipinfo.io"

// GeoInfo is the geolocation record for one IP address.
type GeoInfo struct {
	IP       string `json:"ip"`
	Hostname string `json:"hostname,omitempty"`
	City     string `json:"city,omitempty"`
	Region   string `json:"region,omitempty"`
	Country  string `json:"country,omitempty"`
	Loc      string `json:"loc,omitempty"`
	Org      string `json:"org,omitempty"`
	Postal   string `json:"postal,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// IPInfoClient adapts the ipinfo.io geolocation API. Lookups go through
// the TTL cache first; hosting locations change rarely.
type IPInfoClient struct {
	client  *httpClient
	baseURL string
	apiKey  string
	cache   *cache.Cache
	ttl     time.Duration
}

// NewIPInfo creates an IPInfo adapter. lookupCache may be nil to disable
// caching.
func NewIPInfo(cfg config.ProviderConfig, reserver QuotaReserver, lookupCache *cache.Cache, ttl time.Duration) *IPInfoClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultIPInfoBaseURL
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IPInfoClient{
		client:  newHTTPClient("ipinfo", cfg, reserver),
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		cache:   lookupCache,
		ttl:     ttl,
	}
}

// Lookup returns geolocation facts for an IP address.
func (c *IPInfoClient) Lookup(ctx context.Context, ip string) (*GeoInfo, error) {
	if net.ParseIP(ip) == nil {
		return nil, fmt.Errorf("ipinfo: invalid IP address %q", ip)
	}

	if c.cache != nil {
		var cached GeoInfo
		err := c.cache.Get("geo", ip, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			c.client.log.Warn().Err(err).Str("ip", ip).Msg("Cache read failed, falling through")
		}
	}

	reqURL := c.baseURL + "/" + url.PathEscape(ip) + "/json"
	if c.apiKey != "" {
		reqURL += "?token=" + url.QueryEscape(c.apiKey)
	}

	var info GeoInfo
	if err := c.client.getJSON(ctx, reqURL, &info); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set("geo", ip, &info, c.ttl); err != nil {
			c.client.log.Warn().Err(err).Str("ip", ip).Msg("Cache write failed")
		}
	}
	return &info, nil
}

// LookupDomain resolves a domain's first address and returns its
// geolocation. Used for the domain facts report section.
func (c *IPInfoClient) LookupDomain(ctx context.Context, domain string) (*GeoInfo, error) {
	addrs, err := net.DefaultResolver.LookupIP(ctx, "ip4", domain)
	if err != nil {
		return nil, fmt.Errorf("ipinfo: failed to resolve %s: %w", domain, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("ipinfo: no addresses for %s", domain)
	}
	return c.Lookup(ctx, addrs[0].String())
}
