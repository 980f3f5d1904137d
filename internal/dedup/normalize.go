// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

// Package dedup implements link deduplication: URL normalization, path and
// query similarity scoring, and the service that decides whether a newly
// collected link duplicates one already stored.
package dedup

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrInvalidURL is returned when a candidate URL cannot be normalized.
// Invalid URLs are rejected outright rather than treated as duplicates.
var ErrInvalidURL = errors.New("invalid URL")

// trackingParams are query parameters that identify a visit, not a page.
// Two URLs differing only in these point at the same content.
var trackingParams = map[string]bool{
	"gclid":  true,
	"fbclid": true,
	"ref":    true,
	"mc_cid": true,
	"mc_eid": true,
}

func isTrackingParam(key string) bool {
	return trackingParams[key] || strings.HasPrefix(key, "utm_")
}

// Normalize reduces a raw URL to its canonical scheme-less form:
//
//	HTTPS://WWW.Example.COM:443/a//b/?utm_source=x&b=2&a=1#frag
//	  -> example.com/a/b?a=1&b=2
//
// The scheme is dropped entirely so that http and https variants of the
// same page normalize equal. The result always starts with the host, which
// lets storage index and prefix-scan links by host.
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	// Keep only non-default ports.
	if port := u.Port(); port != "" {
		if !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
			host += ":" + port
		}
	}

	path := normalizePath(u.EscapedPath())
	query := normalizeQuery(u.Query())

	normalized := host + path
	if query != "" {
		normalized += "?" + query
	}
	return normalized, nil
}

// normalizePath collapses duplicate slashes and strips the trailing slash.
// The root path normalizes to the empty string so that "example.com/" and
// "example.com" compare equal.
func normalizePath(path string) string {
	if path == "" || path == "/" {
		return ""
	}

	segments := make([]string, 0, 8)
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return ""
	}
	return "/" + strings.Join(segments, "/")
}

// normalizeQuery drops tracking parameters and renders the rest sorted by
// key then value, so parameter order never affects the normalized form.
func normalizeQuery(values url.Values) string {
	pairs := make([]string, 0, len(values))
	for key, vals := range values {
		if isTrackingParam(key) {
			continue
		}
		for _, v := range vals {
			pairs = append(pairs, key+"="+v)
		}
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

// splitNormalized decomposes a normalized URL into its host, path segments
// and query key=value pairs for similarity scoring.
func splitNormalized(normalized string) (host string, segments []string, pairs []string) {
	rest := normalized
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		q := rest[i+1:]
		rest = rest[:i]
		if q != "" {
			pairs = strings.Split(q, "&")
		}
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		host = rest[:i]
		for _, seg := range strings.Split(rest[i+1:], "/") {
			if seg != "" {
				segments = append(segments, seg)
			}
		}
	} else {
		host = rest
	}
	return host, segments, pairs
}

// HostOf returns the host part of a normalized URL, used to prefix-scan
// stored links on the same host.
func HostOf(normalized string) string {
	host, _, _ := splitNormalized(normalized)
	return host
}
