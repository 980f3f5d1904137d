// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package dedup

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://Example.COM/Path",
			want: "example.com/Path",
		},
		{
			name: "strips www prefix",
			in:   "https://www.example.com/news",
			want: "example.com/news",
		},
		{
			name: "strips default https port",
			in:   "https://example.com:443/a",
			want: "example.com/a",
		},
		{
			name: "strips default http port",
			in:   "http://example.com:80/a",
			want: "example.com/a",
		},
		{
			name: "keeps non-default port",
			in:   "https://example.com:8443/a",
			want: "example.com:8443/a",
		},
		{
			name: "drops fragment",
			in:   "https://example.com/a#section-2",
			want: "example.com/a",
		},
		{
			name: "drops utm tracking params",
			in:   "https://example.com/a?utm_source=x&utm_medium=email&id=7",
			want: "example.com/a?id=7",
		},
		{
			name: "drops gclid fbclid ref mc params",
			in:   "https://example.com/a?gclid=1&fbclid=2&ref=tw&mc_cid=3&mc_eid=4&q=go",
			want: "example.com/a?q=go",
		},
		{
			name: "sorts query params",
			in:   "https://example.com/a?z=1&a=2&m=3",
			want: "example.com/a?a=2&m=3&z=1",
		},
		{
			name: "collapses duplicate slashes",
			in:   "https://example.com//a///b",
			want: "example.com/a/b",
		},
		{
			name: "strips trailing slash",
			in:   "https://example.com/a/b/",
			want: "example.com/a/b",
		},
		{
			name: "root path normalizes to bare host",
			in:   "https://example.com/",
			want: "example.com",
		},
		{
			name: "bare host unchanged",
			in:   "https://example.com",
			want: "example.com",
		},
		{
			name: "query on root path",
			in:   "https://example.com/?q=1",
			want: "example.com?q=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeSchemeVariantsEqual(t *testing.T) {
	a, err := Normalize("http://www.example.com/blog/post?b=2&a=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Normalize("https://example.com/blog/post/?a=1&b=2&utm_campaign=x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Errorf("expected equal normalized forms, got %q and %q", a, b)
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	invalid := []string{
		"",
		"not a url",
		"ftp://example.com/file",
		"mailto:team@example.com",
		"https://",
		"/relative/path",
	}
	for _, in := range invalid {
		if _, err := Normalize(in); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Normalize(%q) error = %v, want ErrInvalidURL", in, err)
		}
	}
}

func TestSplitNormalized(t *testing.T) {
	host, segs, pairs := splitNormalized("example.com/a/b?x=1&y=2")
	if host != "example.com" {
		t.Errorf("host = %q, want example.com", host)
	}
	if len(segs) != 2 || segs[0] != "a" || segs[1] != "b" {
		t.Errorf("segments = %v, want [a b]", segs)
	}
	if len(pairs) != 2 || pairs[0] != "x=1" || pairs[1] != "y=2" {
		t.Errorf("pairs = %v, want [x=1 y=2]", pairs)
	}

	host, segs, pairs = splitNormalized("example.com")
	if host != "example.com" || len(segs) != 0 || len(pairs) != 0 {
		t.Errorf("bare host split = (%q, %v, %v)", host, segs, pairs)
	}
}

func TestHostOf(t *testing.T) {
	if got := HostOf("example.com:8443/a?q=1"); got != "example.com:8443" {
		t.Errorf("HostOf = %q, want example.com:8443", got)
	}
}
