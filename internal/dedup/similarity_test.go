// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package dedup

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPathSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want float64
	}{
		{"both empty", nil, nil, 1.0},
		{"one empty", []string{"a"}, nil, 0.0},
		{"identical", []string{"blog", "post"}, []string{"blog", "post"}, 1.0},
		{"disjoint", []string{"a", "b"}, []string{"x", "y"}, 0.0},
		// LCS of [blog 2024 post] and [blog post] is [blog post]: 2*2/5.
		{"partial overlap", []string{"blog", "2024", "post"}, []string{"blog", "post"}, 0.8},
		// Order matters for a subsequence: LCS of [a b] and [b a] is length 1.
		{"reordered", []string{"a", "b"}, []string{"b", "a"}, 0.5},
		{"prefix", []string{"docs"}, []string{"docs", "install"}, 2.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PathSimilarity(tt.a, tt.b); !almostEqual(got, tt.want) {
				t.Errorf("PathSimilarity(%v, %v) = %g, want %g", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestPathSimilaritySymmetric(t *testing.T) {
	a := []string{"blog", "2024", "06", "launch"}
	b := []string{"blog", "launch"}
	if x, y := PathSimilarity(a, b), PathSimilarity(b, a); !almostEqual(x, y) {
		t.Errorf("not symmetric: %g vs %g", x, y)
	}
}

func TestQuerySimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want float64
	}{
		{"both empty", nil, nil, 1.0},
		{"one empty", []string{"a=1"}, nil, 0.0},
		{"identical", []string{"a=1", "b=2"}, []string{"a=1", "b=2"}, 1.0},
		{"disjoint", []string{"a=1"}, []string{"b=2"}, 0.0},
		// {a=1, b=2} vs {a=1, c=3}: intersection 1, union 3.
		{"partial", []string{"a=1", "b=2"}, []string{"a=1", "c=3"}, 1.0 / 3.0},
		// Same key, different value is a different pair.
		{"value mismatch", []string{"page=1"}, []string{"page=2"}, 0.0},
		{"subset", []string{"a=1"}, []string{"a=1", "b=2"}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuerySimilarity(tt.a, tt.b); !almostEqual(got, tt.want) {
				t.Errorf("QuerySimilarity(%v, %v) = %g, want %g", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	t.Run("cross-host scores zero", func(t *testing.T) {
		total, path, query := Score("example.com/a", "other.com/a", 0.7, 0.3)
		if total != 0 || path != 0 || query != 0 {
			t.Errorf("cross-host Score = (%g, %g, %g), want zeros", total, path, query)
		}
	})

	t.Run("identical URLs score full weight", func(t *testing.T) {
		total, path, query := Score("example.com/a?x=1", "example.com/a?x=1", 0.7, 0.3)
		if !almostEqual(total, 1.0) || !almostEqual(path, 1.0) || !almostEqual(query, 1.0) {
			t.Errorf("identical Score = (%g, %g, %g), want 1.0 each", total, path, query)
		}
	})

	t.Run("weights combine components", func(t *testing.T) {
		// Same path, disjoint queries: 0.7*1.0 + 0.3*0.0.
		total, path, query := Score("example.com/a?x=1", "example.com/a?y=2", 0.7, 0.3)
		if !almostEqual(total, 0.7) {
			t.Errorf("total = %g, want 0.7", total)
		}
		if !almostEqual(path, 1.0) || !almostEqual(query, 0.0) {
			t.Errorf("components = (%g, %g), want (1.0, 0.0)", path, query)
		}
	})

	t.Run("near-duplicate article URLs exceed default threshold", func(t *testing.T) {
		// Same story with an index suffix segment.
		total, _, _ := Score(
			"example.com/news/2026/acme-raises-series-b",
			"example.com/news/2026/acme-raises-series-b/amp",
			0.7, 0.3)
		if total < 0.85 {
			t.Errorf("total = %g, want >= 0.85", total)
		}
	})
}
