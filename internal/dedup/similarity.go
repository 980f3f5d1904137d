// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package dedup

// PathSimilarity scores two URL paths by the longest common subsequence of
// their segments, as a ratio 2*matches/(lenA+lenB). Two empty paths score
// 1.0; an empty path against a non-empty one scores 0.
func PathSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	match := lcsLength(a, b)
	return 2.0 * float64(match) / float64(len(a)+len(b))
}

// lcsLength computes the longest common subsequence length over string
// slices with the usual two-row dynamic program.
func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// QuerySimilarity scores two query strings by the Jaccard index of their
// key=value pair sets. Two empty queries score 1.0.
func QuerySimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	setA := make(map[string]bool, len(a))
	for _, p := range a {
		setA[p] = true
	}
	setB := make(map[string]bool, len(b))
	for _, p := range b {
		setB[p] = true
	}

	intersection := 0
	union := len(setA)
	for p := range setB {
		if setA[p] {
			intersection++
		} else {
			union++
		}
	}
	return float64(intersection) / float64(union)
}

// Score computes the weighted similarity of two normalized URLs. URLs on
// different hosts never match; identical normalized URLs are exact
// duplicates and score 1.0 on both components.
func Score(a, b string, pathWeight, queryWeight float64) (total, path, query float64) {
	hostA, segsA, pairsA := splitNormalized(a)
	hostB, segsB, pairsB := splitNormalized(b)
	if hostA != hostB {
		return 0, 0, 0
	}

	path = PathSimilarity(segsA, segsB)
	query = QuerySimilarity(pairsA, pairsB)
	total = pathWeight*path + queryWeight*query
	return total, path, query
}
