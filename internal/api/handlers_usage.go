// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package api

import (
	"net/http"
	"time"

	"github.com/onside-hq/onside/internal/models"
)

type usageEntry struct {
	*models.APIUsage
	Remaining *int64 `json:"remaining,omitempty"`
}

// handleUsage returns today's per-provider request counters, including the
// quota remaining for providers with a daily limit.
func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	if h.usage == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "usage tracking unavailable")
		return
	}

	usages, err := h.usage.Snapshot(r.Context())
	if err != nil {
		respondStoreError(w, r, err, "usage")
		return
	}

	entries := make([]usageEntry, 0, len(usages))
	for _, u := range usages {
		entry := usageEntry{APIUsage: u}
		if u.QuotaLimit > 0 {
			remaining := u.QuotaLimit - u.Requests
			if remaining < 0 {
				remaining = 0
			}
			entry.Remaining = &remaining
		}
		entries = append(entries, entry)
	}
	respondJSON(w, http.StatusOK, listEnvelope{Items: entries, Total: int64(len(entries))}, started)
}
