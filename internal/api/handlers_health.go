// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package api

import (
	"net/http"
	"time"
)

// handleLive reports process liveness.
func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, time.Now())
}

// handleReady reports readiness: the process can serve traffic only when
// the database answers.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if err := h.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"}, started)
}

// handleHealth reports component-level health and enabled providers.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	components := map[string]string{"database": "ok"}
	status := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		components["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	providers := map[string]bool{
		"gnews":        h.cfg.Providers.GNews.Enabled,
		"ipinfo":       h.cfg.Providers.IPInfo.Enabled,
		"whoapi":       h.cfg.Providers.WhoAPI.Enabled,
		"customsearch": h.cfg.Providers.CustomSearch.Enabled,
		"youtube":      h.cfg.Providers.YouTube.Enabled,
	}

	respondJSON(w, status, map[string]interface{}{
		"components": components,
		"providers":  providers,
		"insights":   h.cfg.Insights.Enabled,
	}, started)
}
