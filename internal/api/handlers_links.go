// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/onside-hq/onside/internal/database"
	"github.com/onside-hq/onside/internal/validation"
)

// queryUUID parses an optional UUID query parameter.
func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// queryTime parses an optional RFC3339 query parameter.
func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// handleListLinks lists collected links with filters: competitor_id,
// provider, dedupe_status, from, to, limit, offset.
func (h *Handler) handleListLinks(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	competitorID, err := queryUUID(r, "competitor_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid competitor_id")
		return
	}
	from, err := queryTime(r, "from")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid from time, want RFC3339")
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid to time, want RFC3339")
		return
	}

	limit, offset := parsePagination(r)
	filter := database.LinkFilter{
		CompetitorID: competitorID,
		Provider:     r.URL.Query().Get("provider"),
		DedupeStatus: r.URL.Query().Get("dedupe_status"),
		FromTime:     from,
		ToTime:       to,
		Limit:        limit,
		Offset:       offset,
	}

	links, total, err := h.store.ListLinks(r.Context(), filter)
	if err != nil {
		respondStoreError(w, r, err, "links")
		return
	}
	respondJSON(w, http.StatusOK, listEnvelope{Items: links, Total: total}, started)
}

// handleListDedupeEntries lists the dedupe audit trail.
func (h *Handler) handleListDedupeEntries(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	competitorID, err := queryUUID(r, "competitor_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid competitor_id")
		return
	}

	limit, offset := parsePagination(r)
	filter := database.DedupeFilter{
		CompetitorID: competitorID,
		Reason:       r.URL.Query().Get("reason"),
		Limit:        limit,
		Offset:       offset,
	}

	entries, total, err := h.store.ListDedupeEntries(r.Context(), filter)
	if err != nil {
		respondStoreError(w, r, err, "dedupe entries")
		return
	}
	respondJSON(w, http.StatusOK, listEnvelope{Items: entries, Total: total}, started)
}

// handleGetDedupeEntry returns one audit entry.
func (h *Handler) handleGetDedupeEntry(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	id, err := pathUUID(r, "entryID")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	entry, err := h.store.GetDedupeEntry(r.Context(), id)
	if err != nil {
		respondStoreError(w, r, err, "dedupe entry")
		return
	}
	respondJSON(w, http.StatusOK, entry, started)
}

type rededupeRequest struct {
	CompetitorID string `json:"competitor_id" validate:"required,uuid"`
}

// handleRededupe replays dedupe decisions over a competitor's stored
// links, demoting duplicates found under the current scoring settings.
func (h *Handler) handleRededupe(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	if h.rededuper == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "dedupe service unavailable")
		return
	}

	var req rededupeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	competitorID, err := uuid.Parse(req.CompetitorID)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid competitor_id")
		return
	}

	demoted, err := h.rededuper.Rededupe(r.Context(), competitorID)
	if err != nil {
		respondStoreError(w, r, err, "links")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"demoted": demoted}, started)
}
