// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/onside-hq/onside/internal/database"
	"github.com/onside-hq/onside/internal/logging"
	"github.com/onside-hq/onside/internal/models"
)

// Error codes returned in the response envelope.
const (
	codeBadRequest   = "bad_request"
	codeUnauthorized = "unauthorized"
	codeNotFound     = "not_found"
	codeInternal     = "internal_error"
	codeUnavailable  = "unavailable"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// respondJSON writes a success envelope.
func respondJSON(w http.ResponseWriter, status int, data interface{}, started time.Time) {
	resp := models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(started).Milliseconds(),
		},
	}
	writeJSON(w, status, resp)
}

// respondError writes an error envelope.
func respondError(w http.ResponseWriter, status int, code, message string) {
	resp := models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message},
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondStoreError maps persistence errors onto the envelope.
func respondStoreError(w http.ResponseWriter, r *http.Request, err error, what string) {
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, codeNotFound, what+" not found")
		return
	}
	logger := logging.Ctx(r.Context())
	logger.Error().Err(err).Str("what", what).Msg("Storage operation failed")
	respondError(w, http.StatusInternalServerError, codeInternal, "storage operation failed")
}

// decodeJSON decodes a bounded request body into v, rejecting unknown
// fields.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// pathUUID parses a UUID path parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}
