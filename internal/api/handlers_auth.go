// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/onside-hq/onside/internal/auth"
	"github.com/onside-hq/onside/internal/database"
	"github.com/onside-hq/onside/internal/logging"
	"github.com/onside-hq/onside/internal/validation"
)

type loginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=128"`
	Password string `json:"password" validate:"required,min=1,max=1024"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// handleLogin verifies credentials against the configured admin account
// and the users table, and issues a token pair.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	role, ok := h.verifyCredentials(r.Context(), req.Username, req.Password)
	if !ok {
		// One message for unknown user and wrong password.
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
		return
	}

	pair, err := h.auth.IssuePair(req.Username, role)
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("Token issuance failed")
		respondError(w, http.StatusInternalServerError, codeInternal, "failed to issue tokens")
		return
	}
	respondJSON(w, http.StatusOK, pair, started)
}

func (h *Handler) verifyCredentials(ctx context.Context, username, password string) (role string, ok bool) {
	sec := h.cfg.Security
	if sec.AdminUsername != "" && username == sec.AdminUsername {
		// The configured admin password may be a bcrypt hash or, for
		// development setups, plaintext.
		if strings.HasPrefix(sec.AdminPassword, "$2") {
			return "admin", auth.CheckPassword(sec.AdminPassword, password)
		}
		match := subtle.ConstantTimeCompare([]byte(sec.AdminPassword), []byte(password)) == 1
		return "admin", match && sec.AdminPassword != ""
	}

	user, err := h.store.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			logger := logging.Ctx(ctx)
			logger.Error().Err(err).Msg("User lookup failed")
		}
		return "", false
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", false
	}
	if err := h.store.TouchUserLogin(ctx, user.ID); err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Msg("Failed to record login time")
	}
	return user.Role, true
}

// handleRefresh exchanges a refresh token for a fresh pair.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	pair, err := h.auth.Refresh(req.RefreshToken)
	if err != nil {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "invalid refresh token")
		return
	}
	respondJSON(w, http.StatusOK, pair, started)
}

// requireAuth guards the data groups. auth_mode "none" disables the check
// for development setups.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.Security.AuthMode == "none" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
			return
		}

		claims, err := h.auth.VerifyAccess(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type claimsContextKey struct{}

// ClaimsFromContext returns the verified claims of the request, if any.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*auth.Claims)
	return claims, ok
}
