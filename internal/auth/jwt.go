// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

// Package auth implements JWT issuance/verification and password checks.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes.
const (
	accessTokenTTL  = 1 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken is returned for tokens that fail verification for any
// reason (signature, expiry, malformed claims).
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims carried by OnSide tokens.
type Claims struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"` // access or refresh
	jwt.RegisteredClaims
}

// TokenPair is the access/refresh pair returned by login.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Manager issues and verifies HS256 tokens.
type Manager struct {
	secret     []byte
	sessionTTL time.Duration
}

// NewManager creates a token manager. sessionTTL overrides the default
// access token lifetime when positive.
func NewManager(secret string, sessionTTL time.Duration) *Manager {
	if sessionTTL <= 0 {
		sessionTTL = accessTokenTTL
	}
	return &Manager{secret: []byte(secret), sessionTTL: sessionTTL}
}

// IssuePair creates an access/refresh token pair for a user.
func (m *Manager) IssuePair(username, role string) (*TokenPair, error) {
	now := time.Now().UTC()
	accessExpiry := now.Add(m.sessionTTL)

	access, err := m.sign(username, role, "access", now, accessExpiry)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(username, role, "refresh", now, now.Add(refreshTokenTTL))
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExpiry,
	}, nil
}

func (m *Manager) sign(username, role, tokenType string, now, expiry time.Time) (string, error) {
	claims := Claims{
		Username:  username,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			Issuer:    "onside",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyAccess verifies an access token and returns its claims.
func (m *Manager) VerifyAccess(tokenString string) (*Claims, error) {
	return m.verify(tokenString, "access")
}

// Refresh verifies a refresh token and issues a fresh pair.
func (m *Manager) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := m.verify(refreshToken, "refresh")
	if err != nil {
		return nil, err
	}
	return m.IssuePair(claims.Username, claims.Role)
}

func (m *Manager) verify(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer("onside"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("%w: token type %q, want %q", ErrInvalidToken, claims.TokenType, wantType)
	}
	return claims, nil
}
