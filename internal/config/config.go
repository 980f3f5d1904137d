// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

// Package config holds the layered application configuration.
//
// Configuration is loaded with Koanf v2 in three layers, highest priority
// last: built-in defaults, an optional YAML file, then environment
// variables. See koanf.go for the loading pipeline and env mappings.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for the OnSide server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Security  SecurityConfig  `koanf:"security"`
	Providers ProvidersConfig `koanf:"providers"`
	Insights  InsightsConfig  `koanf:"insights"`
	Reports   ReportsConfig   `koanf:"reports"`
	Dedup     DedupConfig     `koanf:"dedup"`
	Cache     CacheConfig     `koanf:"cache"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development or production
}

// DatabaseConfig configures the embedded DuckDB store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// SecurityConfig configures authentication and request limits.
type SecurityConfig struct {
	AuthMode        string        `koanf:"auth_mode"` // jwt or none
	JWTSecret       string        `koanf:"jwt_secret"`
	SessionTimeout  time.Duration `koanf:"session_timeout"`
	AdminUsername   string        `koanf:"admin_username"`
	AdminPassword   string        `koanf:"admin_password"`
	BcryptCost      int           `koanf:"bcrypt_cost"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// ProviderConfig is the shared shape for one external data provider.
type ProviderConfig struct {
	Enabled        bool          `koanf:"enabled"`
	BaseURL        string        `koanf:"base_url"`
	APIKey         string        `koanf:"api_key"`
	Timeout        time.Duration `koanf:"timeout"`
	DailyQuota     int           `koanf:"daily_quota"` // 0 = unlimited
	RatePerSecond  float64       `koanf:"rate_per_second"`
	RetryAttempts  int           `koanf:"retry_attempts"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
}

// CustomSearchConfig extends ProviderConfig with the search engine ID.
type CustomSearchConfig struct {
	ProviderConfig `koanf:",squash"`
	EngineID       string `koanf:"engine_id"`
}

// ProvidersConfig groups all external API adapters.
type ProvidersConfig struct {
	GNews        ProviderConfig     `koanf:"gnews"`
	IPInfo       ProviderConfig     `koanf:"ipinfo"`
	WhoAPI       ProviderConfig     `koanf:"whoapi"`
	CustomSearch CustomSearchConfig `koanf:"customsearch"`
	YouTube      ProviderConfig     `koanf:"youtube"`
}

// InsightsConfig configures the optional LLM narrative section.
type InsightsConfig struct {
	Enabled     bool          `koanf:"enabled"`
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	MaxTokens   int           `koanf:"max_tokens"`
	Temperature float32       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
}

// ReportsConfig configures report generation and scheduling.
type ReportsConfig struct {
	OutputDir           string        `koanf:"output_dir"`
	CheckInterval       time.Duration `koanf:"check_interval"`
	MaxConcurrentBuilds int           `koanf:"max_concurrent_builds"`
	BuildTimeout        time.Duration `koanf:"build_timeout"`
	DefaultPeriodDays   int           `koanf:"default_period_days"`
}

// DedupConfig configures link deduplication scoring.
type DedupConfig struct {
	Threshold   float64 `koanf:"threshold"`
	PathWeight  float64 `koanf:"path_weight"`
	QueryWeight float64 `koanf:"query_weight"`
}

// CacheConfig configures the badger-backed lookup cache.
type CacheConfig struct {
	Path     string        `koanf:"path"`
	WhoisTTL time.Duration `koanf:"whois_ttl"`
	GeoTTL   time.Duration `koanf:"geo_ttl"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// Validate checks the configuration for impossible or unsafe values.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}

	switch c.Security.AuthMode {
	case "jwt":
		if c.IsProduction() && len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters in production")
		}
	case "none":
		if c.IsProduction() {
			return fmt.Errorf("security.auth_mode=none is not allowed in production")
		}
	default:
		return fmt.Errorf("security.auth_mode must be jwt or none, got %q", c.Security.AuthMode)
	}

	if c.Dedup.Threshold < 0 || c.Dedup.Threshold > 1 {
		return fmt.Errorf("dedup.threshold must be in [0,1], got %g", c.Dedup.Threshold)
	}
	if c.Dedup.PathWeight < 0 || c.Dedup.QueryWeight < 0 {
		return fmt.Errorf("dedup weights must be non-negative")
	}
	if w := c.Dedup.PathWeight + c.Dedup.QueryWeight; w <= 0 {
		return fmt.Errorf("dedup weights must sum to a positive value, got %g", w)
	}

	for name, p := range map[string]ProviderConfig{
		"gnews":        c.Providers.GNews,
		"ipinfo":       c.Providers.IPInfo,
		"whoapi":       c.Providers.WhoAPI,
		"customsearch": c.Providers.CustomSearch.ProviderConfig,
		"youtube":      c.Providers.YouTube,
	} {
		if !p.Enabled {
			continue
		}
		if p.APIKey == "" {
			return fmt.Errorf("providers.%s.api_key is required when enabled", name)
		}
		if p.DailyQuota < 0 {
			return fmt.Errorf("providers.%s.daily_quota must be >= 0", name)
		}
	}
	if c.Providers.CustomSearch.Enabled && c.Providers.CustomSearch.EngineID == "" {
		return fmt.Errorf("providers.customsearch.engine_id is required when enabled")
	}

	if c.Insights.Enabled && c.Insights.APIKey == "" {
		return fmt.Errorf("insights.api_key is required when enabled")
	}

	if c.Reports.MaxConcurrentBuilds < 1 {
		return fmt.Errorf("reports.max_concurrent_builds must be >= 1")
	}
	if c.Reports.DefaultPeriodDays < 1 {
		return fmt.Errorf("reports.default_period_days must be >= 1")
	}

	return nil
}
