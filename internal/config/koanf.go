// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/onside/config.yaml",
	"/etc/onside/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. Defaults are
// loaded first, then overridden by config file and env vars.
func defaultConfig() *Config {
	defaultProvider := func(baseURL string) ProviderConfig {
		return ProviderConfig{
			Enabled:        false,
			BaseURL:        baseURL,
			Timeout:        30 * time.Second,
			DailyQuota:     0,
			RatePerSecond:  2,
			RetryAttempts:  5,
			RetryBaseDelay: time.Second,
		}
	}

	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8480,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/onside.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			JWTSecret:       "",
			SessionTimeout:  24 * time.Hour,
			AdminUsername:   "",
			AdminPassword:   "",
			BcryptCost:      12,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Providers: ProvidersConfig{
			GNews:  defaultProvider("https://gnews.io"),
			IPInfo: defaultProvider("https://ipinfo.io"),
			WhoAPI: defaultProvider("https://api.whoapi.com"),
			CustomSearch: CustomSearchConfig{
				ProviderConfig: defaultProvider(""), // URL managed by the Google API client
			},
			YouTube: defaultProvider(""),
		},
		Insights: InsightsConfig{
			Enabled:     false,
			Model:       "gpt-4o-mini",
			MaxTokens:   1024,
			Temperature: 0.4,
			Timeout:     60 * time.Second,
		},
		Reports: ReportsConfig{
			OutputDir:           "/data/reports",
			CheckInterval:       time.Minute,
			MaxConcurrentBuilds: 2,
			BuildTimeout:        10 * time.Minute,
			DefaultPeriodDays:   7,
		},
		Dedup: DedupConfig{
			Threshold:   0.85,
			PathWeight:  0.7,
			QueryWeight: 0.3,
		},
		Cache: CacheConfig{
			Path:     "/data/cache",
			WhoisTTL: 24 * time.Hour,
			GeoTTL:   24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML (if found)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, honoring CONFIG_PATH first.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are config paths parsed from comma-separated env strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings, the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables return empty string so random environment variables
// never pollute the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// Database
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// Security
		"auth_mode":           "security.auth_mode",
		"jwt_secret":          "security.jwt_secret",
		"session_timeout":     "security.session_timeout",
		"admin_username":      "security.admin_username",
		"admin_password":      "security.admin_password",
		"bcrypt_cost":         "security.bcrypt_cost",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"cors_origins":        "security.cors_origins",

		// GNews
		"gnews_enabled":     "providers.gnews.enabled",
		"gnews_api_key":     "providers.gnews.api_key",
		"gnews_base_url":    "providers.gnews.base_url",
		"gnews_daily_quota": "providers.gnews.daily_quota",
		"gnews_rate":        "providers.gnews.rate_per_second",

		// IPInfo
		"ipinfo_enabled":     "providers.ipinfo.enabled",
		"ipinfo_api_key":     "providers.ipinfo.api_key",
		"ipinfo_base_url":    "providers.ipinfo.base_url",
		"ipinfo_daily_quota": "providers.ipinfo.daily_quota",

		// WhoAPI
		"whoapi_enabled":     "providers.whoapi.enabled",
		"whoapi_api_key":     "providers.whoapi.api_key",
		"whoapi_base_url":    "providers.whoapi.base_url",
		"whoapi_daily_quota": "providers.whoapi.daily_quota",

		// Google Custom Search
		"customsearch_enabled":     "providers.customsearch.enabled",
		"customsearch_api_key":     "providers.customsearch.api_key",
		"customsearch_engine_id":   "providers.customsearch.engine_id",
		"customsearch_daily_quota": "providers.customsearch.daily_quota",

		// YouTube Data API
		"youtube_enabled":     "providers.youtube.enabled",
		"youtube_api_key":     "providers.youtube.api_key",
		"youtube_daily_quota": "providers.youtube.daily_quota",

		// Insights (LLM)
		"insights_enabled":     "insights.enabled",
		"openai_api_key":       "insights.api_key",
		"insights_model":       "insights.model",
		"insights_max_tokens":  "insights.max_tokens",
		"insights_temperature": "insights.temperature",
		"insights_timeout":     "insights.timeout",

		// Reports
		"reports_output_dir":     "reports.output_dir",
		"reports_check_interval": "reports.check_interval",
		"reports_max_concurrent": "reports.max_concurrent_builds",
		"reports_build_timeout":  "reports.build_timeout",
		"reports_period_days":    "reports.default_period_days",

		// Dedup
		"dedup_threshold":    "dedup.threshold",
		"dedup_path_weight":  "dedup.path_weight",
		"dedup_query_weight": "dedup.query_weight",

		// Cache
		"cache_path":      "cache.path",
		"cache_whois_ttl": "cache.whois_ttl",
		"cache_geo_ttl":   "cache.geo_ttl",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
