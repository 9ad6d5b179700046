// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

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

	"github.com/tomtom215/listingguard/internal/screening"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/listingguard/config.yaml",
	"/etc/listingguard/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every default set.
// Defaults load first and are overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8090,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/listingguard.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Sanctions: SanctionsConfig{
			Backend:    SanctionsDuckDB,
			BadgerPath: "/data/sanctions",
			SyncWrites: true,
		},
		History: screening.DefaultBreakerConfig(),
		Engine:  screening.DefaultEngineConfig(),
		Review:  screening.DefaultReviewConfig(),
		Events: EventsConfig{
			Enabled:              false,
			Transport:            TransportGoChannel,
			NATSURL:              "nats://127.0.0.1:4222",
			SubmittedTopic:       "listing.submitted",
			ScreenedTopic:        "listing.screened",
			PoisonTopic:          "listing.poison",
			DurableName:          "listing-screener",
			QueueGroup:           "screeners",
			RetryCount:           3,
			RetryInitialInterval: 100 * time.Millisecond,
			CloseTimeout:         30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Screening: screening.DefaultRules(),
	}
}

// LoadWithKoanf loads configuration with Koanf v2 from layered sources:
//  1. Defaults: built-in defaults
//  2. Config File: optional YAML config file (if found)
//  3. Environment Variables: override any mapped setting
//
// The result is validated before it is returned.
func LoadWithKoanf() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile loads defaults, the file at path and environment overrides.
// Unlike LoadWithKoanf, a missing file is an error.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// HTTP_PORT -> server.port, SCREENING_VOLUME_DAILY_LIMIT -> screening.volume.daily_limit
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
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

// ConfigFile returns the file LoadWithKoanf would read, or "" if none exists.
func ConfigFile() string {
	return findConfigFile()
}

// findConfigFile returns the first config file found, or "" if none exists.
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

// sliceConfigPaths are parsed as comma-separated lists when set from the environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"screening.keywords.terms",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
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

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",
	"cors_origins":          "server.cors_origins",
	"environment":           "server.environment",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Sanctions
	"sanctions_backend":     "sanctions.backend",
	"sanctions_badger_path": "sanctions.badger_path",
	"sanctions_in_memory":   "sanctions.in_memory",
	"sanctions_sync_writes": "sanctions.sync_writes",

	// History circuit breaker
	"history_breaker_max_requests":  "history.max_requests",
	"history_breaker_interval":      "history.interval",
	"history_breaker_timeout":       "history.timeout",
	"history_breaker_min_requests":  "history.min_requests",
	"history_breaker_failure_ratio": "history.failure_ratio",

	// Engine
	"engine_retry_attempts": "engine.retry_attempts",
	"engine_retry_delay":    "engine.retry_delay",

	// Review
	"flagged_listing_policy": "review.flagged_listing_policy",

	// Events
	"events_enabled":        "events.enabled",
	"events_transport":      "events.transport",
	"nats_url":              "events.nats_url",
	"events_submitted":      "events.submitted_topic",
	"events_screened":       "events.screened_topic",
	"events_poison":         "events.poison_topic",
	"nats_durable_name":     "events.durable_name",
	"nats_queue_group":      "events.queue_group",
	"events_retry_count":    "events.retry_count",
	"events_retry_interval": "events.retry_initial_interval",
	"events_close_timeout":  "events.close_timeout",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Screening scalars
	"screening_volume_daily_limit":                    "screening.volume.daily_limit",
	"screening_volume_weekly_limit":                   "screening.volume.weekly_limit",
	"screening_volume_monthly_limit":                  "screening.volume.monthly_limit",
	"screening_duplicate_window":                      "screening.duplicate.window",
	"screening_duplicate_title_only_threshold":        "screening.duplicate.title_only_threshold",
	"screening_duplicate_title_threshold":             "screening.duplicate.title_threshold",
	"screening_duplicate_content_threshold":           "screening.duplicate.content_threshold",
	"screening_keywords":                              "screening.keywords.terms",
	"screening_keywords_medium_matches":               "screening.keywords.medium_matches",
	"screening_keywords_high_matches":                 "screening.keywords.high_matches",
	"screening_price_ceiling":                         "screening.price.ceiling",
	"screening_contact_phone_count_threshold":         "screening.contact.phone_count_threshold",
	"screening_escalation_temp_block_days":            "screening.escalation.temp_block_days",
	"screening_escalation_warnings_before_temp_block": "screening.escalation.warnings_before_temp_block",
	"screening_escalation_warnings_before_perm_block": "screening.escalation.warnings_before_perm_block",
	"screening_escalation_critical_block_days":        "screening.escalation.critical_block_days",
	"screening_history_lookback":                      "screening.history_lookback",
	"screening_history_timeout":                       "screening.history_timeout",
	"screening_history_unavailable_policy":            "screening.history_unavailable_policy",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped names return "" so koanf skips them.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - SANCTIONS_BACKEND -> sanctions.backend
//   - SCREENING_VOLUME_DAILY_LIMIT -> screening.volume.daily_limit
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile calls callback whenever the file at path changes.
// The caller is responsible for locking around the config it swaps in.
//
//	var cfgMu sync.RWMutex
//	err := WatchConfigFile(path, func() {
//	    next, err := LoadFile(path)
//	    if err != nil {
//	        logging.Error().Err(err).Msg("config reload failed")
//	        return
//	    }
//	    cfgMu.Lock()
//	    cfg = next
//	    cfgMu.Unlock()
//	})
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
