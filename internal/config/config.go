// ListingGuard - Marketplace Listing Abuse Screening and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/listingguard

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/listingguard/internal/logging"
	"github.com/tomtom215/listingguard/internal/screening"
)

// Sanction store backends.
const (
	SanctionsDuckDB = "duckdb"
	SanctionsBadger = "badger"
	SanctionsMemory = "memory"
)

// Event transports.
const (
	TransportGoChannel = "gochannel"
	TransportNATS      = "nats"
)

// Config holds all application configuration loaded from defaults, the
// config file and environment variables.
//
// Config is immutable after LoadWithKoanf and safe for concurrent reads.
type Config struct {
	Server    ServerConfig            `koanf:"server"`
	Database  DatabaseConfig          `koanf:"database"`
	Sanctions SanctionsConfig         `koanf:"sanctions"`
	History   screening.BreakerConfig `koanf:"history"`
	Engine    screening.EngineConfig  `koanf:"engine"`
	Review    screening.ReviewConfig  `koanf:"review"`
	Events    EventsConfig            `koanf:"events"`
	Logging   LoggingConfig           `koanf:"logging"`
	Screening screening.Rules         `koanf:"screening"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST, HTTP_PORT
//   - HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_SHUTDOWN_TIMEOUT
//   - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
//   - CORS_ORIGINS: comma-separated
//   - ENVIRONMENT: development or production
type ServerConfig struct {
	Host              string        `koanf:"host" validate:"required"`
	Port              int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout       time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout      time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	Environment       string        `koanf:"environment" validate:"oneof=development production"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the DuckDB file that holds the alert ledger and
// submission history.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads" validate:"gte=0"` // 0 = DuckDB default
}

// SanctionsConfig selects where actor sanction state lives.
type SanctionsConfig struct {
	Backend    string `koanf:"backend" validate:"required,oneof=duckdb badger memory"`
	BadgerPath string `koanf:"badger_path"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// EventsConfig configures the watermill submission pipeline.
type EventsConfig struct {
	Enabled              bool          `koanf:"enabled"`
	Transport            string        `koanf:"transport" validate:"oneof=gochannel nats"`
	NATSURL              string        `koanf:"nats_url"`
	SubmittedTopic       string        `koanf:"submitted_topic" validate:"required"`
	ScreenedTopic        string        `koanf:"screened_topic" validate:"required"`
	PoisonTopic          string        `koanf:"poison_topic" validate:"required"`
	DurableName          string        `koanf:"durable_name"`
	QueueGroup           string        `koanf:"queue_group"`
	RetryCount           int           `koanf:"retry_count" validate:"gte=0,lte=20"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval" validate:"gt=0"`
	CloseTimeout         time.Duration `koanf:"close_timeout" validate:"gt=0"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// LoggingInit converts the section into a logging.Config.
func (l LoggingConfig) LoggingInit() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Caller = l.Caller
	return cfg
}
