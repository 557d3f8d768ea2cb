// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

// Package config provides layered configuration for Drayline using Koanf v2.
//
// Precedence (highest wins): environment variables > YAML config file >
// built-in defaults. See koanf.go for the loader and the environment
// variable mapping table.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root application configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	TMS         TMSConfig         `koanf:"tms"`
	CargoesFlow CargoesFlowConfig `koanf:"cargoes_flow"`
	Sync        SyncConfig        `koanf:"sync"`
	Risk        RiskConfig        `koanf:"risk"`
	API         APIConfig         `koanf:"api"`
	Security    SecurityConfig    `koanf:"security"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment" validate:"oneof=development production"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// TMSConfig holds inbound TMS (TAI) webhook settings.
type TMSConfig struct {
	// WebhookSecret, when set, must match the x-tms-signature or x-tms-key
	// header of every inbound webhook. Empty disables the check.
	WebhookSecret string `koanf:"webhook_secret"`
}

// CargoesFlowConfig holds outbound Cargoes Flow API settings.
type CargoesFlowConfig struct {
	Enabled  bool   `koanf:"enabled"`
	BaseURL  string `koanf:"base_url" validate:"omitempty,url"`
	APIKey   string `koanf:"api_key"`
	OrgToken string `koanf:"org_token"`

	// Timeout bounds every outbound call. The TMS webhook path waits on
	// these calls synchronously, so this also bounds webhook latency.
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerSecond rate-limits outbound calls. 0 disables limiting.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// SyncConfig holds the Cargoes Flow mirror poller settings.
type SyncConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
	PageSize int           `koanf:"page_size" validate:"min=1,max=1000"`
}

// RiskConfig holds the batch risk assessment scheduler settings.
type RiskConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Interval  time.Duration `koanf:"interval"`
	BatchSize int           `koanf:"batch_size" validate:"min=1,max=1000"`
}

// APIConfig holds REST API pagination settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size" validate:"min=1"`
	MaxPageSize     int `koanf:"max_page_size" validate:"min=1"`
}

// SecurityConfig holds rate limiting and CORS settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for invalid combinations.
// Returns a descriptive error for the first problem found.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var invalid *validator.InvalidValidationError
		if ok := isInvalidValidation(err, &invalid); ok {
			return fmt.Errorf("configuration validation internal error: %w", err)
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.CargoesFlow.Enabled {
		if c.CargoesFlow.BaseURL == "" {
			return fmt.Errorf("cargoes_flow.base_url is required when cargoes_flow.enabled is true")
		}
		if c.CargoesFlow.APIKey == "" || c.CargoesFlow.OrgToken == "" {
			return fmt.Errorf("cargoes_flow.api_key and cargoes_flow.org_token are required when cargoes_flow.enabled is true")
		}
	}
	if c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("api.default_page_size (%d) must not exceed api.max_page_size (%d)",
			c.API.DefaultPageSize, c.API.MaxPageSize)
	}
	if c.Server.Environment == "production" && c.TMS.WebhookSecret == "" {
		return fmt.Errorf("tms.webhook_secret must be set in production (unsigned webhooks would be accepted)")
	}

	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// isInvalidValidation reports whether err is a validator internal error
// (as opposed to field validation failures).
func isInvalidValidation(err error, target **validator.InvalidValidationError) bool {
	if e, ok := err.(*validator.InvalidValidationError); ok {
		*target = e
		return true
	}
	return false
}
