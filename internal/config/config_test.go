// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package config

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("TMS_WEBHOOK_SECRET", "s3cret")
	t.Setenv("SYNC_INTERVAL", "10m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.TMS.WebhookSecret != "s3cret" {
		t.Errorf("expected webhook secret override, got %q", cfg.TMS.WebhookSecret)
	}
	if cfg.Sync.Interval != 10*time.Minute {
		t.Errorf("expected sync interval 10m, got %v", cfg.Sync.Interval)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[0] != "https://a.example" {
		t.Errorf("expected CORS origins parsed from CSV, got %v", cfg.Security.CORSOrigins)
	}
}

func TestValidateRejectsCargoesFlowWithoutCredentials(t *testing.T) {
	cfg := defaultConfig()
	cfg.CargoesFlow.Enabled = true
	cfg.CargoesFlow.APIKey = ""

	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error when cargoes_flow enabled without credentials")
	}
}

func TestValidateRejectsProductionWithoutWebhookSecret(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Environment = "production"
	cfg.TMS.WebhookSecret = ""

	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for production without TMS webhook secret")
	}

	cfg.TMS.WebhookSecret = "x"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config once secret set, got %v", err)
	}
}

func TestValidateRejectsPageSizeInversion(t *testing.T) {
	cfg := defaultConfig()
	cfg.API.DefaultPageSize = 500
	cfg.API.MaxPageSize = 100

	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error when default page size exceeds max")
	}
}

func TestEnvTransformFuncSkipsUnknownKeys(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"TMS_WEBHOOK_SECRET", "tms.webhook_secret"},
		{"CARGOES_FLOW_API_KEY", "cargoes_flow.api_key"},
		{"RISK_BATCH_SIZE", "risk.batch_size"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}
