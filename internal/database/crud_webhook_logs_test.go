// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/drayline/internal/models"
)

func TestWebhookLog_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	entry := &models.WebhookLog{
		EventType:  "shipment.updated",
		Operation:  models.WebhookOperationCreate,
		ShipmentID: "555",
		RawPayload: []byte(`{"shipmentId":555,"shipmentType":"Drayage"}`),
	}
	if err := db.CreateWebhookLog(ctx, entry); err != nil {
		t.Fatalf("CreateWebhookLog failed: %v", err)
	}

	got, err := db.GetWebhookLog(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetWebhookLog failed: %v", err)
	}
	if got.ProcessedAt != nil {
		t.Error("Expected unprocessed log to have nil processed_at")
	}
	if string(got.RawPayload) != string(entry.RawPayload) {
		t.Errorf("Expected raw payload preserved verbatim, got %s", got.RawPayload)
	}

	if err := db.MarkWebhookProcessed(ctx, entry.ID); err != nil {
		t.Fatalf("MarkWebhookProcessed failed: %v", err)
	}
	got, err = db.GetWebhookLog(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetWebhookLog after processing failed: %v", err)
	}
	if got.ProcessedAt == nil {
		t.Error("Expected processed_at set after success")
	}
}

func TestWebhookLog_MarkFailed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	entry := &models.WebhookLog{
		EventType: "shipment.updated",
		Operation: models.WebhookOperationUpdate,
	}
	if err := db.CreateWebhookLog(ctx, entry); err != nil {
		t.Fatalf("CreateWebhookLog failed: %v", err)
	}

	if err := db.MarkWebhookFailed(ctx, entry.ID, "normalization failed"); err != nil {
		t.Fatalf("MarkWebhookFailed failed: %v", err)
	}

	got, err := db.GetWebhookLog(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetWebhookLog failed: %v", err)
	}
	if got.ErrorMessage != "normalization failed" {
		t.Errorf("Expected error message recorded, got %q", got.ErrorMessage)
	}
	if got.ProcessedAt != nil {
		t.Error("Expected failed log to stay retryable with nil processed_at")
	}
}

func TestWebhookLog_NotFound(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.GetWebhookLog(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := db.MarkWebhookProcessed(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListWebhookLogs_OperationFilter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i, op := range []string{
		models.WebhookOperationCreate,
		models.WebhookOperationUpdate,
		models.WebhookOperationUpdate,
	} {
		entry := &models.WebhookLog{EventType: "shipment.updated", Operation: op, ShipmentID: string(rune('a' + i))}
		if err := db.CreateWebhookLog(ctx, entry); err != nil {
			t.Fatalf("CreateWebhookLog failed: %v", err)
		}
	}

	logs, total, err := db.ListWebhookLogs(ctx, models.WebhookOperationUpdate, 10, 0)
	if err != nil {
		t.Fatalf("ListWebhookLogs failed: %v", err)
	}
	if total != 2 || len(logs) != 2 {
		t.Errorf("Expected 2 UPDATE logs, got total=%d len=%d", total, len(logs))
	}

	logs, total, err = db.ListWebhookLogs(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("ListWebhookLogs unfiltered failed: %v", err)
	}
	if total != 3 || len(logs) != 3 {
		t.Errorf("Expected 3 logs unfiltered, got total=%d len=%d", total, len(logs))
	}
}
