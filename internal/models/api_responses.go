// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package models

import (
	"time"
)

// APIResponse is the standardized response wrapper used by all HTTP endpoints.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"total": 12, "results": [...]},
//	  "metadata": {"timestamp": "2026-08-31T12:00:00Z", "query_time_ms": 4}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError represents an error response with structured details.
//
// Common error codes:
//   - VALIDATION_ERROR: Invalid input parameters
//   - DATABASE_ERROR: Query execution failure
//   - UNAUTHORIZED: Webhook signature mismatch
//   - NOT_FOUND: Resource doesn't exist
//   - PROCESSING_ERROR: Webhook pipeline failure
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WebhookAccepted is the success body for POST /api/v1/webhooks/tms.
// WebhookID lets the caller correlate with the audit log row.
type WebhookAccepted struct {
	Success   bool   `json:"success"`
	WebhookID string `json:"webhookId"`
}

// WebhookFailed is the error body returned when a delivery was logged but
// the pipeline failed. WebhookID identifies the row eligible for retry; it
// is empty when the failure happened before the audit row was written.
type WebhookFailed struct {
	Error     string `json:"error"`
	WebhookID string `json:"webhookId,omitempty"`
}
