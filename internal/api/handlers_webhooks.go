// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package api

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/drayline/internal/database"
	"github.com/tomtom215/drayline/internal/logging"
	"github.com/tomtom215/drayline/internal/models"
	"github.com/tomtom215/drayline/internal/tms"
)

// maxWebhookBody bounds the inbound payload. TAI deliveries are a few KB;
// 1 MB leaves generous headroom for reference-heavy payloads.
const maxWebhookBody = 1 << 20

// TMSWebhook handles POST /api/webhooks/tms, the inbound TAI delivery
// endpoint. Authentication is checked before anything is persisted, so a
// rejected delivery leaves no log row.
func (h *Handler) TMSWebhook(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeWebhook(r) {
		respondError(w, r, http.StatusUnauthorized, "unauthorized", "Invalid webhook credentials")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "read_error", "Failed to read request body")
		return
	}
	if len(body) > maxWebhookBody {
		respondError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "Webhook payload exceeds size limit")
		return
	}

	result, err := h.processor.Process(r.Context(), body)
	h.respondWebhookResult(w, r, result, err)
}

// RetryWebhook handles POST /api/webhooks/tms/retry/{id}, replaying a stored
// delivery through the same pipeline.
func (h *Handler) RetryWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_id", "Webhook ID must be a valid UUID")
		return
	}

	result, err := h.processor.Retry(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "not_found", "Webhook log entry not found")
		return
	}
	h.respondWebhookResult(w, r, result, err)
}

// ListWebhookLogs handles GET /api/v1/webhooks, the processing audit trail.
// Supports an optional ?operation=CREATE|UPDATE filter.
func (h *Handler) ListWebhookLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := h.pagination(r)

	operation := r.URL.Query().Get("operation")
	if operation != "" &&
		operation != models.WebhookOperationCreate &&
		operation != models.WebhookOperationUpdate {
		respondError(w, r, http.StatusBadRequest, "invalid_operation", "Operation must be CREATE or UPDATE")
		return
	}

	entries, total, err := h.db.ListWebhookLogs(r.Context(), operation, limit, offset)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "query_error", "Failed to list webhook logs")
		return
	}

	respondSuccess(w, http.StatusOK, listEnvelope{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		Results: entries,
	})
}

// GetWebhookLog handles GET /api/v1/webhooks/{id}.
func (h *Handler) GetWebhookLog(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_id", "Webhook ID must be a valid UUID")
		return
	}

	entry, err := h.db.GetWebhookLog(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "not_found", "Webhook log entry not found")
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "query_error", "Failed to load webhook log")
		return
	}

	respondSuccess(w, http.StatusOK, entry)
}

// authorizeWebhook validates the shared-secret headers the TMS sends. Either
// x-tms-signature or x-tms-key may carry the secret. An empty configured
// secret disables the check.
func (h *Handler) authorizeWebhook(r *http.Request) bool {
	secret := h.config.TMS.WebhookSecret
	if secret == "" {
		return true
	}
	for _, header := range []string{"x-tms-signature", "x-tms-key"} {
		got := r.Header.Get(header)
		if got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(secret)) == 1 {
			return true
		}
	}
	return false
}

// respondWebhookResult maps pipeline outcomes to the response contract the
// TMS expects: 200 with the webhook ID on success, 500 with the webhook ID
// when the delivery was logged but processing failed, 400 for undecodable
// payloads that never made it into the audit trail.
func (h *Handler) respondWebhookResult(w http.ResponseWriter, r *http.Request, result *tms.Result, err error) {
	if err == nil {
		respondJSON(w, http.StatusOK, models.WebhookAccepted{
			Success:   true,
			WebhookID: result.WebhookID.String(),
		})
		return
	}

	if errors.Is(err, tms.ErrInvalidPayload) {
		respondError(w, r, http.StatusBadRequest, "invalid_payload", "Webhook payload could not be parsed")
		return
	}

	logging.Ctx(r.Context()).Error().Err(err).Msg("Webhook processing failed")

	webhookID := ""
	if result != nil {
		webhookID = result.WebhookID.String()
	}
	respondJSON(w, http.StatusInternalServerError, models.WebhookFailed{
		Error:     "webhook processing failed",
		WebhookID: webhookID,
	})
}
