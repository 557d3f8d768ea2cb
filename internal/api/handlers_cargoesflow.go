// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/drayline/internal/database"
	"github.com/tomtom215/drayline/internal/logging"
)

// ListCargoesFlowPosts handles GET /api/v1/cargoes-flow/posts, the outbound
// forwarding audit trail.
func (h *Handler) ListCargoesFlowPosts(w http.ResponseWriter, r *http.Request) {
	limit, offset := h.pagination(r)

	posts, total, err := h.db.ListCargoesFlowPosts(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "query_error", "Failed to list forwarding posts")
		return
	}

	respondSuccess(w, http.StatusOK, listEnvelope{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		Results: posts,
	})
}

// RetryCargoesFlowPost handles POST /api/v1/cargoes-flow/posts/{id}/retry.
// The original row is updated in place with the new outcome.
func (h *Handler) RetryCargoesFlowPost(w http.ResponseWriter, r *http.Request) {
	if h.forwarder == nil {
		respondError(w, r, http.StatusServiceUnavailable, "forwarding_disabled", "Cargoes Flow forwarding is not enabled")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_id", "Post ID must be a valid UUID")
		return
	}

	err = h.forwarder.RetryPost(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "not_found", "Forwarding post not found")
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "retry_error", "Retry failed; see the post row for details")
		return
	}

	post, err := h.db.GetCargoesFlowPost(r.Context(), id)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "query_error", "Failed to reload forwarding post")
		return
	}
	respondSuccess(w, http.StatusOK, post)
}

// ListCargoesFlowShipments handles GET /api/v1/cargoes-flow/shipments, the
// mirrored external tracking table ordered by MBL then container.
func (h *Handler) ListCargoesFlowShipments(w http.ResponseWriter, r *http.Request) {
	limit, offset := h.pagination(r)

	shipments, total, err := h.db.ListCargoesFlowShipments(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "query_error", "Failed to list tracked shipments")
		return
	}

	respondSuccess(w, http.StatusOK, listEnvelope{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		Results: shipments,
	})
}

// ListMissingMblShipments handles GET /api/v1/cargoes-flow/missing-mbl,
// drayage shipments that could not be forwarded for lack of an MBL number.
func (h *Handler) ListMissingMblShipments(w http.ResponseWriter, r *http.Request) {
	entries, err := h.db.ListMissingMblShipments(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "query_error", "Failed to list missing MBL shipments")
		return
	}
	respondSuccess(w, http.StatusOK, entries)
}

// ResolveMissingMblShipment handles DELETE /api/v1/cargoes-flow/missing-mbl/{id}.
// Operators clear an entry once the MBL has been supplied upstream; the next
// webhook for the shipment forwards normally.
func (h *Handler) ResolveMissingMblShipment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_id", "Entry ID must be a valid UUID")
		return
	}

	err = h.db.DeleteMissingMblShipment(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "not_found", "Missing MBL entry not found")
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "delete_error", "Failed to delete missing MBL entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TriggerCarrierSync handles POST /api/cargoes-flow/carriers/sync, running
// one full mirror pull synchronously. The scheduled poller runs the same
// pull on its interval; this endpoint exists for operators who just
// corrected data upstream.
func (h *Handler) TriggerCarrierSync(w http.ResponseWriter, r *http.Request) {
	if h.poller == nil {
		respondError(w, r, http.StatusServiceUnavailable, "sync_disabled", "Cargoes Flow sync is not enabled")
		return
	}

	upserted, err := h.poller.RunOnce(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Manual carrier sync failed")
		respondError(w, r, http.StatusBadGateway, "sync_error", "Carrier sync failed")
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"shipmentsUpserted": upserted,
	})
}

// TriggerRiskBatch handles POST /api/v1/cargoes-flow/risk/run, scoring the
// whole mirror table immediately instead of waiting for the scheduler.
func (h *Handler) TriggerRiskBatch(w http.ResponseWriter, r *http.Request) {
	if h.riskRunner == nil {
		respondError(w, r, http.StatusServiceUnavailable, "risk_disabled", "Risk assessment is not enabled")
		return
	}

	assessed, err := h.riskRunner.RunBatch(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Manual risk batch failed")
		respondError(w, r, http.StatusInternalServerError, "risk_error", "Risk assessment batch failed")
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"shipmentsAssessed": assessed,
	})
}
