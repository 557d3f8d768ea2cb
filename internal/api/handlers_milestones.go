// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/drayline/internal/database"
	"github.com/tomtom215/drayline/internal/logging"
	"github.com/tomtom215/drayline/internal/models"
)

// milestoneCreateRequest is the body for manually adding a milestone to a
// shipment's timeline.
type milestoneCreateRequest struct {
	EventType        string     `json:"eventType" validate:"required,max=200"`
	Location         string     `json:"location" validate:"max=200"`
	TimestampPlanned *time.Time `json:"timestampPlanned"`
	TimestampActual  *time.Time `json:"timestampActual"`
	Status           string     `json:"status" validate:"omitempty,oneof=pending completed delayed"`
}

type milestoneUpdateRequest struct {
	EventType        *string    `json:"eventType" validate:"omitempty,max=200"`
	Location         *string    `json:"location" validate:"omitempty,max=200"`
	TimestampPlanned *time.Time `json:"timestampPlanned"`
	TimestampActual  *time.Time `json:"timestampActual"`
	Status           *string    `json:"status" validate:"omitempty,oneof=pending completed delayed"`
}

// ListMilestones handles GET /api/v1/shipments/{id}/milestones.
func (h *Handler) ListMilestones(w http.ResponseWriter, r *http.Request) {
	shipment, ok := h.loadShipment(w, r)
	if !ok {
		return
	}

	milestones, err := h.db.ListMilestones(r.Context(), shipment.ID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "query_error", "Failed to list milestones")
		return
	}

	respondSuccess(w, http.StatusOK, milestones)
}

// CreateMilestone handles POST /api/v1/shipments/{id}/milestones. The
// shipment's coarse status is recomputed from the updated timeline.
func (h *Handler) CreateMilestone(w http.ResponseWriter, r *http.Request) {
	shipment, ok := h.loadShipment(w, r)
	if !ok {
		return
	}

	var req milestoneCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	milestone := &models.Milestone{
		ShipmentID:       shipment.ID,
		EventType:        req.EventType,
		Location:         req.Location,
		TimestampPlanned: req.TimestampPlanned,
		TimestampActual:  req.TimestampActual,
		Status:           req.Status,
	}
	if err := h.db.CreateMilestone(r.Context(), milestone); err != nil {
		respondError(w, r, http.StatusInternalServerError, "create_error", "Failed to create milestone")
		return
	}

	h.recomputeShipmentStatus(r, shipment)
	respondSuccess(w, http.StatusCreated, milestone)
}

// UpdateMilestone handles PUT /api/v1/milestones/{id}.
func (h *Handler) UpdateMilestone(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_id", "Milestone ID must be a valid UUID")
		return
	}

	var req milestoneUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	update := &models.MilestoneUpdate{
		EventType:        req.EventType,
		Location:         req.Location,
		TimestampPlanned: req.TimestampPlanned,
		TimestampActual:  req.TimestampActual,
		Status:           req.Status,
	}
	err = h.db.UpdateMilestone(r.Context(), id, update)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "not_found", "Milestone not found")
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "update_error", "Failed to update milestone")
		return
	}

	milestone, err := h.db.GetMilestone(r.Context(), id)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "query_error", "Failed to reload milestone")
		return
	}

	if shipment, err := h.db.GetShipment(r.Context(), milestone.ShipmentID); err == nil {
		h.recomputeShipmentStatus(r, shipment)
	}
	respondSuccess(w, http.StatusOK, milestone)
}

// DeleteMilestone handles DELETE /api/v1/milestones/{id}.
func (h *Handler) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_id", "Milestone ID must be a valid UUID")
		return
	}

	milestone, err := h.db.GetMilestone(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "not_found", "Milestone not found")
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "query_error", "Failed to load milestone")
		return
	}

	if err := h.db.DeleteMilestone(r.Context(), id); err != nil {
		respondError(w, r, http.StatusInternalServerError, "delete_error", "Failed to delete milestone")
		return
	}

	if shipment, err := h.db.GetShipment(r.Context(), milestone.ShipmentID); err == nil {
		h.recomputeShipmentStatus(r, shipment)
	}
	w.WriteHeader(http.StatusNoContent)
}

// recomputeShipmentStatus re-derives the coarse status after a milestone
// mutation. Failures are logged, not surfaced: the mutation itself succeeded
// and the next webhook or mutation re-derives anyway.
func (h *Handler) recomputeShipmentStatus(r *http.Request, shipment *models.Shipment) {
	if h.processor == nil {
		return
	}
	if err := h.processor.RecomputeStatus(r.Context(), shipment); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).
			Str("shipment_id", shipment.ID.String()).
			Msg("Failed to recompute shipment status")
	}
}
