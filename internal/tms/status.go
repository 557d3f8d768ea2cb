// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package tms

import (
	"sort"
	"strings"

	"github.com/tomtom215/drayline/internal/models"
)

// statusRule maps a milestone event type onto a coarse shipment status.
// Rules are evaluated in order; the first matching predicate wins. The event
// vocabulary is free text from the TMS, so matching is case-insensitive
// substring containment.
type statusRule struct {
	substrings []string
	status     string
}

var statusRules = []statusRule{
	{[]string{"ARRIVED", "DELIVERY", "DISCHARGE"}, models.ShipmentStatusArrived},
	{[]string{"DEPARTED", "LOADING", "LOADED"}, models.ShipmentStatusInTransit},
	{[]string{"GATE"}, models.ShipmentStatusAtTerminal},
}

// classifyEventType maps a free-text milestone event type to a shipment
// status. Unrecognized events mean the shipment is somewhere between known
// checkpoints, so the fallback is in-transit.
func classifyEventType(eventType string) string {
	upper := strings.ToUpper(eventType)
	for _, rule := range statusRules {
		for _, sub := range rule.substrings {
			if strings.Contains(upper, sub) {
				return rule.status
			}
		}
	}
	return models.ShipmentStatusInTransit
}

// CalculateShipmentStatus derives the coarse shipment status from the full
// milestone list: the most recent completed milestone with an actual
// timestamp drives the classification. No completed milestones means the
// shipment is still planned.
func CalculateShipmentStatus(milestones []models.Milestone) string {
	completed := make([]models.Milestone, 0, len(milestones))
	for _, m := range milestones {
		if m.Status == models.MilestoneStatusCompleted && m.TimestampActual != nil {
			completed = append(completed, m)
		}
	}
	if len(completed) == 0 {
		return models.ShipmentStatusPlanned
	}

	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].TimestampActual.After(*completed[j].TimestampActual)
	})

	return classifyEventType(completed[0].EventType)
}

// DetectDelays marks milestones delayed when both timestamps exist and the
// actual is later than the planned. It returns the milestones whose status
// changed so the caller can persist just those.
func DetectDelays(milestones []models.Milestone) []models.Milestone {
	changed := []models.Milestone{}
	for i := range milestones {
		m := &milestones[i]
		if m.TimestampPlanned == nil || m.TimestampActual == nil {
			continue
		}
		if m.TimestampActual.After(*m.TimestampPlanned) && m.Status != models.MilestoneStatusDelayed {
			m.Status = models.MilestoneStatusDelayed
			changed = append(changed, *m)
		}
	}
	return changed
}
