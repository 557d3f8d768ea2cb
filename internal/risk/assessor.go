// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

// Package risk scores mirrored Cargoes Flow shipments against timeliness
// rules. Scoring is additive: every applicable rule fires independently and
// the results sum into one score, which thresholds into a level. A date any
// rule cannot parse skips that rule silently.
//
// The assessor is pure; the batch runner in this package applies it over the
// mirror table on a schedule and writes the results back into each
// shipment's raw document. It never touches the TMS-origin shipments table,
// so it cannot race with webhook processing.
package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/drayline/internal/cargoesflow"
	"github.com/tomtom215/drayline/internal/models"
)

// Scoring weights and thresholds.
const (
	scoreEtaOverdue    = 3
	scoreLfdPast       = 4
	scoreLfdToday      = 3
	scoreLfdImminent   = 2
	scoreStatusFlagged = 2
	scoreStale         = 1
	scoreLongTransit   = 1

	lfdImminentDays = 2
	staleAfterDays  = 7
	longTransitDays = 45
	criticalAtScore = 7
	highAtScore     = 4
	mediumAtScore   = 2
)

// Statuses that mean the container has reached its destination, exempting
// the shipment from the overdue-ETA rule.
var arrivedStatuses = map[string]bool{
	"arrived":   true,
	"unloaded":  true,
	"gate-out":  true,
	"delivered": true,
	"completed": true,
}

// Statuses past which a quiet tracking feed is expected.
var terminalStatuses = map[string]bool{
	"delivered": true,
	"completed": true,
	"cancelled": true,
}

var flaggedStatusWords = []string{"delay", "hold", "pending"}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Assess scores one mirrored shipment document at the given instant.
func Assess(doc *cargoesflow.Document, now time.Time) models.RiskAssessment {
	score := 0
	reasons := []string{}
	status := normalizeStatus(doc.Status())

	eta, etaOK := parseTime(doc.ETA())
	if etaOK && eta.Before(now) && !arrivedStatuses[status] {
		score += scoreEtaOverdue
		reasons = append(reasons, fmt.Sprintf("ETA passed %d days ago without arrival", daysBetween(eta, now)))
	}

	if lfd, ok := parseTime(doc.LastFreeDay()); ok {
		switch days := daysBetween(now, lfd); {
		case days < 0:
			score += scoreLfdPast
			reasons = append(reasons, fmt.Sprintf("last free day passed %d days ago, demurrage accruing", -days))
		case days == 0:
			score += scoreLfdToday
			reasons = append(reasons, "last free day is today")
		case days <= lfdImminentDays:
			score += scoreLfdImminent
			reasons = append(reasons, fmt.Sprintf("last free day in %d days", days))
		}
	}

	for _, word := range flaggedStatusWords {
		if strings.Contains(status, word) {
			score += scoreStatusFlagged
			reasons = append(reasons, fmt.Sprintf("status indicates %s", word))
			break
		}
	}

	if updated, ok := parseTime(doc.LastTrackingUpdate()); ok {
		if daysBetween(updated, now) > staleAfterDays && !terminalStatuses[status] {
			score += scoreStale
			reasons = append(reasons, fmt.Sprintf("no tracking update in %d days", daysBetween(updated, now)))
		}
	}

	etd, etdOK := parseTime(doc.ETD())
	if etaOK && etdOK && daysBetween(etd, eta) > longTransitDays {
		score += scoreLongTransit
		reasons = append(reasons, fmt.Sprintf("transit time of %d days exceeds %d", daysBetween(etd, eta), longTransitDays))
	}

	return models.RiskAssessment{
		Score:      score,
		Level:      levelFor(score),
		Reasons:    reasons,
		AssessedAt: now,
	}
}

func levelFor(score int) string {
	switch {
	case score >= criticalAtScore:
		return models.RiskLevelCritical
	case score >= highAtScore:
		return models.RiskLevelHigh
	case score >= mediumAtScore:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

// normalizeStatus folds provider status spellings ("GATE_OUT", "Gate Out")
// into the lowercase hyphenated vocabulary the rule sets use.
func normalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	status = strings.ReplaceAll(status, "_", "-")
	status = strings.ReplaceAll(status, " ", "-")
	return status
}

func parseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// daysBetween counts whole calendar days from a to b, negative when b is
// earlier. Day granularity, not 24-hour spans.
func daysBetween(a, b time.Time) int {
	aDay := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bDay := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bDay.Sub(aDay) / (24 * time.Hour))
}
