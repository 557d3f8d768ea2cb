// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package cargoesflow

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/drayline/internal/models"
)

// Document wraps a mirrored shipment's raw provider JSON. The blob stays
// opaque at the storage boundary; the pipeline reads and writes it only
// through these accessors, and unknown provider fields survive a
// parse-modify-marshal round trip untouched.
type Document struct {
	fields map[string]any
}

// ParseDocument decodes a raw provider document. An empty blob yields an
// empty document rather than an error.
func ParseDocument(raw json.RawMessage) (*Document, error) {
	doc := &Document{fields: map[string]any{}}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc.fields); err != nil {
		return nil, fmt.Errorf("failed to parse shipment document: %w", err)
	}
	return doc, nil
}

// Marshal re-encodes the document, preserving all fields.
func (d *Document) Marshal() (json.RawMessage, error) {
	data, err := json.Marshal(d.fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode shipment document: %w", err)
	}
	return data, nil
}

// Status returns the provider's shipment status string.
func (d *Document) Status() string {
	return d.stringAt("status", "shipmentStatus")
}

// ETA returns the provider's estimated arrival value under whichever key the
// provider used.
func (d *Document) ETA() string {
	return d.stringAt("eta", "promisedEta", "estimatedTimeOfArrival")
}

// ETD returns the provider's estimated departure value.
func (d *Document) ETD() string {
	return d.stringAt("etd", "promisedEtd", "estimatedTimeOfDeparture")
}

// LastFreeDay returns the demurrage last-free-day value.
func (d *Document) LastFreeDay() string {
	return d.stringAt("lastFreeDay", "demurrageLastFreeDay")
}

// LastTrackingUpdate returns the provider's most recent tracking event
// timestamp.
func (d *Document) LastTrackingUpdate() string {
	return d.stringAt("updatedAt", "lastUpdatedAt", "lastTrackingUpdate")
}

// RiskLevel returns the stored risk level, empty before first assessment.
func (d *Document) RiskLevel() string {
	return d.stringAt("riskLevel")
}

// RiskScore returns the stored risk score, 0 before first assessment.
func (d *Document) RiskScore() int {
	switch v := d.fields["riskScore"].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// SetRisk writes the assessment results into the document.
func (d *Document) SetRisk(assessment models.RiskAssessment) {
	d.fields["riskScore"] = assessment.Score
	d.fields["riskLevel"] = assessment.Level
	d.fields["riskReasons"] = assessment.Reasons
	d.fields["riskAssessedAt"] = assessment.AssessedAt.Format("2006-01-02T15:04:05Z07:00")
}

// stringAt returns the first present, non-empty value among the keys.
// Numbers are stringified; other shapes read as empty.
func (d *Document) stringAt(keys ...string) string {
	for _, key := range keys {
		switch v := d.fields[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
