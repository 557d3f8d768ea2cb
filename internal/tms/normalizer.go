// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package tms

import (
	"strings"
	"time"

	"github.com/tomtom215/drayline/internal/models"
)

// sourceTAIWebhook marks shipments that originated from the webhook pipeline,
// as opposed to manual API creation.
const sourceTAIWebhook = "tai-webhook"

// timeLayouts are the formats the TMS mixes across tenants: plain dates,
// local datetimes, and zoned timestamps.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize maps a raw TAI webhook payload onto canonical shipment fields.
// Every input field is optional; absence produces empty output, never an
// error. Date fields are carried as the strings the TMS sent.
func Normalize(payload *models.TMSWebhookPayload, refs References, now time.Time) *models.Shipment {
	shipment := &models.Shipment{
		ReferenceNumber:    refs.ShipmentID,
		MasterBillOfLading: refs.MblNumber,
		BookingNumber:      refs.ShipperReference,
		Status:             models.ShipmentStatusPlanned,
		Source:             sourceTAIWebhook,
	}

	// Every shipment gets a non-empty business key even when TAI omits the id.
	if shipment.ReferenceNumber == "" {
		shipment.ReferenceNumber = models.GenerateReferenceNumber(now)
	}

	if payload.Customer != nil {
		shipment.Shipper = strings.TrimSpace(payload.Customer.Name)
		shipment.OfficeName = strings.TrimSpace(payload.Customer.Office)
		shipment.SalesRepNames = splitSalesReps(payload.Customer.SalesRepNames)
	}

	if pickup := findStop(payload.Stops, models.StopTypeFirstPickup); pickup != nil {
		shipment.OriginPort = joinLocation(pickup)
		shipment.ETD = pickup.EstimatedReadyDateTime
		shipment.ATD = pickup.ActualDepartureDateTime
	}
	if drop := findStop(payload.Stops, models.StopTypeLastDrop); drop != nil {
		shipment.DestinationPort = joinLocation(drop)
		shipment.Consignee = strings.TrimSpace(drop.CompanyName)
		shipment.ETA = drop.EstimatedReadyDateTime
		shipment.ATA = drop.ActualArrivalDateTime
	}

	if len(payload.CarrierList) > 0 {
		shipment.Carrier = strings.TrimSpace(payload.CarrierList[0].Name)
	}

	return shipment
}

// NormalizeUpdate builds the partial update applied on the UPDATE path.
// Only fields the payload actually carries are set, stored as sent.
func NormalizeUpdate(payload *models.TMSWebhookPayload, refs References) *models.ShipmentUpdate {
	update := &models.ShipmentUpdate{}

	setIfPresent := func(dst **string, value string) {
		if value != "" {
			v := value
			*dst = &v
		}
	}

	setIfPresent(&update.MasterBillOfLading, refs.MblNumber)
	setIfPresent(&update.BookingNumber, refs.ShipperReference)

	if payload.Customer != nil {
		setIfPresent(&update.Shipper, strings.TrimSpace(payload.Customer.Name))
		setIfPresent(&update.OfficeName, strings.TrimSpace(payload.Customer.Office))
		if reps := splitSalesReps(payload.Customer.SalesRepNames); reps != nil {
			update.SalesRepNames = reps
			update.SetSalesRepNames = true
		}
	}

	if pickup := findStop(payload.Stops, models.StopTypeFirstPickup); pickup != nil {
		setIfPresent(&update.OriginPort, joinLocation(pickup))
		setIfPresent(&update.ETD, pickup.EstimatedReadyDateTime)
		setIfPresent(&update.ATD, pickup.ActualDepartureDateTime)
	}
	if drop := findStop(payload.Stops, models.StopTypeLastDrop); drop != nil {
		setIfPresent(&update.DestinationPort, joinLocation(drop))
		setIfPresent(&update.Consignee, strings.TrimSpace(drop.CompanyName))
		setIfPresent(&update.ETA, drop.EstimatedReadyDateTime)
		setIfPresent(&update.ATA, drop.ActualArrivalDateTime)
	}

	if len(payload.CarrierList) > 0 {
		setIfPresent(&update.Carrier, strings.TrimSpace(payload.CarrierList[0].Name))
	}

	return update
}

// findStop returns the first stop with the given type, nil when absent.
func findStop(stops []models.TMSStop, stopType string) *models.TMSStop {
	for i := range stops {
		if strings.EqualFold(strings.TrimSpace(stops[i].StopType), stopType) {
			return &stops[i]
		}
	}
	return nil
}

// joinLocation builds "Company, City, State" from the non-empty parts.
func joinLocation(stop *models.TMSStop) string {
	parts := []string{}
	for _, part := range []string{stop.CompanyName, stop.City, stop.State} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}

// splitSalesReps splits TAI's comma-separated rep list, trimming and dropping
// empties. An empty result is nil, not an empty slice: downstream access
// filtering distinguishes "no reps sent" from "empty list".
func splitSalesReps(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}

	var reps []string
	for _, name := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			reps = append(reps, trimmed)
		}
	}
	return reps
}

// parseFlexibleTime parses one of the TMS timestamp shapes, nil when the
// value is absent or unparseable. Callers treat nil as "rule does not apply".
func parseFlexibleTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
