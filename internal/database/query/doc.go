// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

// Package query provides SQL query building utilities for the database package.
//
// This package reduces code duplication and provides type-safe query construction
// for parameterized SQL WHERE clauses. It ensures consistent parameter handling
// and prevents SQL injection vulnerabilities.
//
// # Overview
//
// The WhereBuilder is the primary component, providing a fluent interface for
// constructing WHERE clauses with properly parameterized queries:
//
//	wb := query.NewWhereBuilder()
//	wb.AddStatus("in-transit")
//	wb.AddCarrier("MSC")
//	wb.AddReferenceSearch("MBLX1")
//	whereClause, args := wb.Build()
//	// Result: "status = ? AND carrier = ? AND (reference_number LIKE ? ESCAPE '\' OR ...)"
//	// Args: ["in-transit", "MSC", "%MBLX1%", "%MBLX1%", "%MBLX1%"]
//
// # Usage Example
//
// Building a list query with multiple filters:
//
//	func (db *DB) ListShipments(ctx context.Context, filter ShipmentFilter) ([]models.Shipment, int, error) {
//	    wb := query.NewWhereBuilder()
//	    wb.AddStatus(filter.Status)
//	    wb.AddCarrier(filter.Carrier)
//	    wb.AddSource(filter.Source)
//	    wb.AddReferenceSearch(filter.Search)
//
//	    whereClause, args := wb.Build()
//
//	    sql := fmt.Sprintf(`SELECT %s FROM shipments WHERE %s ORDER BY updated_at DESC`,
//	        shipmentColumns, whereClause)
//	    // ...
//	}
//
// # Safety
//
// All values pass through placeholder arguments; the builder never
// interpolates user input into SQL text. Substring search input is
// additionally escaped so LIKE metacharacters match literally.
package query
