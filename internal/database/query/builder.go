// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

// Package query provides SQL query building utilities for the database package.
// It reduces code duplication and provides type-safe query construction.
package query

import "strings"

// WhereBuilder constructs SQL WHERE clauses with parameterized arguments.
// It ensures consistent parameter handling and reduces SQL injection risks.
//
// Example usage:
//
//	wb := query.NewWhereBuilder()
//	wb.AddStatus("in-transit")
//	wb.AddReferenceSearch("MBL123")
//	whereClause, args := wb.Build()
//	// status = ? AND (reference_number LIKE ? OR booking_number LIKE ? OR master_bill_of_lading LIKE ?)
type WhereBuilder struct {
	clauses []string
	args    []any
}

// NewWhereBuilder creates a new WhereBuilder instance.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		clauses: []string{},
		args:    []any{},
	}
}

// AddStatus adds a status equality filter. Empty status is skipped.
func (wb *WhereBuilder) AddStatus(status string) *WhereBuilder {
	if status != "" {
		wb.clauses = append(wb.clauses, "status = ?")
		wb.args = append(wb.args, status)
	}
	return wb
}

// AddCarrier adds a carrier equality filter. Empty carrier is skipped.
func (wb *WhereBuilder) AddCarrier(carrier string) *WhereBuilder {
	if carrier != "" {
		wb.clauses = append(wb.clauses, "carrier = ?")
		wb.args = append(wb.args, carrier)
	}
	return wb
}

// AddSource adds a source equality filter. Empty source is skipped.
func (wb *WhereBuilder) AddSource(source string) *WhereBuilder {
	if source != "" {
		wb.clauses = append(wb.clauses, "source = ?")
		wb.args = append(wb.args, source)
	}
	return wb
}

// AddOperation adds a webhook operation filter (CREATE/UPDATE).
// Empty operation is skipped.
func (wb *WhereBuilder) AddOperation(operation string) *WhereBuilder {
	if operation != "" {
		wb.clauses = append(wb.clauses, "operation = ?")
		wb.args = append(wb.args, operation)
	}
	return wb
}

// AddReferenceSearch adds a substring search across the shipment reference
// columns: reference_number, booking_number, and master_bill_of_lading.
// Empty search is skipped. LIKE wildcards in the input are escaped so user
// text matches literally.
func (wb *WhereBuilder) AddReferenceSearch(search string) *WhereBuilder {
	if search == "" {
		return wb
	}
	pattern := "%" + escapeLike(search) + "%"
	wb.clauses = append(wb.clauses,
		`(reference_number LIKE ? ESCAPE '\' OR booking_number LIKE ? ESCAPE '\' OR master_bill_of_lading LIKE ? ESCAPE '\')`)
	wb.args = append(wb.args, pattern, pattern, pattern)
	return wb
}

// Build constructs the final WHERE clause and returns it with arguments.
// Clauses are joined with "AND". Returns ("1=1", []) if no clauses were added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.clauses) == 0 {
		return "1=1", []any{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// Count returns the number of clauses added to the builder.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty returns true if no clauses have been added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}

// escapeLike escapes LIKE pattern metacharacters in user-provided search text.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
