// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package query

import "testing"

func TestWhereBuilder_Empty(t *testing.T) {
	wb := NewWhereBuilder()

	if !wb.IsEmpty() {
		t.Error("Expected new builder to be empty")
	}

	if wb.Count() != 0 {
		t.Errorf("Expected count 0, got %d", wb.Count())
	}

	whereClause, args := wb.Build()
	if whereClause != "1=1" {
		t.Errorf("Expected '1=1' for empty builder, got %q", whereClause)
	}
	if len(args) != 0 {
		t.Errorf("Expected 0 args, got %d", len(args))
	}
}

func TestWhereBuilder_AddStatus(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddStatus("in-transit")

	whereClause, args := wb.Build()
	if whereClause != "status = ?" {
		t.Errorf("Expected 'status = ?', got %q", whereClause)
	}
	if len(args) != 1 || args[0] != "in-transit" {
		t.Errorf("Expected args [in-transit], got %v", args)
	}
}

func TestWhereBuilder_AddStatus_Empty(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddStatus("")

	if !wb.IsEmpty() {
		t.Error("Expected empty status to be skipped")
	}
}

func TestWhereBuilder_AddOperation(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddOperation("CREATE")

	whereClause, args := wb.Build()
	if whereClause != "operation = ?" {
		t.Errorf("Expected 'operation = ?', got %q", whereClause)
	}
	if len(args) != 1 || args[0] != "CREATE" {
		t.Errorf("Expected args [CREATE], got %v", args)
	}
}

func TestWhereBuilder_AddReferenceSearch(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddReferenceSearch("MBLX1")

	whereClause, args := wb.Build()
	expected := `(reference_number LIKE ? ESCAPE '\' OR booking_number LIKE ? ESCAPE '\' OR master_bill_of_lading LIKE ? ESCAPE '\')`
	if whereClause != expected {
		t.Errorf("Expected %q, got %q", expected, whereClause)
	}
	if len(args) != 3 {
		t.Fatalf("Expected 3 args, got %d", len(args))
	}
	for i, arg := range args {
		if arg != "%MBLX1%" {
			t.Errorf("Arg %d: expected %%MBLX1%%, got %v", i, arg)
		}
	}
}

func TestWhereBuilder_AddReferenceSearch_EscapesWildcards(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddReferenceSearch("100%_done")

	_, args := wb.Build()
	if len(args) != 3 {
		t.Fatalf("Expected 3 args, got %d", len(args))
	}
	expected := `%100\%\_done%`
	if args[0] != expected {
		t.Errorf("Expected %q, got %v", expected, args[0])
	}
}

func TestWhereBuilder_Chaining(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddStatus("arrived").AddCarrier("MSC").AddSource("tai-webhook")

	whereClause, args := wb.Build()
	expected := "status = ? AND carrier = ? AND source = ?"
	if whereClause != expected {
		t.Errorf("Expected %q, got %q", expected, whereClause)
	}
	if len(args) != 3 {
		t.Errorf("Expected 3 args, got %d", len(args))
	}
	if wb.Count() != 3 {
		t.Errorf("Expected count 3, got %d", wb.Count())
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "ABCD1234", "ABCD1234"},
		{"percent", "50%", `50\%`},
		{"underscore", "a_b", `a\_b`},
		{"backslash", `a\b`, `a\\b`},
		{"mixed", `%_\`, `\%\_\\`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeLike(tt.input); got != tt.expected {
				t.Errorf("escapeLike(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
