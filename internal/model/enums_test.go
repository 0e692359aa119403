package model

import "testing"

func TestStatusLookupIsExhaustive(t *testing.T) {
	want := map[uint8]string{0: "Created", 1: "Active", 2: "Completed", 3: "Disputed", 4: "Cancelled"}
	for raw := 0; raw <= 255; raw++ {
		got := StatusOf(uint8(raw)).String()
		label, known := want[uint8(raw)]
		if !known {
			label = "Unknown"
		}
		if got != label {
			t.Fatalf("status %d: got %q want %q", raw, got, label)
		}
	}
}

func TestPaymentTypeLookupIsExhaustive(t *testing.T) {
	want := map[uint8]string{0: "One-time", 1: "Milestone", 2: "Recurring"}
	for raw := 0; raw <= 255; raw++ {
		got := PaymentTypeOf(uint8(raw)).String()
		label, known := want[uint8(raw)]
		if !known {
			label = "Unknown"
		}
		if got != label {
			t.Fatalf("payment type %d: got %q want %q", raw, got, label)
		}
	}
}

func TestTablesAreDense(t *testing.T) {
	for i, member := range StatusTable {
		if int(member.Value) != i {
			t.Fatalf("status table position %d holds value %d", i, member.Value)
		}
	}
	for i, member := range PaymentTypeTable {
		if int(member.Value) != i {
			t.Fatalf("payment type table position %d holds value %d", i, member.Value)
		}
	}
}
