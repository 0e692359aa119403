package indexer

import (
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeSingle(t *testing.T) {
	got, err := SplitRange(5, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{{From: 5, To: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestScanWindow(t *testing.T) {
	cases := []struct {
		head, maxRange uint64
		want           BlockRange
	}{
		{head: 250_000, maxRange: 100_000, want: BlockRange{From: 150_000, To: 250_000}},
		{head: 40_000, maxRange: 100_000, want: BlockRange{From: 0, To: 40_000}},
		{head: 100_000, maxRange: 100_000, want: BlockRange{From: 0, To: 100_000}},
		{head: 0, maxRange: 5, want: BlockRange{From: 0, To: 0}},
	}
	for _, tc := range cases {
		if got := ScanWindow(tc.head, tc.maxRange); got != tc.want {
			t.Fatalf("ScanWindow(%d, %d) = %+v, want %+v", tc.head, tc.maxRange, got, tc.want)
		}
	}
}

func TestSplitRangeFromHead(t *testing.T) {
	got, err := SplitRangeFromHead(0, 100_000, 5_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 21 {
		t.Fatalf("expected 21 ranges, got %d", len(got))
	}
	if got[0] != (BlockRange{From: 95_001, To: 100_000}) {
		t.Fatalf("first range should be a full chunk ending at head, got %+v", got[0])
	}
	if got[20] != (BlockRange{From: 0, To: 0}) {
		t.Fatalf("last range should hold the remainder, got %+v", got[20])
	}

	got, err = SplitRangeFromHead(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []BlockRange{{From: 104, To: 105}, {From: 102, To: 103}, {From: 100, To: 101}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}

	if _, err := SplitRangeFromHead(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRangeFromHead(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}
