package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestEventRecordBlockNumberEncodedAsString(t *testing.T) {
	record := EventRecord{
		Kind:        EventPaymentReleased,
		SubjectID:   "1",
		Payload:     map[string]string{"amount": "1000000"},
		Timestamp:   FormatBlockTime(1_700_000_000),
		BlockNumber: 18446744073709551615,
		TxHash:      "0xabc",
		LogIndex:    3,
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if raw["block_number"] != "18446744073709551615" {
		t.Fatalf("block_number should be a string, got %#v", raw["block_number"])
	}

	var decoded EventRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(record, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", record, decoded)
	}
}

func TestSortNewestFirst(t *testing.T) {
	records := []EventRecord{
		{TxHash: "a", BlockNumber: 10, Timestamp: FormatBlockTime(100)},
		{TxHash: "c", BlockNumber: 30, Timestamp: FormatBlockTime(300)},
		{TxHash: "b", BlockNumber: 20, Timestamp: FormatBlockTime(200)},
		{TxHash: "d", BlockNumber: 30, LogIndex: 2, Timestamp: FormatBlockTime(300)},
	}

	SortNewestFirst(records)

	got := []string{records[0].TxHash, records[1].TxHash, records[2].TxHash, records[3].TxHash}
	want := []string{"d", "c", "b", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order mismatch: %v != %v", got, want)
	}
}

func TestSortByBlock(t *testing.T) {
	records := []EventRecord{
		{TxHash: "b", BlockNumber: 20},
		{TxHash: "a2", BlockNumber: 10, LogIndex: 2},
		{TxHash: "a1", BlockNumber: 10, LogIndex: 1},
	}

	SortByBlock(records)

	got := []string{records[0].TxHash, records[1].TxHash, records[2].TxHash}
	want := []string{"a1", "a2", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order mismatch: %v != %v", got, want)
	}
}
