package model

import (
	"sort"
	"time"
)

// EventKind names one of the escrow contract events tracked by the indexer.
type EventKind string

const (
	EventPaymentReleased EventKind = "payment_released"
	EventWorkRejected    EventKind = "work_rejected"
	EventDisputed        EventKind = "disputed"
)

// TimestampLayout is the ISO8601 layout used for EventRecord timestamps.
const TimestampLayout = time.RFC3339

// EventRecord is the normalized shape emitted by both historical scans and live subscriptions.
// BlockNumber is encoded as a JSON string so 64-bit values survive any JSON consumer.
type EventRecord struct {
	Kind        EventKind         `json:"kind"`
	SubjectID   string            `json:"subject_id"`
	Payload     map[string]string `json:"payload"`
	Timestamp   string            `json:"timestamp"`
	BlockNumber uint64            `json:"block_number,string"`
	TxHash      string            `json:"tx_hash"`
	LogIndex    uint64            `json:"log_index,string"`
}

// Time parses the record timestamp. Unparseable values yield the zero time.
func (r EventRecord) Time() time.Time {
	ts, err := time.Parse(TimestampLayout, r.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// DedupKey identifies a record for merge deduplication.
func (r EventRecord) DedupKey() string {
	return r.SubjectID + "|" + r.TxHash
}

// FormatBlockTime renders a block timestamp (unix seconds) as an EventRecord timestamp.
func FormatBlockTime(unix uint64) string {
	return time.Unix(int64(unix), 0).UTC().Format(TimestampLayout)
}

// SortByBlock orders records oldest-first by block number, then log index.
func SortByBlock(records []EventRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].BlockNumber != records[j].BlockNumber {
			return records[i].BlockNumber < records[j].BlockNumber
		}
		return records[i].LogIndex < records[j].LogIndex
	})
}

// SortNewestFirst orders records by descending timestamp for display.
func SortNewestFirst(records []EventRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, tj := records[i].Time(), records[j].Time()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		if records[i].BlockNumber != records[j].BlockNumber {
			return records[i].BlockNumber > records[j].BlockNumber
		}
		return records[i].LogIndex > records[j].LogIndex
	})
}
