package history

import (
	"context"
	"fmt"
	"math/big"

	"escrowScope/internal/model"
)

// AgreementReader reads an agreement record, optionally as of a past block.
type AgreementReader interface {
	Agreement(ctx context.Context, id *big.Int, blockNumber *big.Int) (model.RawAgreement, error)
}

// Rejections builds the rejection history of one agreement from WorkRejected records, oldest first.
// For milestone agreements each entry carries the 1-based milestone that was active at the
// rejection's block.
func Rejections(ctx context.Context, reader AgreementReader, id *big.Int, records []model.EventRecord) ([]model.RejectionEntry, error) {
	ordered := make([]model.EventRecord, 0, len(records))
	for _, record := range records {
		if record.Kind == model.EventWorkRejected && record.SubjectID == id.String() {
			ordered = append(ordered, record)
		}
	}
	model.SortByBlock(ordered)

	entries := make([]model.RejectionEntry, 0, len(ordered))
	if len(ordered) == 0 {
		return entries, nil
	}

	current, err := reader.Agreement(ctx, id, nil)
	if err != nil {
		return nil, fmt.Errorf("agreement %s: %w", id, err)
	}
	milestones := model.PaymentTypeOf(current.PaymentType) == model.PaymentMilestone

	for _, record := range ordered {
		entry := model.RejectionEntry{
			Timestamp:   record.Timestamp,
			Reason:      record.Payload["reason"],
			BlockNumber: record.BlockNumber,
			TxHash:      record.TxHash,
		}
		if milestones {
			past, err := reader.Agreement(ctx, id, new(big.Int).SetUint64(record.BlockNumber))
			if err != nil {
				return nil, fmt.Errorf("agreement %s at block %d: %w", id, record.BlockNumber, err)
			}
			if past.CurrentMilestone != nil && past.CurrentMilestone.IsUint64() {
				number := past.CurrentMilestone.Uint64() + 1
				entry.MilestoneNumber = &number
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
