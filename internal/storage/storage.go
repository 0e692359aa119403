package storage

import (
	"context"
	"errors"

	"escrowScope/internal/model"
)

// Sink receives normalized event records and agreement snapshots for export.
type Sink interface {
	PutEventBatch(ctx context.Context, records []model.EventRecord) error
	PutAgreements(ctx context.Context, states []model.AggregateState) error
}

// Multi fans every batch out to all sinks and joins their errors.
type Multi []Sink

func (m Multi) PutEventBatch(ctx context.Context, records []model.EventRecord) error {
	var errs []error
	for _, sink := range m {
		if err := sink.PutEventBatch(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) PutAgreements(ctx context.Context, states []model.AggregateState) error {
	var errs []error
	for _, sink := range m {
		if err := sink.PutAgreements(ctx, states); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
