package history

import (
	"context"
	"fmt"
	"math/big"

	"escrowScope/internal/indexer"
	"escrowScope/internal/model"
)

// LatestDispute returns the most recent Disputed record of an agreement.
// The scan walks head-first and stops at the first chunk containing a dispute.
func LatestDispute(ctx context.Context, scanner *indexer.Scanner, id *big.Int, opts indexer.Options) (model.EventRecord, bool, error) {
	q := indexer.Query{Kind: model.EventDisputed, Subjects: []*big.Int{id}}
	record, found, err := scanner.FindLatest(ctx, q, opts)
	if err != nil {
		return model.EventRecord{}, false, fmt.Errorf("latest dispute %s: %w", id, err)
	}
	return record, found, nil
}
