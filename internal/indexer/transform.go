package indexer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"

	"escrowScope/internal/chain"
	"escrowScope/internal/contract"
	"escrowScope/internal/model"
)

// Normalizer decodes raw logs and stamps them with their block time.
type Normalizer struct {
	decoder *contract.Decoder
	clock   *chain.BlockClock
}

func NewNormalizer(decoder *contract.Decoder, clock *chain.BlockClock) *Normalizer {
	return &Normalizer{decoder: decoder, clock: clock}
}

// Normalize converts logs of the expected kind into records, preserving input order.
// Logs removed by a reorg are dropped.
func (n *Normalizer) Normalize(ctx context.Context, expect model.EventKind, logs []types.Log) ([]model.EventRecord, error) {
	records := make([]model.EventRecord, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}

		decoded, err := n.decoder.Decode(log)
		if err != nil {
			return nil, fmt.Errorf("log %s/%d: %w", log.TxHash.Hex(), log.Index, err)
		}
		if decoded.Kind != expect {
			return nil, fmt.Errorf("log %s/%d: %w: got %s, want %s", log.TxHash.Hex(), log.Index, contract.ErrDecode, decoded.Kind, expect)
		}

		ts, err := n.clock.Timestamp(ctx, log.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
		}
		records = append(records, buildEventRecord(decoded, log, ts))
	}
	return records, nil
}

func buildEventRecord(decoded contract.Decoded, log types.Log, timestamp uint64) model.EventRecord {
	return model.EventRecord{
		Kind:        decoded.Kind,
		SubjectID:   decoded.SubjectID.String(),
		Payload:     decoded.Payload,
		Timestamp:   model.FormatBlockTime(timestamp),
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
	}
}
