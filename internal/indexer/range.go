package indexer

import "fmt"

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// Span returns the number of blocks covered by the range.
func (r BlockRange) Span() uint64 {
	return r.To - r.From + 1
}

// SplitRange splits a block range into batches of size batchSize.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0)
	start := from
	for start <= to {
		remaining := to - start + 1
		var end uint64
		if remaining <= batchSize {
			end = to
		} else {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}

// ScanWindow returns [max(0, head-maxRange), head].
func ScanWindow(head, maxRange uint64) BlockRange {
	if head < maxRange {
		return BlockRange{From: 0, To: head}
	}
	return BlockRange{From: head - maxRange, To: head}
}

// SplitRangeFromHead splits a block range into batches anchored at to, newest batch first.
// Only the last batch, at the bottom of the range, may be shorter than batchSize.
func SplitRangeFromHead(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0)
	end := to
	for {
		start := from
		if end-from+1 > batchSize {
			start = end - batchSize + 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if start == from {
			break
		}
		end = start - 1
	}

	return ranges, nil
}
