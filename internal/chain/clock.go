package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
)

// BlockClock resolves block timestamps, fetching each block header at most once.
// A clock is scoped to one scan or one subscription; it is not a global cache.
type BlockClock struct {
	headers HeaderReader

	mu      sync.Mutex
	tsCache map[uint64]uint64
}

func NewBlockClock(headers HeaderReader) *BlockClock {
	return &BlockClock{headers: headers, tsCache: make(map[uint64]uint64)}
}

// Timestamp returns the block timestamp in unix seconds.
func (c *BlockClock) Timestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.Lock()
	ts, ok := c.tsCache[number]
	c.mu.Unlock()
	if ok {
		return ts, nil
	}

	header, err := c.headers.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}
	if header == nil {
		return 0, fmt.Errorf("block %d not found", number)
	}

	c.mu.Lock()
	c.tsCache[number] = header.Time
	c.mu.Unlock()

	return header.Time, nil
}

// Lookups reports how many distinct blocks have been resolved.
func (c *BlockClock) Lookups() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tsCache)
}
