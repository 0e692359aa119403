package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHeaders struct {
	calls map[uint64]int
	fail  bool
}

func (h *countingHeaders) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	if h.fail {
		return nil, errors.New("header unavailable")
	}
	h.calls[number.Uint64()]++
	return &types.Header{Number: number, Time: 1_700_000_000 + number.Uint64()}, nil
}

func TestBlockClockMemoizesPerBlock(t *testing.T) {
	headers := &countingHeaders{calls: make(map[uint64]int)}
	clock := NewBlockClock(headers)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ts, err := clock.Timestamp(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_700_000_042), ts)
	}
	_, err := clock.Timestamp(ctx, 43)
	require.NoError(t, err)

	assert.Equal(t, 1, headers.calls[42])
	assert.Equal(t, 1, headers.calls[43])
	assert.Equal(t, 2, clock.Lookups())
}

func TestBlockClockPropagatesErrors(t *testing.T) {
	clock := NewBlockClock(&countingHeaders{calls: make(map[uint64]int), fail: true})

	_, err := clock.Timestamp(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, 0, clock.Lookups())
}
