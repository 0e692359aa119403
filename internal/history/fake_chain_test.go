package history

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"escrowScope/internal/contract"
	"escrowScope/internal/indexer"
	"escrowScope/internal/live"
)

var escrowAddr = common.HexToAddress("0x6666666666666666666666666666666666666666")

type fakeSub struct {
	once  sync.Once
	errCh chan error
}

func (s *fakeSub) Unsubscribe()      { s.once.Do(func() { close(s.errCh) }) }
func (s *fakeSub) Err() <-chan error { return s.errCh }

// fakeChain serves historical logs, live feeds and headers from memory.
type fakeChain struct {
	mu      sync.Mutex
	head    uint64
	logs    []types.Log
	fail    bool
	gate    chan struct{}
	entered chan struct{}
	queries int
	sinks   []chan<- types.Log

	subGate    chan struct{}
	subEntered chan struct{}
}

func (c *fakeChain) BlockNumber(context.Context) (uint64, error) {
	return c.head, nil
}

func (c *fakeChain) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: number, Time: 1_700_000_000 + number.Uint64()}, nil
}

func (c *fakeChain) FilterLogs(_ context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	c.queries++
	gate, entered, fail := c.gate, c.entered, c.fail
	c.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
	if fail {
		return nil, errors.New("rpc timeout")
	}

	from, to := query.FromBlock.Uint64(), query.ToBlock.Uint64()
	out := make([]types.Log, 0)
	for _, log := range c.logs {
		if log.BlockNumber >= from && log.BlockNumber <= to && log.Topics[0] == query.Topics[0][0] {
			out = append(out, log)
		}
	}
	return out, nil
}

func (c *fakeChain) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if c.subEntered != nil {
		c.subEntered <- struct{}{}
	}
	if c.subGate != nil {
		<-c.subGate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, ch)
	return &fakeSub{errCh: make(chan error)}, nil
}

func (c *fakeChain) sinkCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sinks)
}

func (c *fakeChain) queryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queries
}

func eventLog(t *testing.T, name string, subject int64, block uint64, value interface{}) types.Log {
	t.Helper()
	escrowABI, err := contract.EscrowABI()
	require.NoError(t, err)
	event := escrowABI.Events[name]
	data, err := event.Inputs.NonIndexed().Pack(value)
	require.NoError(t, err)
	return types.Log{
		Address:     escrowAddr,
		Topics:      []common.Hash{event.ID, contract.SubjectTopic(big.NewInt(subject))},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
	}
}

func newParts(t *testing.T, chain *fakeChain) (*indexer.Scanner, *live.Subscriber) {
	t.Helper()
	decoder, err := contract.NewDecoder(escrowAddr)
	require.NoError(t, err)
	return indexer.NewScanner(chain, decoder, nil, nil), live.NewSubscriber(chain, decoder, nil, nil)
}
