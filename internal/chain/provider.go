package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
)

// HeaderReader resolves block headers, used for block timestamps.
type HeaderReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// LogReader is the part of the provider used by historical scans.
type LogReader interface {
	HeaderReader
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
}

// LogSubscriber is the part of the provider used by live subscriptions.
type LogSubscriber interface {
	HeaderReader
	SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// ContractCaller performs read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Provider is the full chain data capability. Any implementation is substitutable.
type Provider interface {
	LogReader
	LogSubscriber
	ContractCaller
	ChainID(ctx context.Context) (*big.Int, error)
}
