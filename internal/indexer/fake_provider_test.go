package indexer

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"escrowScope/internal/contract"
)

var escrowAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")

type fakeProvider struct {
	mu          sync.Mutex
	head        uint64
	logs        []types.Log
	failFrom    map[uint64]bool
	queries     []ethereum.FilterQuery
	headerCalls int
	headCalls   int
}

func (p *fakeProvider) BlockNumber(context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.headCalls++
	return p.head, nil
}

func (p *fakeProvider) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.headerCalls++
	return &types.Header{Number: number, Time: 1_700_000_000 + number.Uint64()*12}, nil
}

func (p *fakeProvider) FilterLogs(_ context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, query)

	from, to := query.FromBlock.Uint64(), query.ToBlock.Uint64()
	if p.failFrom[from] {
		return nil, errors.New("upstream unavailable")
	}

	out := make([]types.Log, 0)
	for _, log := range p.logs {
		if log.BlockNumber < from || log.BlockNumber > to {
			continue
		}
		if !matchTopics(query.Topics, log.Topics) {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

func matchTopics(filter [][]common.Hash, topics []common.Hash) bool {
	for i, options := range filter {
		if len(options) == 0 {
			continue
		}
		if i >= len(topics) {
			return false
		}
		found := false
		for _, option := range options {
			if option == topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func paymentLog(t *testing.T, subject int64, block uint64, index uint, amount int64) types.Log {
	t.Helper()
	escrowABI, err := contract.EscrowABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	event := escrowABI.Events["PaymentReleased"]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(amount))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return types.Log{
		Address:     escrowAddr,
		Topics:      []common.Hash{event.ID, contract.SubjectTopic(big.NewInt(subject))},
		Data:        data,
		BlockNumber: block,
		Index:       index,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block*1000 + uint64(index))),
	}
}

func newTestScanner(t *testing.T, provider *fakeProvider) *Scanner {
	t.Helper()
	decoder, err := contract.NewDecoder(escrowAddr)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	return NewScanner(provider, decoder, nil, nil)
}
