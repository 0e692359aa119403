package contract

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"escrowScope/internal/chain"
)

// AssetRegistry resolves the declared decimal count of payment assets.
// Configured entries win; other assets are asked for decimals() once.
type AssetRegistry struct {
	caller chain.ContractCaller
	logger *zap.Logger

	mu       sync.RWMutex
	decimals map[common.Address]uint8
}

func NewAssetRegistry(caller chain.ContractCaller, configured map[common.Address]uint8, logger *zap.Logger) *AssetRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	decimals := make(map[common.Address]uint8, len(configured))
	for addr, d := range configured {
		decimals[addr] = d
	}
	return &AssetRegistry{caller: caller, logger: logger, decimals: decimals}
}

// Decimals returns the decimal count of token.
func (r *AssetRegistry) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	r.mu.RLock()
	d, ok := r.decimals[token]
	r.mu.RUnlock()
	if ok {
		return d, nil
	}

	if r.caller == nil {
		return 0, fmt.Errorf("no decimals configured for asset %s", token.Hex())
	}
	d, err := FetchDecimals(ctx, r.caller, token)
	if err != nil {
		return 0, fmt.Errorf("asset %s decimals: %w", token.Hex(), err)
	}
	r.logger.Debug("asset decimals resolved", zap.String("token", token.Hex()), zap.Uint8("decimals", d))

	r.mu.Lock()
	r.decimals[token] = d
	r.mu.Unlock()
	return d, nil
}

// FetchDecimals calls decimals() on an ERC20 token.
func FetchDecimals(ctx context.Context, caller chain.ContractCaller, token common.Address) (uint8, error) {
	parsed, err := erc20ABIInstance()
	if err != nil {
		return 0, fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := parsed.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("pack decimals: %w", err)
	}
	resp, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("call decimals: %w", err)
	}
	values, err := parsed.Unpack("decimals", resp)
	if err != nil {
		return 0, fmt.Errorf("%w: unpack decimals: %v", ErrDecode, err)
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("%w: unexpected decimals values: %d", ErrDecode, len(values))
	}
	return asUint8(values[0])
}
