package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"

	"escrowScope/internal/metrics"
)

// ClientOptions tunes the RPC client.
type ClientOptions struct {
	// RequestsPerSecond caps outgoing RPC calls; 0 disables limiting.
	RequestsPerSecond float64
	Burst             int
	Metrics           *metrics.Metrics
}

// Client wraps go-ethereum RPC and implements Provider.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
}

var _ Provider = (*Client)(nil)

// NewClient creates a new chain client from the RPC URL.
// Live subscriptions require a websocket or IPC endpoint.
func NewClient(ctx context.Context, rpcURL string, opts ClientOptions) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		limiter:   limiter,
		metrics:   opts.Metrics,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	id, err := c.ethClient.ChainID(ctx)
	c.metrics.ProviderCall("eth_chainId", err)
	return id, err
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	n, err := c.ethClient.BlockNumber(ctx)
	c.metrics.ProviderCall("eth_blockNumber", err)
	return n, err
}

// HeaderByNumber returns the block header by number.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	header, err := c.ethClient.HeaderByNumber(ctx, number)
	c.metrics.ProviderCall("eth_getBlockByNumber", err)
	return header, err
}

// FilterLogs runs a single eth_getLogs query.
func (c *Client) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	logs, err := c.ethClient.FilterLogs(ctx, query)
	c.metrics.ProviderCall("eth_getLogs", err)
	return logs, err
}

// SubscribeFilterLogs opens a log watch for new blocks matching query.
func (c *Client) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	sub, err := c.ethClient.SubscribeFilterLogs(ctx, query, ch)
	c.metrics.ProviderCall("eth_subscribe", err)
	return sub, err
}

// CallContract performs an eth_call, optionally pinned to blockNumber.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	out, err := c.ethClient.CallContract(ctx, msg, blockNumber)
	c.metrics.ProviderCall("eth_call", err)
	return out, err
}
