package client

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"multisender/internal/app/port"
	"multisender/internal/domain/entity"
	"multisender/internal/pkg/metrics"
	"multisender/internal/pkg/utils"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
)

const (
	defaultPollingInterval = 6 * time.Second
	headBufferSize         = 16
)

// Options tunes how an EVMClient talks to its node.
type Options struct {
	ConnectionTimeout time.Duration
	RPCCallTimeout    time.Duration
	// RequestsPerSecond caps outgoing calls; zero disables the limit.
	RequestsPerSecond float64
	Burst             int
}

// EVMClient implements port.ChainConnection for EVM-compatible chains.
type EVMClient struct {
	ethClient *ethclient.Client
	netDef    entity.NetworkDefinition
	rpcURL    string
	opts      Options
	limiter   *rate.Limiter
	logger    port.Logger
}

var _ port.ChainConnection = (*EVMClient)(nil)

// ERC20 ABI minimal part for balanceOf
const erc20ABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`

var (
	parsedERC20ABI  abi.ABI
	parsedERC20Once sync.Once
)

func initParsedERC20ABI() {
	parsedERC20Once.Do(func() {
		var err error
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
	})
}

// NewEVMClient dials the primary RPC URL of netDef, then each fallback in order.
func NewEVMClient(netDef entity.NetworkDefinition, opts Options, logger port.Logger) (*EVMClient, error) {
	initParsedERC20ABI()

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	rpcURLs := append([]string{netDef.PrimaryRPCURL}, netDef.FallbackRPCURLs...)
	var lastErr error

	for _, rpcURL := range rpcURLs {
		if rpcURL == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectionTimeout)
		client, err := ethclient.DialContext(ctx, rpcURL)
		cancel()

		if err == nil {
			return &EVMClient{
				ethClient: client,
				netDef:    netDef,
				rpcURL:    rpcURL,
				opts:      opts,
				limiter:   rate.NewLimiter(limit, opts.Burst),
				logger:    logger.With("network", netDef.Identifier),
			}, nil
		}
		lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no RPC URL configured")
	}

	return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", netDef.Name, lastErr)
}

// Definition returns the network definition for this client.
func (c *EVMClient) Definition() entity.NetworkDefinition {
	return c.netDef
}

// Backend exposes the underlying ethclient to contract bindings.
func (c *EVMClient) Backend() port.ContractBackend {
	return c.ethClient
}

// Close releases the underlying RPC client.
func (c *EVMClient) Close() {
	c.ethClient.Close()
}

// call waits for the rate limiter, bounds ctx by the call timeout and records the outcome.
func (c *EVMClient) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	callCtx := ctx
	if c.opts.RPCCallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.opts.RPCCallTimeout)
		defer cancel()
	}
	err := fn(callCtx)
	metrics.RPCRequests.WithLabelValues(c.netDef.Identifier, method, metrics.Outcome(err)).Inc()
	return err
}

func (c *EVMClient) ChainID(ctx context.Context) (*big.Int, error) {
	var id *big.Int
	err := c.call(ctx, "eth_chainId", func(ctx context.Context) (err error) {
		id, err = c.ethClient.ChainID(ctx)
		return err
	})
	return id, err
}

func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	err := c.call(ctx, "eth_blockNumber", func(ctx context.Context) (err error) {
		n, err = c.ethClient.BlockNumber(ctx)
		return err
	})
	return n, err
}

func (c *EVMClient) NativeBalance(ctx context.Context, holder common.Address) (*big.Int, error) {
	var balance *big.Int
	err := c.call(ctx, "eth_getBalance", func(ctx context.Context) (err error) {
		balance, err = c.ethClient.BalanceAt(ctx, holder, nil)
		return err
	})
	return balance, err
}

func (c *EVMClient) TokenBalance(ctx context.Context, token common.Address, holder common.Address) (*big.Int, error) {
	data, err := parsedERC20ABI.Pack("balanceOf", holder)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}

	var out []byte
	err = c.call(ctx, "eth_call", func(ctx context.Context) (err error) {
		out, err = c.ethClient.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return unpackBalance(out)
}

func unpackBalance(raw []byte) (*big.Int, error) {
	if len(raw) == 0 {
		return big.NewInt(0), nil
	}
	unpacked, err := parsedERC20ABI.Unpack("balanceOf", raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf result: %w. Raw: %s", err, hexutil.Encode(raw))
	}
	if len(unpacked) == 0 {
		return nil, fmt.Errorf("balanceOf unpack returned no data")
	}
	balance, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to assert unpacked balanceOf result to *big.Int. Got: %T", unpacked[0])
	}
	return balance, nil
}

func (c *EVMClient) CallContext(ctx context.Context, result any, method string, args ...any) error {
	return c.call(ctx, method, func(ctx context.Context) error {
		return c.ethClient.Client().CallContext(ctx, result, method, args...)
	})
}

// Balances fetches multiple balances using JSON-RPC batch requests.
func (c *EVMClient) Balances(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error) {
	if len(requests) == 0 {
		return []entity.BalanceResultItem{}, nil
	}
	results := make([]entity.BalanceResultItem, len(requests))
	batchElems := make([]rpc.BatchElem, 0, len(requests))
	positions := make([]int, 0, len(requests))

	for i, reqItem := range requests {
		results[i] = entity.BalanceResultItem{
			RequestID:    reqItem.ID,
			Holder:       reqItem.Holder,
			TokenAddress: reqItem.TokenAddress,
			TokenSymbol:  reqItem.TokenSymbol,
			Decimals:     reqItem.TokenDecimals,
			IsNative:     reqItem.Type == entity.NativeBalanceRequest,
		}

		switch reqItem.Type {
		case entity.NativeBalanceRequest:
			batchElems = append(batchElems, rpc.BatchElem{
				Method: "eth_getBalance",
				Args:   []interface{}{reqItem.Holder, "latest"},
				Result: new(*hexutil.Big),
			})
		case entity.TokenBalanceRequest:
			callData, err := parsedERC20ABI.Pack("balanceOf", reqItem.Holder)
			if err != nil {
				results[i].Error = fmt.Errorf("pack balanceOf for %s: %w", reqItem.TokenSymbol, err)
				continue
			}
			callArgs := map[string]interface{}{
				"to":   reqItem.TokenAddress,
				"data": hexutil.Bytes(callData),
			}
			batchElems = append(batchElems, rpc.BatchElem{
				Method: "eth_call",
				Args:   []interface{}{callArgs, "latest"},
				Result: new(hexutil.Bytes),
			})
		default:
			results[i].Error = fmt.Errorf("unknown balance request type: %v for %s", reqItem.Type, reqItem.TokenSymbol)
			continue
		}
		positions = append(positions, i)
	}

	if len(batchElems) == 0 {
		return results, nil
	}

	err := c.call(ctx, "batch", func(ctx context.Context) error {
		return c.ethClient.Client().BatchCallContext(ctx, batchElems)
	})
	if err != nil {
		return results, fmt.Errorf("RPC batch call failed: %w", err)
	}

	for j, elem := range batchElems {
		i := positions[j]
		if elem.Error != nil {
			results[i].Error = fmt.Errorf("failed to fetch %s for %s (holder %s): %w",
				requests[i].TokenSymbol, requests[i].TokenAddress.Hex(), requests[i].Holder.Hex(), elem.Error)
			continue
		}

		switch requests[i].Type {
		case entity.NativeBalanceRequest:
			if result, ok := elem.Result.(**hexutil.Big); ok && result != nil && *result != nil {
				results[i].Balance = (*big.Int)(*result)
			} else {
				results[i].Error = fmt.Errorf("failed to decode native balance for %s: unexpected type or nil result", requests[i].TokenSymbol)
			}
		case entity.TokenBalanceRequest:
			if result, ok := elem.Result.(*hexutil.Bytes); ok && result != nil {
				balance, err := unpackBalance(*result)
				if err != nil {
					results[i].Error = fmt.Errorf("%s: %w", requests[i].TokenSymbol, err)
					continue
				}
				results[i].Balance = balance
			} else {
				results[i].Error = fmt.Errorf("failed to decode token balance for %s: unexpected type or nil result", requests[i].TokenSymbol)
			}
		}

		if results[i].Error == nil {
			if results[i].Balance == nil {
				results[i].Balance = big.NewInt(0)
			}
			results[i].FormattedBalance = utils.FormatBigInt(results[i].Balance, results[i].Decimals)
		}
	}
	return results, nil
}

// SubscribeBlocks follows new heads over a websocket endpoint and falls back to polling
// eth_blockNumber at the network's polling interval on HTTP endpoints.
func (c *EVMClient) SubscribeBlocks(ctx context.Context, ch chan<- uint64) (ethereum.Subscription, error) {
	if strings.HasPrefix(c.rpcURL, "ws://") || strings.HasPrefix(c.rpcURL, "wss://") {
		return c.subscribeHeads(ctx, ch)
	}
	return c.pollBlocks(ctx, ch), nil
}

func (c *EVMClient) subscribeHeads(ctx context.Context, ch chan<- uint64) (ethereum.Subscription, error) {
	heads := make(chan *types.Header, headBufferSize)
	inner, err := c.ethClient.SubscribeNewHead(ctx, heads)
	if err != nil {
		return nil, fmt.Errorf("subscribe new heads on %s: %w", c.netDef.Name, err)
	}
	c.logger.Debug("Following new heads", "rpc", c.rpcURL)

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer inner.Unsubscribe()
		for {
			select {
			case <-quit:
				return nil
			case <-ctx.Done():
				return nil
			case err := <-inner.Err():
				return err
			case head := <-heads:
				metrics.RPCRequests.WithLabelValues(c.netDef.Identifier, "eth_subscribe", metrics.Outcome(nil)).Inc()
				select {
				case ch <- head.Number.Uint64():
				case <-quit:
					return nil
				}
			}
		}
	}), nil
}

func (c *EVMClient) pollBlocks(ctx context.Context, ch chan<- uint64) ethereum.Subscription {
	interval := c.netDef.PollingInterval
	if interval <= 0 {
		interval = defaultPollingInterval
	}
	c.logger.Debug("Polling for new blocks", "rpc", c.rpcURL, "interval", interval)

	return event.NewSubscription(func(quit <-chan struct{}) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last uint64
		for {
			select {
			case <-quit:
				return nil
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := c.BlockNumber(ctx)
				if err != nil {
					c.logger.Debug("Block poll failed", "error", err)
					continue
				}
				if n <= last {
					continue
				}
				last = n
				select {
				case ch <- n:
				case <-quit:
					return nil
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
}
