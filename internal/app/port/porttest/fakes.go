// Package porttest holds hand-written fakes of the application ports for tests.
package porttest

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"

	"multisender/internal/app/port"
	"multisender/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

var errNotConfigured = errors.New("fake: not configured")

// Connection is a port.ChainConnection whose behaviour is set per test through the Func fields.
type Connection struct {
	Def entity.NetworkDefinition

	ChainIDFunc         func(ctx context.Context) (*big.Int, error)
	BlockNumberFunc     func(ctx context.Context) (uint64, error)
	NativeBalanceFunc   func(ctx context.Context, holder common.Address) (*big.Int, error)
	TokenBalanceFunc    func(ctx context.Context, token, holder common.Address) (*big.Int, error)
	BalancesFunc        func(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error)
	SubscribeBlocksFunc func(ctx context.Context, ch chan<- uint64) (ethereum.Subscription, error)
	CallContextFunc     func(ctx context.Context, result any, method string, args ...any) error
	BackendValue        port.ContractBackend

	blocks        event.FeedOf[uint64]
	calls         atomic.Int64
	subscriptions atomic.Int64
}

var _ port.ChainConnection = (*Connection)(nil)

// NewConnection returns a fake that reports def's chain id and zero everywhere else.
func NewConnection(def entity.NetworkDefinition) *Connection {
	return &Connection{Def: def}
}

// Calls is the number of chain reads and writes made through the fake.
func (c *Connection) Calls() int64 { return c.calls.Load() }

// Subscriptions counts opened block subscriptions.
func (c *Connection) Subscriptions() int64 { return c.subscriptions.Load() }

// EmitBlock delivers n to every live block subscription and returns how many received it.
func (c *Connection) EmitBlock(n uint64) int {
	return c.blocks.Send(n)
}

func (c *Connection) Definition() entity.NetworkDefinition { return c.Def }

func (c *Connection) ChainID(ctx context.Context) (*big.Int, error) {
	c.calls.Add(1)
	if c.ChainIDFunc != nil {
		return c.ChainIDFunc(ctx)
	}
	return new(big.Int).SetUint64(c.Def.ChainID), nil
}

func (c *Connection) BlockNumber(ctx context.Context) (uint64, error) {
	c.calls.Add(1)
	if c.BlockNumberFunc != nil {
		return c.BlockNumberFunc(ctx)
	}
	return 0, nil
}

func (c *Connection) NativeBalance(ctx context.Context, holder common.Address) (*big.Int, error) {
	c.calls.Add(1)
	if c.NativeBalanceFunc != nil {
		return c.NativeBalanceFunc(ctx, holder)
	}
	return big.NewInt(0), nil
}

func (c *Connection) TokenBalance(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	c.calls.Add(1)
	if c.TokenBalanceFunc != nil {
		return c.TokenBalanceFunc(ctx, token, holder)
	}
	return big.NewInt(0), nil
}

func (c *Connection) Balances(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error) {
	c.calls.Add(1)
	if c.BalancesFunc != nil {
		return c.BalancesFunc(ctx, requests)
	}
	return nil, errNotConfigured
}

func (c *Connection) SubscribeBlocks(ctx context.Context, ch chan<- uint64) (ethereum.Subscription, error) {
	c.subscriptions.Add(1)
	if c.SubscribeBlocksFunc != nil {
		return c.SubscribeBlocksFunc(ctx, ch)
	}
	return c.blocks.Subscribe(ch), nil
}

func (c *Connection) CallContext(ctx context.Context, result any, method string, args ...any) error {
	c.calls.Add(1)
	if c.CallContextFunc != nil {
		return c.CallContextFunc(ctx, result, method, args...)
	}
	return errNotConfigured
}

func (c *Connection) Backend() port.ContractBackend { return c.BackendValue }

// ConnectionFactory hands out fixed connections keyed by network identifier.
type ConnectionFactory struct {
	mu    sync.Mutex
	Conns map[string]*Connection
	Err   error
}

func (f *ConnectionFactory) Connect(_ context.Context, def entity.NetworkDefinition) (port.ChainConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	conn, ok := f.Conns[def.Identifier]
	if !ok {
		return nil, errNotConfigured
	}
	return conn, nil
}

// Wallet is a port.Wallet with a fixed address and no real signer.
type Wallet struct {
	Addr           common.Address
	TransactorFunc func(chainID *big.Int) (*bind.TransactOpts, error)
	calls          atomic.Int64
}

func (w *Wallet) Address() common.Address { return w.Addr }

// TransactorCalls counts Transactor invocations.
func (w *Wallet) TransactorCalls() int64 { return w.calls.Load() }

func (w *Wallet) Transactor(chainID *big.Int) (*bind.TransactOpts, error) {
	w.calls.Add(1)
	if w.TransactorFunc != nil {
		return w.TransactorFunc(chainID)
	}
	return &bind.TransactOpts{From: w.Addr}, nil
}

// Contract is a port.MultiSendContract recording every multisend call.
type Contract struct {
	Addr          common.Address
	Chain         *big.Int
	MultiSendFunc func(opts *bind.TransactOpts, recipients []common.Address) (*types.Transaction, error)
	WaitMinedFunc func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

	mu    sync.Mutex
	sent  []SentBatch
	calls atomic.Int64
}

// SentBatch is one recorded multisend call.
type SentBatch struct {
	Value      *big.Int
	GasLimit   uint64
	Recipients []common.Address
}

var _ port.MultiSendContract = (*Contract)(nil)

func (c *Contract) Address() common.Address { return c.Addr }

func (c *Contract) ChainID() *big.Int { return c.Chain }

// Calls counts chain calls made through the contract.
func (c *Contract) Calls() int64 { return c.calls.Load() }

// Sent returns the recorded multisend calls.
func (c *Contract) Sent() []SentBatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SentBatch, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *Contract) MultiSend(opts *bind.TransactOpts, recipients []common.Address) (*types.Transaction, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.sent = append(c.sent, SentBatch{Value: opts.Value, GasLimit: opts.GasLimit, Recipients: recipients})
	c.mu.Unlock()
	if c.MultiSendFunc != nil {
		return c.MultiSendFunc(opts, recipients)
	}
	return types.NewTx(&types.LegacyTx{Nonce: uint64(len(c.Sent())), To: &c.Addr, Value: opts.Value, Gas: opts.GasLimit}), nil
}

func (c *Contract) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	c.calls.Add(1)
	if c.WaitMinedFunc != nil {
		return c.WaitMinedFunc(ctx, tx)
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash(), BlockNumber: big.NewInt(1)}, nil
}

// Binder binds a fixed contract, failing for connections whose network is not the rollup.
type Binder struct {
	Contract *Contract
	Err      error
}

func (b *Binder) BindMultiSend(_ context.Context, conn port.ChainConnection) (port.MultiSendContract, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	if b.Contract.Chain == nil {
		b.Contract.Chain = new(big.Int).SetUint64(conn.Definition().ChainID)
	}
	return b.Contract, nil
}

// Notifier records notified tickets.
type Notifier struct {
	mu      sync.Mutex
	Tickets []entity.TransferTicket
}

func (n *Notifier) NotifyTransfer(_ context.Context, ticket entity.TransferTicket) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Tickets = append(n.Tickets, ticket)
	return nil
}

// Notified returns a copy of the recorded tickets.
func (n *Notifier) Notified() []entity.TransferTicket {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]entity.TransferTicket, len(n.Tickets))
	copy(out, n.Tickets)
	return out
}
