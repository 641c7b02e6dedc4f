package port

import (
	"context"
	"math/big"

	"multisender/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// ContractBackend is what a bound contract needs to call, transact and wait for receipts.
type ContractBackend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// ChainConnection is a live connection to one EVM-compatible network.
type ChainConnection interface {
	// Definition returns the network definition associated with this connection.
	Definition() entity.NetworkDefinition

	// ChainID asks the remote node for its chain id.
	ChainID(ctx context.Context) (*big.Int, error)

	// BlockNumber fetches the latest block number.
	BlockNumber(ctx context.Context) (uint64, error)

	// NativeBalance fetches the native currency balance of holder.
	NativeBalance(ctx context.Context, holder common.Address) (*big.Int, error)

	// TokenBalance calls ERC20 balanceOf(holder) on token.
	TokenBalance(ctx context.Context, token common.Address, holder common.Address) (*big.Int, error)

	// Balances resolves many balances in one JSON-RPC batch.
	Balances(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error)

	// SubscribeBlocks delivers new block numbers on ch until the subscription is
	// unsubscribed or ctx is done.
	SubscribeBlocks(ctx context.Context, ch chan<- uint64) (ethereum.Subscription, error)

	// CallContext performs a raw JSON-RPC call.
	CallContext(ctx context.Context, result any, method string, args ...any) error

	// Backend exposes the connection to contract bindings.
	Backend() ContractBackend
}

// ConnectionFactory opens connections for network definitions.
type ConnectionFactory interface {
	Connect(ctx context.Context, def entity.NetworkDefinition) (ChainConnection, error)
}

// NetworkDefinitionProvider defines the interface for providing network definitions.
type NetworkDefinitionProvider interface {
	// GetAllNetworkDefinitions returns all available network definitions as a slice.
	GetAllNetworkDefinitions() []entity.NetworkDefinition

	// GetNetworkDefinitionByName returns a specific network definition by its identifier.
	GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool)

	// GetNetworkDefinitionByKind returns the definition playing the given role.
	GetNetworkDefinitionByKind(kind entity.NetworkKind) (entity.NetworkDefinition, bool)
}
