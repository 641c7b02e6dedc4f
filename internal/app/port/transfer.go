package port

import (
	"context"
	"math/big"

	"multisender/internal/domain/entity"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// AddressTranslator maps primary-chain addresses to their rollup counterparts.
type AddressTranslator interface {
	// ToShortAddress is pure and deterministic.
	ToShortAddress(primary string) (entity.ShortAddress, error)
	// ToDepositAddress needs a live connection to look up rollup parameters.
	ToDepositAddress(ctx context.Context, primary string, conn ChainConnection) (string, error)
}

// MultiSendContract is a bound instance of the multisend contract.
type MultiSendContract interface {
	Address() common.Address
	ChainID() *big.Int
	// MultiSend sends opts.Value split evenly across recipients.
	MultiSend(opts *bind.TransactOpts, recipients []common.Address) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// MultiSendBinder binds the multisend contract on a connection.
type MultiSendBinder interface {
	BindMultiSend(ctx context.Context, conn ChainConnection) (MultiSendContract, error)
}

// TransferNotifier is told about settled tickets.
type TransferNotifier interface {
	NotifyTransfer(ctx context.Context, ticket entity.TransferTicket) error
}
