// Package contract binds the multisend contract deployed on the rollup.
package contract

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"multisender/internal/app/port"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultAddress is where the multisend contract lives on the Godwoken testnet.
const DefaultAddress = "0x6e20280512D096592CbECeB6928D487bCE1926BE"

const multiSendABI = `[{"inputs":[{"internalType":"address[]","name":"receivers","type":"address[]"}],"name":"multisend","outputs":[],"stateMutability":"payable","type":"function"}]`

const methodMultiSend = "multisend"

var (
	parsedABI     abi.ABI
	parsedABIErr  error
	parsedABIOnce sync.Once
)

// ABI returns the parsed multisend ABI.
func ABI() (abi.ABI, error) {
	parsedABIOnce.Do(func() {
		parsedABI, parsedABIErr = abi.JSON(strings.NewReader(multiSendABI))
	})
	return parsedABI, errors.Wrap(parsedABIErr, "parse multisend abi")
}

// MultiSender is a bound multisend contract.
type MultiSender struct {
	address  common.Address
	chainID  *big.Int
	backend  port.ContractBackend
	contract *bind.BoundContract
}

var _ port.MultiSendContract = (*MultiSender)(nil)

// NewMultiSender binds the contract at address on backend.
func NewMultiSender(address common.Address, chainID *big.Int, backend port.ContractBackend) (*MultiSender, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, err
	}
	return &MultiSender{
		address:  address,
		chainID:  new(big.Int).Set(chainID),
		backend:  backend,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

func (m *MultiSender) Address() common.Address { return m.address }

func (m *MultiSender) ChainID() *big.Int { return new(big.Int).Set(m.chainID) }

// MultiSend calls multisend(recipients) carrying opts.Value.
func (m *MultiSender) MultiSend(opts *bind.TransactOpts, recipients []common.Address) (*types.Transaction, error) {
	tx, err := m.contract.Transact(opts, methodMultiSend, recipients)
	if err != nil {
		return nil, errors.Wrap(err, "transact multisend")
	}
	return tx, nil
}

// WaitMined blocks until tx is included or ctx is done.
func (m *MultiSender) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, m.backend, tx)
	if err != nil {
		return nil, errors.Wrapf(err, "wait for %s", tx.Hash().Hex())
	}
	return receipt, nil
}

// Binder binds the multisend contract on rollup connections.
type Binder struct {
	address common.Address
	logger  *zap.Logger
}

var _ port.MultiSendBinder = (*Binder)(nil)

// NewBinder creates a binder for the contract at address.
func NewBinder(address common.Address, logger *zap.Logger) *Binder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Binder{address: address, logger: logger.Named("multisend")}
}

// BindMultiSend checks that contract code exists at the configured address and binds it.
func (b *Binder) BindMultiSend(ctx context.Context, conn port.ChainConnection) (port.MultiSendContract, error) {
	def := conn.Definition()
	if !def.IsRollup() {
		return nil, errors.Errorf("multisend is only deployed on the rollup, not on %s", def.Identifier)
	}
	backend := conn.Backend()
	if backend == nil {
		return nil, errors.Errorf("%s has no contract backend", def.Identifier)
	}

	code, err := backend.CodeAt(ctx, b.address, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "read code at %s", b.address.Hex())
	}
	if len(code) == 0 {
		return nil, errors.Errorf("no contract code at %s on %s", b.address.Hex(), def.Identifier)
	}

	sender, err := NewMultiSender(b.address, new(big.Int).SetUint64(def.ChainID), backend)
	if err != nil {
		return nil, err
	}
	b.logger.Info("Bound multisend contract", zap.String("address", b.address.Hex()), zap.String("network", def.Identifier))
	return sender, nil
}
