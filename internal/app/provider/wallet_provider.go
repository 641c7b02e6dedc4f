package provider

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"multisender/internal/app/port"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyLoader loads the signing key.
type KeyLoader interface {
	LoadKey() (*ecdsa.PrivateKey, error)
}

type walletProviderImpl struct {
	loader KeyLoader
	logger port.Logger

	mu     sync.Mutex
	wallet port.Wallet
}

// NewWalletProvider creates a WalletProvider that loads the key once and reuses it.
func NewWalletProvider(loader KeyLoader, logger port.Logger) port.WalletProvider {
	return &walletProviderImpl{loader: loader, logger: logger}
}

// GetWallet returns the keyed wallet, loading the key on first use.
func (p *walletProviderImpl) GetWallet() (port.Wallet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.wallet != nil {
		return p.wallet, nil
	}

	key, err := p.loader.LoadKey()
	if err != nil {
		p.logger.Error("Failed to load wallet key", "error", err)
		return nil, err
	}
	p.wallet = NewKeyedWallet(key)
	p.logger.Info("Wallet ready", "address", p.wallet.Address().Hex())
	return p.wallet, nil
}

// KeyedWallet signs with an in-memory private key.
type KeyedWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

var _ port.Wallet = (*KeyedWallet)(nil)

// NewKeyedWallet wraps key.
func NewKeyedWallet(key *ecdsa.PrivateKey) *KeyedWallet {
	return &KeyedWallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

func (w *KeyedWallet) Address() common.Address {
	return w.address
}

// Transactor returns EIP-155 signing options for chainID.
func (w *KeyedWallet) Transactor(chainID *big.Int) (*bind.TransactOpts, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain id %v", chainID)
	}
	return bind.NewKeyedTransactorWithChainID(w.key, chainID)
}
