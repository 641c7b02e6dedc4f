package port

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Wallet is the connected account able to sign transactions.
type Wallet interface {
	Address() common.Address
	// Transactor returns signing options for the given chain.
	Transactor(chainID *big.Int) (*bind.TransactOpts, error)
}

// WalletProvider defines the interface for loading the signing wallet.
type WalletProvider interface {
	GetWallet() (Wallet, error)
}
