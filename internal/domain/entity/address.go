package entity

import (
	"github.com/ethereum/go-ethereum/common"
)

// ShortAddress is the 20-byte rollup account identifier derived from a primary-chain address.
type ShortAddress common.Address

// Address returns the short address as a go-ethereum address, usable as a call argument.
func (a ShortAddress) Address() common.Address { return common.Address(a) }

// Hex returns the EIP-55 checksummed form.
func (a ShortAddress) Hex() string { return common.Address(a).Hex() }

func (a ShortAddress) String() string { return a.Hex() }

func (a ShortAddress) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// DepositStatus tracks resolution of the deposit address.
type DepositStatus int

const (
	DepositUnresolved DepositStatus = iota
	DepositResolved
	DepositFailed
)

var depositStatusNames = [...]string{"unresolved", "resolved", "failed"}

func (s DepositStatus) String() string {
	return depositStatusNames[s]
}

func (s DepositStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *DepositStatus) UnmarshalText(text []byte) error {
	i, err := parseName(depositStatusNames[:], text, "DepositStatus")
	if err != nil {
		return err
	}
	*s = DepositStatus(i)
	return nil
}

// DepositAddress is the primary-chain address that, when funded, credits the rollup account.
type DepositAddress struct {
	Status  DepositStatus `json:"status"`
	Address string        `json:"address,omitempty"`
	Err     string        `json:"error,omitempty"`
}
