package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BatchIntent is a validated request to split TotalAmount across Recipients.
type BatchIntent struct {
	TotalAmount *big.Int         `json:"totalAmount"`
	Recipients  []ShortAddress   `json:"recipients"`
	Sources     []common.Address `json:"sources"` // primary addresses, same order as Recipients
}

// Valid reports whether the intent can be submitted.
func (i BatchIntent) Valid() bool {
	return i.TotalAmount != nil && i.TotalAmount.Sign() >= 0 && len(i.Recipients) > 0
}

// PerRecipientEstimate is TotalAmount divided by the recipient count, truncated.
// The value sent on chain is the full total; the estimate is display only.
func (i BatchIntent) PerRecipientEstimate() *big.Int {
	if !i.Valid() {
		return nil
	}
	return new(big.Int).Quo(i.TotalAmount, big.NewInt(int64(len(i.Recipients))))
}

// RecipientAddresses returns the recipients as call arguments for multisend.
func (i BatchIntent) RecipientAddresses() []common.Address {
	out := make([]common.Address, len(i.Recipients))
	for idx, r := range i.Recipients {
		out[idx] = r.Address()
	}
	return out
}
