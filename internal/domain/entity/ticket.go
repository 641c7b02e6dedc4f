package entity

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TransferState is the lifecycle position of a TransferTicket.
type TransferState int

const (
	TransferIdle TransferState = iota
	TransferPending
	TransferConfirmed
	TransferRejected
)

var transferStateNames = [...]string{"idle", "pending", "confirmed", "rejected"}

func (s TransferState) String() string {
	return transferStateNames[s]
}

func (s TransferState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *TransferState) UnmarshalText(text []byte) error {
	i, err := parseName(transferStateNames[:], text, "TransferState")
	if err != nil {
		return err
	}
	*s = TransferState(i)
	return nil
}

// Settled reports whether the state is terminal.
func (s TransferState) Settled() bool {
	return s == TransferConfirmed || s == TransferRejected
}

// ReceiptSummary keeps the parts of a mined receipt worth showing.
type ReceiptSummary struct {
	BlockNumber uint64 `json:"blockNumber"`
	GasUsed     uint64 `json:"gasUsed"`
	Status      uint64 `json:"status"`
}

// TransferTicket tracks one batch submission from creation to settlement.
type TransferTicket struct {
	ID        string          `json:"id"`
	State     TransferState   `json:"state"`
	Intent    BatchIntent     `json:"intent"`
	From      common.Address  `json:"from"`
	Value     *big.Int        `json:"value"`
	TxHash    common.Hash     `json:"txHash"`
	Receipt   *ReceiptSummary `json:"receipt,omitempty"`
	Err       string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Pending reports whether the ticket still awaits settlement.
func (t TransferTicket) Pending() bool {
	return t.State == TransferPending
}
