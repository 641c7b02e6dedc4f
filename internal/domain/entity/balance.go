package entity

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BalanceStatus distinguishes a value that has not been fetched yet from one whose fetch failed.
type BalanceStatus int

const (
	BalanceUnknown BalanceStatus = iota
	BalanceLoaded
	BalanceFailed
)

var balanceStatusNames = [...]string{"unknown", "loaded", "error"}

func (s BalanceStatus) String() string {
	return balanceStatusNames[s]
}

// MarshalText renders the status as its name in JSON payloads.
func (s BalanceStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *BalanceStatus) UnmarshalText(text []byte) error {
	i, err := parseName(balanceStatusNames[:], text, "BalanceStatus")
	if err != nil {
		return err
	}
	*s = BalanceStatus(i)
	return nil
}

// BalanceValue is one field of a BalanceSnapshot.
type BalanceValue struct {
	Status BalanceStatus `json:"status"`
	Amount *big.Int      `json:"amount,omitempty"`
	Err    string        `json:"error,omitempty"`
}

// LoadedBalance returns a value holding a successfully fetched amount.
func LoadedBalance(amount *big.Int) BalanceValue {
	return BalanceValue{Status: BalanceLoaded, Amount: amount}
}

// FailedBalance returns a value marking a failed fetch.
func FailedBalance(err error) BalanceValue {
	v := BalanceValue{Status: BalanceFailed}
	if err != nil {
		v.Err = err.Error()
	}
	return v
}

// BlockCursor is the latest block number seen for the mounted connection.
type BlockCursor struct {
	Status BalanceStatus `json:"status"`
	Number uint64        `json:"number,omitempty"`
}

// BalanceField names the snapshot slot a query writes to.
type BalanceField string

const (
	FieldPrimaryChain BalanceField = "primary"
	FieldRollupChain  BalanceField = "rollup"
	FieldToken        BalanceField = "token"
)

// BalanceQuery describes one balance the watcher keeps live.
type BalanceQuery struct {
	Field        BalanceField
	Symbol       string
	Decimals     uint8
	TokenAddress common.Address
	// HolderIsShortAddress makes the watcher query balanceOf(shortAddress(account)).
	HolderIsShortAddress bool
}

// Key identifies the query inside a snapshot.
func (q BalanceQuery) Key() string {
	if q.Field == FieldToken {
		return string(q.Field) + ":" + q.Symbol
	}
	return string(q.Field)
}

// BalanceSnapshot is scoped to one (account, chain, epoch) tuple.
type BalanceSnapshot struct {
	Account             common.Address          `json:"account"`
	ChainID             uint64                  `json:"chainId"`
	Epoch               uint64                  `json:"epoch"`
	BlockNumber         BlockCursor             `json:"blockNumber"`
	PrimaryChainBalance BalanceValue            `json:"primaryChainBalance"`
	RollupChainBalance  BalanceValue            `json:"rollupChainBalance"`
	TokenBalances       map[string]BalanceValue `json:"tokenBalances"`
	UpdatedAt           time.Time               `json:"updatedAt"`
}

// Token returns the balance recorded for symbol, Unknown if none.
func (s BalanceSnapshot) Token(symbol string) BalanceValue {
	return s.TokenBalances[symbol]
}

// Clone copies the token map so callers cannot mutate watcher state.
func (s BalanceSnapshot) Clone() BalanceSnapshot {
	out := s
	out.TokenBalances = make(map[string]BalanceValue, len(s.TokenBalances))
	for k, v := range s.TokenBalances {
		out.TokenBalances[k] = v
	}
	return out
}
