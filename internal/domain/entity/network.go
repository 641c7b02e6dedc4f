package entity

import "time"

// NetworkKind tells whether a network is the primary chain or the rollup built on top of it.
type NetworkKind string

const (
	PrimaryNetwork NetworkKind = "primary"
	RollupNetwork  NetworkKind = "rollup"
)

// NetworkDefinition holds the configuration for a specific blockchain network.
// This structure is defined at the domain level to be used across application and infrastructure layers.
type NetworkDefinition struct {
	ChainID          uint64        `json:"chainId" yaml:"chainId"`
	Name             string        `json:"name" yaml:"name"`
	Identifier       string        `json:"identifier" yaml:"identifier"`
	Kind             NetworkKind   `json:"kind" yaml:"kind"`
	NativeSymbol     string        `json:"nativeSymbol" yaml:"nativeSymbol"`
	Decimals         int32         `json:"decimals" yaml:"decimals"` // minor-unit exponent of the native coin
	PrimaryRPCURL    string        `json:"primaryRpcUrl" yaml:"primaryRpcUrl"`
	FallbackRPCURLs  []string      `json:"fallbackRpcUrls" yaml:"fallbackRpcUrls"`
	BlockExplorerURL string        `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
	PollingInterval  time.Duration `json:"pollingInterval" yaml:"pollingInterval"`
}

// IsRollup reports whether the network uses short addresses.
func (n NetworkDefinition) IsRollup() bool {
	return n.Kind == RollupNetwork
}

// SessionState describes the active wallet connection.
type SessionState struct {
	Active  bool           `json:"active"`
	Account string         `json:"account,omitempty"`
	Network string         `json:"network,omitempty"`
	ChainID uint64         `json:"chainId,omitempty"`
	Epoch   uint64         `json:"epoch"`
	Kind    NetworkKind    `json:"kind,omitempty"`
	Deposit DepositAddress `json:"depositAddress"`
}
