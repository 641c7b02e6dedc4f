package entity

// HolderReport aggregates the balances of one address on one network.
type HolderReport struct {
	Address      string        `json:"address"`
	ShortAddress string        `json:"shortAddress,omitempty"`
	Network      string        `json:"network"`
	ChainID      uint64        `json:"chainId"`
	Balances     []TokenDetail `json:"balances"`
	Errors       []string      `json:"errors,omitempty"`
}

// TokenDetail represents one formatted balance line of a report.
type TokenDetail struct {
	TokenAddress     string `json:"tokenAddress,omitempty"`
	TokenSymbol      string `json:"tokenSymbol"`
	Decimals         uint8  `json:"decimals"`
	IsNative         bool   `json:"isNative"`
	FormattedBalance string `json:"formattedBalance"`
}
