package service

import (
	"testing"

	"multisender/internal/app/port"
	"multisender/internal/domain/entity"
	"multisender/internal/infrastructure/godwoken"
	"multisender/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const (
	alice = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	bob   = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	carol = "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"
)

var (
	rinkeby = entity.NetworkDefinition{
		ChainID: 4, Name: "Rinkeby", Identifier: "rinkeby", Kind: entity.PrimaryNetwork,
		NativeSymbol: "rETH", Decimals: 18, PrimaryRPCURL: "http://rinkeby",
	}
	godwokenTestnet = entity.NetworkDefinition{
		ChainID: 71393, Name: "Godwoken Testnet", Identifier: "godwoken-testnet", Kind: entity.RollupNetwork,
		NativeSymbol: "CKB", Decimals: 8, PrimaryRPCURL: "http://godwoken",
	}
)

func testTranslator() port.AddressTranslator {
	return godwoken.NewTranslator(godwoken.Config{
		RollupTypeHash:         common.HexToHash("0x4cc2e6526204ae6a2e8fcf12f7ad472f41a1606d5b9624beebd215d780809f6a"),
		EthAccountLockCodeHash: common.HexToHash("0xdeec13a7b8e100579541384ccaf4b5223733e4a5483c3aec95ddc4c1d5ea5b22"),
		DepositLockCodeHash:    common.HexToHash("0x5a2506bb68d81a11dcadad4cb7eae62a17c43c619fe47ac8037bc8ad2d76ddc9"),
		OwnerLockCodeHash:      common.HexToHash("0x58c5f491aba6d61678b7cf7edf4910b1f5e00ec0cde2f42e0abb4fd9aff25a63"),
		CancelTimeout:          0xc0000000000004b0,
		AddressPrefix:          "ckt",
	}, nil)
}

func testLogger() port.Logger {
	return logger.NewSlogAdapter()
}

func shortOf(t *testing.T, addr string) entity.ShortAddress {
	t.Helper()
	short, err := testTranslator().ToShortAddress(addr)
	require.NoError(t, err)
	return short
}
