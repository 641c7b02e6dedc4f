package networkdefinition

import (
	"testing"
	"time"

	"multisender/internal/domain/entity"
	"multisender/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredefinedNetworks(t *testing.T) {
	p := NewNetworkDefinitionProvider(logger.NewSlogAdapter(), nil)

	all := p.GetAllNetworkDefinitions()
	require.Len(t, all, 2)
	assert.Equal(t, "rinkeby", all[0].Identifier)
	assert.Equal(t, "godwoken-testnet", all[1].Identifier)

	rollup, ok := p.GetNetworkDefinitionByKind(entity.RollupNetwork)
	require.True(t, ok)
	assert.Equal(t, uint64(71393), rollup.ChainID)
	assert.Equal(t, "CKB", rollup.NativeSymbol)
	assert.Equal(t, int32(8), rollup.Decimals)

	primary, ok := p.GetNetworkDefinitionByChainID(4)
	require.True(t, ok)
	assert.Equal(t, "rETH", primary.NativeSymbol)
	assert.Equal(t, int32(18), primary.Decimals)

	_, ok = p.GetNetworkDefinitionByName("ethereum")
	assert.False(t, ok)
}

func TestOverridesMergeIntoPredefined(t *testing.T) {
	p := NewNetworkDefinitionProvider(logger.NewSlogAdapter(), []entity.NetworkDefinition{
		{Identifier: "Godwoken-Testnet", PrimaryRPCURL: "ws://localhost:8024", PollingInterval: time.Second},
		{Identifier: "devnet", Name: "Local devnet", ChainID: 1337, Kind: entity.PrimaryNetwork, NativeSymbol: "ETH", Decimals: 18},
		{Identifier: "incomplete", Name: "Missing chain id"},
		{Name: "no identifier"},
	})

	rollup, ok := p.GetNetworkDefinitionByName("godwoken-testnet")
	require.True(t, ok)
	assert.Equal(t, "ws://localhost:8024", rollup.PrimaryRPCURL)
	assert.Equal(t, time.Second, rollup.PollingInterval)
	assert.Equal(t, uint64(71393), rollup.ChainID, "unset fields keep predefined values")

	devnet, ok := p.GetNetworkDefinitionByName("devnet")
	require.True(t, ok)
	assert.Equal(t, uint64(1337), devnet.ChainID)

	_, ok = p.GetNetworkDefinitionByName("incomplete")
	assert.False(t, ok)
	assert.Len(t, p.GetAllNetworkDefinitions(), 3)
}
