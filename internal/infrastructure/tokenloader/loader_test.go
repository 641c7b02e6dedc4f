package tokenloader

import (
	"os"
	"path/filepath"
	"testing"

	"multisender/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var godwoken = entity.NetworkDefinition{Identifier: "godwoken-testnet", ChainID: 71393, Kind: entity.RollupNetwork}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestGetTokensByNetwork(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "godwoken-testnet.json", `[
		{"chainId": 71393, "address": "0x00000000000000000000000000000000000000e1", "name": "ckETH", "symbol": "ckETH", "decimals": 18},
		{"chainId": 4, "address": "0x00000000000000000000000000000000000000e2", "name": "Wrong", "symbol": "WRONG", "decimals": 18}
	]`)
	writeFile(t, dir, "rinkeby.json", `[{"chainId": 4, "address": "0x00000000000000000000000000000000000000e3", "symbol": "USDC", "decimals": 6}]`)
	writeFile(t, dir, "broken.json", `{not json`)
	writeFile(t, dir, "notes.txt", `ignored`)

	var warnings int
	l := NewTokenLoader(dir, nil, func(string, ...any) { warnings++ })

	tokens, err := l.GetTokensByNetwork([]entity.NetworkDefinition{godwoken, {Identifier: "broken", ChainID: 1}})
	require.NoError(t, err)
	require.Len(t, tokens["godwoken-testnet"], 1)
	assert.Equal(t, "ckETH", tokens["godwoken-testnet"][0].Symbol)
	assert.NotContains(t, tokens, "rinkeby", "inactive networks are not loaded")
	assert.NotContains(t, tokens, "broken")
	assert.Equal(t, 2, warnings)
}

func TestMissingDirectoryYieldsNoTokens(t *testing.T) {
	l := NewTokenLoader(filepath.Join(t.TempDir(), "absent"), nil, nil)
	tokens, err := l.GetTokensByNetwork([]entity.NetworkDefinition{godwoken})
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
