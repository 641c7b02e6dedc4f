package configloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("logging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "godwoken-testnet", cfg.ActiveNetwork)
	assert.Equal(t, "ckt", cfg.Rollup.AddressPrefix)
	assert.Equal(t, uint64(0xc0000000000004b0), cfg.Rollup.CancelTimeout)
	assert.Equal(t, "0x6e20280512D096592CbECeB6928D487bCE1926BE", cfg.MultiSend.Address)
	assert.Equal(t, int32(8), cfg.MultiSend.UnitDecimals)
	assert.Equal(t, uint64(6_000_000), cfg.MultiSend.GasLimit)
	assert.Equal(t, 5*time.Minute, cfg.ConfirmTimeout())
	assert.Equal(t, 30*time.Minute, cfg.LookupTTL())
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadReadsNetworksAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: ":9090"
activeNetwork: rinkeby
networks:
  - identifier: godwoken-testnet
    primaryRpcUrl: wss://godwoken.example/ws
    pollingInterval: 3s
rpcClient:
  requestsPerSecond: 5
notifier:
  webhookURL: https://hooks.example/multisend
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "rinkeby", cfg.ActiveNetwork)
	require.Len(t, cfg.Networks, 1)
	assert.Equal(t, "wss://godwoken.example/ws", cfg.Networks[0].PrimaryRPCURL)
	assert.Equal(t, 3*time.Second, cfg.Networks[0].PollingInterval)
	assert.Equal(t, 5.0, cfg.RPCClient.RequestsPerSecond)
	assert.Equal(t, 5*time.Second, cfg.NotifierTimeout())
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad level", "logging:\n  level: loud\n"},
		{"bad contract address", "multisend:\n  address: '0x1234'\n"},
		{"short rollup hash", "rollup:\n  rollupTypeHash: '0xabcd'\n"},
		{"bad prefix", "rollup:\n  addressPrefix: btc\n"},
		{"bad webhook", "notifier:\n  webhookURL: not a url\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
