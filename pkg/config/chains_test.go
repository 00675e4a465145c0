package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeChains(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chains.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadChainsAppliesDefaults(t *testing.T) {
	path := writeChains(t, `
chains:
  - name: polygon
    chain_id: 137
    rpc: https://polygon-rpc.example
    marketplace_contract: "0x1111111111111111111111111111111111111111"
    start_block: 38760423
`)

	chains, err := LoadChains(path)
	require.NoError(t, err)
	require.Len(t, chains, 1)

	assert.Equal(t, "polygon", chains[0].Name)
	assert.Equal(t, uint64(DefaultBatchSize), chains[0].BatchSize)
	assert.Equal(t, DefaultPollInterval, chains[0].PollInterval)
}

func TestLoadChainsKeepsExplicitPacing(t *testing.T) {
	path := writeChains(t, `
chains:
  - name: mumbai
    chain_id: 80001
    rpc: https://mumbai-rpc.example
    fungible_marketplace_contract: "0x2222222222222222222222222222222222222222"
    batch_size: 200
    poll_interval: 5s
    testnet: true
`)

	chains, err := LoadChains(path)
	require.NoError(t, err)
	require.Len(t, chains, 1)

	assert.Equal(t, uint64(200), chains[0].BatchSize)
	assert.Equal(t, Duration(5*time.Second), chains[0].PollInterval)
	assert.True(t, chains[0].Testnet)
}

func TestLoadChainsRejectsInvalidConfigs(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty registry", "chains: []"},
		{"missing name", `
chains:
  - rpc: https://rpc.example
    marketplace_contract: "0x1111111111111111111111111111111111111111"
`},
		{"missing rpc", `
chains:
  - name: polygon
    marketplace_contract: "0x1111111111111111111111111111111111111111"
`},
		{"no contracts", `
chains:
  - name: polygon
    rpc: https://rpc.example
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadChains(writeChains(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadChainsMissingFile(t *testing.T) {
	_, err := LoadChains(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
