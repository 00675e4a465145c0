package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"marketplace-indexer/pkg/config"
)

func TestCheckpointFirstRunStartsAtConfiguredBlock(t *testing.T) {
	store := NewStore(newTestDB(t))
	cp := NewCheckpoint(store, config.ChainConfig{Name: "testchain", ChainID: 1, StartBlock: 1000})

	block, err := cp.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), block)

	chain, err := store.Chain("testchain")
	require.NoError(t, err)
	require.NotNil(t, chain)
	assert.Equal(t, uint64(1000), chain.StartBlock)
	assert.Equal(t, uint64(1000), chain.LastBlock)
}

func TestCheckpointResumesAfterAdvance(t *testing.T) {
	store := NewStore(newTestDB(t))
	cp := NewCheckpoint(store, config.ChainConfig{Name: "testchain", ChainID: 1, StartBlock: 1000})

	_, err := cp.Load()
	require.NoError(t, err)
	require.NoError(t, cp.Advance(1500))

	block, err := cp.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), block)
}
