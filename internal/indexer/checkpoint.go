package indexer

import (
	"fmt"

	"marketplace-indexer/pkg/config"
	"marketplace-indexer/pkg/models"
)

// Checkpoint tracks the last fully processed block for one chain, persisted
// on the Chain row. It never advances until every event in a range has had
// its reducer attempt complete; a crash before Advance causes the next run
// to refetch the same range, which the idempotency guard makes safe.
type Checkpoint struct {
	store *Store
	chain config.ChainConfig
}

func NewCheckpoint(store *Store, chain config.ChainConfig) *Checkpoint {
	return &Checkpoint{store: store, chain: chain}
}

// Load returns the resume block, creating the Chain row at the configured
// start block on first run.
func (c *Checkpoint) Load() (uint64, error) {
	chain, err := c.store.Chain(c.chain.Name)
	if err != nil {
		return 0, err
	}
	if chain != nil {
		if chain.LastBlock == 0 {
			return c.chain.StartBlock, nil
		}
		return chain.LastBlock, nil
	}

	chain = &models.Chain{
		Name:       c.chain.Name,
		ChainID:    c.chain.ChainID,
		StartBlock: c.chain.StartBlock,
		LastBlock:  c.chain.StartBlock,
	}
	if err := c.store.CreateChain(chain); err != nil {
		return 0, fmt.Errorf("failed to create chain row %s: %w", c.chain.Name, err)
	}
	return chain.LastBlock, nil
}

// Advance persists a new checkpoint boundary as a single durable write.
func (c *Checkpoint) Advance(block uint64) error {
	return c.store.UpdateChainCheckpoint(c.chain.Name, block)
}
