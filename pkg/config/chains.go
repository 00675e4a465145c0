package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Duration lets chain configs spell intervals as "10s" or "1m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// ChainConfig describes one chain the indexer follows: where to connect,
// which contracts to watch and how to pace catch-up.
type ChainConfig struct {
	Name                        string   `yaml:"name"`
	ChainID                     int64    `yaml:"chain_id"`
	RPC                         string   `yaml:"rpc"`
	MarketplaceContract         string   `yaml:"marketplace_contract"`
	FungibleMarketplaceContract string   `yaml:"fungible_marketplace_contract"`
	GameContract                string   `yaml:"game_contract"` // optional, WinnerSet events
	StartBlock                  uint64   `yaml:"start_block"`
	BatchSize                   uint64   `yaml:"batch_size"`
	PollInterval                Duration `yaml:"poll_interval"`
	Testnet                     bool     `yaml:"testnet"`
}

type chainsFile struct {
	Chains []ChainConfig `yaml:"chains"`
}

// Defaults applied to chains that leave pacing fields unset. The batch size
// bounds RPC response size; it is a fixed constant, not adaptive.
const (
	DefaultBatchSize    = 500
	DefaultPollInterval = Duration(10 * time.Second)
)

// LoadChains reads the YAML chain registry.
func LoadChains(path string) ([]ChainConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chains file: %w", err)
	}

	var parsed chainsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse chains file: %w", err)
	}
	if len(parsed.Chains) == 0 {
		return nil, fmt.Errorf("chains file %s defines no chains", path)
	}

	for i := range parsed.Chains {
		chain := &parsed.Chains[i]
		if chain.Name == "" {
			return nil, fmt.Errorf("chain #%d has no name", i)
		}
		if chain.RPC == "" {
			return nil, fmt.Errorf("chain %s has no rpc endpoint", chain.Name)
		}
		if chain.MarketplaceContract == "" && chain.FungibleMarketplaceContract == "" {
			return nil, fmt.Errorf("chain %s has no marketplace contracts", chain.Name)
		}
		if chain.BatchSize == 0 {
			chain.BatchSize = DefaultBatchSize
		}
		if chain.PollInterval == 0 {
			chain.PollInterval = DefaultPollInterval
		}
	}

	return parsed.Chains, nil
}
