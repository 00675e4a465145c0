package indexer

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LogFetcher supplies raw logs for one contract within a block range.
type LogFetcher interface {
	FilterLogs(ctx context.Context, address common.Address, from, to uint64) ([]types.Log, error)
}

// LogSource is one contract whose events feed the sequencer.
type LogSource struct {
	Name    string
	Address common.Address
	ABI     abi.ABI
}

// Sequencer fetches events from every configured contract in a block range
// and produces one globally ordered sequence. Logs flagged as removed by the
// source (reorged out) are dropped before ordering, as if they never
// occurred.
type Sequencer struct {
	fetcher LogFetcher
	sources []LogSource
}

func NewSequencer(fetcher LogFetcher, sources []LogSource) *Sequencer {
	return &Sequencer{fetcher: fetcher, sources: sources}
}

// Fetch returns all decodable events in [from, to], sorted ascending by
// (blockNumber, transactionIndex, logIndex) with the transaction hash as a
// final tie-break for determinism.
func (s *Sequencer) Fetch(ctx context.Context, from, to uint64) ([]*Event, error) {
	var events []*Event

	for _, source := range s.sources {
		logs, err := s.fetcher.FilterLogs(ctx, source.Address, from, to)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", source.Name, err)
		}

		for _, entry := range logs {
			if entry.Removed {
				continue
			}
			event, ok := decodeLog(source, entry)
			if !ok {
				continue
			}
			events = append(events, event)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		a, b := events[i].Log, events[j].Log
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		if a.TxIndex != b.TxIndex {
			return a.TxIndex < b.TxIndex
		}
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		return bytes.Compare(a.TxHash.Bytes(), b.TxHash.Bytes()) < 0
	})

	return events, nil
}

// decodeLog resolves the event kind from topic0 and unpacks its arguments.
// Logs for events outside the source ABI are ignored.
func decodeLog(source LogSource, entry types.Log) (*Event, bool) {
	if len(entry.Topics) == 0 {
		return nil, false
	}
	definition, err := source.ABI.EventByID(entry.Topics[0])
	if err != nil {
		return nil, false
	}

	args := make(map[string]interface{})
	if err := source.ABI.UnpackIntoMap(args, definition.Name, entry.Data); err != nil {
		return nil, false
	}

	return &Event{
		Name:     definition.Name,
		Source:   source.Name,
		Log:      entry,
		Args:     args,
		Identity: EventIdentity(entry),
	}, true
}
