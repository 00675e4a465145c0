package indexer

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	logs map[common.Address][]types.Log
}

func (f *fakeFetcher) FilterLogs(_ context.Context, address common.Address, _, _ uint64) ([]types.Log, error) {
	return f.logs[address], nil
}

func packListed(t *testing.T, abis *ParsedABIs, collection common.Address, id, price int64) []byte {
	t.Helper()
	data, err := abis.Marketplace.Events["TokenListed"].Inputs.Pack(
		collection, big.NewInt(id), big.NewInt(price), big.NewInt(0), hashArg(1), big.NewInt(1700000000),
	)
	require.NoError(t, err)
	return data
}

func listedLog(t *testing.T, abis *ParsedABIs, addr common.Address, block uint64, txIndex, logIndex uint, txHash string) types.Log {
	t.Helper()
	return types.Log{
		Address:     addr,
		Topics:      []common.Hash{abis.Marketplace.Events["TokenListed"].ID},
		Data:        packListed(t, abis, common.HexToAddress("0xc1"), 7, 100),
		BlockNumber: block,
		TxIndex:     txIndex,
		Index:       logIndex,
		TxHash:      common.HexToHash(txHash),
	}
}

func TestSequencerOrdersAcrossSources(t *testing.T) {
	abis, err := ParseABIs()
	require.NoError(t, err)

	marketAddr := common.HexToAddress("0x01")
	fungibleAddr := common.HexToAddress("0x02")

	tradeData, err := abis.Fungible.Events["TradeCancelled"].Inputs.Pack(
		hashArg(9), common.HexToAddress("0xc1"), big.NewInt(7), big.NewInt(1700000000),
	)
	require.NoError(t, err)

	fetcher := &fakeFetcher{logs: map[common.Address][]types.Log{
		marketAddr: {
			listedLog(t, abis, marketAddr, 12, 0, 0, "0xa1"),
			listedLog(t, abis, marketAddr, 10, 3, 2, "0xa2"),
			listedLog(t, abis, marketAddr, 10, 3, 1, "0xa3"),
		},
		fungibleAddr: {
			{
				Address:     fungibleAddr,
				Topics:      []common.Hash{abis.Fungible.Events["TradeCancelled"].ID},
				Data:        tradeData,
				BlockNumber: 10,
				TxIndex:     1,
				Index:       0,
				TxHash:      common.HexToHash("0xb1"),
			},
		},
	}}

	seq := NewSequencer(fetcher, []LogSource{
		{Name: "marketplace", Address: marketAddr, ABI: abis.Marketplace},
		{Name: "fungible", Address: fungibleAddr, ABI: abis.Fungible},
	})

	events, err := seq.Fetch(context.Background(), 10, 12)
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, "TradeCancelled", events[0].Name)
	assert.Equal(t, uint64(10), events[0].Log.BlockNumber)
	assert.Equal(t, uint(1), events[1].Log.Index)
	assert.Equal(t, uint(2), events[2].Log.Index)
	assert.Equal(t, uint64(12), events[3].Log.BlockNumber)
}

func TestSequencerDropsRemovedLogs(t *testing.T) {
	abis, err := ParseABIs()
	require.NoError(t, err)

	addr := common.HexToAddress("0x01")
	removed := listedLog(t, abis, addr, 10, 0, 0, "0xa1")
	removed.Removed = true

	fetcher := &fakeFetcher{logs: map[common.Address][]types.Log{
		addr: {removed, listedLog(t, abis, addr, 11, 0, 0, "0xa2")},
	}}
	seq := NewSequencer(fetcher, []LogSource{{Name: "marketplace", Address: addr, ABI: abis.Marketplace}})

	events, err := seq.Fetch(context.Background(), 10, 11)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(11), events[0].Log.BlockNumber)
}

func TestSequencerSkipsUnknownTopics(t *testing.T) {
	abis, err := ParseABIs()
	require.NoError(t, err)

	addr := common.HexToAddress("0x01")
	fetcher := &fakeFetcher{logs: map[common.Address][]types.Log{
		addr: {
			{
				Address:     addr,
				Topics:      []common.Hash{common.HexToHash("0xdead")},
				BlockNumber: 10,
			},
			listedLog(t, abis, addr, 10, 1, 0, "0xa1"),
		},
	}}
	seq := NewSequencer(fetcher, []LogSource{{Name: "marketplace", Address: addr, ABI: abis.Marketplace}})

	events, err := seq.Fetch(context.Background(), 10, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "TokenListed", events[0].Name)
}

func TestEventIdentity(t *testing.T) {
	log := types.Log{
		TxHash:  common.HexToHash("0xabc"),
		TxIndex: 3,
		Index:   7,
	}
	assert.Equal(t, log.TxHash.Hex()+"-3-7", EventIdentity(log))
}

func TestEventArgAccessors(t *testing.T) {
	ev := newTestEvent("TokenListed", "0xa1", 10, map[string]interface{}{
		"token":      addrArg("0xC1"),
		"id":         bigArg(7),
		"hash":       hashArg(2),
		"enabled":    true,
		"tradeFlags": uint8(3),
	})

	assert.Equal(t, "0x00000000000000000000000000000000000000c1", ev.Addr("token"))
	assert.Equal(t, "7", ev.Decimal("id").String())
	assert.Equal(t, int64(7), ev.Int64("id"))
	assert.Equal(t, common.Hash(hashArg(2)).Hex(), ev.Hash32("hash"))
	assert.True(t, ev.Bool("enabled"))
	assert.Equal(t, uint8(3), ev.Flags("tradeFlags"))

	// absent keys degrade to zero values
	assert.Equal(t, "", ev.Addr("missing"))
	assert.Equal(t, "0", ev.Decimal("missing").String())
	assert.Equal(t, "", ev.Hash32("missing"))
}
