package indexer

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"marketplace-indexer/pkg/models"
)

func TestGuardRecordsAndSkips(t *testing.T) {
	store := NewStore(newTestDB(t))
	guard := NewGuard(store, "testchain", logrus.NewEntry(logrus.New()))

	identity := "0xabc-1-2"
	seen, err := guard.Seen(identity)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, guard.Record(identity, 42, 1700000000))

	seen, err = guard.Seen(identity)
	require.NoError(t, err)
	assert.True(t, seen)

	var row models.ProcessedEvent
	require.NoError(t, store.DB().Where("id = ?", identity).First(&row).Error)
	assert.Equal(t, uint64(42), row.BlockNumber)
	assert.Equal(t, "testchain", row.ChainName)
}

// Replaying a range must not duplicate any effect: the ledger row written
// after each reducer keeps the second pass from running it again.
func TestProcessRangeReplayIsIdempotent(t *testing.T) {
	abis, err := ParseABIs()
	require.NoError(t, err)

	marketAddr := common.HexToAddress("0x01")
	fetcher := &fakeFetcher{logs: map[common.Address][]types.Log{
		marketAddr: {{
			Address:     marketAddr,
			Topics:      []common.Hash{abis.Marketplace.Events["TokenListed"].ID},
			Data:        packListed(t, abis, common.HexToAddress("0xc1"), 7, 100),
			BlockNumber: 10,
			TxHash:      common.HexToHash("0xa1"),
		}},
	}}

	store := NewStore(newTestDB(t))
	log := logrus.NewEntry(logrus.New())
	rpc := &fakeRPC{blockTime: 1700000000, txFrom: testLister}
	sigs := BuildSignatureTable(abis.Marketplace, abis.Fungible, abis.Game)
	recorder := NewRecorder(store, "testchain", true, log)

	engine := &Engine{
		store:     store,
		sequencer: NewSequencer(fetcher, []LogSource{{Name: "marketplace", Address: marketAddr, ABI: abis.Marketplace}}),
		reducer:   NewReducer(store, rpc, abis, sigs, recorder, "testchain", log),
		guard:     NewGuard(store, "testchain", log),
		log:       log,
	}

	ctx := context.Background()
	require.NoError(t, engine.processRange(ctx, 10, 10))
	require.NoError(t, engine.processRange(ctx, 10, 10))

	var history []models.AskHistory
	require.NoError(t, store.DB().Find(&history).Error)
	assert.Len(t, history, 1)

	var activity []models.ActivityHistory
	require.NoError(t, store.DB().Find(&activity).Error)
	assert.Len(t, activity, 1)

	stat, err := store.TraderStat(testLister, "testchain")
	require.NoError(t, err)
	require.NotNil(t, stat)
	assert.Equal(t, int64(1), stat.ListingCount)
}
