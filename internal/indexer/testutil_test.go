package indexer

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"marketplace-indexer/pkg/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Chain{},
		&models.Collection{},
		&models.Token{},
		&models.Ask{},
		&models.AskHistory{},
		&models.Bid{},
		&models.Fill{},
		&models.FungibleTrade{},
		&models.ActivityHistory{},
		&models.TraderStat{},
		&models.ProcessedEvent{},
		&models.GameResult{},
	)
	require.NoError(t, err)

	return db
}

// fakeRPC serves canned answers for the chain lookups reducers perform.
type fakeRPC struct {
	blockTime int64
	txFrom    string
	txInput   []byte
	owner     string
}

func (f *fakeRPC) BlockTime(_ context.Context, _ uint64) (int64, error) {
	return f.blockTime, nil
}

func (f *fakeRPC) TxInfo(_ context.Context, _ common.Hash) (string, []byte, error) {
	return f.txFrom, f.txInput, nil
}

func (f *fakeRPC) TokenOwner(_ context.Context, _ common.Address, _ *big.Int) string {
	if f.owner == "" {
		return "unknown"
	}
	return f.owner
}

type testReducer struct {
	reducer *Reducer
	store   *Store
	rpc     *fakeRPC
	abis    *ParsedABIs
}

func newTestReducer(t *testing.T) *testReducer {
	t.Helper()

	abis, err := ParseABIs()
	require.NoError(t, err)

	store := NewStore(newTestDB(t))
	rpc := &fakeRPC{blockTime: 1700000000, txFrom: "0x00000000000000000000000000000000000000aa"}
	log := logrus.NewEntry(logrus.New())
	sigs := BuildSignatureTable(abis.Marketplace, abis.Fungible, abis.Game)
	recorder := NewRecorder(store, "testchain", true, log)

	return &testReducer{
		reducer: NewReducer(store, rpc, abis, sigs, recorder, "testchain", log),
		store:   store,
		rpc:     rpc,
		abis:    abis,
	}
}

// newTestEvent builds a decoded event directly, the way the sequencer would
// emit it.
func newTestEvent(name string, txHash string, block uint64, args map[string]interface{}) *Event {
	log := types.Log{
		TxHash:      common.HexToHash(txHash),
		BlockNumber: block,
		TxIndex:     0,
		Index:       0,
	}
	return &Event{
		Name:     name,
		Source:   "marketplace",
		Log:      log,
		Args:     args,
		Identity: EventIdentity(log),
	}
}

func bigArg(v int64) *big.Int { return big.NewInt(v) }

func addrArg(hex string) common.Address { return common.HexToAddress(hex) }

func hashArg(b byte) [32]byte {
	var h [32]byte
	h[31] = b
	return h
}
