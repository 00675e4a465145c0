package indexer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"marketplace-indexer/pkg/config"
)

// scriptedHeads serves one head per call and keeps repeating the last one
// once the script runs out.
type scriptedHeads struct {
	mu    sync.Mutex
	heads []uint64
}

func (s *scriptedHeads) Head(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	head := s.heads[0]
	if len(s.heads) > 1 {
		s.heads = s.heads[1:]
	}
	return head, nil
}

// recordingFetcher records every requested range, optionally failing the
// first few calls. done closes after remaining successful calls were served.
type recordingFetcher struct {
	mu        sync.Mutex
	ranges    [][2]uint64
	failures  int
	remaining int
	done      chan struct{}
	once      sync.Once
}

func (f *recordingFetcher) FilterLogs(_ context.Context, _ common.Address, from, to uint64) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges = append(f.ranges, [2]uint64{from, to})
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("rpc unavailable")
	}
	f.remaining--
	if f.remaining == 0 {
		f.once.Do(func() { close(f.done) })
	}
	return nil, nil
}

func (f *recordingFetcher) recorded() [][2]uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]uint64(nil), f.ranges...)
}

func newRunEngine(t *testing.T, fetcher *recordingFetcher, heads *scriptedHeads) (*Engine, *Store) {
	t.Helper()

	abis, err := ParseABIs()
	require.NoError(t, err)

	chain := config.ChainConfig{
		Name:         "testchain",
		ChainID:      1,
		StartBlock:   10,
		BatchSize:    5,
		PollInterval: config.Duration(time.Millisecond),
	}

	store := NewStore(newTestDB(t))
	log := logrus.NewEntry(logrus.New())
	rpc := &fakeRPC{blockTime: 1700000000, txFrom: testLister}
	sigs := BuildSignatureTable(abis.Marketplace, abis.Fungible, abis.Game)
	recorder := NewRecorder(store, "testchain", false, log)
	sources := []LogSource{{Name: "marketplace", Address: common.HexToAddress("0x01"), ABI: abis.Marketplace}}

	return &Engine{
		chain:      chain,
		heads:      heads,
		store:      store,
		sequencer:  NewSequencer(fetcher, sources),
		reducer:    NewReducer(store, rpc, abis, sigs, recorder, "testchain", log),
		guard:      NewGuard(store, "testchain", log),
		checkpoint: NewCheckpoint(store, chain),
		log:        log,
	}, store
}

func runUntilDone(t *testing.T, engine *Engine, fetcher *recordingFetcher) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- engine.Run(ctx) }()

	select {
	case <-fetcher.done:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("engine never fetched the expected ranges")
	}
	cancel()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop on cancellation")
	}
}

// Behind the head, batches run back-to-back and the last one is clamped to
// the head; once caught up the engine polls for a new head and resumes.
func TestRunBatchesToHeadThenFollows(t *testing.T) {
	fetcher := &recordingFetcher{remaining: 3, done: make(chan struct{})}
	heads := &scriptedHeads{heads: []uint64{20, 25}}
	engine, store := newRunEngine(t, fetcher, heads)

	runUntilDone(t, engine, fetcher)

	assert.Equal(t, [][2]uint64{{10, 15}, {15, 20}, {20, 25}}, fetcher.recorded())

	chain, err := store.Chain("testchain")
	require.NoError(t, err)
	assert.Equal(t, uint64(25), chain.LastBlock)
}

// A failed range is retried from the same boundaries, and the checkpoint
// only moves once it succeeds.
func TestRunRetriesFailedRange(t *testing.T) {
	fetcher := &recordingFetcher{failures: 2, remaining: 2, done: make(chan struct{})}
	heads := &scriptedHeads{heads: []uint64{20}}
	engine, store := newRunEngine(t, fetcher, heads)

	runUntilDone(t, engine, fetcher)

	assert.Equal(t, [][2]uint64{{10, 15}, {10, 15}, {10, 15}, {15, 20}}, fetcher.recorded())

	chain, err := store.Chain("testchain")
	require.NoError(t, err)
	assert.Equal(t, uint64(20), chain.LastBlock)
}
