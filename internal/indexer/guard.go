package indexer

import (
	"github.com/sirupsen/logrus"
	"marketplace-indexer/pkg/models"
)

// Guard is the idempotency gate over the processed-event ledger. A ledger
// row for an event's identity means its reducer already ran; the event is
// then skipped entirely, analytics included. The ledger row is written only
// after the reducer completes, so a crash in between re-runs the reducer on
// restart. Reducers are written to survive that for creation/overwrite
// operations.
type Guard struct {
	store *Store
	chain string
	log   *logrus.Entry
}

func NewGuard(store *Store, chain string, log *logrus.Entry) *Guard {
	return &Guard{store: store, chain: chain, log: log}
}

// Seen reports whether the event identity is already in the ledger.
func (g *Guard) Seen(identity string) (bool, error) {
	return g.store.HasProcessedEvent(identity)
}

// Record writes the ledger row for a fully reduced event. The chain-scoped
// insert is preferred; on failure it degrades to a chain-agnostic insert to
// tolerate schema drift.
func (g *Guard) Record(identity string, blockNumber uint64, timestamp int64) error {
	event := &models.ProcessedEvent{
		ID:          identity,
		BlockNumber: blockNumber,
		Timestamp:   timestamp,
		ChainName:   g.chain,
	}

	if err := g.store.InsertProcessedEvent(event); err != nil {
		g.log.Warnf("Chain-scoped processed-event insert failed, retrying without chain: %v", err)
		return g.store.InsertProcessedEventNoChain(event)
	}
	return nil
}
