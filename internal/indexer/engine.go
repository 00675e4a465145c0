package indexer

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"marketplace-indexer/internal/ethrpc"
	"marketplace-indexer/pkg/cache"
	"marketplace-indexer/pkg/config"
)

// Engine is one chain's ingestion pipeline: checkpoint manager, catch-up
// scheduler, sequencer, idempotency guard, reducers and analytics recorder,
// run as a single strictly sequential loop. Chains run as independent
// engines with no shared mutable state beyond the store.
// HeadSource reports the latest block number of a chain.
type HeadSource interface {
	Head(ctx context.Context) (uint64, error)
}

type Engine struct {
	chain      config.ChainConfig
	heads      HeadSource
	store      *Store
	sequencer  *Sequencer
	reducer    *Reducer
	guard      *Guard
	checkpoint *Checkpoint
	log        *logrus.Entry
}

// New wires an engine for one configured chain.
func New(chain config.ChainConfig, db *gorm.DB, client *ethrpc.Client, trackActivity bool) (*Engine, error) {
	abis, err := ParseABIs()
	if err != nil {
		return nil, err
	}

	var sources []LogSource
	if chain.MarketplaceContract != "" {
		sources = append(sources, LogSource{
			Name:    "marketplace",
			Address: common.HexToAddress(chain.MarketplaceContract),
			ABI:     abis.Marketplace,
		})
	}
	if chain.FungibleMarketplaceContract != "" {
		sources = append(sources, LogSource{
			Name:    "fungible_marketplace",
			Address: common.HexToAddress(chain.FungibleMarketplaceContract),
			ABI:     abis.Fungible,
		})
	}
	if chain.GameContract != "" {
		sources = append(sources, LogSource{
			Name:    "game",
			Address: common.HexToAddress(chain.GameContract),
			ABI:     abis.Game,
		})
	}

	log := logrus.WithField("chain", chain.Name)
	store := NewStore(db)
	recorder := NewRecorder(store, chain.Name, trackActivity, log)
	sigs := BuildSignatureTable(abis.Marketplace, abis.Fungible, abis.Game)

	return &Engine{
		chain:      chain,
		heads:      client,
		store:      store,
		sequencer:  NewSequencer(client, sources),
		reducer:    NewReducer(store, client, abis, sigs, recorder, chain.Name, log),
		guard:      NewGuard(store, chain.Name, log),
		checkpoint: NewCheckpoint(store, chain),
		log:        log,
	}, nil
}

// Run drives the pipeline until the context is cancelled. While behind the
// chain head, batches proceed back-to-back; once caught up it polls small
// ranges on the chain's fixed interval. A failed range is retried from the
// same boundaries until it succeeds.
func (e *Engine) Run(ctx context.Context) error {
	start, err := e.checkpoint.Load()
	if err != nil {
		return err
	}
	e.log.WithField("block", start).Info("Starting ingestion")

	head, err := e.heads.Head(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if start >= head {
			e.publishStatus(start, head, false)
			if !sleepCtx(ctx, time.Duration(e.chain.PollInterval)) {
				return ctx.Err()
			}
			newHead, err := e.heads.Head(ctx)
			if err != nil {
				e.log.Warnf("Head fetch failed: %v", err)
				continue
			}
			head = newHead
			continue
		}

		end := start + e.chain.BatchSize
		if end > head {
			end = head
		}

		if err := e.processRange(ctx, start, end); err != nil {
			e.log.WithFields(logrus.Fields{
				"start": start,
				"end":   end,
			}).Errorf("Range failed, retrying: %v", err)
			continue
		}

		if err := e.checkpoint.Advance(end); err != nil {
			e.log.Errorf("Checkpoint write failed, retrying range: %v", err)
			continue
		}

		e.publishStatus(end, head, true)
		start = end
	}
}

// processRange reduces every surviving event in [start, end], in order. The
// checkpoint only moves after this returns nil.
func (e *Engine) processRange(ctx context.Context, start, end uint64) error {
	events, err := e.sequencer.Fetch(ctx, start, end)
	if err != nil {
		return err
	}

	for _, event := range events {
		seen, err := e.guard.Seen(event.Identity)
		if err != nil {
			return err
		}
		if seen {
			e.log.WithField("event", event.Identity).Debug("Skipping already processed event")
			continue
		}

		timestamp, err := e.reducer.Apply(ctx, event)
		if err != nil {
			return err
		}
		if err := e.guard.Record(event.Identity, event.Log.BlockNumber, timestamp); err != nil {
			return err
		}
	}

	e.log.WithFields(logrus.Fields{
		"start":  start,
		"end":    end,
		"events": len(events),
	}).Debug("Range processed")
	return nil
}

func (e *Engine) publishStatus(last, head uint64, catchingUp bool) {
	if !cache.Ready() {
		return
	}
	err := cache.CacheChainStatus(e.chain.Name, cache.ChainStatus{
		LastBlock:  last,
		HeadBlock:  head,
		CatchingUp: catchingUp,
		UpdatedAt:  time.Now().Unix(),
	})
	if err != nil {
		e.log.Debugf("Status publish failed: %v", err)
	}
}

// sleepCtx waits for the duration unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
