package indexer

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"marketplace-indexer/pkg/models"
)

// Recorder is the best-effort analytics side of the pipeline: the activity
// audit log and per-trader counters. Failures here are logged and swallowed;
// they never abort or roll back the owning reducer. Activity rows are keyed
// by the raw event identity so replays cannot duplicate them; the trader
// counters are plain increments and stay non-idempotent under replay.
type Recorder struct {
	store   *Store
	chain   string
	enabled bool
	log     *logrus.Entry
}

func NewRecorder(store *Store, chain string, enabled bool, log *logrus.Entry) *Recorder {
	return &Recorder{store: store, chain: chain, enabled: enabled, log: log}
}

// Activity appends one audit record for a user-facing action.
func (r *Recorder) Activity(eventID, user, activity, tokenAddress string, tokenNumber, amount decimal.Decimal, timestamp int64) {
	if !r.enabled {
		return
	}

	err := r.store.InsertActivity(&models.ActivityHistory{
		EventID:      eventID,
		UserAddress:  user,
		Activity:     activity,
		ChainName:    r.chain,
		TokenAddress: tokenAddress,
		TokenNumber:  tokenNumber,
		Amount:       amount,
		Timestamp:    timestamp,
	})
	if err != nil {
		r.log.Warnf("Failed to record %s activity: %v", activity, err)
	}
}

func (r *Recorder) bump(address string, mutate func(*models.TraderStat)) {
	if !r.enabled || address == "" {
		return
	}

	stat, err := r.store.TraderStat(address, r.chain)
	if err != nil {
		r.log.Warnf("Failed to load trader stat for %s: %v", address, err)
		return
	}
	if stat == nil {
		stat = &models.TraderStat{Address: address, ChainName: r.chain}
	}
	mutate(stat)
	if err := r.store.SaveTraderStat(stat); err != nil {
		r.log.Warnf("Failed to save trader stat for %s: %v", address, err)
	}
}

// Listing counts a new listing against the lister.
func (r *Recorder) Listing(address string) {
	r.bump(address, func(stat *models.TraderStat) {
		stat.ListingCount++
	})
}

// Offer counts a new offer against the buyer.
func (r *Recorder) Offer(address string) {
	r.bump(address, func(stat *models.TraderStat) {
		stat.OfferCount++
	})
}

// Purchase counts a completed buy against the buyer.
func (r *Recorder) Purchase(address string, amount decimal.Decimal) {
	r.bump(address, func(stat *models.TraderStat) {
		stat.PurchaseCount++
		stat.PurchaseVolume = stat.PurchaseVolume.Add(amount)
	})
}

// Sale counts a completed sale against the seller.
func (r *Recorder) Sale(address string, amount decimal.Decimal) {
	r.bump(address, func(stat *models.TraderStat) {
		stat.SaleCount++
		stat.SaleVolume = stat.SaleVolume.Add(amount)
	})
}
