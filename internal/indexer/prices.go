package indexer

import (
	"github.com/shopspring/decimal"
	"marketplace-indexer/pkg/models"
)

// Price-extreme recomputation is always a full scan of the currently-open
// rows for the affected token or collection, never an incremental running
// min/max. O(n) per recompute, correct under arbitrary deletes.

type priceRange struct {
	floor   decimal.Decimal
	ceiling decimal.Decimal
}

func newPriceRange() priceRange {
	return priceRange{floor: decimal.Zero, ceiling: decimal.Zero}
}

func (r *priceRange) observe(value decimal.Decimal) {
	if r.floor.IsZero() || value.LessThan(r.floor) {
		r.floor = value
	}
	if value.GreaterThan(r.ceiling) {
		r.ceiling = value
	}
}

// collectionPriceRange rescans a collection's open sell side: asks for
// non-fungible collections, OPEN/PARTIAL sell trades for ERC-1155 ones.
// Both extremes are zero when nothing is open.
func collectionPriceRange(store *Store, collection *models.Collection) (decimal.Decimal, decimal.Decimal, error) {
	r := newPriceRange()

	if collection.IsERC1155 {
		trades, err := store.OpenSellTradesByCollection(collection.Address)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		for _, trade := range trades {
			r.observe(trade.PricePerUnit)
		}
		return r.floor, r.ceiling, nil
	}

	asks, err := store.OpenAsksByCollection(collection.Address)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	for _, ask := range asks {
		r.observe(ask.Value)
	}
	return r.floor, r.ceiling, nil
}

// tokenBidRange rescans a token's open bids for its lowest/highest bid.
func tokenBidRange(store *Store, tokenID string) (decimal.Decimal, decimal.Decimal, error) {
	bids, err := store.BidsByToken(tokenID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	r := newPriceRange()
	for _, bid := range bids {
		r.observe(bid.Value)
	}
	return r.floor, r.ceiling, nil
}

// tokenTradeRanges rescans a token's open fungible trades: the sell side
// yields the current ask (lowest open sell price), the buy side the bid
// extremes.
func tokenTradeRanges(store *Store, tokenID string) (ask decimal.Decimal, lowestBid decimal.Decimal, highestBid decimal.Decimal, err error) {
	trades, err := store.OpenTradesByToken(tokenID)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}

	sells := newPriceRange()
	buys := newPriceRange()
	for _, trade := range trades {
		if trade.Side == models.TradeSideSell {
			sells.observe(trade.PricePerUnit)
		} else {
			buys.observe(trade.PricePerUnit)
		}
	}
	return sells.floor, buys.floor, buys.ceiling, nil
}

// extendRange widens a stored floor/ceiling pair with a newly opened price,
// treating a zero floor as unset. Used on the fast path (new listing, new
// sell trade); removals always go through a full rescan instead.
func extendRange(floor, ceiling, price decimal.Decimal) (newFloor, newCeiling decimal.Decimal, changed bool) {
	newFloor, newCeiling = floor, ceiling
	if newFloor.IsZero() || price.LessThan(newFloor) {
		newFloor = price
		changed = true
	}
	if price.GreaterThan(newCeiling) {
		newCeiling = price
		changed = true
	}
	return newFloor, newCeiling, changed
}
