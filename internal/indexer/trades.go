package indexer

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"marketplace-indexer/pkg/models"
)

// Fungible-marketplace reducers: partially fillable buy/sell orders against
// ERC-1155 token quantities.

func (r *Reducer) reduceTradeOpened(_ context.Context, ev *Event) (int64, error) {
	tradeHash := ev.Hash32("tradeHash")
	collectionAddr := ev.Addr("token")
	number := ev.Decimal("id")
	tokenID := models.TokenID(collectionAddr, number)
	quantity := ev.Decimal("quantity")
	price := ev.Decimal("price")
	maker := ev.Addr("maker")
	timestamp := ev.Int64("timestamp")
	flags := ev.Flags("tradeFlags")

	side := models.TradeSideBuy
	if flags&tradeFlagSellSide != 0 {
		side = models.TradeSideSell
	}

	// Replayed after a missed ledger write: the trade row already exists and
	// every effect below ran once.
	existing, err := r.store.FungibleTrade(tradeHash)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		r.log.WithField("trade", tradeHash).Debug("Trade already recorded, skipping")
		return timestamp, nil
	}

	collection, err := r.store.EnsureCollection(collectionAddr, r.chain)
	if err != nil {
		return 0, err
	}

	token, err := r.store.Token(tokenID)
	if err != nil {
		return 0, err
	}
	if token == nil {
		err = r.store.CreateToken(&models.Token{
			ID:           tokenID,
			CollectionID: collectionAddr,
			TokenNumber:  number,
		})
		if err != nil {
			return 0, err
		}
	}

	err = r.store.CreateFungibleTrade(&models.FungibleTrade{
		TradeHash:         tradeHash,
		CollectionID:      collectionAddr,
		TokenNumber:       number,
		TokenID:           tokenID,
		Side:              side,
		Status:            models.TradeStatusOpen,
		PricePerUnit:      price,
		TotalQuantity:     quantity,
		RemainingQuantity: quantity,
		AllowPartialFills: flags&tradeFlagPartialFills != 0,
		IsEscrowed:        flags&tradeFlagEscrowed != 0,
		Maker:             maker,
		Expiry:            ev.Decimal("expiry"),
		Timestamp:         timestamp,
		ChainName:         r.chain,
	})
	if err != nil {
		return 0, err
	}

	if side == models.TradeSideSell {
		err = r.store.AppendAskHistory(&models.AskHistory{
			CollectionID:    collectionAddr,
			TokenNumber:     number,
			TokenID:         tokenID,
			Value:           price,
			Timestamp:       timestamp,
			Accepted:        0,
			TransactionHash: ev.Log.TxHash.Hex(),
			Lister:          maker,
			ChainName:       r.chain,
			ListingHash:     tradeHash,
			Expiry:          ev.Decimal("expiry"),
		})
		if err != nil {
			return 0, err
		}

		if floor, ceiling, changed := extendRange(collection.FloorPrice, collection.CeilingPrice, price); changed {
			if err := r.store.UpdateCollectionPrices(collectionAddr, floor, ceiling); err != nil {
				return 0, err
			}
		}
	}

	r.recorder.Activity(ev.Identity, maker, models.ActivityTradeOpened, collectionAddr, number, price.Mul(quantity), timestamp)
	if side == models.TradeSideSell {
		r.recorder.Listing(maker)
	} else {
		r.recorder.Offer(maker)
	}

	r.log.WithFields(logrus.Fields{
		"tx":         ev.Log.TxHash.Hex(),
		"trade":      tradeHash,
		"collection": collectionAddr,
		"token":      number.String(),
		"side":       side,
		"quantity":   quantity.String(),
		"price":      price.String(),
	}).Info("Trade opened")
	return timestamp, nil
}

func (r *Reducer) reduceTradeCancelled(_ context.Context, ev *Event) (int64, error) {
	tradeHash := ev.Hash32("tradeHash")
	timestamp := ev.Int64("timestamp")

	trade, err := r.store.FungibleTrade(tradeHash)
	if err != nil {
		return 0, err
	}
	if trade == nil {
		r.log.WithField("trade", tradeHash).Warn("Trade not in database")
		return timestamp, nil
	}

	if err := r.store.SetFungibleTradeStatus(tradeHash, models.TradeStatusCancelled); err != nil {
		return 0, err
	}

	if err := r.recomputeTradeExtremes(trade); err != nil {
		return 0, err
	}

	r.recorder.Activity(ev.Identity, trade.Maker, models.ActivityTradeCancelled, trade.CollectionID, trade.TokenNumber,
		trade.PricePerUnit.Mul(trade.RemainingQuantity), timestamp)

	r.log.WithFields(logrus.Fields{
		"tx":    ev.Log.TxHash.Hex(),
		"trade": tradeHash,
	}).Info("Trade cancelled")
	return timestamp, nil
}

func (r *Reducer) reduceTradeAccepted(ctx context.Context, ev *Event) (int64, error) {
	tradeHash := ev.Hash32("tradeHash")
	timestamp := ev.Int64("timestamp")
	buyer := ev.Addr("newOwner")
	seller := ev.Addr("oldOwner")

	trade, err := r.store.FungibleTrade(tradeHash)
	if err != nil {
		return 0, err
	}
	if trade == nil {
		r.log.WithField("trade", tradeHash).Warn("Trade not in database")
		return timestamp, nil
	}
	if !trade.Status.Open() {
		r.log.WithFields(logrus.Fields{
			"trade":  tradeHash,
			"status": trade.Status,
		}).Warn("Trade not open, ignoring acceptance")
		return timestamp, nil
	}

	// The fill row is keyed by the event identity; its presence means this
	// event already ran to completion and only the ledger write was lost.
	existingFill, err := r.store.Fill(ev.Identity)
	if err != nil {
		return 0, err
	}
	if existingFill != nil {
		r.log.WithField("trade", tradeHash).Debug("Fill already recorded, skipping")
		return timestamp, nil
	}

	from, input, err := r.rpc.TxInfo(ctx, ev.Log.TxHash)
	if err != nil {
		return 0, err
	}

	// The event's quantity field is unreliable for partial fills; the
	// accepted quantity comes from the call arguments.
	quantity := r.acceptedQuantity(ev, input)
	if quantity.GreaterThan(trade.RemainingQuantity) {
		r.log.WithFields(logrus.Fields{
			"trade":     tradeHash,
			"quantity":  quantity.String(),
			"remaining": trade.RemainingQuantity.String(),
		}).Warn("Accepted quantity exceeds remaining, clamping")
		quantity = trade.RemainingQuantity
	}

	remaining := trade.RemainingQuantity.Sub(quantity)
	status := models.TradeStatusPartial
	if remaining.IsZero() {
		status = models.TradeStatusAccepted
	}

	// The fill is written before the quantity decrement so an interrupted
	// acceptance is caught by the existing-fill check above instead of
	// draining the trade twice.
	value := trade.PricePerUnit.Mul(quantity)
	err = r.store.CreateFill(&models.Fill{
		ID:           ev.Identity,
		CollectionID: trade.CollectionID,
		TokenNumber:  trade.TokenNumber,
		TokenID:      trade.TokenID,
		Value:        trade.PricePerUnit,
		Quantity:     quantity,
		Timestamp:    timestamp,
		Buyer:        buyer,
		Seller:       seller,
		Type:         models.FillTypeTrade,
		ChainName:    r.chain,
		TradeHash:    tradeHash,
	})
	if err != nil {
		return 0, err
	}

	if err := r.store.UpdateFungibleTradeFill(tradeHash, remaining, status); err != nil {
		return 0, err
	}

	if err := r.store.AddCollectionVolume(trade.CollectionID, value); err != nil {
		return 0, err
	}
	if err := r.store.BumpChainTrade(r.chain, value); err != nil {
		return 0, err
	}

	if status == models.TradeStatusAccepted {
		if err := r.recomputeTradeExtremes(trade); err != nil {
			return 0, err
		}
	}

	r.recorder.Activity(ev.Identity, from, models.ActivityTradeAccepted, trade.CollectionID, trade.TokenNumber, value, timestamp)
	r.recorder.Purchase(buyer, value)
	r.recorder.Sale(seller, value)

	r.log.WithFields(logrus.Fields{
		"tx":        ev.Log.TxHash.Hex(),
		"trade":     tradeHash,
		"quantity":  quantity.String(),
		"remaining": remaining.String(),
		"status":    status,
	}).Info("Trade accepted")
	return timestamp, nil
}

// acceptedQuantity decodes the filled quantity from the acceptTrade call
// arguments, falling back to the event payload when the transaction invoked
// something else (router contracts) or the data cannot be unpacked.
func (r *Reducer) acceptedQuantity(ev *Event, input []byte) decimal.Decimal {
	if r.sigs.MethodName(input) == "acceptTrade" {
		method := r.abis.Fungible.Methods["acceptTrade"]
		args, err := method.Inputs.Unpack(input[4:])
		if err == nil && len(args) == 2 {
			if quantity, ok := args[1].(*big.Int); ok {
				return decimal.NewFromBigInt(quantity, 0)
			}
		}
	}
	r.log.WithField("tx", ev.Log.TxHash.Hex()).Warn("Could not decode accepted quantity from call data, using event payload")
	return ev.Decimal("quantity")
}

// recomputeTradeExtremes rescans extremes after a trade left the open set.
// Token ask/bid extremes come from open trades only for ERC-1155
// collections; otherwise the ask and bid reducers own them and the
// collection rescan reads open asks instead of trades.
func (r *Reducer) recomputeTradeExtremes(trade *models.FungibleTrade) error {
	collection, err := r.store.Collection(trade.CollectionID)
	if err != nil {
		return err
	}
	if collection == nil {
		r.log.WithField("collection", trade.CollectionID).Warn("Collection not in database")
		return nil
	}

	if collection.IsERC1155 {
		ask, lowestBid, highestBid, err := tokenTradeRanges(r.store, trade.TokenID)
		if err != nil {
			return err
		}
		if err := r.store.UpdateTokenAsk(trade.TokenID, ask); err != nil {
			return err
		}
		if err := r.store.UpdateTokenBidRange(trade.TokenID, lowestBid, highestBid); err != nil {
			return err
		}
	}

	floor, ceiling, err := collectionPriceRange(r.store, collection)
	if err != nil {
		return err
	}
	return r.store.UpdateCollectionPrices(trade.CollectionID, floor, ceiling)
}
