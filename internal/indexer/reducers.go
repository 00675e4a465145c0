package indexer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"marketplace-indexer/internal/ethrpc"
	"marketplace-indexer/pkg/models"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// RPC is the slice of the ledger RPC client the reducers need.
type RPC interface {
	BlockTime(ctx context.Context, block uint64) (int64, error)
	TxInfo(ctx context.Context, hash common.Hash) (string, []byte, error)
	TokenOwner(ctx context.Context, collection common.Address, tokenNumber *big.Int) string
}

// Reducer applies one decoded event's effect to persisted state. Reducers
// run strictly sequentially within a chain; each applies an ordered list of
// single-statement writes. RPC failures propagate (the range is retried);
// expected-but-missing state logs a warning and stops further mutation.
type Reducer struct {
	store    *Store
	rpc      RPC
	sigs     SignatureTable
	abis     *ParsedABIs
	recorder *Recorder
	chain    string
	log      *logrus.Entry
}

func NewReducer(store *Store, rpc RPC, abis *ParsedABIs, sigs SignatureTable, recorder *Recorder, chain string, log *logrus.Entry) *Reducer {
	return &Reducer{
		store:    store,
		rpc:      rpc,
		sigs:     sigs,
		abis:     abis,
		recorder: recorder,
		chain:    chain,
		log:      log,
	}
}

// Apply dispatches an event to its reducer and returns the event timestamp
// recorded in the processed-event ledger.
func (r *Reducer) Apply(ctx context.Context, ev *Event) (int64, error) {
	switch ev.Name {
	case "TokenListed":
		return r.reduceListed(ctx, ev)
	case "TokenDelisted":
		return r.reduceDelisted(ctx, ev)
	case "TokenPurchased":
		return r.reducePurchased(ctx, ev)
	case "BidPlaced", "OfferPlaced":
		return r.reduceBidPlaced(ctx, ev)
	case "BidCancelled", "OfferCancelled":
		return r.reduceBidCancelled(ctx, ev)
	case "CollectionModified":
		return r.reduceCollectionModified(ctx, ev)
	case "TradeOpened":
		return r.reduceTradeOpened(ctx, ev)
	case "TradeCancelled":
		return r.reduceTradeCancelled(ctx, ev)
	case "TradeAccepted":
		return r.reduceTradeAccepted(ctx, ev)
	case "WinnerSet":
		return r.reduceWinnerSet(ctx, ev)
	default:
		return 0, fmt.Errorf("no reducer for event %s", ev.Name)
	}
}

func (r *Reducer) reduceListed(ctx context.Context, ev *Event) (int64, error) {
	collectionAddr := ev.Addr("token")
	number := ev.Decimal("id")
	tokenID := models.TokenID(collectionAddr, number)
	price := ev.Decimal("price")
	timestamp := ev.Int64("timestamp")
	txHash := ev.Log.TxHash.Hex()

	lister, _, err := r.rpc.TxInfo(ctx, ev.Log.TxHash)
	if err != nil {
		return 0, err
	}

	r.recorder.Activity(ev.Identity, lister, models.ActivityTokenListed, collectionAddr, number, price, timestamp)
	r.recorder.Listing(lister)

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
			CurrentAsk:   price,
		})
	} else {
		err = r.store.UpdateTokenAsk(tokenID, price)
	}
	if err != nil {
		return 0, err
	}

	if floor, ceiling, changed := extendRange(collection.FloorPrice, collection.CeilingPrice, price); changed {
		if err := r.store.UpdateCollectionPrices(collectionAddr, floor, ceiling); err != nil {
			return 0, err
		}
	}

	err = r.store.ReplaceAsk(&models.Ask{
		TokenID:         tokenID,
		CollectionID:    collectionAddr,
		TokenNumber:     number,
		Value:           price,
		Timestamp:       timestamp,
		TransactionHash: txHash,
		Lister:          lister,
		ChainName:       r.chain,
		ListingHash:     ev.Hash32("listingHash"),
		Expiry:          ev.Decimal("expiry"),
	})
	if err != nil {
		return 0, err
	}

	err = r.store.AppendAskHistory(&models.AskHistory{
		CollectionID:    collectionAddr,
		TokenNumber:     number,
		TokenID:         tokenID,
		Value:           price,
		Timestamp:       timestamp,
		Accepted:        0,
		TransactionHash: txHash,
		Lister:          lister,
		ChainName:       r.chain,
		ListingHash:     ev.Hash32("listingHash"),
		Expiry:          ev.Decimal("expiry"),
	})
	if err != nil {
		return 0, err
	}

	r.log.WithFields(logrus.Fields{
		"tx":         txHash,
		"token":      number.String(),
		"collection": collectionAddr,
		"price":      price.String(),
	}).Info("Token listed")
	return timestamp, nil
}

func (r *Reducer) reduceDelisted(ctx context.Context, ev *Event) (int64, error) {
	collectionAddr := ev.Addr("token")
	number := ev.Decimal("id")
	tokenID := models.TokenID(collectionAddr, number)
	timestamp := ev.Int64("timestamp")
	txHash := ev.Log.TxHash.Hex()

	lister, _, err := r.rpc.TxInfo(ctx, ev.Log.TxHash)
	if err != nil {
		return 0, err
	}

	r.recorder.Activity(ev.Identity, lister, models.ActivityTokenDelisted, collectionAddr, number, decimal.Zero, timestamp)

	token, err := r.store.Token(tokenID)
	if err != nil {
		return 0, err
	}
	if token == nil {
		r.log.WithField("token", tokenID).Warn("Token not in database")
	}
	if err := r.store.UpdateTokenAsk(tokenID, decimal.Zero); err != nil {
		return 0, err
	}

	if err := r.store.DeleteAsk(tokenID); err != nil {
		return 0, err
	}

	err = r.store.AppendAskHistory(&models.AskHistory{
		CollectionID:    collectionAddr,
		TokenNumber:     number,
		TokenID:         tokenID,
		Value:           decimal.Zero,
		Timestamp:       timestamp,
		Accepted:        0,
		TransactionHash: txHash,
		Lister:          lister,
		ChainName:       r.chain,
		ListingHash:     ev.Hash32("listingHash"),
		Expiry:          decimal.Zero,
	})
	if err != nil {
		return 0, err
	}

	collection, err := r.store.Collection(collectionAddr)
	if err != nil {
		return 0, err
	}
	if collection == nil {
		r.log.WithField("collection", collectionAddr).Warn("Collection not in database")
	} else {
		floor, ceiling, err := collectionPriceRange(r.store, collection)
		if err != nil {
			return 0, err
		}
		if err := r.store.UpdateCollectionPrices(collectionAddr, floor, ceiling); err != nil {
			return 0, err
		}
	}

	r.log.WithFields(logrus.Fields{
		"tx":         txHash,
		"token":      number.String(),
		"collection": collectionAddr,
	}).Info("Token delisted")
	return timestamp, nil
}

func (r *Reducer) reducePurchased(ctx context.Context, ev *Event) (int64, error) {
	timestamp, err := r.rpc.BlockTime(ctx, ev.Log.BlockNumber)
	if err != nil {
		return 0, err
	}
	from, input, err := r.rpc.TxInfo(ctx, ev.Log.TxHash)
	if err != nil {
		return 0, err
	}

	// The event payload does not tell an outright purchase apart from an
	// accepted offer; the calling function's selector does.
	if r.sigs.MethodName(input) == "acceptOffer" {
		return timestamp, r.reduceOfferAccepted(ev, from, timestamp)
	}
	return timestamp, r.reduceListingFilled(ev, from, timestamp)
}

func (r *Reducer) reduceOfferAccepted(ev *Event, from string, timestamp int64) error {
	collectionAddr := ev.Addr("collection")
	number := ev.Decimal("tokenId")
	tokenID := models.TokenID(collectionAddr, number)
	price := ev.Decimal("price")
	tradeHash := ev.Hash32("tradeHash")
	buyer := ev.Addr("newOwner")
	seller := ev.Addr("oldOwner")
	txHash := ev.Log.TxHash.Hex()

	r.recorder.Activity(ev.Identity, from, models.ActivityOfferAccepted, collectionAddr, number, price, timestamp)

	bid, err := r.store.FindBidForAccept(tokenID, buyer, price, tradeHash)
	if err != nil {
		return err
	}
	if bid == nil {
		r.log.WithField("token", tokenID).Warn("Bid not in database")
		return nil
	}

	err = r.store.CreateFill(&models.Fill{
		ID:           tokenID + "-" + txHash,
		CollectionID: collectionAddr,
		TokenNumber:  number,
		TokenID:      tokenID,
		Value:        price,
		Quantity:     decimal.NewFromInt(1),
		Timestamp:    timestamp,
		Buyer:        buyer,
		Seller:       seller,
		Type:         models.FillTypeBid,
		ChainName:    r.chain,
		TradeHash:    tradeHash,
	})
	if err != nil {
		return err
	}

	if err := r.store.DeleteBid(bid.ID); err != nil {
		return err
	}

	token, err := r.store.Token(tokenID)
	if err != nil {
		return err
	}
	if token == nil {
		r.log.WithField("token", tokenID).Warn("Token not in database")
	}
	lowest, highest, err := tokenBidRange(r.store, tokenID)
	if err != nil {
		return err
	}
	if err := r.store.UpdateTokenBidRange(tokenID, lowest, highest); err != nil {
		return err
	}

	collection, err := r.store.Collection(collectionAddr)
	if err != nil {
		return err
	}
	if collection == nil {
		r.log.WithField("collection", collectionAddr).Warn("Collection not in database")
	} else if err := r.store.AddCollectionVolume(collectionAddr, price); err != nil {
		return err
	}
	if err := r.store.BumpChainTrade(r.chain, price); err != nil {
		return err
	}

	r.recorder.Purchase(buyer, price)
	r.recorder.Sale(seller, price)

	r.log.WithFields(logrus.Fields{
		"tx":         txHash,
		"token":      number.String(),
		"collection": collectionAddr,
		"buyer":      buyer,
		"price":      price.String(),
	}).Info("Offer accepted")
	return nil
}

func (r *Reducer) reduceListingFilled(ev *Event, from string, timestamp int64) error {
	collectionAddr := ev.Addr("collection")
	number := ev.Decimal("tokenId")
	tokenID := models.TokenID(collectionAddr, number)
	price := ev.Decimal("price")
	tradeHash := ev.Hash32("tradeHash")
	buyer := ev.Addr("newOwner")
	seller := ev.Addr("oldOwner")
	txHash := ev.Log.TxHash.Hex()

	r.recorder.Activity(ev.Identity, from, models.ActivityTokenPurchased, collectionAddr, number, price, timestamp)

	filled, err := r.store.FindOpenAskHistory(tokenID, price, tradeHash)
	if err != nil {
		return err
	}
	if filled == nil {
		r.log.WithField("token", tokenID).Warn("Ask not in database")
		return nil
	}

	token, err := r.store.Token(tokenID)
	if err != nil {
		return err
	}
	if token == nil {
		r.log.WithField("token", tokenID).Warn("Token not in database")
	}
	if err := r.store.UpdateTokenAsk(tokenID, decimal.Zero); err != nil {
		return err
	}

	err = r.store.CreateFill(&models.Fill{
		ID:           tokenID + "-" + txHash,
		CollectionID: collectionAddr,
		TokenNumber:  number,
		TokenID:      tokenID,
		Value:        price,
		Quantity:     decimal.NewFromInt(1),
		Timestamp:    timestamp,
		Buyer:        buyer,
		Seller:       seller,
		Type:         models.FillTypeAsk,
		ChainName:    r.chain,
		TradeHash:    tradeHash,
	})
	if err != nil {
		return err
	}

	if err := r.store.MarkAskHistoryAccepted(filled.ID); err != nil {
		return err
	}
	if err := r.store.DeleteAsk(tokenID); err != nil {
		return err
	}

	// The fill also ends the listing, so the history gets a delist record.
	err = r.store.AppendAskHistory(&models.AskHistory{
		CollectionID:    collectionAddr,
		TokenNumber:     number,
		TokenID:         tokenID,
		Value:           decimal.Zero,
		Timestamp:       timestamp,
		Accepted:        0,
		TransactionHash: txHash,
		Lister:          seller,
		ChainName:       r.chain,
		ListingHash:     tradeHash,
		Expiry:          decimal.Zero,
	})
	if err != nil {
		return err
	}

	collection, err := r.store.Collection(collectionAddr)
	if err != nil {
		return err
	}
	if collection == nil {
		r.log.WithField("collection", collectionAddr).Warn("Collection not in database")
	} else {
		floor, ceiling, err := collectionPriceRange(r.store, collection)
		if err != nil {
			return err
		}
		if err := r.store.UpdateCollectionPrices(collectionAddr, floor, ceiling); err != nil {
			return err
		}
		if err := r.store.AddCollectionVolume(collectionAddr, price); err != nil {
			return err
		}
	}
	if err := r.store.BumpChainTrade(r.chain, price); err != nil {
		return err
	}

	r.recorder.Purchase(buyer, price)
	r.recorder.Sale(seller, price)

	r.log.WithFields(logrus.Fields{
		"tx":         txHash,
		"token":      number.String(),
		"collection": collectionAddr,
		"price":      price.String(),
	}).Info("Listing filled")
	return nil
}

func (r *Reducer) reduceBidPlaced(ctx context.Context, ev *Event) (int64, error) {
	collectionAddr := ev.Addr("token")
	number := ev.Decimal("id")
	tokenID := models.TokenID(collectionAddr, number)
	price := ev.Decimal("price")
	buyer := ev.Addr("buyer")
	timestamp := ev.Int64("timestamp")
	txHash := ev.Log.TxHash.Hex()

	// Replayed after a missed ledger write: the bid row already exists and
	// every effect below ran once.
	existing, err := r.store.Bid(tokenID + "-" + buyer + "-" + txHash)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		r.log.WithField("bid", existing.ID).Debug("Bid already recorded, skipping")
		return timestamp, nil
	}

	if _, err := r.store.EnsureCollection(collectionAddr, r.chain); err != nil {
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
			LowestBid:    price,
			HighestBid:   price,
		})
		if err != nil {
			return 0, err
		}
	} else if lowest, highest, changed := extendRange(token.LowestBid, token.HighestBid, price); changed {
		if err := r.store.UpdateTokenBidRange(tokenID, lowest, highest); err != nil {
			return 0, err
		}
	}

	// The counterparty is not always in the payload; fall back to an
	// on-chain owner lookup, best effort.
	seller := ev.Addr("potentialSeller")
	if seller == "" || seller == zeroAddress {
		seller = r.rpc.TokenOwner(ctx, common.HexToAddress(collectionAddr), ev.Big("id"))
	}

	r.recorder.Activity(ev.Identity, buyer, models.ActivityOfferPlaced, collectionAddr, number, price, timestamp)
	r.recorder.Offer(buyer)

	err = r.store.CreateBid(&models.Bid{
		ID:              tokenID + "-" + buyer + "-" + txHash,
		CollectionID:    collectionAddr,
		TokenNumber:     number,
		TokenID:         tokenID,
		Value:           price,
		Timestamp:       timestamp,
		Buyer:           buyer,
		TransactionHash: txHash,
		Expiry:          ev.Decimal("expiry"),
		OfferHash:       ev.Hash32("offerHash"),
		ChainName:       r.chain,
		Seller:          seller,
	})
	if err != nil {
		return 0, err
	}

	r.log.WithFields(logrus.Fields{
		"tx":         txHash,
		"token":      number.String(),
		"collection": collectionAddr,
		"buyer":      buyer,
		"price":      price.String(),
	}).Info("Bid placed")
	return timestamp, nil
}

func (r *Reducer) reduceBidCancelled(_ context.Context, ev *Event) (int64, error) {
	collectionAddr := ev.Addr("token")
	number := ev.Decimal("id")
	tokenID := models.TokenID(collectionAddr, number)
	price := ev.Decimal("price")
	buyer := ev.Addr("buyer")
	timestamp := ev.Int64("timestamp")

	bid, err := r.store.FindBidForCancel(tokenID, buyer, price, ev.Hash32("offerHash"))
	if err != nil {
		return 0, err
	}
	if bid == nil {
		r.log.WithField("token", tokenID).Warn("Bid not in database")
		return timestamp, nil
	}

	if err := r.store.DeleteBid(bid.ID); err != nil {
		return 0, err
	}

	r.recorder.Activity(ev.Identity, buyer, models.ActivityOfferCancelled, collectionAddr, number, price, timestamp)

	token, err := r.store.Token(tokenID)
	if err != nil {
		return 0, err
	}
	if token == nil {
		r.log.WithField("token", tokenID).Warn("Token not in database")
	}
	lowest, highest, err := tokenBidRange(r.store, tokenID)
	if err != nil {
		return 0, err
	}
	if err := r.store.UpdateTokenBidRange(tokenID, lowest, highest); err != nil {
		return 0, err
	}

	r.log.WithFields(logrus.Fields{
		"tx":         ev.Log.TxHash.Hex(),
		"token":      number.String(),
		"collection": collectionAddr,
		"buyer":      buyer,
		"price":      price.String(),
	}).Info("Bid cancelled")
	return timestamp, nil
}

func (r *Reducer) reduceCollectionModified(_ context.Context, ev *Event) (int64, error) {
	collectionAddr := ev.Addr("token")
	timestamp := ev.Int64("timestamp")

	if _, err := r.store.EnsureCollection(collectionAddr, r.chain); err != nil {
		return 0, err
	}

	err := r.store.UpdateCollectionMeta(
		collectionAddr,
		ev.Bool("enabled"),
		ev.Decimal("royalty"),
		ev.Addr("collectionOwner"),
		ev.Bool("isERC1155"),
	)
	if err != nil {
		return 0, err
	}

	r.log.WithFields(logrus.Fields{
		"tx":         ev.Log.TxHash.Hex(),
		"collection": collectionAddr,
		"enabled":    ev.Bool("enabled"),
	}).Info("Collection modified")
	return timestamp, nil
}

func (r *Reducer) reduceWinnerSet(_ context.Context, ev *Event) (int64, error) {
	timestamp := ev.Int64("timestamp")

	err := r.store.UpsertGameResult(&models.GameResult{
		GameID:          ev.Big("gameId").String(),
		Winner:          ev.Addr("winner"),
		Timestamp:       timestamp,
		TransactionHash: ev.Log.TxHash.Hex(),
		ChainName:       r.chain,
	})
	if err != nil {
		return 0, err
	}

	r.log.WithFields(logrus.Fields{
		"game":   ev.Big("gameId").String(),
		"winner": ev.Addr("winner"),
	}).Info("Winner set")
	return timestamp, nil
}

var _ RPC = (*ethrpc.Client)(nil)
