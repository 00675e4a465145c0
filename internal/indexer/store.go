package indexer

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"marketplace-indexer/pkg/models"
)

// Store wraps the relational state store with the point queries and
// single-statement writes the reducers need. Each method is one independent
// statement; consistency across the several writes per event is best-effort
// sequential, not atomic.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for migrations and tests.
func (s *Store) DB() *gorm.DB { return s.db }

func notFoundIsNil(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

/* Chains */

func (s *Store) Chain(name string) (*models.Chain, error) {
	var chain models.Chain
	err := s.db.Where("name = ?", name).First(&chain).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chain %s: %w", name, err)
	}
	return &chain, nil
}

func (s *Store) CreateChain(chain *models.Chain) error {
	return s.db.Create(chain).Error
}

func (s *Store) UpdateChainCheckpoint(name string, block uint64) error {
	return s.db.Model(&models.Chain{}).Where("name = ?", name).
		Update("last_block", block).Error
}

// BumpChainTrade adds one fill's value to the chain's cumulative counters.
func (s *Store) BumpChainTrade(name string, volume decimal.Decimal) error {
	chain, err := s.Chain(name)
	if err != nil || chain == nil {
		return err
	}
	return s.db.Model(&models.Chain{}).Where("name = ?", name).
		Updates(map[string]interface{}{
			"trade_count":    chain.TradeCount + 1,
			"volume_overall": chain.VolumeOverall.Add(volume),
		}).Error
}

/* Collections */

func (s *Store) Collection(address string) (*models.Collection, error) {
	var collection models.Collection
	err := s.db.Where("address = ?", address).First(&collection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", address, err)
	}
	return &collection, nil
}

// EnsureCollection returns the collection row, creating a zeroed one when
// this is the first observed event referencing the contract.
func (s *Store) EnsureCollection(address, chainName string) (*models.Collection, error) {
	collection, err := s.Collection(address)
	if err != nil || collection != nil {
		return collection, err
	}

	collection = &models.Collection{
		Address:      address,
		ChainName:    chainName,
		FloorPrice:   decimal.Zero,
		CeilingPrice: decimal.Zero,
	}
	if err := s.db.Create(collection).Error; err != nil {
		return nil, fmt.Errorf("failed to create collection %s: %w", address, err)
	}
	return collection, nil
}

func (s *Store) UpdateCollectionFloor(address string, floor decimal.Decimal) error {
	return s.db.Model(&models.Collection{}).Where("address = ?", address).
		Update("floor_price", floor).Error
}

func (s *Store) UpdateCollectionCeiling(address string, ceiling decimal.Decimal) error {
	return s.db.Model(&models.Collection{}).Where("address = ?", address).
		Update("ceiling_price", ceiling).Error
}

func (s *Store) UpdateCollectionPrices(address string, floor, ceiling decimal.Decimal) error {
	return s.db.Model(&models.Collection{}).Where("address = ?", address).
		Updates(map[string]interface{}{
			"floor_price":   floor,
			"ceiling_price": ceiling,
		}).Error
}

func (s *Store) AddCollectionVolume(address string, delta decimal.Decimal) error {
	collection, err := s.Collection(address)
	if err != nil || collection == nil {
		return err
	}
	return s.db.Model(&models.Collection{}).Where("address = ?", address).
		Update("volume_overall", collection.VolumeOverall.Add(delta)).Error
}

func (s *Store) UpdateCollectionMeta(address string, enabled bool, royalty decimal.Decimal, owner string, isERC1155 bool) error {
	return s.db.Model(&models.Collection{}).Where("address = ?", address).
		Updates(map[string]interface{}{
			"trading_enabled": enabled,
			"royalty":         royalty,
			"owner":           owner,
			"is_erc1155":      isERC1155,
		}).Error
}

/* Tokens */

func (s *Store) Token(id string) (*models.Token, error) {
	var token models.Token
	err := s.db.Where("id = ?", id).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token %s: %w", id, err)
	}
	return &token, nil
}

func (s *Store) CreateToken(token *models.Token) error {
	return s.db.Create(token).Error
}

func (s *Store) UpdateTokenAsk(id string, ask decimal.Decimal) error {
	return s.db.Model(&models.Token{}).Where("id = ?", id).
		Update("current_ask", ask).Error
}

func (s *Store) UpdateTokenBidRange(id string, lowest, highest decimal.Decimal) error {
	return s.db.Model(&models.Token{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"lowest_bid":  lowest,
			"highest_bid": highest,
		}).Error
}

/* Asks */

// ReplaceAsk installs a token's new current listing, displacing any previous
// one. The ask table holds at most one row per token.
func (s *Store) ReplaceAsk(ask *models.Ask) error {
	if err := s.DeleteAsk(ask.TokenID); err != nil {
		return err
	}
	return s.db.Create(ask).Error
}

func (s *Store) DeleteAsk(tokenID string) error {
	return s.db.Where("token_id = ?", tokenID).Delete(&models.Ask{}).Error
}

func (s *Store) OpenAsksByCollection(collectionID string) ([]models.Ask, error) {
	var asks []models.Ask
	err := s.db.Where("collection_id = ?", collectionID).Find(&asks).Error
	return asks, err
}

/* Ask histories */

func (s *Store) AppendAskHistory(entry *models.AskHistory) error {
	return s.db.Create(entry).Error
}

// FindOpenAskHistory locates the unaccepted listing record a purchase is
// filling, most recent first when several match.
func (s *Store) FindOpenAskHistory(tokenID string, value decimal.Decimal, listingHash string) (*models.AskHistory, error) {
	var entry models.AskHistory
	err := s.db.Where("token_id = ? AND value = ? AND accepted = 0 AND listing_hash = ?",
		tokenID, value, listingHash).
		Order("timestamp DESC").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open ask history for %s: %w", tokenID, err)
	}
	return &entry, nil
}

func (s *Store) MarkAskHistoryAccepted(id uint) error {
	return s.db.Model(&models.AskHistory{}).Where("id = ?", id).
		Update("accepted", 1).Error
}

/* Bids */

func (s *Store) CreateBid(bid *models.Bid) error {
	return s.db.Create(bid).Error
}

// FindBidForAccept matches the bid an acceptance consumed: most recent
// first. Cancellation deliberately uses the opposite tie-break, see
// FindBidForCancel.
func (s *Store) FindBidForAccept(tokenID, buyer string, value decimal.Decimal, offerHash string) (*models.Bid, error) {
	return s.findBid(tokenID, buyer, value, offerHash, "timestamp DESC")
}

// FindBidForCancel matches the bid a cancellation removed: earliest first.
// The asymmetry with FindBidForAccept is deliberate, kept for parity with
// historical data.
func (s *Store) FindBidForCancel(tokenID, buyer string, value decimal.Decimal, offerHash string) (*models.Bid, error) {
	return s.findBid(tokenID, buyer, value, offerHash, "timestamp ASC")
}

func (s *Store) findBid(tokenID, buyer string, value decimal.Decimal, offerHash, order string) (*models.Bid, error) {
	var bid models.Bid
	err := s.db.Where("token_id = ? AND buyer = ? AND value = ? AND offer_hash = ?",
		tokenID, buyer, value, offerHash).
		Order(order).First(&bid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find bid for %s: %w", tokenID, err)
	}
	return &bid, nil
}

func (s *Store) Bid(id string) (*models.Bid, error) {
	var bid models.Bid
	err := s.db.Where("id = ?", id).First(&bid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bid %s: %w", id, err)
	}
	return &bid, nil
}

func (s *Store) DeleteBid(id string) error {
	return s.db.Where("id = ?", id).Delete(&models.Bid{}).Error
}

func (s *Store) BidsByToken(tokenID string) ([]models.Bid, error) {
	var bids []models.Bid
	err := s.db.Where("token_id = ?", tokenID).Find(&bids).Error
	return bids, err
}

/* Fills */

func (s *Store) CreateFill(fill *models.Fill) error {
	return s.db.Create(fill).Error
}

func (s *Store) Fill(id string) (*models.Fill, error) {
	var fill models.Fill
	err := s.db.Where("id = ?", id).First(&fill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load fill %s: %w", id, err)
	}
	return &fill, nil
}

/* Fungible trades */

func (s *Store) CreateFungibleTrade(trade *models.FungibleTrade) error {
	return s.db.Create(trade).Error
}

func (s *Store) FungibleTrade(tradeHash string) (*models.FungibleTrade, error) {
	var trade models.FungibleTrade
	err := s.db.Where("trade_hash = ?", tradeHash).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load fungible trade %s: %w", tradeHash, err)
	}
	return &trade, nil
}

func (s *Store) UpdateFungibleTradeFill(tradeHash string, remaining decimal.Decimal, status models.TradeStatus) error {
	return s.db.Model(&models.FungibleTrade{}).Where("trade_hash = ?", tradeHash).
		Updates(map[string]interface{}{
			"remaining_quantity": remaining,
			"status":             status,
		}).Error
}

func (s *Store) SetFungibleTradeStatus(tradeHash string, status models.TradeStatus) error {
	return s.db.Model(&models.FungibleTrade{}).Where("trade_hash = ?", tradeHash).
		Update("status", status).Error
}

func (s *Store) OpenSellTradesByCollection(collectionID string) ([]models.FungibleTrade, error) {
	var trades []models.FungibleTrade
	err := s.db.Where("collection_id = ? AND side = ? AND status IN ?",
		collectionID, models.TradeSideSell,
		[]models.TradeStatus{models.TradeStatusOpen, models.TradeStatusPartial}).
		Find(&trades).Error
	return trades, err
}

func (s *Store) OpenTradesByToken(tokenID string) ([]models.FungibleTrade, error) {
	var trades []models.FungibleTrade
	err := s.db.Where("token_id = ? AND status IN ?",
		tokenID,
		[]models.TradeStatus{models.TradeStatusOpen, models.TradeStatusPartial}).
		Find(&trades).Error
	return trades, err
}

/* Processed events */

func (s *Store) HasProcessedEvent(id string) (bool, error) {
	var count int64
	err := s.db.Model(&models.ProcessedEvent{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check processed event %s: %w", id, err)
	}
	return count > 0, nil
}

func (s *Store) InsertProcessedEvent(event *models.ProcessedEvent) error {
	return s.db.Create(event).Error
}

// InsertProcessedEventNoChain is the degraded fallback used when the
// chain-scoped insert fails (schema drift tolerance).
func (s *Store) InsertProcessedEventNoChain(event *models.ProcessedEvent) error {
	return s.db.Exec(
		`INSERT INTO processed_events (id, block_number, timestamp) VALUES (?, ?, ?)`,
		event.ID, event.BlockNumber, event.Timestamp,
	).Error
}

/* Analytics */

func (s *Store) InsertActivity(entry *models.ActivityHistory) error {
	return s.db.Create(entry).Error
}

func (s *Store) TraderStat(address, chainName string) (*models.TraderStat, error) {
	var stat models.TraderStat
	err := s.db.Where("address = ? AND chain_name = ?", address, chainName).First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

func (s *Store) SaveTraderStat(stat *models.TraderStat) error {
	return s.db.Save(stat).Error
}

/* Game results */

func (s *Store) UpsertGameResult(result *models.GameResult) error {
	existing := &models.GameResult{}
	err := s.db.Where("game_id = ?", result.GameID).First(existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(result).Error
	}
	if err != nil {
		return err
	}
	return s.db.Model(&models.GameResult{}).Where("game_id = ?", result.GameID).
		Updates(map[string]interface{}{
			"winner":           result.Winner,
			"timestamp":        result.Timestamp,
			"transaction_hash": result.TransactionHash,
		}).Error
}
