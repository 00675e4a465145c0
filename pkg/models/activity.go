package models

import (
	"github.com/shopspring/decimal"
)

// Activity kinds recorded in the activity history
const (
	ActivityTokenListed    = "TOKEN_LISTING"
	ActivityTokenDelisted  = "TOKEN_DELISTING"
	ActivityTokenPurchased = "TOKEN_PURCHASED"
	ActivityOfferPlaced    = "OFFER_PLACED"
	ActivityOfferCancelled = "OFFER_CANCELLED"
	ActivityOfferAccepted  = "OFFER_ACCEPTED"
	ActivityTradeOpened    = "TRADE_OPENED"
	ActivityTradeCancelled = "TRADE_CANCELLED"
	ActivityTradeAccepted  = "TRADE_ACCEPTED"
)

// ActivityHistory is the best-effort audit log behind the user activity
// panel. EventID is the raw event identity, so replays cannot duplicate rows.
type ActivityHistory struct {
	EventID      string          `gorm:"primaryKey" json:"event_id"`
	UserAddress  string          `gorm:"size:42;index" json:"user_address"`
	Activity     string          `gorm:"size:32;not null" json:"activity"`
	ChainName    string          `gorm:"size:32" json:"chain_name"`
	TokenAddress string          `gorm:"size:42;index" json:"token_address"`
	TokenNumber  decimal.Decimal `gorm:"type:numeric(78,0)" json:"token_number"`
	Amount       decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"amount"`
	Timestamp    int64           `gorm:"not null;index" json:"timestamp"`
}

// TraderStat keeps best-effort per-chain running counters for one address.
// These are plain increments and are not replay-idempotent; the activity
// history is the authoritative audit trail.
type TraderStat struct {
	Address        string          `gorm:"primaryKey;size:42" json:"address"`
	ChainName      string          `gorm:"primaryKey;size:32" json:"chain_name"`
	ListingCount   int64           `gorm:"default:0" json:"listing_count"`
	OfferCount     int64           `gorm:"default:0" json:"offer_count"`
	PurchaseCount  int64           `gorm:"default:0" json:"purchase_count"`
	SaleCount      int64           `gorm:"default:0" json:"sale_count"`
	PurchaseVolume decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"purchase_volume"`
	SaleVolume     decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"sale_volume"`
}

// ProcessedEvent is the idempotency ledger. Existence of a row with a given
// raw event identity ("txHash-txIndex-logIndex") means its reducer already
// ran; reducers execute only when the row is absent.
type ProcessedEvent struct {
	ID          string `gorm:"primaryKey" json:"id"`
	BlockNumber uint64 `gorm:"not null;index" json:"block_number"`
	Timestamp   int64  `json:"timestamp"`
	ChainName   string `gorm:"size:32" json:"chain_name"`
}

// GameResult records WinnerSet events from the auxiliary game contract.
// Independent of marketplace state.
type GameResult struct {
	GameID          string `gorm:"primaryKey" json:"game_id"`
	Winner          string `gorm:"size:42;index" json:"winner"`
	Timestamp       int64  `json:"timestamp"`
	TransactionHash string `gorm:"size:66" json:"transaction_hash"`
	ChainName       string `gorm:"size:32" json:"chain_name"`
}

// TableName methods
func (ActivityHistory) TableName() string { return "activity_histories" }
func (TraderStat) TableName() string      { return "trader_stats" }
func (ProcessedEvent) TableName() string  { return "processed_events" }
func (GameResult) TableName() string      { return "game_results" }
