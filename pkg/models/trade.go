package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeStatus represents the lifecycle state of a fungible trade
type TradeStatus string

const (
	TradeStatusOpen      TradeStatus = "OPEN"
	TradeStatusPartial   TradeStatus = "PARTIAL"
	TradeStatusAccepted  TradeStatus = "ACCEPTED"
	TradeStatusCancelled TradeStatus = "CANCELLED"
)

// TradeSide represents the direction of a fungible trade
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// Open reports whether the trade still has fillable quantity.
func (s TradeStatus) Open() bool {
	return s == TradeStatusOpen || s == TradeStatusPartial
}

// FungibleTrade is a partially-fillable buy/sell order against a quantity of
// semi-fungible (ERC-1155) tokens, keyed by its on-chain trade hash.
// RemainingQuantity only ever decreases once the trade is open; status moves
// OPEN -> PARTIAL* -> ACCEPTED, or to CANCELLED from OPEN/PARTIAL.
type FungibleTrade struct {
	TradeHash         string          `gorm:"primaryKey;size:66" json:"trade_hash"`
	CollectionID      string          `gorm:"not null;size:42;index" json:"collection_id"`
	TokenNumber       decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"token_number"`
	TokenID           string          `gorm:"not null;index" json:"token_id"`
	Side              TradeSide       `gorm:"size:4;not null" json:"side"`
	Status            TradeStatus     `gorm:"size:9;not null;default:'OPEN';index" json:"status"`
	PricePerUnit      decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"price_per_unit"`
	TotalQuantity     decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"total_quantity"`
	RemainingQuantity decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"remaining_quantity"`
	AllowPartialFills bool            `gorm:"default:false" json:"allow_partial_fills"`
	IsEscrowed        bool            `gorm:"default:false" json:"is_escrowed"`
	Maker             string          `gorm:"size:42;index" json:"maker"`
	Expiry            decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"expiry"`
	Timestamp         int64           `gorm:"not null" json:"timestamp"`
	ChainName         string          `gorm:"size:32" json:"chain_name"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (FungibleTrade) TableName() string { return "fungible_trades" }
