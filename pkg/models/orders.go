package models

import (
	"github.com/shopspring/decimal"
)

// FillType tells which side initiated a completed trade
type FillType string

const (
	FillTypeAsk   FillType = "ask"   // open listing bought outright
	FillTypeBid   FillType = "bid"   // open offer accepted by the owner
	FillTypeTrade FillType = "trade" // fungible trade (partial) acceptance
)

// Ask is the single open listing for a token. It is replaced wholesale on a
// new listing and deleted on delist or fill, so TokenID doubles as the key.
type Ask struct {
	TokenID         string          `gorm:"primaryKey" json:"token_id"`
	CollectionID    string          `gorm:"not null;size:42;index" json:"collection_id"`
	TokenNumber     decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"token_number"`
	Value           decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"value"`
	Timestamp       int64           `gorm:"not null" json:"timestamp"`
	TransactionHash string          `gorm:"size:66" json:"transaction_hash"`
	Lister          string          `gorm:"size:42" json:"lister"`
	ChainName       string          `gorm:"size:32" json:"chain_name"`
	ListingHash     string          `gorm:"size:66;index" json:"listing_hash"`
	Expiry          decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"expiry"`
}

// AskHistory is the append-only ledger of listing lifecycle transitions.
// Accepted flips 0 -> 1 exactly once, when the listing is filled; delistings
// append a value-zero row. Rows are never deleted.
type AskHistory struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	CollectionID    string          `gorm:"not null;size:42;index" json:"collection_id"`
	TokenNumber     decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"token_number"`
	TokenID         string          `gorm:"not null;index" json:"token_id"`
	Value           decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"value"`
	Timestamp       int64           `gorm:"not null;index" json:"timestamp"`
	Accepted        int             `gorm:"default:0" json:"accepted"`
	TransactionHash string          `gorm:"size:66" json:"transaction_hash"`
	Lister          string          `gorm:"size:42" json:"lister"`
	ChainName       string          `gorm:"size:32" json:"chain_name"`
	ListingHash     string          `gorm:"size:66;index" json:"listing_hash"`
	Expiry          decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"expiry"`
}

// Bid is an open offer on a token. Multiple bids may be open per token, one
// row per placement; deleted on cancellation or acceptance.
type Bid struct {
	ID              string          `gorm:"primaryKey" json:"id"` // "<tokenID>-<buyer>-<txHash>"
	CollectionID    string          `gorm:"not null;size:42;index" json:"collection_id"`
	TokenNumber     decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"token_number"`
	TokenID         string          `gorm:"not null;index" json:"token_id"`
	Value           decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"value"`
	Timestamp       int64           `gorm:"not null;index" json:"timestamp"`
	Buyer           string          `gorm:"size:42;index" json:"buyer"`
	TransactionHash string          `gorm:"size:66" json:"transaction_hash"`
	Expiry          decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"expiry"`
	OfferHash       string          `gorm:"size:66;index" json:"offer_hash"`
	ChainName       string          `gorm:"size:32" json:"chain_name"`
	Seller          string          `gorm:"size:42" json:"seller"`
}

// Fill is the append-only record of a consummated trade. Quantity is 1 for
// non-fungible fills and the accepted amount for fungible trade fills.
type Fill struct {
	ID           string          `gorm:"primaryKey" json:"id"`
	CollectionID string          `gorm:"not null;size:42;index" json:"collection_id"`
	TokenNumber  decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"token_number"`
	TokenID      string          `gorm:"not null;index" json:"token_id"`
	Value        decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"value"`
	Quantity     decimal.Decimal `gorm:"type:numeric(78,0);default:1" json:"quantity"`
	Timestamp    int64           `gorm:"not null;index" json:"timestamp"`
	Buyer        string          `gorm:"size:42;index" json:"buyer"`
	Seller       string          `gorm:"size:42;index" json:"seller"`
	Type         FillType        `gorm:"size:8;not null" json:"type"`
	ChainName    string          `gorm:"size:32" json:"chain_name"`
	TradeHash    string          `gorm:"size:66;index" json:"trade_hash"`
}

// TableName methods
func (Ask) TableName() string        { return "asks" }
func (AskHistory) TableName() string { return "ask_histories" }
func (Bid) TableName() string        { return "bids" }
func (Fill) TableName() string       { return "fills" }
