package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Collection represents an NFT contract observed on a marketplace. Rows are
// created lazily on the first event that references the contract.
// FloorPrice/CeilingPrice are the min/max over currently-open asks (or open
// SELL fungible trades for ERC-1155 collections); zero when none exist.
type Collection struct {
	Address        string          `gorm:"primaryKey;size:42" json:"address"`
	ChainName      string          `gorm:"not null;size:32;index" json:"chain_name"`
	FloorPrice     decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"floor_price"`
	CeilingPrice   decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"ceiling_price"`
	VolumeOverall  decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"volume_overall"`
	TradingEnabled bool            `gorm:"default:false" json:"trading_enabled"`
	Royalty        decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"royalty"`
	Owner          string          `gorm:"size:42" json:"owner"`
	IsERC1155      bool            `gorm:"default:false" json:"is_erc1155"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Relationships
	Tokens []Token `gorm:"foreignKey:CollectionID" json:"tokens,omitempty"`
}

// Token is one token within a collection, keyed by "<collection>-<number>".
// CurrentAsk mirrors the token's single open Ask; LowestBid/HighestBid are
// the extremes over its open Bid rows, zero when none exist.
type Token struct {
	ID           string          `gorm:"primaryKey" json:"id"` // "<collection>-<tokenNumber>"
	CollectionID string          `gorm:"not null;size:42;index" json:"collection_id"`
	TokenNumber  decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"token_number"`
	CurrentAsk   decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"current_ask"`
	LowestBid    decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"lowest_bid"`
	HighestBid   decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"highest_bid"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	// Relationships
	Collection Collection `gorm:"foreignKey:CollectionID" json:"-"`
}

// TokenID builds the canonical token key.
func TokenID(collection string, tokenNumber decimal.Decimal) string {
	return collection + "-" + tokenNumber.String()
}

// TableName methods
func (Collection) TableName() string { return "collections" }
func (Token) TableName() string      { return "tokens" }
