package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Chain tracks per-chain indexing progress and cumulative trade counters.
// LastBlock is the checkpoint: the last block whose events have been fully
// reduced into state.
type Chain struct {
	Name          string          `gorm:"primaryKey;size:32" json:"name"` // e.g. "polygon"
	ChainID       int64           `gorm:"not null" json:"chain_id"`
	StartBlock    uint64          `gorm:"not null" json:"start_block"`
	LastBlock     uint64          `gorm:"not null" json:"last_block"`
	TradeCount    int64           `gorm:"default:0" json:"trade_count"`
	VolumeOverall decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"volume_overall"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Chain) TableName() string { return "chains" }
