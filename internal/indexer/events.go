package indexer

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// Event is one decoded, reorg-surviving contract event. Identity is the
// engine-wide idempotency key "txHash-txIndex-logIndex".
type Event struct {
	Name     string
	Source   string // which configured contract emitted it
	Log      types.Log
	Args     map[string]interface{}
	Identity string
}

// EventIdentity derives the idempotency key for a raw log.
func EventIdentity(log types.Log) string {
	return fmt.Sprintf("%s-%d-%d", log.TxHash.Hex(), log.TxIndex, log.Index)
}

// Addr returns an address argument in lowercase hex form.
func (e *Event) Addr(key string) string {
	if addr, ok := e.Args[key].(common.Address); ok {
		return strings.ToLower(addr.Hex())
	}
	return ""
}

// Big returns a uint256 argument, zero when absent.
func (e *Event) Big(key string) *big.Int {
	if v, ok := e.Args[key].(*big.Int); ok {
		return v
	}
	return new(big.Int)
}

// Decimal returns a uint256 argument as an exact decimal.
func (e *Event) Decimal(key string) decimal.Decimal {
	return decimal.NewFromBigInt(e.Big(key), 0)
}

// Int64 returns a uint256 argument truncated to int64 (timestamps et al).
func (e *Event) Int64(key string) int64 {
	return e.Big(key).Int64()
}

// Hash32 returns a bytes32 argument in 0x-prefixed hex form.
func (e *Event) Hash32(key string) string {
	if v, ok := e.Args[key].([32]byte); ok {
		return common.Hash(v).Hex()
	}
	return ""
}

// Bool returns a bool argument, false when absent.
func (e *Event) Bool(key string) bool {
	v, _ := e.Args[key].(bool)
	return v
}

// Flags returns a uint8 argument, zero when absent.
func (e *Event) Flags(key string) uint8 {
	v, _ := e.Args[key].(uint8)
	return v
}
