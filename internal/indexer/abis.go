package indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract ABIs for the event sources. Event parameters are unindexed, so
// every field is carried in the log data; topic0 identifies the event kind.

const marketplaceABI = `[
	{"type":"event","name":"TokenListed","anonymous":false,"inputs":[
		{"name":"token","type":"address"},{"name":"id","type":"uint256"},
		{"name":"price","type":"uint256"},{"name":"expiry","type":"uint256"},
		{"name":"listingHash","type":"bytes32"},{"name":"timestamp","type":"uint256"}]},
	{"type":"event","name":"TokenDelisted","anonymous":false,"inputs":[
		{"name":"token","type":"address"},{"name":"id","type":"uint256"},
		{"name":"listingHash","type":"bytes32"},{"name":"timestamp","type":"uint256"}]},
	{"type":"event","name":"TokenPurchased","anonymous":false,"inputs":[
		{"name":"oldOwner","type":"address"},{"name":"newOwner","type":"address"},
		{"name":"price","type":"uint256"},{"name":"collection","type":"address"},
		{"name":"tokenId","type":"uint256"},{"name":"tradeHash","type":"bytes32"}]},
	{"type":"event","name":"BidPlaced","anonymous":false,"inputs":[
		{"name":"token","type":"address"},{"name":"id","type":"uint256"},
		{"name":"price","type":"uint256"},{"name":"buyer","type":"address"},
		{"name":"expiry","type":"uint256"},{"name":"offerHash","type":"bytes32"},
		{"name":"timestamp","type":"uint256"},{"name":"potentialSeller","type":"address"}]},
	{"type":"event","name":"OfferPlaced","anonymous":false,"inputs":[
		{"name":"token","type":"address"},{"name":"id","type":"uint256"},
		{"name":"price","type":"uint256"},{"name":"buyer","type":"address"},
		{"name":"expiry","type":"uint256"},{"name":"offerHash","type":"bytes32"},
		{"name":"timestamp","type":"uint256"},{"name":"potentialSeller","type":"address"}]},
	{"type":"event","name":"BidCancelled","anonymous":false,"inputs":[
		{"name":"token","type":"address"},{"name":"id","type":"uint256"},
		{"name":"price","type":"uint256"},{"name":"buyer","type":"address"},
		{"name":"offerHash","type":"bytes32"},{"name":"timestamp","type":"uint256"}]},
	{"type":"event","name":"OfferCancelled","anonymous":false,"inputs":[
		{"name":"token","type":"address"},{"name":"id","type":"uint256"},
		{"name":"price","type":"uint256"},{"name":"buyer","type":"address"},
		{"name":"offerHash","type":"bytes32"},{"name":"timestamp","type":"uint256"}]},
	{"type":"event","name":"CollectionModified","anonymous":false,"inputs":[
		{"name":"token","type":"address"},{"name":"enabled","type":"bool"},
		{"name":"collectionOwner","type":"address"},{"name":"royalty","type":"uint256"},
		{"name":"isERC1155","type":"bool"},{"name":"timestamp","type":"uint256"}]},
	{"type":"function","name":"listToken","stateMutability":"nonpayable","inputs":[
		{"name":"token","type":"address"},{"name":"id","type":"uint256"},
		{"name":"price","type":"uint256"},{"name":"expiry","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"delistToken","stateMutability":"nonpayable","inputs":[
		{"name":"token","type":"address"},{"name":"id","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"fulfillListing","stateMutability":"payable","inputs":[
		{"name":"token","type":"address"},{"name":"id","type":"uint256"},
		{"name":"listingHash","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"makeOffer","stateMutability":"payable","inputs":[
		{"name":"token","type":"address"},{"name":"id","type":"uint256"},
		{"name":"expiry","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"cancelOffer","stateMutability":"nonpayable","inputs":[
		{"name":"token","type":"address"},{"name":"id","type":"uint256"},
		{"name":"offerHash","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"acceptOffer","stateMutability":"nonpayable","inputs":[
		{"name":"token","type":"address"},{"name":"id","type":"uint256"},
		{"name":"offerHash","type":"bytes32"}],"outputs":[]}
]`

const fungibleMarketplaceABI = `[
	{"type":"event","name":"TradeOpened","anonymous":false,"inputs":[
		{"name":"tradeHash","type":"bytes32"},{"name":"token","type":"address"},
		{"name":"id","type":"uint256"},{"name":"quantity","type":"uint256"},
		{"name":"price","type":"uint256"},{"name":"maker","type":"address"},
		{"name":"expiry","type":"uint256"},{"name":"tradeFlags","type":"uint8"},
		{"name":"timestamp","type":"uint256"}]},
	{"type":"event","name":"TradeAccepted","anonymous":false,"inputs":[
		{"name":"tradeHash","type":"bytes32"},{"name":"token","type":"address"},
		{"name":"id","type":"uint256"},{"name":"quantity","type":"uint256"},
		{"name":"price","type":"uint256"},{"name":"oldOwner","type":"address"},
		{"name":"newOwner","type":"address"},{"name":"timestamp","type":"uint256"}]},
	{"type":"event","name":"TradeCancelled","anonymous":false,"inputs":[
		{"name":"tradeHash","type":"bytes32"},{"name":"token","type":"address"},
		{"name":"id","type":"uint256"},{"name":"timestamp","type":"uint256"}]},
	{"type":"function","name":"openTrade","stateMutability":"payable","inputs":[
		{"name":"token","type":"address"},{"name":"id","type":"uint256"},
		{"name":"quantity","type":"uint256"},{"name":"price","type":"uint256"},
		{"name":"expiry","type":"uint256"},{"name":"tradeFlags","type":"uint8"}],"outputs":[]},
	{"type":"function","name":"cancelTrade","stateMutability":"nonpayable","inputs":[
		{"name":"tradeHash","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"acceptTrade","stateMutability":"payable","inputs":[
		{"name":"tradeHash","type":"bytes32"},{"name":"quantity","type":"uint256"}],"outputs":[]}
]`

const gameABI = `[
	{"type":"event","name":"WinnerSet","anonymous":false,"inputs":[
		{"name":"gameId","type":"uint256"},{"name":"winner","type":"address"},
		{"name":"timestamp","type":"uint256"}]},
	{"type":"function","name":"setWinner","stateMutability":"nonpayable","inputs":[
		{"name":"gameId","type":"uint256"},{"name":"winner","type":"address"}],"outputs":[]}
]`

// Trade flag bits packed into TradeOpened.tradeFlags.
const (
	tradeFlagSellSide     = 1 << 0
	tradeFlagPartialFills = 1 << 1
	tradeFlagEscrowed     = 1 << 2
)

// ParsedABIs holds the parsed contract ABIs used by one chain pipeline.
type ParsedABIs struct {
	Marketplace abi.ABI
	Fungible    abi.ABI
	Game        abi.ABI
}

// ParseABIs parses the embedded contract ABIs.
func ParseABIs() (*ParsedABIs, error) {
	market, err := abi.JSON(strings.NewReader(marketplaceABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse marketplace abi: %w", err)
	}
	fungible, err := abi.JSON(strings.NewReader(fungibleMarketplaceABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse fungible marketplace abi: %w", err)
	}
	game, err := abi.JSON(strings.NewReader(gameABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse game abi: %w", err)
	}
	return &ParsedABIs{Marketplace: market, Fungible: fungible, Game: game}, nil
}
