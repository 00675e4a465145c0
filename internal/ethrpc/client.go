package ethrpc

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"marketplace-indexer/pkg/cache"
)

// UnknownOwner is the sentinel counterparty recorded when the current token
// owner cannot be resolved on-chain.
const UnknownOwner = "unknown"

const erc721ABI = `[{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}]`

// Client wraps an EVM JSON-RPC connection for one chain. Block timestamps
// are memoized through the shared redis cache when it is available.
type Client struct {
	eth       *ethclient.Client
	chainName string
	chainID   *big.Int
	signer    types.Signer
	erc721    abi.ABI

	// fallback memo for when redis is down
	blockTimes map[uint64]int64
}

// Dial connects to the chain's RPC endpoint, retrying with a fixed wait.
func Dial(rpcURL, chainName string, chainID int64, retries int, wait time.Duration) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc721 abi: %w", err)
	}

	var eth *ethclient.Client
	for attempt := 0; ; attempt++ {
		eth, err = ethclient.Dial(rpcURL)
		if err == nil {
			break
		}
		if attempt >= retries {
			return nil, fmt.Errorf("failed to connect to %s rpc after %d attempts: %w", chainName, attempt+1, err)
		}
		logrus.WithFields(logrus.Fields{
			"chain":   chainName,
			"attempt": attempt + 1,
		}).Warnf("RPC dial failed, retrying in %s: %v", wait, err)
		time.Sleep(wait)
	}

	id := big.NewInt(chainID)
	return &Client{
		eth:        eth,
		chainName:  chainName,
		chainID:    id,
		signer:     types.LatestSignerForChainID(id),
		erc721:     parsed,
		blockTimes: make(map[uint64]int64),
	}, nil
}

// Head returns the current chain head block number.
func (c *Client) Head(ctx context.Context) (uint64, error) {
	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch chain head: %w", err)
	}
	return head, nil
}

// FilterLogs fetches all logs emitted by the given contract within the
// inclusive block range.
func (c *Client) FilterLogs(ctx context.Context, address common.Address, from, to uint64) ([]types.Log, error) {
	logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{address},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs for %s [%d,%d]: %w", address.Hex(), from, to, err)
	}
	return logs, nil
}

// BlockTime returns the timestamp of a block, memoized because the engine
// resolves the same block for every event it carries.
func (c *Client) BlockTime(ctx context.Context, block uint64) (int64, error) {
	if ts, ok := c.blockTimes[block]; ok {
		return ts, nil
	}
	if cache.Ready() {
		if ts, err := cache.GetBlockTimestamp(c.chainName, block); err == nil {
			c.blockTimes[block] = ts
			return ts, nil
		}
	}

	header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(block))
	if err != nil {
		return 0, fmt.Errorf("failed to fetch block %d: %w", block, err)
	}
	ts := int64(header.Time)

	c.blockTimes[block] = ts
	if cache.Ready() {
		if err := cache.CacheBlockTimestamp(c.chainName, block, ts); err != nil {
			logrus.WithField("chain", c.chainName).Warnf("Failed to cache block timestamp: %v", err)
		}
	}
	return ts, nil
}

// TxInfo returns the sender address and call data of a transaction.
func (c *Client) TxInfo(ctx context.Context, hash common.Hash) (string, []byte, error) {
	tx, _, err := c.eth.TransactionByHash(ctx, hash)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch transaction %s: %w", hash.Hex(), err)
	}
	from, err := types.Sender(c.signer, tx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to recover sender of %s: %w", hash.Hex(), err)
	}
	return strings.ToLower(from.Hex()), tx.Data(), nil
}

// TokenOwner resolves the current owner of a token via an eth_call to
// ownerOf. Best effort: any failure yields the UnknownOwner sentinel.
func (c *Client) TokenOwner(ctx context.Context, collection common.Address, tokenNumber *big.Int) string {
	data, err := c.erc721.Pack("ownerOf", tokenNumber)
	if err != nil {
		return UnknownOwner
	}

	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &collection, Data: data}, nil)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"chain":      c.chainName,
			"collection": collection.Hex(),
		}).Debugf("ownerOf call failed: %v", err)
		return UnknownOwner
	}

	out, err := c.erc721.Unpack("ownerOf", raw)
	if err != nil || len(out) == 0 {
		return UnknownOwner
	}
	owner, ok := out[0].(common.Address)
	if !ok {
		return UnknownOwner
	}
	return strings.ToLower(owner.Hex())
}

// ChainName returns the configured chain this client talks to.
func (c *Client) ChainName() string { return c.chainName }

// Close tears down the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}
