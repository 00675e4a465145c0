package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"marketplace-indexer/pkg/cache"
	"marketplace-indexer/pkg/config"
	"marketplace-indexer/pkg/database"
	"marketplace-indexer/pkg/models"
)

// StatusHandlers serves per-chain ingestion progress
type StatusHandlers struct {
	chains []config.ChainConfig
}

// NewStatusHandlers creates status handlers for the configured chains
func NewStatusHandlers(chains []config.ChainConfig) *StatusHandlers {
	return &StatusHandlers{chains: chains}
}

// chainProgress is one chain's entry in the /status response
type chainProgress struct {
	Chain      string `json:"chain"`
	LastBlock  uint64 `json:"last_block"`
	HeadBlock  uint64 `json:"head_block,omitempty"`
	CatchingUp bool   `json:"catching_up"`
	UpdatedAt  int64  `json:"updated_at,omitempty"`
}

// GetStatus reports ingestion progress for every configured chain. Progress
// comes from the redis status cache when available and falls back to the
// persisted checkpoints.
func (h *StatusHandlers) GetStatus(c *gin.Context) {
	progress := make([]chainProgress, 0, len(h.chains))

	for _, chain := range h.chains {
		entry := chainProgress{Chain: chain.Name}

		if cache.Ready() {
			if status, err := cache.GetChainStatus(chain.Name); err == nil {
				entry.LastBlock = status.LastBlock
				entry.HeadBlock = status.HeadBlock
				entry.CatchingUp = status.CatchingUp
				entry.UpdatedAt = status.UpdatedAt
				progress = append(progress, entry)
				continue
			}
		}

		var row models.Chain
		if err := database.GetDB().Where("name = ?", chain.Name).First(&row).Error; err == nil {
			entry.LastBlock = row.LastBlock
		}
		progress = append(progress, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    progress,
	})
}

// GetChains returns the persisted per-chain rows with checkpoint and
// aggregate trade counters
func (h *StatusHandlers) GetChains(c *gin.Context) {
	var chains []models.Chain

	if err := database.GetDB().Find(&chains).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch chains"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    chains,
	})
}

// GetCollections returns all indexed collections
func GetCollections(c *gin.Context) {
	var collections []models.Collection

	if err := database.GetDB().Find(&collections).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch collections"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    collections,
	})
}

// GetCollection returns a specific collection by contract address
func GetCollection(c *gin.Context) {
	address := c.Param("address")

	var collection models.Collection
	if err := database.GetDB().Where("address = ?", address).First(&collection).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Collection not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    collection,
	})
}

// GetCollectionTokens returns tokens of a collection, paginated
func GetCollectionTokens(c *gin.Context) {
	address := c.Param("address")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var tokens []models.Token
	err := database.GetDB().
		Where("collection_id = ?", address).
		Order("token_number asc").
		Limit(limit).
		Offset(offset).
		Find(&tokens).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tokens,
	})
}

// GetToken returns a token with its open ask, if any
func GetToken(c *gin.Context) {
	tokenID := c.Param("tokenId")

	var token models.Token
	if err := database.GetDB().Where("id = ?", tokenID).First(&token).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Token not found"})
		return
	}

	var ask models.Ask
	response := gin.H{"token": token}
	if err := database.GetDB().Where("token_id = ?", tokenID).First(&ask).Error; err == nil {
		response["ask"] = ask
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    response,
	})
}

// GetTokenBids returns the open bids on a token, best first
func GetTokenBids(c *gin.Context) {
	tokenID := c.Param("tokenId")

	var bids []models.Bid
	err := database.GetDB().
		Where("token_id = ?", tokenID).
		Order("value desc").
		Find(&bids).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bids"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    bids,
	})
}

// GetTokenActivity returns the recorded activity rows touching a token
func GetTokenActivity(c *gin.Context) {
	tokenID := c.Param("tokenId")

	var token models.Token
	if err := database.GetDB().Where("id = ?", tokenID).First(&token).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Token not found"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var activity []models.ActivityHistory
	err := database.GetDB().
		Where("token_address = ? AND token_number = ?", token.CollectionID, token.TokenNumber).
		Order("timestamp desc").
		Limit(limit).
		Find(&activity).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch activity"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    activity,
	})
}

// GetTrade returns a fungible trade with its fills
func GetTrade(c *gin.Context) {
	tradeHash := c.Param("tradeHash")

	var trade models.FungibleTrade
	if err := database.GetDB().Where("trade_hash = ?", tradeHash).First(&trade).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trade not found"})
		return
	}

	var fills []models.Fill
	database.GetDB().
		Where("trade_hash = ?", tradeHash).
		Order("timestamp asc").
		Find(&fills)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"trade": trade,
			"fills": fills,
		},
	})
}

// Admin health handlers

// CheckDatabaseHealth verifies database connectivity
func CheckDatabaseHealth(c *gin.Context) {
	if err := database.HealthCheck(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// CheckRedisHealth verifies redis connectivity
func CheckRedisHealth(c *gin.Context) {
	if !cache.Ready() {
		c.JSON(http.StatusOK, gin.H{"status": "disabled"})
		return
	}
	if err := cache.HealthCheck(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
