package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"marketplace-indexer/pkg/config"
)

// SetupRoutes configures the read-only HTTP surface. The indexer itself
// never serves writes; everything here reads indexed state.
func SetupRoutes(router *gin.Engine, chains []config.ChainConfig) {
	handlers := NewStatusHandlers(chains)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "marketplace-indexer",
			"version": "1.0.0",
		})
	})

	router.GET("/status", handlers.GetStatus)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/chains", handlers.GetChains)

		collections := v1.Group("/collections")
		{
			collections.GET("", GetCollections)
			collections.GET("/:address", GetCollection)
			collections.GET("/:address/tokens", GetCollectionTokens)
		}

		tokens := v1.Group("/tokens")
		{
			tokens.GET("/:tokenId", GetToken)
			tokens.GET("/:tokenId/bids", GetTokenBids)
			tokens.GET("/:tokenId/activity", GetTokenActivity)
		}

		v1.GET("/trades/:tradeHash", GetTrade)
	}

	admin := router.Group("/admin")
	{
		admin.GET("/health/database", CheckDatabaseHealth)
		admin.GET("/health/redis", CheckRedisHealth)
	}
}
