package models

/*
Marketplace Indexer Database Models

This package contains all database models organized by domain:

- chain.go      - Chain checkpoint and cumulative counters
- collection.go - Collection and Token models
- orders.go     - Ask, AskHistory, Bid and Fill models
- trade.go      - FungibleTrade model with status enums
- activity.go   - ActivityHistory, TraderStat, ProcessedEvent and GameResult
- utils.go      - Shared utility functions

To add new models:
1. Create a new file for your domain (e.g., holders.go)
2. Define your models with appropriate GORM tags
3. Add TableName() methods if needed
4. Include the models in database.AutoMigrate()

Monetary columns are numeric(78,0): raw smallest-denomination chain amounts
(up to 256-bit), compared and summed exactly via shopspring/decimal.
*/
