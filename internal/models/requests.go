package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoginRequest - what client sends to log in
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AddItemRequest - what client sends to add a coin to the portfolio.
// Quantity is validated by the portfolio service, not by binding.
type AddItemRequest struct {
	CoinID   string          `json:"coinId" binding:"required"`
	Quantity decimal.Decimal `json:"quantity"`
}

// UpdateItemRequest tops up (or reduces) an existing holding by Delta.
type UpdateItemRequest struct {
	Delta decimal.Decimal `json:"delta"`
}

// CoinsResponse - what we send back for the market list
type CoinsResponse struct {
	Coins       []Coin     `json:"coins"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
}

// PortfolioResponse - what we send back for the holdings list
type PortfolioResponse struct {
	Items             []PortfolioItem `json:"items"`
	TotalValue        decimal.Decimal `json:"totalValue"`
	TotalValueDisplay string          `json:"totalValueDisplay"`
}
