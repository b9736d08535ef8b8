package models

import "github.com/shopspring/decimal"

// Coin is one record of the market data top list. The JSON tags follow the
// market data endpoint so a response decodes straight into a []Coin.
type Coin struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Symbol           string          `json:"symbol"`
	ImageURL         string          `json:"image"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	ChangePercent24h decimal.Decimal `json:"price_change_percentage_24h"`
	MarketCap        decimal.Decimal `json:"market_cap"`
}

// FindCoin returns the coin with the given id.
func FindCoin(coins []Coin, id string) (Coin, bool) {
	for _, c := range coins {
		if c.ID == id {
			return c, true
		}
	}
	return Coin{}, false
}
