package models

import "github.com/shopspring/decimal"

// PortfolioItem is a holding of a single coin. Name, Symbol and ImageURL are
// copied from the coin when the item is added.
type PortfolioItem struct {
	CoinID       string          `json:"coinId"`
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	ImageURL     string          `json:"imageUrl"`
	Quantity     decimal.Decimal `json:"quantity"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	Value        decimal.Decimal `json:"value"`
}

// NewPortfolioItem builds a holding of quantity units of c priced at c.CurrentPrice.
func NewPortfolioItem(c Coin, quantity decimal.Decimal) PortfolioItem {
	item := PortfolioItem{
		CoinID:   c.ID,
		Name:     c.Name,
		Symbol:   c.Symbol,
		ImageURL: c.ImageURL,
	}
	item.Set(quantity, c.CurrentPrice)
	return item
}

// Set updates quantity and price and recomputes Value.
func (p *PortfolioItem) Set(quantity, price decimal.Decimal) {
	p.Quantity = quantity
	p.CurrentPrice = price
	p.Value = quantity.Mul(price)
}

// Reprice keeps the quantity and moves the item to a new price.
func (p *PortfolioItem) Reprice(price decimal.Decimal) {
	p.Set(p.Quantity, price)
}

// TotalValue sums the value of all items.
func TotalValue(items []PortfolioItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Value)
	}
	return total
}
