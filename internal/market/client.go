// Package market fetches the top coins by market cap from the market data endpoint.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/atharvakonge/coin-portfolio-tracker/internal/models"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3/coins/markets"
	DefaultTimeout = 10 * time.Second

	// TopN is the number of coins requested per refresh.
	TopN = 10
)

// FetchError is returned for any failed refresh: transport failure, timeout,
// non-2xx status or an unreadable payload. Message is safe to show to the user.
type FetchError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client talks to the market data endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client. Empty baseURL and non-positive timeout fall back to the defaults.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchTopCoins issues a single GET and returns the coins in the order the endpoint sent them.
func (c *Client) FetchTopCoins(ctx context.Context) ([]models.Coin, error) {
	params := url.Values{
		"vs_currency": {"usd"},
		"order":       {"market_cap_desc"},
		"per_page":    {fmt.Sprint(TopN)},
		"page":        {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &FetchError{Message: "invalid market data request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("market data unavailable: %s", resp.Status),
		}
	}

	var coins []models.Coin
	if err := json.NewDecoder(resp.Body).Decode(&coins); err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Message: "malformed market data", Err: err}
	}
	if len(coins) == 0 {
		return nil, &FetchError{StatusCode: resp.StatusCode, Message: "malformed market data: empty list"}
	}
	for i, coin := range coins {
		if coin.ID == "" {
			return nil, &FetchError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("malformed market data: record %d has no id", i),
			}
		}
	}
	return coins, nil
}

func transportMessage(err error) string {
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &urlErr) && urlErr.Timeout()) {
		return "market data request timed out"
	}
	return "market data request failed"
}
