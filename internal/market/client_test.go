package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const samplePayload = `[
	{"id":"bitcoin","name":"Bitcoin","symbol":"btc","image":"https://img/btc.png","current_price":50000,"price_change_percentage_24h":2.5,"market_cap":980000000000},
	{"id":"ethereum","name":"Ethereum","symbol":"eth","image":"https://img/eth.png","current_price":3000.5,"price_change_percentage_24h":-1.25,"market_cap":360000000000}
]`

func TestFetchTopCoins(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"vs_currency": q.Get("vs_currency"),
			"order":       q.Get("order"),
			"per_page":    q.Get("per_page"),
			"page":        q.Get("page"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	coins, err := New(srv.URL, time.Second).FetchTopCoins(context.Background())
	if err != nil {
		t.Fatalf("FetchTopCoins: %v", err)
	}

	want := map[string]string{"vs_currency": "usd", "order": "market_cap_desc", "per_page": "10", "page": "1"}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}

	if len(coins) != 2 || coins[0].ID != "bitcoin" || coins[1].ID != "ethereum" {
		t.Fatalf("unexpected coins (order must be preserved): %+v", coins)
	}
	if !coins[1].CurrentPrice.Equal(decimal.RequireFromString("3000.5")) {
		t.Errorf("Expected ethereum price 3000.5, got %s", coins[1].CurrentPrice)
	}
}

func TestFetchTopCoinsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).FetchTopCoins(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fe.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", fe.StatusCode)
	}
	if fe.Message == "" {
		t.Errorf("expected a human readable message")
	}
}

func TestFetchTopCoinsMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":   `<html>oops</html>`,
		"missing id": `[{"name":"NoID","current_price":1}]`,
		"null":       `null`,
		"empty list": `[]`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, time.Second).FetchTopCoins(context.Background())
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FetchError, got %v", err)
			}
		})
	}
}

func TestFetchTopCoinsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, 50*time.Millisecond).FetchTopCoins(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fe.Message != "market data request timed out" {
		t.Errorf("Message = %q, want timeout message", fe.Message)
	}
}

func TestFetchTopCoinsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).FetchTopCoins(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
}
