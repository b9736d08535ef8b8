package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atharvakonge/coin-portfolio-tracker/internal/market"
	"github.com/atharvakonge/coin-portfolio-tracker/internal/models"
	"github.com/shopspring/decimal"
)

func waitCalled(t *testing.T, m *fakeMarket) {
	t.Helper()
	select {
	case <-m.called:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a market fetch")
	}
}

func TestRefreshOnce_ReplacesListAndReprices(t *testing.T) {
	ctx := context.Background()
	m := newFakeMarket(
		marketResponse{coins: []models.Coin{coin("bitcoin", 50000), coin("ethereum", 3000)}},
		marketResponse{coins: []models.Coin{coin("ethereum", 3100), coin("bitcoin", 60000)}},
	)
	tr, store, clock := newTestTracker(t, m)

	coins, err := tr.Prices.RefreshOnce(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(coins) != 2 || coins[0].ID != "bitcoin" {
		t.Fatalf("Expected [bitcoin ethereum], got %+v", coins)
	}
	if !tr.State.LastUpdated().Equal(clock.Now()) {
		t.Errorf("Expected lastUpdated %v, got %v", clock.Now(), tr.State.LastUpdated())
	}

	btc, _ := tr.Prices.Coin("bitcoin")
	tr.Portfolio.Add(ctx, btc, decimal.NewFromInt(2))
	writes := store.Sets()

	if _, err := tr.Prices.RefreshOnce(ctx); err != nil {
		t.Fatalf("Second refresh failed: %v", err)
	}
	coins = tr.State.Coins()
	if coins[0].ID != "ethereum" {
		t.Errorf("Expected market order to be kept, got %s first", coins[0].ID)
	}
	items := tr.Portfolio.Items()
	if !items[0].Value.Equal(decimal.NewFromInt(120000)) {
		t.Errorf("Expected repriced value 120000, got %s", items[0].Value)
	}
	if store.Sets() != writes+1 {
		t.Errorf("Expected repriced portfolio to be persisted once, got %d writes", store.Sets()-writes)
	}
}

func TestRefreshOnce_HoldingMissingFromListKeepsPrice(t *testing.T) {
	ctx := context.Background()
	m := newFakeMarket(
		marketResponse{coins: []models.Coin{coin("bitcoin", 50000), coin("ethereum", 3000)}},
		marketResponse{coins: []models.Coin{coin("bitcoin", 70000)}},
	)
	tr, _, _ := newTestTracker(t, m)

	tr.Prices.RefreshOnce(ctx)
	btc, _ := tr.Prices.Coin("bitcoin")
	eth, _ := tr.Prices.Coin("ethereum")
	tr.Portfolio.Add(ctx, btc, decimal.NewFromInt(1))
	tr.Portfolio.Add(ctx, eth, decimal.NewFromInt(2))

	if _, err := tr.Prices.RefreshOnce(ctx); err != nil {
		t.Fatalf("Second refresh failed: %v", err)
	}

	items := tr.Portfolio.Items()
	if !items[0].CurrentPrice.Equal(decimal.NewFromInt(70000)) {
		t.Errorf("Expected bitcoin repriced to 70000, got %s", items[0].CurrentPrice)
	}
	if !items[1].CurrentPrice.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("Expected ethereum to keep 3000, got %s", items[1].CurrentPrice)
	}
	if !items[1].Value.Equal(decimal.NewFromInt(6000)) {
		t.Errorf("Expected ethereum value 6000, got %s", items[1].Value)
	}
}

func TestRefreshOnce_EmptyListKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	m := newFakeMarket(
		marketResponse{coins: []models.Coin{coin("bitcoin", 50000)}},
		marketResponse{coins: nil},
	)
	tr, _, _ := newTestTracker(t, m)

	tr.Prices.RefreshOnce(ctx)
	before := tr.State.LastUpdated()

	if _, err := tr.Prices.RefreshOnce(ctx); err == nil {
		t.Fatal("Expected an empty list to fail the refresh")
	}
	if n := len(tr.State.Coins()); n != 1 {
		t.Errorf("Expected previous coin list to stay, got %d coins", n)
	}
	if !tr.State.LastUpdated().Equal(before) {
		t.Error("Expected lastUpdated unchanged")
	}
	if tr.State.LastError() == "" {
		t.Error("Expected lastError to be set")
	}
}

func TestRefreshOnce_FailureKeepsState(t *testing.T) {
	ctx := context.Background()
	fetchErr := &market.FetchError{StatusCode: 429, Message: "market data request failed with status 429"}
	m := newFakeMarket(
		marketResponse{coins: []models.Coin{coin("bitcoin", 50000)}},
		marketResponse{err: fetchErr},
	)
	tr, _, _ := newTestTracker(t, m)

	tr.Prices.RefreshOnce(ctx)
	before := tr.State.Snapshot()

	_, err := tr.Prices.RefreshOnce(ctx)
	var fe *market.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Expected FetchError, got %v", err)
	}

	after := tr.State.Snapshot()
	if len(after.Coins) != 1 || !after.Coins[0].CurrentPrice.Equal(before.Coins[0].CurrentPrice) {
		t.Errorf("Expected coin list unchanged, got %+v", after.Coins)
	}
	if !after.LastUpdated.Equal(before.LastUpdated) {
		t.Error("Expected lastUpdated unchanged")
	}
	if after.LastError != fetchErr.Message {
		t.Errorf("Expected lastError %q, got %q", fetchErr.Message, after.LastError)
	}
}

func TestRefreshOnce_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	m := newFakeMarket(
		marketResponse{coins: []models.Coin{coin("bitcoin", 50000)}},
		marketResponse{err: errors.New("network down")},
	)
	tr, _, _ := newTestTracker(t, m)

	events, cancel := tr.State.Subscribe()
	defer cancel()

	tr.Prices.RefreshOnce(ctx)
	tr.Prices.RefreshOnce(ctx)

	ev := <-events
	if ev.Kind != EventCoinsRefreshed || len(ev.Coins) != 1 {
		t.Errorf("Expected refreshed event with 1 coin, got %+v", ev)
	}
	ev = <-events
	if ev.Kind != EventRefreshFailed || ev.Message != "network down" {
		t.Errorf("Expected failure event, got %+v", ev)
	}
}

func TestRefreshOnce_DropsRepriceAfterLogout(t *testing.T) {
	ctx := context.Background()
	m := newFakeMarket(marketResponse{coins: []models.Coin{coin("bitcoin", 60000)}})
	tr, _, _ := newTestTracker(t, m)

	tr.Auth.Login(ctx, "admin", "admin123")
	tr.Portfolio.Add(ctx, coin("bitcoin", 50000), decimal.NewFromInt(1))

	m.release = make(chan struct{})
	done := make(chan struct{})
	go func() {
		tr.Prices.RefreshOnce(ctx)
		close(done)
	}()

	waitCalled(t, m)
	tr.Auth.Logout(ctx)
	close(m.release)
	<-done

	if c, _ := tr.Prices.Coin("bitcoin"); !c.CurrentPrice.Equal(decimal.NewFromInt(60000)) {
		t.Errorf("Expected coin list to be updated, got %s", c.CurrentPrice)
	}
	items := tr.Portfolio.Items()
	if !items[0].CurrentPrice.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("Expected holding price untouched after logout, got %s", items[0].CurrentPrice)
	}
}

func TestCoin_Unknown(t *testing.T) {
	tr, _, _ := newTestTracker(t, newFakeMarket(marketResponse{}))

	if _, err := tr.Prices.Coin("bitcoin"); !errors.Is(err, ErrUnknownCoin) {
		t.Errorf("Expected ErrUnknownCoin, got %v", err)
	}
}

func TestPoller_WaitsThenRefreshes(t *testing.T) {
	ctx := context.Background()
	m := newFakeMarket(
		marketResponse{err: errors.New("network down")},
		marketResponse{coins: []models.Coin{coin("bitcoin", 50000)}},
	)
	tr, _, clock := newTestTracker(t, m)

	if !tr.Prices.StartPolling(ctx) {
		t.Fatal("Expected polling to start")
	}
	defer tr.Prices.StopPolling()

	if tr.Prices.StartPolling(ctx) {
		t.Error("Expected second start to be ignored")
	}

	clock.BlockUntil(1)
	if m.Calls() != 0 {
		t.Errorf("Expected no fetch before the first interval, got %d", m.Calls())
	}

	// first cycle fails, loop keeps going
	clock.Advance(DefaultPollInterval)
	waitCalled(t, m)
	clock.BlockUntil(1)
	if tr.State.LastError() != "network down" {
		t.Errorf("Expected lastError from failed cycle, got %q", tr.State.LastError())
	}

	clock.Advance(DefaultPollInterval)
	waitCalled(t, m)
	clock.BlockUntil(1)
	if n := len(tr.State.Coins()); n != 1 {
		t.Errorf("Expected 1 coin after second cycle, got %d", n)
	}
	if tr.State.LastError() != "" {
		t.Errorf("Expected lastError cleared, got %q", tr.State.LastError())
	}
}

func TestPoller_Stop(t *testing.T) {
	ctx := context.Background()
	tr, _, clock := newTestTracker(t, newFakeMarket(marketResponse{}))
	poller := tr.Prices.poller

	tr.Prices.StartPolling(ctx)
	clock.BlockUntil(1)
	tr.Prices.StopPolling()

	if poller.Running() {
		t.Error("Expected poller to be stopped")
	}
	// stopping twice is harmless and the loop can be started again
	tr.Prices.StopPolling()
	if !tr.Prices.StartPolling(ctx) {
		t.Error("Expected restart after stop")
	}
	tr.Prices.StopPolling()
}

func TestPoller_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr, _, clock := newTestTracker(t, newFakeMarket(marketResponse{}))
	poller := tr.Prices.poller

	tr.Prices.StartPolling(ctx)
	clock.BlockUntil(1)
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for poller.Running() {
		if time.Now().After(deadline) {
			t.Fatal("Expected poller to exit after context cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
