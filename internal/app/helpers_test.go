package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/atharvakonge/coin-portfolio-tracker/internal/db"
	"github.com/atharvakonge/coin-portfolio-tracker/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func coin(id string, price int64) models.Coin {
	return models.Coin{
		ID:           id,
		Name:         id,
		Symbol:       id[:3],
		CurrentPrice: decimal.NewFromInt(price),
	}
}

// fakeMarket serves a scripted sequence of responses. The last entry repeats.
type fakeMarket struct {
	mu        sync.Mutex
	responses []marketResponse
	calls     int
	called    chan struct{}
	release   chan struct{}
}

type marketResponse struct {
	coins []models.Coin
	err   error
}

func newFakeMarket(responses ...marketResponse) *fakeMarket {
	return &fakeMarket{responses: responses, called: make(chan struct{}, 16)}
}

func (m *fakeMarket) FetchTopCoins(ctx context.Context) ([]models.Coin, error) {
	m.mu.Lock()
	i := m.calls
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	m.calls++
	resp := m.responses[i]
	release := m.release
	m.mu.Unlock()

	m.called <- struct{}{}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return resp.coins, resp.err
}

func (m *fakeMarket) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// countingStore wraps a store, counts writes and can be told to fail.
type countingStore struct {
	db.Store
	mu      sync.Mutex
	sets    int
	removes int
	failSet error
	failGet error
}

func (s *countingStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	err := s.failGet
	s.mu.Unlock()
	if err != nil {
		return "", false, err
	}
	return s.Store.Get(ctx, key)
}

func (s *countingStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.sets++
	err := s.failSet
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.Set(ctx, key, value)
}

func (s *countingStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	s.removes++
	s.mu.Unlock()
	return s.Store.Remove(ctx, key)
}

func (s *countingStore) Sets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

var errDiskFull = errors.New("disk full")

func newTestTracker(t *testing.T, market MarketClient) (*Tracker, *countingStore, clockwork.FakeClock) {
	t.Helper()
	store := &countingStore{Store: db.SetupTestStore(t)}
	clock := clockwork.NewFakeClock()
	tr := New(store, market, Options{Clock: clock, Logger: discardLogger()})
	return tr, store, clock
}
