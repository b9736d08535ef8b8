package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/atharvakonge/coin-portfolio-tracker/internal/db"
	"github.com/jonboulle/clockwork"
)

// Options tune a Tracker. Zero values pick production defaults.
type Options struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// Tracker wires the shared state to the three orchestrators.
type Tracker struct {
	State     *State
	Auth      *AuthService
	Prices    *PriceService
	Portfolio *PortfolioService
}

func New(store db.Store, client MarketClient, opts Options) *Tracker {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	state := NewState()
	portfolio := NewPortfolioService(state, store, opts.Logger.With(slog.String("component", "portfolio")))
	prices := NewPriceService(state, client, portfolio, opts.Clock, opts.Logger.With(slog.String("component", "prices")))
	prices.SetPoller(NewPoller(opts.Clock, opts.Interval, func(ctx context.Context) error {
		_, err := prices.RefreshOnce(ctx)
		return err
	}, opts.Logger.With(slog.String("component", "poller"))))

	return &Tracker{
		State:     state,
		Auth:      NewAuthService(state, store, opts.Logger.With(slog.String("component", "auth"))),
		Prices:    prices,
		Portfolio: portfolio,
	}
}

// Restore loads the persisted session and holdings. Run it once at startup
// before serving requests.
func (t *Tracker) Restore(ctx context.Context) {
	t.Auth.RestoreSession(ctx)
	t.Portfolio.LoadFromStorage(ctx)
}
