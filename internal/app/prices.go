package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/atharvakonge/coin-portfolio-tracker/internal/market"
	"github.com/atharvakonge/coin-portfolio-tracker/internal/models"
	"github.com/jonboulle/clockwork"
)

var errEmptyMarketList = errors.New("market data returned no coins")

// MarketClient is the market data source.
type MarketClient interface {
	FetchTopCoins(ctx context.Context) ([]models.Coin, error)
}

// PriceService owns the coin list and pushes fresh prices into the portfolio.
type PriceService struct {
	state     *State
	client    MarketClient
	portfolio *PortfolioService
	clock     clockwork.Clock
	log       *slog.Logger
	poller    *Poller
}

func NewPriceService(state *State, client MarketClient, portfolio *PortfolioService, clock clockwork.Clock, log *slog.Logger) *PriceService {
	return &PriceService{
		state:     state,
		client:    client,
		portfolio: portfolio,
		clock:     clock,
		log:       log,
	}
}

// RefreshOnce fetches the top list once. On failure the previous list and
// every holding price stay as they were and the message is recorded for
// display.
func (p *PriceService) RefreshOnce(ctx context.Context) ([]models.Coin, error) {
	epoch := p.state.sessionEpoch()

	start := p.clock.Now()
	coins, err := p.client.FetchTopCoins(ctx)
	mtxRefreshDuration.Observe(p.clock.Since(start).Seconds())
	if err == nil && len(coins) == 0 {
		// an empty top list never replaces a good one
		err = errEmptyMarketList
	}
	if err != nil {
		mtxRefreshes.WithLabelValues("failure").Inc()
		p.state.setRefreshError(displayMessage(err))
		p.log.Warn("market data refresh failed", slog.Any("error", err))
		return nil, err
	}

	repriced := p.state.replaceCoins(coins, p.clock.Now(), epoch)
	mtxRefreshes.WithLabelValues("success").Inc()
	mtxCoins.Set(float64(len(coins)))
	p.log.Debug("market data refreshed", slog.Int("coins", len(coins)), slog.Int("repriced", repriced))

	if repriced > 0 {
		if err := p.portfolio.Persist(ctx); err != nil {
			p.log.Warn("could not persist repriced portfolio", slog.Any("error", err))
		}
	}
	return p.state.Coins(), nil
}

// Coin looks a coin up in the latest list.
func (p *PriceService) Coin(id string) (models.Coin, error) {
	c, ok := p.state.Coin(id)
	if !ok {
		return models.Coin{}, ErrUnknownCoin
	}
	return c, nil
}

// SetPoller attaches the recurring refresh loop.
func (p *PriceService) SetPoller(poller *Poller) { p.poller = poller }

// StartPolling starts the recurring refresh. It returns false when a loop is
// already running; the call is then ignored.
func (p *PriceService) StartPolling(ctx context.Context) bool {
	if p.poller == nil {
		return false
	}
	return p.poller.Start(ctx)
}

func (p *PriceService) StopPolling() {
	if p.poller != nil {
		p.poller.Stop()
	}
}

func displayMessage(err error) string {
	var fe *market.FetchError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}
