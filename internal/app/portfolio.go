package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/atharvakonge/coin-portfolio-tracker/internal/db"
	"github.com/atharvakonge/coin-portfolio-tracker/internal/models"
	"github.com/shopspring/decimal"
)

// PortfolioService owns the holdings and writes the full list to the store
// after every mutation. In-memory state is the source of truth for the
// running process; the store is best-effort durability.
type PortfolioService struct {
	state *State
	store db.Store
	log   *slog.Logger

	// persistMu orders mutate+write pairs so the store never ends up with
	// an older list than memory.
	persistMu sync.Mutex
}

func NewPortfolioService(state *State, store db.Store, log *slog.Logger) *PortfolioService {
	return &PortfolioService{state: state, store: store, log: log}
}

// Add puts quantity units of coin in the portfolio. A coin that is already
// held is overwritten, not accumulated.
func (s *PortfolioService) Add(ctx context.Context, coin models.Coin, quantity decimal.Decimal) (models.PortfolioItem, error) {
	if !quantity.IsPositive() {
		return models.PortfolioItem{}, ErrNonPositiveQuantity
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	item := models.NewPortfolioItem(coin, quantity)
	s.state.upsertItem(item)
	s.log.Info("portfolio item added",
		slog.String("coin", coin.ID),
		slog.String("quantity", quantity.String()),
	)
	return item, s.persistLocked(ctx)
}

// UpdateQuantity adds delta to the held quantity and reprices the item from
// the latest coin list. The result must stay above zero.
func (s *PortfolioService) UpdateQuantity(ctx context.Context, coinID string, delta decimal.Decimal) (models.PortfolioItem, error) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	item, err := s.state.updateItem(coinID, func(it *models.PortfolioItem, coins []models.Coin) error {
		q := it.Quantity.Add(delta)
		if !q.IsPositive() {
			return ErrNonPositiveQuantity
		}
		price := it.CurrentPrice
		if c, ok := models.FindCoin(coins, it.CoinID); ok {
			price = c.CurrentPrice
		}
		it.Set(q, price)
		return nil
	})
	if err != nil {
		return models.PortfolioItem{}, err
	}

	s.log.Info("portfolio item updated",
		slog.String("coin", coinID),
		slog.String("delta", delta.String()),
		slog.String("quantity", item.Quantity.String()),
	)
	return item, s.persistLocked(ctx)
}

// Remove deletes the holding if present. Removing an unknown coin is a no-op.
func (s *PortfolioService) Remove(ctx context.Context, coinID string) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if !s.state.removeItem(coinID) {
		return nil
	}
	s.log.Info("portfolio item removed", slog.String("coin", coinID))
	return s.persistLocked(ctx)
}

// LoadFromStorage replaces the in-memory holdings with the persisted list.
// Absent or unreadable data yields an empty portfolio.
func (s *PortfolioService) LoadFromStorage(ctx context.Context) []models.PortfolioItem {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	items := s.readStored(ctx)
	s.state.setItems(items)
	s.observe()
	return s.state.Items()
}

func (s *PortfolioService) Items() []models.PortfolioItem { return s.state.Items() }

// TotalValue is the sum of every holding's value, zero when empty.
func (s *PortfolioService) TotalValue() decimal.Decimal { return s.state.TotalValue() }

// Persist writes the current holdings. Used after refreshes reprice items.
func (s *PortfolioService) Persist(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.persistLocked(ctx)
}

func (s *PortfolioService) persistLocked(ctx context.Context) error {
	s.observe()

	items := s.state.Items()
	if items == nil {
		items = []models.PortfolioItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return &StorageError{Op: "encode", Key: db.KeyPortfolio, Err: err}
	}
	if err := s.store.Set(ctx, db.KeyPortfolio, string(data)); err != nil {
		mtxStorageErrors.WithLabelValues("set").Inc()
		return &StorageError{Op: "set", Key: db.KeyPortfolio, Err: err}
	}
	return nil
}

func (s *PortfolioService) readStored(ctx context.Context) []models.PortfolioItem {
	raw, ok, err := s.store.Get(ctx, db.KeyPortfolio)
	if err != nil {
		mtxStorageErrors.WithLabelValues("get").Inc()
		s.log.Warn("could not read portfolio", slog.Any("error", err))
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var stored []models.PortfolioItem
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.log.Warn("discarding unreadable portfolio", slog.Any("error", err))
		return nil
	}

	// One entry per coin, positive quantities only, values recomputed.
	items := make([]models.PortfolioItem, 0, len(stored))
	seen := make(map[string]bool, len(stored))
	for _, it := range stored {
		if it.CoinID == "" || seen[it.CoinID] || !it.Quantity.IsPositive() || it.CurrentPrice.IsNegative() {
			s.log.Warn("skipping invalid portfolio entry", slog.String("coin", it.CoinID))
			continue
		}
		seen[it.CoinID] = true
		it.Set(it.Quantity, it.CurrentPrice)
		items = append(items, it)
	}
	return items
}

func (s *PortfolioService) observe() {
	items := s.state.Items()
	mtxPortfolioItems.Set(float64(len(items)))
	mtxPortfolioValue.Set(models.TotalValue(items).InexactFloat64())
}
