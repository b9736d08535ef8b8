package app

import (
	"sync"
	"time"

	"github.com/atharvakonge/coin-portfolio-tracker/internal/models"
	"github.com/shopspring/decimal"
)

// EventKind names a change listeners can react to.
type EventKind string

const (
	EventCoinsRefreshed EventKind = "coins_refreshed"
	EventRefreshFailed  EventKind = "refresh_failed"
)

// Event is pushed to subscribers after a refresh attempt.
type Event struct {
	Kind        EventKind     `json:"kind"`
	Coins       []models.Coin `json:"coins"`
	LastUpdated time.Time     `json:"lastUpdated"`
	Message     string        `json:"message,omitempty"`
}

// Snapshot is a consistent copy of the whole state.
type Snapshot struct {
	Coins       []models.Coin
	LastUpdated time.Time
	LastError   string
	Session     models.Session
	Items       []models.PortfolioItem
}

// State is the container shared by the orchestrators. Reads are open to
// everyone; the unexported mutators are only called by the orchestrator
// that owns the data (auth: session, prices: coins, portfolio: items).
type State struct {
	mu          sync.RWMutex
	coins       []models.Coin
	lastUpdated time.Time
	lastError   string
	session     models.Session
	epoch       uint64 // bumped on every session change
	items       []models.PortfolioItem

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

func NewState() *State {
	return &State{subs: make(map[int]chan Event)}
}

func (s *State) Coins() []models.Coin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Coin(nil), s.coins...)
}

func (s *State) Coin(id string) (models.Coin, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.FindCoin(s.coins, id)
}

func (s *State) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

func (s *State) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *State) Session() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *State) Items() []models.PortfolioItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.PortfolioItem(nil), s.items...)
}

func (s *State) TotalValue() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.TotalValue(s.items)
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Coins:       append([]models.Coin(nil), s.coins...),
		LastUpdated: s.lastUpdated,
		LastError:   s.lastError,
		Session:     s.session,
		Items:       append([]models.PortfolioItem(nil), s.items...),
	}
}

// Subscribe registers a listener for refresh events. Delivery never blocks
// the publisher: a listener that falls behind misses events.
func (s *State) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 8)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *State) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// --- session (auth) ---

func (s *State) setSession(sess models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
	s.epoch++
}

func (s *State) sessionEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// --- coins (prices) ---

// replaceCoins swaps the coin list in one step and, when no session change
// happened since epoch was read, reprices the matching holdings. It returns
// how many holdings changed.
func (s *State) replaceCoins(coins []models.Coin, at time.Time, epoch uint64) int {
	s.mu.Lock()
	s.coins = append([]models.Coin(nil), coins...)
	s.lastUpdated = at
	s.lastError = ""

	repriced := 0
	if epoch == s.epoch {
		for i := range s.items {
			c, ok := models.FindCoin(s.coins, s.items[i].CoinID)
			if !ok || c.CurrentPrice.Equal(s.items[i].CurrentPrice) {
				continue
			}
			s.items[i].Reprice(c.CurrentPrice)
			repriced++
		}
	}
	ev := Event{Kind: EventCoinsRefreshed, Coins: append([]models.Coin(nil), s.coins...), LastUpdated: at}
	s.mu.Unlock()

	s.publish(ev)
	return repriced
}

func (s *State) setRefreshError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	ev := Event{
		Kind:        EventRefreshFailed,
		Coins:       append([]models.Coin(nil), s.coins...),
		LastUpdated: s.lastUpdated,
		Message:     msg,
	}
	s.mu.Unlock()

	s.publish(ev)
}

// --- items (portfolio) ---

func (s *State) setItems(items []models.PortfolioItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]models.PortfolioItem(nil), items...)
}

// upsertItem replaces the holding with the same coin id or appends a new one.
func (s *State) upsertItem(item models.PortfolioItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].CoinID == item.CoinID {
			s.items[i] = item
			return
		}
	}
	s.items = append(s.items, item)
}

// updateItem runs fn on a copy of the holding together with the latest coin
// list and stores the result only when fn succeeds.
func (s *State) updateItem(coinID string, fn func(item *models.PortfolioItem, coins []models.Coin) error) (models.PortfolioItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].CoinID != coinID {
			continue
		}
		updated := s.items[i]
		if err := fn(&updated, s.coins); err != nil {
			return models.PortfolioItem{}, err
		}
		s.items[i] = updated
		return updated, nil
	}
	return models.PortfolioItem{}, ErrItemNotFound
}

func (s *State) removeItem(coinID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].CoinID == coinID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}
