package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultPollInterval is the wait between two scheduled refreshes.
const DefaultPollInterval = 60 * time.Second

// Poller runs refresh forever: wait interval, refresh, repeat. A failed
// refresh is logged and the loop carries on. At most one loop runs at a time.
type Poller struct {
	clock    clockwork.Clock
	interval time.Duration
	refresh  func(ctx context.Context) error
	log      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(clock clockwork.Clock, interval time.Duration, refresh func(ctx context.Context) error, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{clock: clock, interval: interval, refresh: refresh, log: log}
}

// Start launches the loop. It returns false if one is already running.
func (p *Poller) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.log.Debug("polling already running")
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done

	go p.loop(ctx, done)
	p.log.Info("polling started", slog.Duration("interval", p.interval))
	return true
}

// Stop cancels the loop and waits for it to exit. An in-flight refresh sees
// its context cancelled.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.log.Info("polling stopped")
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		p.mu.Lock()
		if p.done == done {
			// parent context ended without Stop
			p.cancel, p.done = nil, nil
		}
		p.mu.Unlock()
		close(done)
	}()

	for {
		timer := p.clock.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}

		mtxPollCycles.Inc()
		if err := p.refresh(ctx); err != nil {
			p.log.Warn("scheduled refresh failed", slog.Any("error", err))
		}
	}
}
