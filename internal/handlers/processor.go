package handlers

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrProcessorStopped is returned for intents submitted after Stop.
var ErrProcessorStopped = errors.New("intent processor stopped")

// IntentResult is what a processed intent hands back to its caller.
type IntentResult struct {
	Value any
	Err   error
}

// intent is one user action waiting in the queue.
type intent struct {
	name     string
	ctx      context.Context
	run      func(ctx context.Context) (any, error)
	resultCh chan IntentResult
}

// IntentProcessor runs user intents one at a time on a single worker, so the
// orchestrators see a single logical thread of control no matter how many
// requests arrive together.
type IntentProcessor struct {
	queue  chan intent
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
	log    *slog.Logger
}

func NewIntentProcessor(log *slog.Logger) *IntentProcessor {
	return &IntentProcessor{
		queue:  make(chan intent, 100),
		stopCh: make(chan struct{}),
		log:    log,
	}
}

func (p *IntentProcessor) Start() {
	p.wg.Add(1)
	go p.worker()
	p.log.Info("intent processor started")
}

// Stop lets the worker finish the intent in hand and exit. Safe to call twice.
func (p *IntentProcessor) Stop() {
	p.once.Do(func() {
		close(p.stopCh)
		p.wg.Wait()
		p.log.Info("intent processor stopped")
	})
}

func (p *IntentProcessor) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return

		case in := <-p.queue:
			p.log.Debug("processing intent", slog.String("intent", in.name))

			value, err := in.run(in.ctx)
			in.resultCh <- IntentResult{Value: value, Err: err}
		}
	}
}

// Submit queues fn and waits for its result. A cancelled ctx abandons the
// wait; the intent itself may still run.
func (p *IntentProcessor) Submit(ctx context.Context, name string, fn func(ctx context.Context) (any, error)) (any, error) {
	select {
	case <-p.stopCh:
		return nil, ErrProcessorStopped
	default:
	}

	resultCh := make(chan IntentResult, 1)
	in := intent{name: name, ctx: ctx, run: fn, resultCh: resultCh}

	select {
	case p.queue <- in:
	case <-p.stopCh:
		return nil, ErrProcessorStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-resultCh:
		return res.Value, res.Err
	case <-p.stopCh:
		// the worker may have exited before picking this intent up
		select {
		case res := <-resultCh:
			return res.Value, res.Err
		default:
			return nil, ErrProcessorStopped
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
