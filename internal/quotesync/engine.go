// Package quotesync polls the quote provider for the symbols in the
// registry and writes the prices back into the portfolio.
package quotesync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"StockDog/internal/metrics"
	"StockDog/internal/model"
	"StockDog/internal/quote"
	"StockDog/internal/recorder"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrMisaligned rejects a response that cannot be matched one-to-one with
// the requested symbols.
var ErrMisaligned = fmt.Errorf("%w: response does not match request", quote.ErrProvider)

// Snapshotter yields the symbols to request.
type Snapshotter interface {
	Snapshot() []string
}

// Applier writes matched quotes back onto holdings.
type Applier interface {
	ApplyQuotes(quotes map[string]model.Quote) int
}

// Reporter is told when the provider starts failing and when it recovers.
type Reporter interface {
	ReportFailure(err error)
	ReportRecovery()
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sets where each cycle's outcome and quotes are kept.
func WithRecorder(r recorder.Recorder) Option { return func(e *Engine) { e.recorder = r } }

// WithReporter sets who hears about provider failures and recoveries.
func WithReporter(r Reporter) Option { return func(e *Engine) { e.reporter = r } }

// WithMetrics sets the collectors updated after every cycle.
func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// Engine runs synchronization cycles. At most one request is in flight.
type Engine struct {
	provider quote.Provider
	registry Snapshotter
	store    Applier
	recorder recorder.Recorder
	reporter Reporter
	metrics  *metrics.Metrics

	inFlight atomic.Bool
	pending  atomic.Bool
	failing  atomic.Bool
	state    atomic.Int32

	lastMu sync.Mutex
	last   Result
}

// New creates an Engine.
func New(provider quote.Provider, registry Snapshotter, store Applier, opts ...Option) *Engine {
	e := &Engine{
		provider: provider,
		registry: registry,
		store:    store,
		recorder: recorder.NewNoopRecorder(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tick runs a scheduled cycle. It is skipped if a request is in flight.
func (e *Engine) Tick(ctx context.Context) Result {
	return e.run(ctx, TriggerScheduled)
}

// FetchNow runs a cycle immediately. If a request is in flight, a follow-up
// cycle is queued behind it and FetchNow returns StatusBusy.
func (e *Engine) FetchNow(ctx context.Context) Result {
	return e.run(ctx, TriggerManual)
}

// State is the current position in the Idle → Requesting → Applying/Failed
// cycle.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// InFlight reports whether a request is outstanding.
func (e *Engine) InFlight() bool {
	return e.inFlight.Load()
}

// LastResult returns the outcome of the most recent completed cycle.
func (e *Engine) LastResult() Result {
	e.lastMu.Lock()
	defer e.lastMu.Unlock()
	return e.last
}

// Provider names the quote source.
func (e *Engine) Provider() string {
	return e.provider.Name()
}

func (e *Engine) run(ctx context.Context, trigger Trigger) Result {
	if !e.acquire(trigger) {
		e.metrics.ObserveCycle(string(StatusBusy), 0, 0)
		log.Debug().Str("trigger", string(trigger)).Msg("quote request in flight, skipping")
		return Result{Trigger: trigger, Status: StatusBusy, At: time.Now()}
	}

	var res Result
	for {
		res = e.safeCycle(ctx, trigger)
		e.inFlight.Store(false)
		// A manual fetch arrived while we were busy; run it now.
		if !e.pending.Swap(false) || !e.inFlight.CompareAndSwap(false, true) {
			break
		}
		trigger = TriggerManual
	}
	return res
}

func (e *Engine) acquire(trigger Trigger) bool {
	if e.inFlight.CompareAndSwap(false, true) {
		return true
	}
	if trigger != TriggerManual {
		return false
	}
	e.pending.Store(true)
	// The owner may have released between the failed CAS and the store.
	if e.inFlight.CompareAndSwap(false, true) {
		e.pending.Store(false)
		return true
	}
	return false
}

func (e *Engine) safeCycle(ctx context.Context, trigger Trigger) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: panic: %v", quote.ErrProvider, r)
			log.Error().Err(err).Msg("quote cycle panicked")
			res = Result{Trigger: trigger, Status: StatusFailed, Err: err, At: time.Now()}
			e.state.Store(int32(StateIdle))
			e.remember(res)
		}
	}()
	return e.cycle(ctx, trigger)
}

func (e *Engine) cycle(ctx context.Context, trigger Trigger) Result {
	start := time.Now()
	res := Result{
		RequestID: uuid.NewString(),
		Trigger:   trigger,
		At:        start,
	}

	symbols := e.registry.Snapshot()
	res.Symbols = symbols
	e.metrics.SetRegistrySize(len(symbols))
	if len(symbols) == 0 {
		res.Status = StatusEmpty
		e.metrics.ObserveCycle(string(res.Status), 0, 0)
		e.remember(res)
		return res
	}

	e.state.Store(int32(StateRequesting))
	logger := log.With().Str("request_id", res.RequestID).Str("trigger", string(trigger)).Logger()
	logger.Debug().Strs("symbols", symbols).Str("provider", e.provider.Name()).Msg("requesting quotes")

	quotes, err := e.provider.FetchQuotes(ctx, symbols)
	res.Received = len(quotes)
	var batch map[string]model.Quote
	if err == nil {
		batch, err = Match(symbols, quotes)
	}

	switch {
	case err != nil:
		e.state.Store(int32(StateFailed))
		res.Status = StatusFailed
		res.Err = err
		logger.Warn().Err(err).Int("requested", len(symbols)).Int("received", res.Received).Msg("quote request failed, keeping current prices")
		e.markFailing(err)
	case len(batch) == 0:
		res.Status = StatusNoData
		logger.Debug().Msg("provider returned no data")
		e.markHealthy()
	default:
		e.state.Store(int32(StateApplying))
		res.Applied = e.store.ApplyQuotes(batch)
		res.Status = StatusApplied
		matched := make([]model.Quote, 0, len(batch))
		for _, sym := range symbols {
			matched = append(matched, batch[sym])
		}
		if err := e.recorder.RecordQuotes(res.RequestID, matched); err != nil {
			logger.Error().Err(err).Msg("record quotes")
		}
		logger.Debug().Int("applied", res.Applied).Msg("quotes applied")
		e.markHealthy()
	}
	e.state.Store(int32(StateIdle))

	res.Duration = time.Since(start)
	e.metrics.ObserveCycle(string(res.Status), res.Duration, res.Applied)
	if err := e.recorder.RecordSync(res.event()); err != nil {
		logger.Error().Err(err).Msg("record sync event")
	}
	e.remember(res)
	return res
}

// Match keys quotes by symbol. The batch is rejected as a whole when the
// counts differ or a record names a symbol that was not requested or
// appears twice. Records without a symbol take the symbol at their
// position in the request.
func Match(symbols []string, quotes []model.Quote) (map[string]model.Quote, error) {
	if len(quotes) == 0 {
		return nil, nil
	}
	if len(quotes) != len(symbols) {
		return nil, fmt.Errorf("%w: requested %d symbols, received %d quotes", ErrMisaligned, len(symbols), len(quotes))
	}
	requested := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		requested[s] = struct{}{}
	}

	batch := make(map[string]model.Quote, len(quotes))
	for i, q := range quotes {
		sym := model.NormalizeSymbol(q.Symbol)
		if sym == "" {
			sym = symbols[i]
		}
		if _, ok := requested[sym]; !ok {
			return nil, fmt.Errorf("%w: unexpected symbol %q", ErrMisaligned, sym)
		}
		if _, dup := batch[sym]; dup {
			return nil, fmt.Errorf("%w: duplicate symbol %q", ErrMisaligned, sym)
		}
		q.Symbol = sym
		batch[sym] = q
	}
	return batch, nil
}

func (e *Engine) markFailing(err error) {
	if e.failing.CompareAndSwap(false, true) && e.reporter != nil {
		e.reporter.ReportFailure(err)
	}
}

func (e *Engine) markHealthy() {
	if e.failing.CompareAndSwap(true, false) && e.reporter != nil {
		e.reporter.ReportRecovery()
	}
}

func (e *Engine) remember(res Result) {
	e.lastMu.Lock()
	defer e.lastMu.Unlock()
	e.last = res
}
