// Package portfolio owns the watchlists and holdings. Every mutation
// recomputes the affected aggregates and persists the result before it
// returns.
package portfolio

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"StockDog/internal/metrics"
	"StockDog/internal/model"
	"StockDog/internal/storage"

	"github.com/rs/zerolog/log"
)

// MaxDescriptionLen bounds a watchlist description.
const MaxDescriptionLen = 40

// Tracker is told when holdings disappear so it stops asking for quotes.
type Tracker interface {
	Deregister(ref model.HoldingRef)
	DeregisterWatchlist(id int)
}

// CompanyLookup resolves display names for new holdings.
type CompanyLookup interface {
	Lookup(symbol string) (model.Company, bool)
}

// Option configures a Store.
type Option func(*Store)

// WithTracker sets the registry told about removed holdings.
func WithTracker(t Tracker) Option { return func(s *Store) { s.tracker = t } }

// WithCompanies sets the lookup used to name new holdings.
func WithCompanies(c CompanyLookup) Option { return func(s *Store) { s.companies = c } }

// WithMetrics sets the collectors that count persist failures.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Store) { s.metrics = m } }

// WithPersistTimeout bounds each write to the durable store.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Store) { s.persistTimeout = d }
}

// Store is the single writer of watchlists, holdings and their derived
// fields.
type Store struct {
	mu         sync.RWMutex
	watchlists []*model.Watchlist
	nextID     int
	version    uint64

	persistMu      sync.Mutex
	written        uint64
	lastPersist    time.Time
	persistTimeout time.Duration

	obsMu     sync.Mutex
	observers map[int]func(Event)
	nextObs   int

	kv        storage.KV
	tracker   Tracker
	companies CompanyLookup
	metrics   *metrics.Metrics
}

// NewStore hydrates a Store from kv.
func NewStore(ctx context.Context, kv storage.KV, opts ...Option) (*Store, error) {
	s := &Store{
		kv:             kv,
		observers:      make(map[int]func(Event)),
		persistTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	log.Info().Int("watchlists", len(s.watchlists)).Int("next_id", s.nextID).Msg("portfolio loaded")
	return s, nil
}

// ListWatchlists returns copies of all watchlists in creation order.
func (s *Store) ListWatchlists() []model.Watchlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Watchlist, 0, len(s.watchlists))
	for _, w := range s.watchlists {
		out = append(out, w.Clone())
	}
	return out
}

// GetWatchlist returns a copy of watchlist id.
func (s *Store) GetWatchlist(id int) (model.Watchlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, _ := s.findLocked(id)
	if w == nil {
		return model.Watchlist{}, watchlistNotFound(id)
	}
	return w.Clone(), nil
}

// CreateWatchlist assigns the next id and stores an empty list.
func (s *Store) CreateWatchlist(name, description string) (model.Watchlist, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" {
		return model.Watchlist{}, fmt.Errorf("%w: watchlist name is required", ErrValidation)
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLen {
		return model.Watchlist{}, fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionLen)
	}

	s.mu.Lock()
	w := &model.Watchlist{
		ID:          s.nextID,
		Name:        name,
		Description: description,
		Holdings:    []*model.Holding{},
	}
	s.nextID++
	s.watchlists = append(s.watchlists, w)
	out := w.Clone()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	s.notify(Event{Kind: EventWatchlistCreated, WatchlistID: out.ID})
	log.Info().Int("list_id", out.ID).Str("name", out.Name).Msg("watchlist created")
	return out, nil
}

// DeleteWatchlist removes id and its holdings. Unknown ids are ignored.
func (s *Store) DeleteWatchlist(id int) {
	s.mu.Lock()
	_, idx := s.findLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.watchlists = append(s.watchlists[:idx], s.watchlists[idx+1:]...)
	if s.tracker != nil {
		s.tracker.DeregisterWatchlist(id)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	s.notify(Event{Kind: EventWatchlistDeleted, WatchlistID: id})
	log.Info().Int("list_id", id).Msg("watchlist deleted")
}

// AddHolding adds shares of symbol to watchlist id, merging into an existing
// holding of the same symbol.
func (s *Store) AddHolding(id int, symbol string, shares float64) (model.Holding, error) {
	symbol = model.NormalizeSymbol(symbol)
	if symbol == "" {
		return model.Holding{}, fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if err := validateShares(shares); err != nil {
		return model.Holding{}, err
	}

	name := ""
	if s.companies != nil {
		if c, ok := s.companies.Lookup(symbol); ok {
			name = c.Name
		}
	}

	s.mu.Lock()
	w, _ := s.findLocked(id)
	if w == nil {
		s.mu.Unlock()
		return model.Holding{}, watchlistNotFound(id)
	}
	h, idx := w.Find(symbol)
	merged := h != nil
	var next *model.Holding
	if merged {
		next = h.Clone()
		next.AddShares(shares)
	} else {
		next = &model.Holding{WatchlistID: id, Symbol: symbol, Name: name, Shares: shares}
		next.Recalculate()
	}
	if !fits(w, idx, next) {
		s.mu.Unlock()
		return model.Holding{}, overflow(id, symbol)
	}
	if merged {
		h.AddShares(shares)
	} else {
		h = next
		w.Holdings = append(w.Holdings, h)
	}
	w.Recalculate()
	out := *h.Clone()
	totals := w.Totals()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	s.notify(Event{Kind: EventWatchlistChanged, WatchlistID: id, Totals: totals})
	log.Info().Int("list_id", id).Str("symbol", symbol).Float64("shares", out.Shares).Bool("merged", merged).Msg("holding added")
	return out, nil
}

// RemoveHolding drops symbol from watchlist id and stops tracking it.
func (s *Store) RemoveHolding(id int, symbol string) error {
	symbol = model.NormalizeSymbol(symbol)

	s.mu.Lock()
	w, _ := s.findLocked(id)
	if w == nil {
		s.mu.Unlock()
		return watchlistNotFound(id)
	}
	_, idx := w.Find(symbol)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: holding %s in watchlist %d", ErrNotFound, symbol, id)
	}
	w.Holdings = append(w.Holdings[:idx], w.Holdings[idx+1:]...)
	w.Recalculate()
	if s.tracker != nil {
		s.tracker.Deregister(model.HoldingRef{WatchlistID: id, Symbol: symbol})
	}
	totals := w.Totals()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	s.notify(Event{Kind: EventWatchlistChanged, WatchlistID: id, Totals: totals})
	log.Info().Int("list_id", id).Str("symbol", symbol).Msg("holding removed")
	return nil
}

// UpdateHoldingShares replaces the share count of symbol in watchlist id.
func (s *Store) UpdateHoldingShares(id int, symbol string, shares float64) (model.Holding, error) {
	symbol = model.NormalizeSymbol(symbol)
	if err := validateShares(shares); err != nil {
		return model.Holding{}, err
	}

	s.mu.Lock()
	w, _ := s.findLocked(id)
	if w == nil {
		s.mu.Unlock()
		return model.Holding{}, watchlistNotFound(id)
	}
	h, idx := w.Find(symbol)
	if h == nil {
		s.mu.Unlock()
		return model.Holding{}, fmt.Errorf("%w: holding %s in watchlist %d", ErrNotFound, symbol, id)
	}
	next := h.Clone()
	next.SetShares(shares)
	if !fits(w, idx, next) {
		s.mu.Unlock()
		return model.Holding{}, overflow(id, symbol)
	}
	h.SetShares(shares)
	w.Recalculate()
	out := *h.Clone()
	totals := w.Totals()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	s.notify(Event{Kind: EventWatchlistChanged, WatchlistID: id, Totals: totals})
	return out, nil
}

// ApplyQuotes writes prices onto every holding whose symbol is a key of
// quotes, resolved against the current state. Holdings without an entry are
// left as they are. It returns the number of holdings updated.
func (s *Store) ApplyQuotes(quotes map[string]model.Quote) int {
	if len(quotes) == 0 {
		return 0
	}

	s.mu.Lock()
	var (
		updated int
		events  []Event
	)
	for _, w := range s.watchlists {
		touched := false
		for i, h := range w.Holdings {
			q, ok := quotes[h.Symbol]
			if !ok || !validQuote(q) {
				continue
			}
			next := h.Clone()
			next.ApplyQuote(q)
			if !fits(w, i, next) {
				log.Warn().Int("list_id", w.ID).Str("symbol", h.Symbol).Float64("price", q.LastPrice).Msg("quote overflows holding value, skipped")
				continue
			}
			h.ApplyQuote(q)
			touched = true
			updated++
		}
		if touched {
			w.Recalculate()
			events = append(events, Event{Kind: EventWatchlistChanged, WatchlistID: w.ID, Totals: w.Totals()})
		}
	}
	if updated == 0 {
		s.mu.Unlock()
		return 0
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	s.notify(events...)
	return updated
}

// Close writes the final state.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.persist(snap) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastPersist reports when the store last wrote successfully.
func (s *Store) LastPersist() time.Time {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.lastPersist
}

func (s *Store) findLocked(id int) (*model.Watchlist, int) {
	for i, w := range s.watchlists {
		if w.ID == id {
			return w, i
		}
	}
	return nil, -1
}

func validateShares(shares float64) error {
	if math.IsNaN(shares) || math.IsInf(shares, 0) {
		return fmt.Errorf("%w: shares must be a finite number", ErrValidation)
	}
	if shares < 0 {
		return fmt.Errorf("%w: shares must not be negative", ErrValidation)
	}
	return nil
}

// fits reports whether w stays finite with next in place of the holding at
// idx, or appended when idx is negative.
func fits(w *model.Watchlist, idx int, next *model.Holding) bool {
	if !next.Finite() {
		return false
	}
	holdings := make([]*model.Holding, len(w.Holdings), len(w.Holdings)+1)
	copy(holdings, w.Holdings)
	if idx < 0 {
		holdings = append(holdings, next)
	} else {
		holdings[idx] = next
	}
	return model.Aggregate(holdings).Finite()
}

func overflow(id int, symbol string) error {
	return fmt.Errorf("%w: %s in watchlist %d would exceed the representable range", ErrValidation, symbol, id)
}

func validQuote(q model.Quote) bool {
	for _, v := range []float64{q.LastPrice, q.Change, q.PercentChange} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func watchlistNotFound(id int) error {
	return fmt.Errorf("%w: watchlist %d", ErrNotFound, id)
}
