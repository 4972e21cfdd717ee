package api

import (
	"context"
	"sync"
	"time"

	"StockDog/internal/model"
	"StockDog/internal/portfolio"
	"StockDog/internal/quotesync"

	"github.com/rs/zerolog/log"
)

// Tracker is the quote registry as seen by the views.
type Tracker interface {
	Register(ref model.HoldingRef)
	DeregisterWatchlist(id int)
	Contains(ref model.HoldingRef) bool
	Clear()
}

// WatchlistSource is the part of the store the views read and watch.
type WatchlistSource interface {
	ListWatchlists() []model.Watchlist
	GetWatchlist(id int) (model.Watchlist, error)
	Observe(fn func(portfolio.Event)) (cancel func())
}

// Fetcher runs a manual quote fetch.
type Fetcher func(ctx context.Context) quotesync.Result

// ViewKind names the screen a client is on.
type ViewKind string

const (
	ViewNone      ViewKind = "none"
	ViewDashboard ViewKind = "dashboard"
	ViewWatchlist ViewKind = "watchlist"
)

// View is what a client currently displays.
type View struct {
	Kind        ViewKind `json:"kind"`
	WatchlistID int      `json:"list_id,omitempty"`
}

func (v View) shows(watchlistID int) bool {
	switch v.Kind {
	case ViewDashboard:
		return true
	case ViewWatchlist:
		return v.WatchlistID == watchlistID
	default:
		return false
	}
}

// Views keeps the registry in line with the view being shown: switching
// views clears it and registers every holding on screen, and a holding that
// appears on the current view is registered and fetched right away.
type Views struct {
	src     WatchlistSource
	tracker Tracker
	fetch   Fetcher
	timeout time.Duration
	cancel  func()

	mu      sync.Mutex
	current View
	wg      sync.WaitGroup
}

// NewViews starts watching src and returns Views with nothing shown.
func NewViews(src WatchlistSource, tracker Tracker, fetch Fetcher, timeout time.Duration) *Views {
	v := &Views{
		src:     src,
		tracker: tracker,
		fetch:   fetch,
		timeout: timeout,
		current: View{Kind: ViewNone},
	}
	v.cancel = src.Observe(v.onEvent)
	return v
}

func (v *Views) Current() View {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// ShowDashboard tracks every holding of every watchlist and fetches now.
func (v *Views) ShowDashboard(ctx context.Context) quotesync.Result {
	v.mu.Lock()
	v.tracker.Clear()
	for _, w := range v.src.ListWatchlists() {
		v.registerAll(w.Refs())
	}
	v.current = View{Kind: ViewDashboard}
	v.mu.Unlock()

	return v.fetch(ctx)
}

// ShowWatchlist tracks the holdings of one watchlist and fetches now. An
// unknown id leaves the current view as it was.
func (v *Views) ShowWatchlist(ctx context.Context, id int) (quotesync.Result, error) {
	v.mu.Lock()
	w, err := v.src.GetWatchlist(id)
	if err != nil {
		v.mu.Unlock()
		return quotesync.Result{}, err
	}
	v.tracker.Clear()
	v.registerAll(w.Refs())
	v.current = View{Kind: ViewWatchlist, WatchlistID: id}
	v.mu.Unlock()

	return v.fetch(ctx), nil
}

// Close stops watching the store and waits for background fetches.
func (v *Views) Close() {
	if v.cancel != nil {
		v.cancel()
	}
	v.wg.Wait()
}

func (v *Views) onEvent(e portfolio.Event) {
	v.mu.Lock()
	if e.Kind == portfolio.EventWatchlistDeleted {
		// A view switch that listed the store before the delete may have
		// registered the list again.
		if v.current.shows(e.WatchlistID) {
			v.tracker.DeregisterWatchlist(e.WatchlistID)
		}
		if v.current.Kind == ViewWatchlist && v.current.WatchlistID == e.WatchlistID {
			v.current = View{Kind: ViewNone}
		}
		v.mu.Unlock()
		return
	}
	if !v.current.shows(e.WatchlistID) {
		v.mu.Unlock()
		return
	}
	w, err := v.src.GetWatchlist(e.WatchlistID)
	added := err == nil && v.registerAll(w.Refs())
	v.mu.Unlock()

	if added {
		v.refreshAsync()
	}
}

// registerAll registers refs and reports whether any was new. Callers hold v.mu.
func (v *Views) registerAll(refs []model.HoldingRef) bool {
	added := false
	for _, ref := range refs {
		if v.tracker.Contains(ref) {
			continue
		}
		v.tracker.Register(ref)
		added = true
	}
	return added
}

func (v *Views) refreshAsync() {
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
		defer cancel()
		res := v.fetch(ctx)
		log.Debug().Str("status", string(res.Status)).Msg("fetched quotes for new holding")
	}()
}
