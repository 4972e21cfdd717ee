package portfolio

import "StockDog/internal/model"

// EventKind says how the watchlist collection changed.
type EventKind int

const (
	// EventWatchlistCreated and EventWatchlistDeleted change the shape of
	// the collection.
	EventWatchlistCreated EventKind = iota
	EventWatchlistDeleted
	// EventWatchlistChanged means a list's holdings or aggregates changed.
	EventWatchlistChanged
)

func (k EventKind) String() string {
	switch k {
	case EventWatchlistCreated:
		return "created"
	case EventWatchlistDeleted:
		return "deleted"
	case EventWatchlistChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// Event is delivered to observers once a mutation has settled.
type Event struct {
	Kind        EventKind
	WatchlistID int
	Totals      model.Totals
}

// Observe registers fn for every future event and returns a func that
// removes it. fn runs on the mutating goroutine after the store lock is
// released, so it may read from the store.
func (s *Store) Observe(fn func(Event)) (cancel func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Store) notify(events ...Event) {
	if len(events) == 0 {
		return
	}
	s.obsMu.Lock()
	fns := make([]func(Event), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, e := range events {
		for _, fn := range fns {
			fn(e)
		}
	}
}
