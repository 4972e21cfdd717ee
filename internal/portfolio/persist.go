package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"StockDog/internal/model"

	"github.com/rs/zerolog/log"
)

// Keys used in the durable store.
const (
	WatchlistsKey = "StockDog.watchlists"
	NextIDKey     = "StockDog.nextId"
)

// snapshot is a serialized view of the store taken under its lock. A
// snapshot with a non-nil err is never written.
type snapshot struct {
	version    uint64
	watchlists string
	nextID     string
	err        error
}

// load hydrates watchlists and the id counter. Missing keys mean an empty
// portfolio.
func (s *Store) load(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, WatchlistsKey)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrPersistence, WatchlistsKey, err)
	}
	if ok && raw != "" {
		var lists []*model.Watchlist
		if err := json.Unmarshal([]byte(raw), &lists); err != nil {
			return fmt.Errorf("decode %s: %w", WatchlistsKey, err)
		}
		for _, w := range lists {
			if w == nil {
				continue
			}
			holdings := make([]*model.Holding, 0, len(w.Holdings))
			for _, h := range w.Holdings {
				if h == nil {
					log.Warn().Int("list_id", w.ID).Msg("dropping null holding from stored watchlist")
					continue
				}
				h.WatchlistID = w.ID
				holdings = append(holdings, h)
			}
			w.Holdings = holdings
			w.Recalculate()
			s.watchlists = append(s.watchlists, w)
		}
	}

	raw, ok, err = s.kv.Get(ctx, NextIDKey)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrPersistence, NextIDKey, err)
	}
	if ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("decode %s: %w", NextIDKey, err)
		}
		s.nextID = n
	}

	// Never hand out an id that an existing list already carries.
	for _, w := range s.watchlists {
		if w.ID >= s.nextID {
			s.nextID = w.ID + 1
		}
	}
	return nil
}

// snapshotLocked serializes the current state. Caller holds s.mu.
func (s *Store) snapshotLocked() snapshot {
	s.version++
	lists := s.watchlists
	if lists == nil {
		lists = []*model.Watchlist{}
	}
	snap := snapshot{version: s.version, nextID: strconv.Itoa(s.nextID)}
	data, err := json.Marshal(lists)
	if err != nil {
		snap.err = fmt.Errorf("encode %s: %w", WatchlistsKey, err)
		return snap
	}
	snap.watchlists = string(data)
	return snap
}

// persist writes snap unless a newer snapshot has already been written.
// Failures are logged and counted; in-memory state stays authoritative.
func (s *Store) persist(snap snapshot) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if snap.version <= s.written {
		return nil
	}
	if snap.err != nil {
		s.metrics.PersistFailed()
		log.Error().Err(snap.err).Uint64("version", snap.version).Msg("persist portfolio skipped, stored state left untouched")
		return fmt.Errorf("%w: %v", ErrPersistence, snap.err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	err := s.kv.Set(ctx, WatchlistsKey, snap.watchlists)
	if err == nil {
		err = s.kv.Set(ctx, NextIDKey, snap.nextID)
	}
	if err != nil {
		s.metrics.PersistFailed()
		log.Warn().Err(err).Uint64("version", snap.version).Msg("persist portfolio failed, keeping in-memory state")
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.written = snap.version
	s.lastPersist = time.Now()
	return nil
}
