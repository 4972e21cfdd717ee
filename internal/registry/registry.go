// Package registry tracks which holdings are currently on screen and should
// receive quote updates.
package registry

import (
	"sort"
	"sync"

	"StockDog/internal/model"
)

// Registry is a set of non-owning holding references.
type Registry struct {
	mu   sync.RWMutex
	refs map[model.HoldingRef]struct{}
}

func New() *Registry {
	return &Registry{refs: make(map[model.HoldingRef]struct{})}
}

// Register adds ref. Registering twice is a no-op.
func (r *Registry) Register(ref model.HoldingRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[ref] = struct{}{}
}

// Deregister removes ref if present.
func (r *Registry) Deregister(ref model.HoldingRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.refs, ref)
}

// DeregisterWatchlist removes every reference into watchlist id.
func (r *Registry) DeregisterWatchlist(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ref := range r.refs {
		if ref.WatchlistID == id {
			delete(r.refs, ref)
		}
	}
}

// Clear empties the registry before a view rebuilds it.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = make(map[model.HoldingRef]struct{})
}

// Snapshot returns the distinct registered symbols in sorted order.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.refs))
	symbols := make([]string, 0, len(r.refs))
	for ref := range r.refs {
		if _, ok := seen[ref.Symbol]; ok {
			continue
		}
		seen[ref.Symbol] = struct{}{}
		symbols = append(symbols, ref.Symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Contains reports whether ref is registered.
func (r *Registry) Contains(ref model.HoldingRef) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.refs[ref]
	return ok
}

// Len is the number of registered references (not distinct symbols).
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.refs)
}
