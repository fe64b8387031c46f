package unit

import (
	"sync"

	"github.com/auragrid/auragrid-server-go/internal/match/grid"
)

// Registry holds all units in a match. Iteration order is the insertion
// order and never changes: batched move resolution depends on it being
// stable and deterministic.
type Registry struct {
	mu     sync.RWMutex
	order  []int
	units  map[int]*Unit
	nextID int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		units:  make(map[int]*Unit),
		nextID: 1,
	}
}

// Spawn creates a unit, assigns the next id, and registers it.
func (r *Registry) Spawn(name string, owner int, pos grid.Position, maxHP int) *Unit {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := New(r.nextID, name, owner, pos, maxHP)
	r.nextID++
	r.units[u.ID] = u
	r.order = append(r.order, u.ID)
	return u
}

// Get returns the unit with the given id.
func (r *Registry) Get(id int) (*Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[id]
	return u, ok
}

// AtPosition returns the first alive unit occupying the position, in
// canonical order.
func (r *Registry) AtPosition(pos grid.Position) (*Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		u := r.units[id]
		if u.Alive() && u.Pos == pos {
			return u, true
		}
	}
	return nil, false
}

// Alive returns all living units in canonical order.
func (r *Registry) Alive() []*Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Unit, 0, len(r.order))
	for _, id := range r.order {
		if u := r.units[id]; u.Alive() {
			out = append(out, u)
		}
	}
	return out
}

// AliveOwnedBy returns the player's living units in canonical order.
func (r *Registry) AliveOwnedBy(player int) []*Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Unit, 0, len(r.order))
	for _, id := range r.order {
		if u := r.units[id]; u.Alive() && u.Owner == player {
			out = append(out, u)
		}
	}
	return out
}

// All returns every registered unit, dead or alive, in canonical order.
func (r *Registry) All() []*Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Unit, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.units[id])
	}
	return out
}
