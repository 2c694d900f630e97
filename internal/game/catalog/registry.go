package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCreatureNotFound is returned when a creature ID is not in the registry.
var ErrCreatureNotFound = errors.New("creature not found")

// Source is the random source used for opponent selection.
// A local interface keeps the catalog free of engine dependencies.
type Source interface {
	Intn(n int) int
}

// Registry holds the loaded creature catalog, keyed by ID.
// It is immutable after construction and safe for concurrent reads.
type Registry struct {
	byID    map[string]*Creature
	ordered []*Creature
}

// NewRegistry builds a Registry from validated creatures.
//
// Precondition: every creature must already pass Validate.
// Postcondition: Returns a Registry or an error on duplicate IDs or an
// empty catalog.
func NewRegistry(creatures []*Creature) (*Registry, error) {
	if len(creatures) == 0 {
		return nil, errors.New("catalog: no creatures loaded")
	}
	byID := make(map[string]*Creature, len(creatures))
	for _, c := range creatures {
		if _, dup := byID[c.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate creature id %q", c.ID)
		}
		byID[c.ID] = c
	}
	ordered := make([]*Creature, len(creatures))
	copy(ordered, creatures)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	return &Registry{byID: byID, ordered: ordered}, nil
}

// ByID returns the creature with the given catalog ID.
//
// Postcondition: Returns the creature, or ErrCreatureNotFound.
func (r *Registry) ByID(id string) (*Creature, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCreatureNotFound, id)
	}
	return c, nil
}

// All returns the catalog in stable ID order.
//
// Postcondition: The returned slice is shared; callers must not mutate it.
func (r *Registry) All() []*Creature {
	return r.ordered
}

// Count returns the number of creatures in the catalog.
func (r *Registry) Count() int {
	return len(r.ordered)
}

// RandomOpponent picks a uniformly random creature whose ID differs from
// excludeID. When the catalog holds only the excluded creature, that creature
// is returned (a mirror match beats no match).
//
// Precondition: src must be non-nil; the registry is non-empty by construction.
// Postcondition: Returns a non-nil creature.
func (r *Registry) RandomOpponent(src Source, excludeID string) *Creature {
	candidates := make([]*Creature, 0, len(r.ordered))
	for _, c := range r.ordered {
		if c.ID != excludeID {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return r.ordered[0]
	}
	return candidates[src.Intn(len(candidates))]
}
