package battle

import "github.com/cory-johannsen/monduel/internal/game/catalog"

// Combatant is a read-only view over one side's creature and its
// battle-local health. It exposes queries only; health changes are applied
// by the Engine so that all mutation stays auditable in one place.
type Combatant struct {
	Creature  *catalog.Creature
	CurrentHP int
}

// IsDefeated reports whether the combatant's health has reached zero.
//
// Postcondition: Returns true iff CurrentHP <= 0.
func (c Combatant) IsDefeated() bool {
	return c.CurrentHP <= 0
}

// AvailableMoves returns the creature's move list. The catalog invariant
// guarantees it is never empty.
func (c Combatant) AvailableMoves() []catalog.Move {
	return c.Creature.Moves
}
