package battle

import (
	"github.com/cory-johannsen/monduel/internal/game/catalog"
	"github.com/cory-johannsen/monduel/internal/game/rng"
)

// DefaultLowHealthRatio is the fraction of health capacity below which a
// side counts as "low" for policy decisions.
const DefaultLowHealthRatio = 0.25

// Policy selects the computer side's next move. Implementations must be
// deterministic given their inputs and a fixed Source — the requirement is
// testability, not sophistication.
type Policy interface {
	// ChooseMove returns a move from own's move list. The catalog invariant
	// guarantees at least one move exists.
	ChooseMove(own, opponent Combatant, chart TypeChart, src rng.Source) catalog.Move
}

// GreedyPolicy is the built-in three-tier opponent policy:
//
//  1. Opponent is low on health: pick the move maximizing deterministic
//     damage against the current snapshot (finish the fight).
//  2. Own side is low on health: prefer the first defensive-flagged move,
//     falling back to a uniformly random move.
//  3. Otherwise: uniformly random among available moves.
type GreedyPolicy struct {
	// LowHealthRatio is the low-health threshold as a fraction of capacity.
	// Zero means DefaultLowHealthRatio.
	LowHealthRatio float64
}

// lowHealth reports whether c is below the policy's health threshold.
func (p GreedyPolicy) lowHealth(c Combatant) bool {
	ratio := p.LowHealthRatio
	if ratio == 0 {
		ratio = DefaultLowHealthRatio
	}
	return float64(c.CurrentHP) < ratio*float64(c.Creature.Stats.HP)
}

// ChooseMove implements Policy.
//
// Precondition: own.Creature and opponent.Creature must be non-nil; src must
// be non-nil.
// Postcondition: Returns a move present in own.AvailableMoves().
func (p GreedyPolicy) ChooseMove(own, opponent Combatant, chart TypeChart, src rng.Source) catalog.Move {
	moves := own.AvailableMoves()

	if p.lowHealth(opponent) {
		// Greedy-best: damage magnitude is deterministic, so ties resolve to
		// the earliest move in list order and the choice is reproducible.
		best := moves[0]
		bestDmg := MoveDamage(best, own.Creature, opponent.Creature, chart)
		for _, m := range moves[1:] {
			if dmg := MoveDamage(m, own.Creature, opponent.Creature, chart); dmg > bestDmg {
				best, bestDmg = m, dmg
			}
		}
		return best
	}

	if p.lowHealth(own) {
		for _, m := range moves {
			if m.Defensive {
				return m
			}
		}
	}

	return moves[src.Intn(len(moves))]
}
