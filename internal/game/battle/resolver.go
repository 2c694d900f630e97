package battle

import (
	"math"

	"github.com/cory-johannsen/monduel/internal/game/catalog"
	"github.com/cory-johannsen/monduel/internal/game/rng"
)

// MoveOutcome holds the resolved result of one move use.
type MoveOutcome struct {
	// Move is the move that was used.
	Move catalog.Move
	// Hit is false when the accuracy roll failed; a miss still consumes the
	// half-turn and records damage 0.
	Hit bool
	// Damage is the health removed from the defender; >= 1 whenever Hit.
	Damage int
	// TypeMultiplier is the compound type-effectiveness applied.
	TypeMultiplier float64
}

// MoveDamage computes the deterministic damage of move from attacker against
// defender, assuming the move connects. The formula scales move power by the
// attacker's attack stat, reduces by a normalized defense ratio rather than
// raw subtraction, applies the type chart, and floors the result.
//
// Every connecting hit deals at least 1 damage. Combined with finite health
// this bounds every battle's length, so the floor is a hard invariant, not a
// balance choice.
//
// Precondition: attacker and defender must be validated catalog creatures;
// chart may be nil (treated as all-neutral).
// Postcondition: Returns >= 1.
func MoveDamage(move catalog.Move, attacker, defender *catalog.Creature, chart TypeChart) int {
	base := float64(move.Power) * (float64(attacker.Stats.Attack) / 100.0)
	reduced := base * (1.0 - float64(defender.Stats.Defense)/200.0)
	if chart != nil {
		reduced *= chart.Multiplier(move.Type, defender.Types)
	}
	dmg := int(math.Floor(reduced))
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

// ResolveMove rolls the accuracy gate and, on a hit, computes damage.
// The accuracy roll is the only random input; damage magnitude is
// deterministic given the two creatures and the chart.
//
// Precondition: src must be non-nil; move accuracy must be in [0, 100].
// Postcondition: Outcome.Damage >= 1 when Hit, exactly 0 when not.
func ResolveMove(move catalog.Move, attacker, defender *catalog.Creature, chart TypeChart, src rng.Source) MoveOutcome {
	out := MoveOutcome{Move: move, TypeMultiplier: 1.0}
	if chart != nil {
		out.TypeMultiplier = chart.Multiplier(move.Type, defender.Types)
	}

	// Accuracy 100 always hits; accuracy 0 never does.
	if move.Accuracy < 100 && src.Intn(100) >= move.Accuracy {
		return out
	}

	out.Hit = true
	out.Damage = MoveDamage(move, attacker, defender, chart)
	return out
}

// DecideFirstMover returns the side that acts first given both creatures'
// speed stats. The initiating side wins ties: this must be reproducible
// across calls, so the tie-break is a documented policy, not an accident.
//
// Postcondition: Returns SideA iff initiator speed >= opponent speed.
func DecideFirstMover(initiator, opponent *catalog.Creature) SideIndex {
	if initiator.Stats.Speed >= opponent.Stats.Speed {
		return SideA
	}
	return SideB
}
