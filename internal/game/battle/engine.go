package battle

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/monduel/internal/game/catalog"
	"github.com/cory-johannsen/monduel/internal/game/rng"
)

// Engine owns all Battle mutation: creation, half-turn application,
// surrender, and forced timeout. It is stateless apart from its injected
// collaborators, so one Engine serves every battle; serialization of
// concurrent access to a single battle is the session directory's job.
type Engine struct {
	catalog *catalog.Registry
	chart   TypeChart
	policy  Policy
	now     func() time.Time
}

// NewEngine creates an Engine over the given catalog, type chart, and
// opponent policy.
//
// Precondition: reg must be non-nil; chart may be nil (all-neutral);
// policy must be non-nil.
// Postcondition: Returns a non-nil Engine.
func NewEngine(reg *catalog.Registry, chart TypeChart, policy Policy) *Engine {
	return &Engine{
		catalog: reg,
		chart:   chart,
		policy:  policy,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// combatant resolves the Combatant view for one side of b.
func (e *Engine) combatant(b *Battle, idx SideIndex) (Combatant, error) {
	c, err := e.catalog.ByID(b.Sides[idx].CreatureID)
	if err != nil {
		return Combatant{}, fmt.Errorf("resolving %s creature: %w", idx, err)
	}
	return Combatant{Creature: c, CurrentHP: b.Sides[idx].CurrentHP}, nil
}

// CreateBattle builds a new active battle for initiator using creatureID,
// assigning a random computer opponent atomically. The side with the higher
// speed acts first; the initiating side wins ties. When the computer moves
// first, its opening half-turn is applied before the battle is returned, so
// callers always observe a battle waiting on the human unless the opener
// already finished it.
//
// Precondition: initiator must be non-empty and not ComputerAddress; src must
// be non-nil.
// Postcondition: Returns an active (or, pathologically, finished) Battle, or
// catalog.ErrCreatureNotFound when creatureID is unknown.
func (e *Engine) CreateBattle(initiator, creatureID string, src rng.Source) (*Battle, error) {
	chosen, err := e.catalog.ByID(creatureID)
	if err != nil {
		return nil, err
	}
	opponent := e.catalog.RandomOpponent(src, creatureID)

	now := e.now()
	b := &Battle{
		ID: uuid.NewString(),
		Sides: [2]Side{
			{Address: initiator, CreatureID: chosen.ID, CurrentHP: chosen.Stats.HP},
			{Address: ComputerAddress, CreatureID: opponent.ID, CurrentHP: opponent.Stats.HP},
		},
		CurrentTurn: DecideFirstMover(chosen, opponent),
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if b.ComputerControlled(b.CurrentTurn) {
		if err := e.applyComputerTurn(b, src); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// ApplyAttack validates and applies the requester's half-turn, then — when
// the battle is still active and the turn passed to the computer — the AI's
// half-turn in the same operation. An empty moveName selects the creature's
// first move; that default is documented behavior, not an error.
//
// The up-to-two half-turns are one atomic unit from the caller's view: the
// session directory holds the battle lock across this whole call, so no
// intermediate state is ever observable or persisted.
//
// Precondition: b must have been loaded under the battle's exclusion; src
// must be non-nil.
// Postcondition: On error the battle is unchanged (no log or health
// mutation). On success one or two TurnRecords were appended.
func (e *Engine) ApplyAttack(b *Battle, requester, moveName string, src rng.Source) error {
	idx, ok := b.SideOf(requester)
	if !ok {
		return ErrForbidden
	}
	if b.Status == StatusFinished {
		return ErrAlreadyFinished
	}
	if b.Status != StatusActive {
		return fmt.Errorf("battle %s is not active", b.ID)
	}
	if b.CurrentTurn != idx {
		return ErrNotYourTurn
	}

	attacker, err := e.combatant(b, idx)
	if err != nil {
		return err
	}

	var move catalog.Move
	if moveName == "" {
		move = attacker.AvailableMoves()[0]
	} else {
		move, ok = attacker.Creature.MoveByName(moveName)
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidMove, moveName)
		}
	}

	if err := e.applyHalfTurn(b, idx, move, src); err != nil {
		return err
	}

	if b.Status == StatusActive && b.ComputerControlled(b.CurrentTurn) {
		return e.applyComputerTurn(b, src)
	}
	return nil
}

// applyComputerTurn asks the policy for a move and applies it for the side
// currently holding the turn.
//
// Precondition: b must be active and the current turn computer-controlled.
func (e *Engine) applyComputerTurn(b *Battle, src rng.Source) error {
	idx := b.CurrentTurn
	own, err := e.combatant(b, idx)
	if err != nil {
		return err
	}
	opp, err := e.combatant(b, idx.Other())
	if err != nil {
		return err
	}
	move := e.policy.ChooseMove(own, opp, e.chart, src)
	return e.applyHalfTurn(b, idx, move, src)
}

// applyHalfTurn resolves move for the acting side, decrements the defender's
// health (clamped at 0), appends the TurnRecord, and either finishes the
// battle or flips the turn.
//
// Precondition: b is active; actor holds the turn; move belongs to the
// actor's creature.
// Postcondition: len(b.Log) grew by exactly 1 with Turn == previous length+1.
// When the defender reached 0 HP the battle is finished with winner = actor
// and the turn did not flip; otherwise the turn flipped to the defender.
func (e *Engine) applyHalfTurn(b *Battle, actor SideIndex, move catalog.Move, src rng.Source) error {
	attacker, err := e.combatant(b, actor)
	if err != nil {
		return err
	}
	defenderIdx := actor.Other()
	defender, err := e.combatant(b, defenderIdx)
	if err != nil {
		return err
	}

	outcome := ResolveMove(move, attacker.Creature, defender.Creature, e.chart, src)

	hp := b.Sides[defenderIdx].CurrentHP - outcome.Damage
	if hp < 0 {
		hp = 0
	}
	b.Sides[defenderIdx].CurrentHP = hp

	now := e.now()
	b.Log = append(b.Log, TurnRecord{
		Turn:      b.NextTurnNumber(),
		Attacker:  actor,
		Move:      move.Name,
		Damage:    outcome.Damage,
		Timestamp: now,
	})
	b.UpdatedAt = now

	if hp == 0 {
		winner := actor
		b.Status = StatusFinished
		b.Winner = &winner
		return nil
	}
	b.CurrentTurn = defenderIdx
	return nil
}

// Surrender finishes an active battle in favor of the non-surrendering side.
// The surrendering side's health is forced to 0 regardless of prior value,
// and a single TurnRecord {move: "surrender", damage: 0} attributed to the
// surrendering side is appended.
//
// Postcondition: On success Status == finished and Winner is the other side;
// on error the battle is unchanged.
func (e *Engine) Surrender(b *Battle, requester string) error {
	idx, ok := b.SideOf(requester)
	if !ok {
		return ErrForbidden
	}
	if b.Status == StatusFinished {
		return ErrAlreadyFinished
	}
	if b.Status != StatusActive {
		return fmt.Errorf("battle %s is not active", b.ID)
	}

	now := e.now()
	winner := idx.Other()
	b.Sides[idx].CurrentHP = 0
	b.Status = StatusFinished
	b.Winner = &winner
	b.Log = append(b.Log, TurnRecord{
		Turn:      b.NextTurnNumber(),
		Attacker:  idx,
		Move:      "surrender",
		Damage:    0,
		Timestamp: now,
	})
	b.UpdatedAt = now
	return nil
}

// ForceTimeout finishes an active battle in favor of the side NOT holding
// the turn — the side that was kept waiting. A timeout is not a half-turn,
// so no TurnRecord is appended and health is left as-is.
//
// Calling ForceTimeout on an already-finished battle returns
// ErrAlreadyFinished without mutation, which is what makes a delayed timer
// firing after a normal finish harmless.
//
// Postcondition: On success Status == finished and Winner is the waiting side.
func (e *Engine) ForceTimeout(b *Battle) error {
	if b.Status == StatusFinished {
		return ErrAlreadyFinished
	}
	if b.Status != StatusActive {
		return fmt.Errorf("battle %s is not active", b.ID)
	}

	winner := b.CurrentTurn.Other()
	b.Status = StatusFinished
	b.Winner = &winner
	b.UpdatedAt = e.now()
	return nil
}
