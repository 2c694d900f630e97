package battle

import "errors"

// Sentinel errors forming the battle error taxonomy. The API layer maps
// these to transport responses; none of them leave the aggregate mutated.
var (
	// ErrBattleNotFound is returned when a battle ID cannot be resolved.
	ErrBattleNotFound = errors.New("battle not found")
	// ErrForbidden is returned when the requester is neither side of the battle.
	ErrForbidden = errors.New("not a participant in this battle")
	// ErrNotYourTurn is returned when the acting side does not hold the turn.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrAlreadyFinished is returned for any action against a finished battle.
	ErrAlreadyFinished = errors.New("battle is already finished")
	// ErrInvalidMove is returned when the move name is not in the acting
	// creature's move list.
	ErrInvalidMove = errors.New("invalid move")
	// ErrVersionConflict signals a concurrent-write version mismatch. The
	// session directory retries the whole decide-and-apply cycle; callers
	// never observe it.
	ErrVersionConflict = errors.New("battle version conflict")
)
