// Package battle implements the authoritative battle state machine: turn
// order, damage resolution, opponent policy, and terminal-state detection.
// All mutation of a Battle flows through the Engine; every other component
// treats the aggregate as read-only.
package battle

import (
	"time"
)

// ComputerAddress is the reserved participant identity for the AI side.
const ComputerAddress = "computer"

// SideIndex identifies one of the two participant slots in a Battle.
type SideIndex int

const (
	// SideA is the initiating (human) side.
	SideA SideIndex = 0
	// SideB is the opponent side (the computer in PvE battles).
	SideB SideIndex = 1
)

// Other returns the opposing side index.
//
// Postcondition: SideA.Other() == SideB and SideB.Other() == SideA.
func (s SideIndex) Other() SideIndex {
	if s == SideA {
		return SideB
	}
	return SideA
}

// String returns "side-a" or "side-b".
func (s SideIndex) String() string {
	if s == SideA {
		return "side-a"
	}
	return "side-b"
}

// Status is the battle lifecycle state. Transitions only move forward:
// pending -> active -> finished.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Side is one participant slot: who is playing, which creature, and the
// battle-local health overlay. The struct is role-free; attacker and
// defender are decided by parameter order at each call site.
type Side struct {
	// Address is the participant's wallet address, or ComputerAddress.
	Address string `json:"address"`
	// CreatureID references the catalog creature fighting for this side.
	CreatureID string `json:"creatureId"`
	// CurrentHP is the creature's remaining health, clamped to [0, capacity].
	CurrentHP int `json:"currentHp"`
}

// TurnRecord is one immutable battle-log entry describing a single half-turn.
type TurnRecord struct {
	// Turn is the 1-based, strictly increasing half-turn index.
	Turn int `json:"turn"`
	// Attacker is the side that acted.
	Attacker SideIndex `json:"attacker"`
	// Move is the name of the move used ("surrender" for a surrender record).
	Move string `json:"move"`
	// Damage is the health removed from the defender; 0 on a miss or surrender.
	Damage int `json:"damage"`
	// Timestamp is when the half-turn was applied.
	Timestamp time.Time `json:"timestamp"`
}

// Battle is the core mutable aggregate. It is created by the Engine, mutated
// only through Engine entry points, and immutable once finished.
type Battle struct {
	ID          string       `json:"id"`
	Sides       [2]Side      `json:"sides"`
	CurrentTurn SideIndex    `json:"currentTurn"`
	Status      Status       `json:"status"`
	Winner      *SideIndex   `json:"winner,omitempty"`
	Log         []TurnRecord `json:"battleLog"`
	// Version is the optimistic-concurrency token maintained by the store.
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SideOf returns the index of the side owned by address.
//
// Postcondition: Returns (index, true) if address participates, else (0, false).
func (b *Battle) SideOf(address string) (SideIndex, bool) {
	if b.Sides[SideA].Address == address {
		return SideA, true
	}
	if b.Sides[SideB].Address == address {
		return SideB, true
	}
	return SideA, false
}

// IsParticipant reports whether address owns one of the two sides.
func (b *Battle) IsParticipant(address string) bool {
	_, ok := b.SideOf(address)
	return ok
}

// HumanSide returns the index of the first non-computer side.
// Postcondition: Returns SideA for PvE battles created by the Engine.
func (b *Battle) HumanSide() SideIndex {
	if b.Sides[SideA].Address != ComputerAddress {
		return SideA
	}
	return SideB
}

// ComputerControlled reports whether the given side is the AI.
func (b *Battle) ComputerControlled(idx SideIndex) bool {
	return b.Sides[idx].Address == ComputerAddress
}

// NextTurnNumber returns the index the next TurnRecord must carry.
// The battle-log invariant: record i holds Turn == i+1.
func (b *Battle) NextTurnNumber() int {
	return len(b.Log) + 1
}

// Clone returns a deep copy of the battle. The session directory clones
// before handing snapshots to notification fan-out so engine mutations never
// race with serialization.
//
// Postcondition: The returned battle shares no mutable state with b.
func (b *Battle) Clone() *Battle {
	cp := *b
	cp.Log = make([]TurnRecord, len(b.Log))
	copy(cp.Log, b.Log)
	if b.Winner != nil {
		w := *b.Winner
		cp.Winner = &w
	}
	return &cp
}
