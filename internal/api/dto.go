package api

import (
	"github.com/cory-johannsen/monduel/internal/game/battle"
	"github.com/cory-johannsen/monduel/internal/game/catalog"
	"github.com/cory-johannsen/monduel/internal/storage/postgres"
)

// NonceRequest asks for a fresh sign-in nonce for a wallet address.
type NonceRequest struct {
	Address string `json:"address" validate:"required"`
}

// NonceResponse carries the nonce and the exact message the wallet must sign.
type NonceResponse struct {
	Address string `json:"address"`
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}

// VerifyRequest trades a signature over the issued message for a session token.
type VerifyRequest struct {
	Address   string `json:"address" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// VerifyResponse carries the bearer token for subsequent requests.
type VerifyResponse struct {
	Token string `json:"token"`
}

// StartBattleRequest opens a new battle with the chosen creature.
type StartBattleRequest struct {
	CreatureID string `json:"creatureId" validate:"required"`
}

// AttackRequest names the move to use. Empty selects the creature's first move.
type AttackRequest struct {
	Move string `json:"move"`
}

// ProfileResponse is the trainer's lifetime record.
type ProfileResponse struct {
	Address     string `json:"address"`
	GamesPlayed int    `json:"gamesPlayed"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
}

func newProfileResponse(t postgres.Trainer) ProfileResponse {
	return ProfileResponse{
		Address:     t.Address,
		GamesPlayed: t.GamesPlayed,
		Wins:        t.Wins,
		Losses:      t.Losses,
	}
}

// BattleSnapshot is the wire form of a battle: the aggregate itself plus the
// catalog creatures for both sides, so clients never need a second lookup to
// render names, stats, or move lists.
type BattleSnapshot struct {
	*battle.Battle
	Creatures [2]*catalog.Creature `json:"creatures"`
}

func newBattleSnapshot(b *battle.Battle, reg *catalog.Registry) BattleSnapshot {
	snap := BattleSnapshot{Battle: b}
	for i, side := range b.Sides {
		// Unknown IDs leave a nil slot rather than failing the whole read;
		// the catalog is validated at startup so this is a content bug, not
		// a runtime condition.
		if c, err := reg.ByID(side.CreatureID); err == nil {
			snap.Creatures[i] = c
		}
	}
	return snap
}

func newBattleSnapshots(battles []*battle.Battle, reg *catalog.Registry) []BattleSnapshot {
	out := make([]BattleSnapshot, len(battles))
	for i, b := range battles {
		out[i] = newBattleSnapshot(b, reg)
	}
	return out
}

// errorResponse is the uniform error body for every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
}
