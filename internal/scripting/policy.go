package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/monduel/internal/game/battle"
	"github.com/cory-johannsen/monduel/internal/game/catalog"
	"github.com/cory-johannsen/monduel/internal/game/rng"
)

// chooseMoveHook is the Lua global a creature script defines to pick moves:
//
//	function choose_move(own, opponent) return "Move Name" end
//
// Both arguments are snapshot tables (id, name, hp, max_hp, types, moves);
// each entry of moves carries name, type, power, accuracy, defensive, and
// damage, the deterministic damage it would deal to the opponent.
const chooseMoveHook = "choose_move"

// ScriptedPolicy selects the computer's move by dispatching to a creature's
// Lua script, deferring to Fallback when no script exists, the script errors,
// or it names a move the creature does not know. It implements battle.Policy.
type ScriptedPolicy struct {
	Scripts  *Manager
	Fallback battle.Policy
	Logger   *zap.Logger
}

// ChooseMove asks the creature's script for a move name. Every failure mode
// degrades to the fallback policy; a battle turn never fails because of a
// script.
//
// Precondition: Scripts, Fallback, and Logger must be non-nil; own and
// opponent must have non-nil Creatures.
// Postcondition: Returns one of own's moves.
func (p ScriptedPolicy) ChooseMove(own, opponent battle.Combatant, chart battle.TypeChart, src rng.Source) catalog.Move {
	ret, err := p.Scripts.CallHook(own.Creature.ID, chooseMoveHook, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{
			combatantTable(L, own, opponent, chart),
			combatantTable(L, opponent, own, chart),
		}
	})
	if err == nil && ret != lua.LNil {
		if name, ok := ret.(lua.LString); ok {
			if move, found := own.Creature.MoveByName(string(name)); found {
				return move
			}
			p.Logger.Warn("scripting: script chose unknown move",
				zap.String("creature", own.Creature.ID),
				zap.String("move", string(name)),
			)
		}
	}
	return p.Fallback.ChooseMove(own, opponent, chart, src)
}

// combatantTable builds the Lua snapshot of c as seen when attacking target.
func combatantTable(L *lua.LState, c, target battle.Combatant, chart battle.TypeChart) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("id", lua.LString(c.Creature.ID))
	tbl.RawSetString("name", lua.LString(c.Creature.Name))
	tbl.RawSetString("hp", lua.LNumber(c.CurrentHP))
	tbl.RawSetString("max_hp", lua.LNumber(c.Creature.Stats.HP))

	types := L.NewTable()
	for _, t := range c.Creature.Types {
		types.Append(lua.LString(t))
	}
	tbl.RawSetString("types", types)

	moves := L.NewTable()
	for _, move := range c.Creature.Moves {
		mt := L.NewTable()
		mt.RawSetString("name", lua.LString(move.Name))
		mt.RawSetString("type", lua.LString(move.Type))
		mt.RawSetString("power", lua.LNumber(move.Power))
		mt.RawSetString("accuracy", lua.LNumber(move.Accuracy))
		mt.RawSetString("defensive", lua.LBool(move.Defensive))
		mt.RawSetString("damage", lua.LNumber(battle.MoveDamage(move, c.Creature, target.Creature, chart)))
		moves.Append(mt)
	}
	tbl.RawSetString("moves", moves)
	return tbl
}
