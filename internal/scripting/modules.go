package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/monduel/internal/game/battle"
	"github.com/cory-johannsen/monduel/internal/game/catalog"
)

// scriptedType is a synthetic element used to funnel a script-supplied
// multiplier through the real damage formula, so arena.damage and the
// resolver can never disagree on rounding.
const scriptedType = "__scripted__"

// RegisterModules registers the arena.* Lua API into L:
//
//	arena.damage(power, attack, defense[, multiplier]) -> integer
//	arena.log(msg)
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: The arena global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	arena := L.NewTable()
	L.SetFuncs(arena, map[string]lua.LGFunction{
		"damage": m.luaDamage,
		"log":    m.luaLog,
	})
	L.SetGlobal("arena", arena)
}

// luaDamage computes the damage a move would deal, using the same formula
// and rounding as the battle resolver.
func (m *Manager) luaDamage(L *lua.LState) int {
	power := int(L.CheckNumber(1))
	attack := int(L.CheckNumber(2))
	defense := int(L.CheckNumber(3))
	multiplier := 1.0
	if L.GetTop() >= 4 {
		multiplier = float64(L.CheckNumber(4))
	}

	move := catalog.Move{Name: "scripted", Type: scriptedType, Power: power, Accuracy: 100}
	attacker := &catalog.Creature{Stats: catalog.Stats{Attack: attack}}
	defender := &catalog.Creature{
		Types: []string{scriptedType},
		Stats: catalog.Stats{Defense: defense},
	}
	chart := battle.TypeChart{scriptedType: {scriptedType: multiplier}}

	L.Push(lua.LNumber(battle.MoveDamage(move, attacker, defender, chart)))
	return 1
}

// luaLog forwards a script message to the server log at Debug level.
func (m *Manager) luaLog(L *lua.LState) int {
	m.logger.Debug("scripting: script log", zap.String("msg", L.CheckString(1)))
	return 0
}
