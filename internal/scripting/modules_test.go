package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/monduel/internal/game/battle"
	"github.com/cory-johannsen/monduel/internal/game/catalog"
	"github.com/cory-johannsen/monduel/internal/scripting"
)

// evalArena runs a Lua chunk in a fresh sandboxed VM with the arena modules
// registered and returns the value of the global `result`.
func evalArena(t *testing.T, src string) lua.LValue {
	t.Helper()
	mgr := scripting.NewManager(zap.NewNop())
	t.Cleanup(mgr.Close)
	L, cancel := scripting.NewSandboxedState(0)
	t.Cleanup(cancel)
	t.Cleanup(L.Close)
	mgr.RegisterModules(L)
	require.NoError(t, L.DoString(src))
	return L.GetGlobal("result")
}

func TestArenaDamage_MatchesResolver(t *testing.T) {
	// floor(90 * 84/100 * (1 - 40/200)) = 60, same as the Go resolver.
	got := evalArena(t, `result = arena.damage(90, 84, 40)`)
	assert.Equal(t, lua.LNumber(60), got)

	move := catalog.Move{Name: "ref", Type: "fire", Power: 90, Accuracy: 100}
	attacker := &catalog.Creature{Stats: catalog.Stats{Attack: 84}}
	defender := &catalog.Creature{Types: []string{"grass"}, Stats: catalog.Stats{Defense: 40}}
	assert.Equal(t, lua.LNumber(battle.MoveDamage(move, attacker, defender, nil)), got)
}

func TestArenaDamage_AppliesMultiplier(t *testing.T) {
	got := evalArena(t, `result = arena.damage(90, 84, 40, 2.0)`)
	assert.Equal(t, lua.LNumber(120), got)
}

func TestArenaDamage_FloorsAtOne(t *testing.T) {
	got := evalArena(t, `result = arena.damage(1, 1, 199)`)
	assert.Equal(t, lua.LNumber(1), got)
}

func TestArenaLog_NoPanic(t *testing.T) {
	got := evalArena(t, `
		arena.log("hello from lua")
		result = true
	`)
	assert.Equal(t, lua.LTrue, got)
}

func TestProperty_ArenaDamage_AlwaysPositive(t *testing.T) {
	mgr := scripting.NewManager(zap.NewNop())
	t.Cleanup(mgr.Close)
	L, cancel := scripting.NewSandboxedState(0)
	t.Cleanup(cancel)
	t.Cleanup(L.Close)
	mgr.RegisterModules(L)
	require.NoError(t, L.DoString(`function dmg(p, a, d) return arena.damage(p, a, d) end`))

	rapid.Check(t, func(rt *rapid.T) {
		power := rapid.IntRange(0, 250).Draw(rt, "power")
		attack := rapid.IntRange(1, 200).Draw(rt, "attack")
		defense := rapid.IntRange(1, 199).Draw(rt, "defense")

		err := L.CallByParam(lua.P{Fn: L.GetGlobal("dmg"), NRet: 1, Protect: true},
			lua.LNumber(power), lua.LNumber(attack), lua.LNumber(defense))
		require.NoError(rt, err)
		ret := L.Get(-1)
		L.Pop(1)
		if n, ok := ret.(lua.LNumber); !ok || n < 1 {
			rt.Fatalf("expected damage >= 1, got %v", ret)
		}
	})
}
