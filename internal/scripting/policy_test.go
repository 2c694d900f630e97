package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/monduel/internal/game/battle"
	"github.com/cory-johannsen/monduel/internal/game/catalog"
	"github.com/cory-johannsen/monduel/internal/scripting"
)

// fixedSource always returns 0, pinning the fallback policy's uniform pick
// to the first move.
type fixedSource struct{}

func (fixedSource) Intn(int) int { return 0 }

func scriptedPikachu() battle.Combatant {
	return battle.Combatant{
		Creature: &catalog.Creature{
			ID:    "pikachu",
			Name:  "Pikachu",
			Types: []string{"electric"},
			Level: 12,
			Stats: catalog.Stats{HP: 100, Attack: 55, Defense: 40, Speed: 90},
			Moves: []catalog.Move{
				{Name: "Thunder Shock", Type: "electric", Power: 40, Accuracy: 100},
				{Name: "Thunderbolt", Type: "electric", Power: 90, Accuracy: 100},
			},
		},
		CurrentHP: 100,
	}
}

func scriptedCharizard() battle.Combatant {
	return battle.Combatant{
		Creature: &catalog.Creature{
			ID:    "charizard",
			Name:  "Charizard",
			Types: []string{"fire"},
			Level: 36,
			Stats: catalog.Stats{HP: 100, Attack: 84, Defense: 78, Speed: 100},
			Moves: []catalog.Move{
				{Name: "Flamethrower", Type: "fire", Power: 90, Accuracy: 100},
				{Name: "Dragon Claw", Type: "dragon", Power: 80, Accuracy: 100},
			},
		},
		CurrentHP: 100,
	}
}

func newScriptedPolicy(t *testing.T, files map[string]string) scripting.ScriptedPolicy {
	t.Helper()
	mgr := scripting.NewManager(zap.NewNop())
	t.Cleanup(mgr.Close)
	if len(files) > 0 {
		require.NoError(t, mgr.LoadDir(writeScripts(t, files), 0))
	}
	return scripting.ScriptedPolicy{
		Scripts:  mgr,
		Fallback: battle.GreedyPolicy{},
		Logger:   zap.NewNop(),
	}
}

func TestScriptedPolicy_UsesScriptChoice(t *testing.T) {
	policy := newScriptedPolicy(t, map[string]string{
		"pikachu.lua": `
			function choose_move(own, opponent)
				return "Thunderbolt"
			end
		`,
	})

	move := policy.ChooseMove(scriptedPikachu(), scriptedCharizard(), nil, fixedSource{})
	assert.Equal(t, "Thunderbolt", move.Name)
}

func TestScriptedPolicy_ScriptSeesSnapshots(t *testing.T) {
	// The script picks the strongest move by the precomputed damage field,
	// proving the snapshot tables carry resolver-accurate numbers.
	policy := newScriptedPolicy(t, map[string]string{
		"charizard.lua": `
			function choose_move(own, opponent)
				local best = own.moves[1]
				for _, m in ipairs(own.moves) do
					if m.damage > best.damage then
						best = m
					end
				end
				arena.log("picked " .. best.name .. " vs " .. opponent.name)
				return best.name
			end
		`,
	})

	// Flamethrower deals floor(90*0.84*0.8) = 60 against Pikachu's defense 40,
	// Dragon Claw floor(80*0.84*0.8) = 53.
	move := policy.ChooseMove(scriptedCharizard(), scriptedPikachu(), nil, fixedSource{})
	assert.Equal(t, "Flamethrower", move.Name)
}

func TestScriptedPolicy_NoScript_FallsBack(t *testing.T) {
	policy := newScriptedPolicy(t, nil)

	move := policy.ChooseMove(scriptedPikachu(), scriptedCharizard(), nil, fixedSource{})
	assert.Equal(t, "Thunder Shock", move.Name)
}

func TestScriptedPolicy_UnknownMove_FallsBack(t *testing.T) {
	policy := newScriptedPolicy(t, map[string]string{
		"pikachu.lua": `
			function choose_move(own, opponent)
				return "Splash"
			end
		`,
	})

	move := policy.ChooseMove(scriptedPikachu(), scriptedCharizard(), nil, fixedSource{})
	assert.Equal(t, "Thunder Shock", move.Name)
}

func TestScriptedPolicy_ScriptError_FallsBack(t *testing.T) {
	policy := newScriptedPolicy(t, map[string]string{
		"pikachu.lua": `
			function choose_move(own, opponent)
				error("intentional")
			end
		`,
	})

	move := policy.ChooseMove(scriptedPikachu(), scriptedCharizard(), nil, fixedSource{})
	assert.Equal(t, "Thunder Shock", move.Name)
}

func TestScriptedPolicy_RunawayScript_FallsBack(t *testing.T) {
	mgr := scripting.NewManager(zap.NewNop())
	t.Cleanup(mgr.Close)
	dir := writeScripts(t, map[string]string{
		"pikachu.lua": `
			function choose_move(own, opponent)
				while true do end
			end
		`,
	})
	require.NoError(t, mgr.LoadDir(dir, 500))
	policy := scripting.ScriptedPolicy{
		Scripts:  mgr,
		Fallback: battle.GreedyPolicy{},
		Logger:   zap.NewNop(),
	}

	move := policy.ChooseMove(scriptedPikachu(), scriptedCharizard(), nil, fixedSource{})
	assert.Equal(t, "Thunder Shock", move.Name)
}

func TestScriptedPolicy_NonStringReturn_FallsBack(t *testing.T) {
	policy := newScriptedPolicy(t, map[string]string{
		"pikachu.lua": `
			function choose_move(own, opponent)
				return 42
			end
		`,
	})

	move := policy.ChooseMove(scriptedPikachu(), scriptedCharizard(), nil, fixedSource{})
	assert.Equal(t, "Thunder Shock", move.Name)
}
