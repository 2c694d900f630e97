package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/monduel/internal/game/catalog"
)

func validCreature() *catalog.Creature {
	return &catalog.Creature{
		ID:    "pikachu",
		Name:  "Pikachu",
		Types: []string{"electric"},
		Level: 50,
		Stats: catalog.Stats{HP: 100, Attack: 55, Defense: 40, Speed: 90},
		Moves: []catalog.Move{
			{Name: "Thunder Shock", Type: "electric", Power: 40, Accuracy: 100},
			{Name: "Quick Attack", Type: "normal", Power: 40, Accuracy: 100},
		},
	}
}

func TestCreature_Validate_OK(t *testing.T) {
	require.NoError(t, validCreature().Validate())
}

func TestCreature_Validate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*catalog.Creature)
	}{
		{"empty id", func(c *catalog.Creature) { c.ID = "" }},
		{"empty name", func(c *catalog.Creature) { c.Name = "" }},
		{"no types", func(c *catalog.Creature) { c.Types = nil }},
		{"zero level", func(c *catalog.Creature) { c.Level = 0 }},
		{"zero hp", func(c *catalog.Creature) { c.Stats.HP = 0 }},
		{"zero attack", func(c *catalog.Creature) { c.Stats.Attack = 0 }},
		{"zero defense", func(c *catalog.Creature) { c.Stats.Defense = 0 }},
		{"zero speed", func(c *catalog.Creature) { c.Stats.Speed = 0 }},
		{"no moves", func(c *catalog.Creature) { c.Moves = nil }},
		{"unnamed move", func(c *catalog.Creature) { c.Moves[0].Name = "" }},
		{"untyped move", func(c *catalog.Creature) { c.Moves[0].Type = "" }},
		{"negative power", func(c *catalog.Creature) { c.Moves[0].Power = -1 }},
		{"accuracy over 100", func(c *catalog.Creature) { c.Moves[0].Accuracy = 101 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := validCreature()
			tc.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestCreature_MoveByName(t *testing.T) {
	c := validCreature()
	m, ok := c.MoveByName("Quick Attack")
	require.True(t, ok)
	assert.Equal(t, 40, m.Power)

	_, ok = c.MoveByName("Hyper Beam")
	assert.False(t, ok)
}

func TestLoadCreatureFromBytes(t *testing.T) {
	data := []byte(`
id: charizard
name: Charizard
types: [fire, flying]
level: 50
stats:
  hp: 100
  attack: 84
  defense: 78
  speed: 100
moves:
  - name: Flamethrower
    type: fire
    power: 90
    accuracy: 100
  - name: Dragon Claw
    type: dragon
    power: 80
    accuracy: 100
`)
	c, err := catalog.LoadCreatureFromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, "Charizard", c.Name)
	assert.Equal(t, []string{"fire", "flying"}, c.Types)
	assert.Len(t, c.Moves, 2)
}

func TestLoadCreatureFromBytes_InvalidData(t *testing.T) {
	_, err := catalog.LoadCreatureFromBytes([]byte("id: ghost\nname: Ghost\n"))
	assert.Error(t, err)

	_, err = catalog.LoadCreatureFromBytes([]byte("{not yaml"))
	assert.Error(t, err)
}

func TestLoadCreatures_Directory(t *testing.T) {
	dir := t.TempDir()
	writeCreature := func(name, id string, speed int) {
		data := []byte(`
id: ` + id + `
name: ` + id + `
types: [normal]
level: 5
stats: {hp: 50, attack: 30, defense: 30, speed: ` + itoa(speed) + `}
moves:
  - {name: Tackle, type: normal, power: 40, accuracy: 100}
`)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	writeCreature("a.yaml", "ratta", 72)
	writeCreature("b.yaml", "eevee", 55)
	// Non-YAML files are skipped.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644))

	creatures, err := catalog.LoadCreatures(dir)
	require.NoError(t, err)
	assert.Len(t, creatures, 2)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func TestNewRegistry_DuplicateID(t *testing.T) {
	a := validCreature()
	b := validCreature()
	_, err := catalog.NewRegistry([]*catalog.Creature{a, b})
	assert.Error(t, err)
}

func TestNewRegistry_Empty(t *testing.T) {
	_, err := catalog.NewRegistry(nil)
	assert.Error(t, err)
}

func TestRegistry_ByID(t *testing.T) {
	reg, err := catalog.NewRegistry([]*catalog.Creature{validCreature()})
	require.NoError(t, err)

	c, err := reg.ByID("pikachu")
	require.NoError(t, err)
	assert.Equal(t, "Pikachu", c.Name)

	_, err = reg.ByID("mewtwo")
	assert.ErrorIs(t, err, catalog.ErrCreatureNotFound)
}

type fixedSource struct{ v int }

func (f fixedSource) Intn(n int) int { return f.v % n }

func TestRegistry_RandomOpponent_ExcludesSelected(t *testing.T) {
	a := validCreature()
	b := validCreature()
	b.ID = "charizard"
	b.Name = "Charizard"
	reg, err := catalog.NewRegistry([]*catalog.Creature{a, b})
	require.NoError(t, err)

	for v := 0; v < 5; v++ {
		opp := reg.RandomOpponent(fixedSource{v}, "pikachu")
		assert.Equal(t, "charizard", opp.ID)
	}
}

func TestRegistry_RandomOpponent_MirrorFallback(t *testing.T) {
	reg, err := catalog.NewRegistry([]*catalog.Creature{validCreature()})
	require.NoError(t, err)
	opp := reg.RandomOpponent(fixedSource{0}, "pikachu")
	assert.Equal(t, "pikachu", opp.ID)
}

func TestRegistry_Property_RandomOpponentNeverNil(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 10).Draw(rt, "n")
		creatures := make([]*catalog.Creature, n)
		for i := range creatures {
			c := validCreature()
			c.ID = "c" + itoa(i)
			creatures[i] = c
		}
		reg, err := catalog.NewRegistry(creatures)
		require.NoError(rt, err)

		pick := rapid.IntRange(0, n-1).Draw(rt, "pick")
		v := rapid.IntRange(0, 1000).Draw(rt, "v")
		opp := reg.RandomOpponent(fixedSource{v}, "c"+itoa(pick))
		require.NotNil(rt, opp)
		if n > 1 {
			assert.NotEqual(rt, "c"+itoa(pick), opp.ID)
		}
	})
}
