package battle_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/monduel/internal/game/battle"
	"github.com/cory-johannsen/monduel/internal/game/catalog"
)

// Fixture creatures mirror the classic starter matchup: the initiator's
// creature is slower, so the computer opens the battle.
func pikachu() *catalog.Creature {
	return &catalog.Creature{
		ID:    "pikachu",
		Name:  "Pikachu",
		Types: []string{"electric"},
		Level: 50,
		Stats: catalog.Stats{HP: 100, Attack: 55, Defense: 40, Speed: 90},
		Moves: []catalog.Move{
			{Name: "Thunder Shock", Type: "electric", Power: 40, Accuracy: 100},
			{Name: "Quick Attack", Type: "normal", Power: 40, Accuracy: 100},
			{Name: "Thunderbolt", Type: "electric", Power: 90, Accuracy: 100},
		},
	}
}

func charizard() *catalog.Creature {
	return &catalog.Creature{
		ID:    "charizard",
		Name:  "Charizard",
		Types: []string{"fire", "flying"},
		Level: 50,
		Stats: catalog.Stats{HP: 100, Attack: 84, Defense: 78, Speed: 100},
		Moves: []catalog.Move{
			{Name: "Flamethrower", Type: "fire", Power: 90, Accuracy: 100},
			{Name: "Dragon Claw", Type: "dragon", Power: 80, Accuracy: 100},
			{Name: "Defense Curl", Type: "normal", Power: 10, Accuracy: 100, Defensive: true},
		},
	}
}

func testRegistry(t *testing.T) *catalog.Registry {
	t.Helper()
	reg, err := catalog.NewRegistry([]*catalog.Creature{pikachu(), charizard()})
	require.NoError(t, err)
	return reg
}

func testEngine(t *testing.T) *battle.Engine {
	t.Helper()
	return battle.NewEngine(testRegistry(t), nil, battle.GreedyPolicy{})
}

// firstMoveSource always selects index 0 and always passes accuracy gates
// for moves with accuracy >= 1.
type firstMoveSource struct{}

func (firstMoveSource) Intn(n int) int { return 0 }

// seqSource replays a fixed sequence of values, reducing each modulo n.
type seqSource struct {
	values []int
	i      int
}

func (s *seqSource) Intn(n int) int {
	v := s.values[s.i%len(s.values)]
	s.i++
	return v % n
}
