package battle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/monduel/internal/game/battle"
	"github.com/cory-johannsen/monduel/internal/game/rng"
)

func TestGreedyPolicy_FinisherWhenOpponentLow(t *testing.T) {
	p := battle.GreedyPolicy{}
	own := battle.Combatant{Creature: charizard(), CurrentHP: 100}
	// Opponent below the 25% threshold: pick the hardest-hitting move.
	opp := battle.Combatant{Creature: pikachu(), CurrentHP: 20}

	move := p.ChooseMove(own, opp, nil, panicSource{})
	assert.Equal(t, "Flamethrower", move.Name)
}

func TestGreedyPolicy_DefensiveWhenOwnLow(t *testing.T) {
	p := battle.GreedyPolicy{}
	own := battle.Combatant{Creature: charizard(), CurrentHP: 10}
	opp := battle.Combatant{Creature: pikachu(), CurrentHP: 100}

	move := p.ChooseMove(own, opp, nil, panicSource{})
	assert.Equal(t, "Defense Curl", move.Name)
	assert.True(t, move.Defensive)
}

func TestGreedyPolicy_UniformFallbackWhenOwnLowWithoutDefensive(t *testing.T) {
	p := battle.GreedyPolicy{}
	own := battle.Combatant{Creature: pikachu(), CurrentHP: 10} // no defensive move
	opp := battle.Combatant{Creature: charizard(), CurrentHP: 100}

	move := p.ChooseMove(own, opp, nil, &seqSource{values: []int{2}})
	assert.Equal(t, "Thunderbolt", move.Name)
}

func TestGreedyPolicy_UniformOtherwise(t *testing.T) {
	p := battle.GreedyPolicy{}
	own := battle.Combatant{Creature: pikachu(), CurrentHP: 100}
	opp := battle.Combatant{Creature: charizard(), CurrentHP: 100}

	move := p.ChooseMove(own, opp, nil, &seqSource{values: []int{1}})
	assert.Equal(t, "Quick Attack", move.Name)
}

func TestGreedyPolicy_DeterministicGivenSeed(t *testing.T) {
	p := battle.GreedyPolicy{}
	own := battle.Combatant{Creature: pikachu(), CurrentHP: 100}
	opp := battle.Combatant{Creature: charizard(), CurrentHP: 100}

	a := p.ChooseMove(own, opp, nil, rng.NewSeededSource(7))
	b := p.ChooseMove(own, opp, nil, rng.NewSeededSource(7))
	assert.Equal(t, a.Name, b.Name)
}

func TestGreedyPolicy_Property_AlwaysOwnMove(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := battle.GreedyPolicy{}
		ownHP := rapid.IntRange(1, 100).Draw(rt, "own_hp")
		oppHP := rapid.IntRange(1, 100).Draw(rt, "opp_hp")
		seed := rapid.Int64().Draw(rt, "seed")

		own := battle.Combatant{Creature: charizard(), CurrentHP: ownHP}
		opp := battle.Combatant{Creature: pikachu(), CurrentHP: oppHP}
		move := p.ChooseMove(own, opp, nil, rng.NewSeededSource(seed))

		_, found := own.Creature.MoveByName(move.Name)
		assert.True(rt, found, "policy must return one of its own creature's moves")
	})
}

func TestCombatant_Queries(t *testing.T) {
	c := battle.Combatant{Creature: pikachu(), CurrentHP: 0}
	assert.True(t, c.IsDefeated())
	c.CurrentHP = 1
	assert.False(t, c.IsDefeated())
	assert.Len(t, c.AvailableMoves(), 3)
}
