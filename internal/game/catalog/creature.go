// Package catalog provides creature and move reference data loaded from YAML
// content files. The catalog is read-only once loaded; battle code never
// mutates it and never revalidates it.
package catalog

import (
	"fmt"
)

// Stats holds the four base stats shared by every creature.
type Stats struct {
	HP      int `yaml:"hp" json:"hp"`
	Attack  int `yaml:"attack" json:"attack"`
	Defense int `yaml:"defense" json:"defense"`
	Speed   int `yaml:"speed" json:"speed"`
}

// Move is one attack a creature can use in battle.
type Move struct {
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type" json:"type"`
	Power    int    `yaml:"power" json:"power"`
	Accuracy int    `yaml:"accuracy" json:"accuracy"`
	// Defensive marks a move the opponent policy prefers when its own
	// creature is low on health.
	Defensive bool `yaml:"defensive,omitempty" json:"defensive,omitempty"`
}

// Creature defines a battle-ready creature archetype loaded from YAML.
type Creature struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Types    []string `yaml:"types" json:"types"`
	Level    int      `yaml:"level" json:"level"`
	Stats    Stats    `yaml:"stats" json:"stats"`
	Moves    []Move   `yaml:"moves" json:"moves"`
	ImageURL string   `yaml:"image_url,omitempty" json:"imageUrl,omitempty"`
}

// Validate checks that the creature satisfies the catalog invariants.
// A creature that fails validation is rejected at load time, never at
// battle time.
//
// Precondition: c must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, Types is
// non-empty, Level >= 1, all four stats are >= 1, Moves is non-empty, and
// every move has a name, power >= 0, and accuracy in [0, 100].
func (c *Creature) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("creature: id must not be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("creature %q: name must not be empty", c.ID)
	}
	if len(c.Types) == 0 {
		return fmt.Errorf("creature %q: types must not be empty", c.ID)
	}
	if c.Level < 1 {
		return fmt.Errorf("creature %q: level must be >= 1", c.ID)
	}
	if c.Stats.HP < 1 {
		return fmt.Errorf("creature %q: stats.hp must be >= 1", c.ID)
	}
	if c.Stats.Attack < 1 {
		return fmt.Errorf("creature %q: stats.attack must be >= 1", c.ID)
	}
	if c.Stats.Defense < 1 {
		return fmt.Errorf("creature %q: stats.defense must be >= 1", c.ID)
	}
	if c.Stats.Speed < 1 {
		return fmt.Errorf("creature %q: stats.speed must be >= 1", c.ID)
	}
	if len(c.Moves) == 0 {
		return fmt.Errorf("creature %q: moves must not be empty", c.ID)
	}
	for i, m := range c.Moves {
		if m.Name == "" {
			return fmt.Errorf("creature %q: move %d: name must not be empty", c.ID, i)
		}
		if m.Type == "" {
			return fmt.Errorf("creature %q: move %q: type must not be empty", c.ID, m.Name)
		}
		if m.Power < 0 {
			return fmt.Errorf("creature %q: move %q: power must be >= 0", c.ID, m.Name)
		}
		if m.Accuracy < 0 || m.Accuracy > 100 {
			return fmt.Errorf("creature %q: move %q: accuracy must be 0-100, got %d", c.ID, m.Name, m.Accuracy)
		}
	}
	return nil
}

// MoveByName returns the creature's move with the given name.
//
// Postcondition: Returns (move, true) if found, or (zero, false) otherwise.
func (c *Creature) MoveByName(name string) (Move, bool) {
	for _, m := range c.Moves {
		if m.Name == name {
			return m, true
		}
	}
	return Move{}, false
}
