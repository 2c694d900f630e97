package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadCreatureFromBytes parses a single creature from raw YAML bytes.
//
// Precondition: data must be valid YAML for a single Creature.
// Postcondition: Returns a validated *Creature, or an error.
func LoadCreatureFromBytes(data []byte) (*Creature, error) {
	var c Creature
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing creature YAML: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCreatures reads all *.yaml files in dir and returns the parsed creatures.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all creatures or an error on the first parse or
// validate failure; on error, the partial result is discarded.
func LoadCreatures(dir string) ([]*Creature, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading creature dir %q: %w", dir, err)
	}

	var creatures []*Creature
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		c, err := LoadCreatureFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		creatures = append(creatures, c)
	}
	return creatures, nil
}
