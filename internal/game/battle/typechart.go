package battle

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TypeChart maps attacking move type -> defending creature type -> damage
// multiplier. Pairs absent from the chart default to 1.0; against a
// multi-typed defender the multipliers compound multiplicatively.
type TypeChart map[string]map[string]float64

// Multiplier returns the compound effectiveness of moveType against the
// given defender types.
//
// Precondition: defenderTypes is non-empty (catalog invariant).
// Postcondition: Returns > 0; returns 1.0 when no pair is listed.
func (tc TypeChart) Multiplier(moveType string, defenderTypes []string) float64 {
	mult := 1.0
	row, ok := tc[moveType]
	if !ok {
		return mult
	}
	for _, dt := range defenderTypes {
		if m, listed := row[dt]; listed {
			mult *= m
		}
	}
	return mult
}

// Validate checks that every listed multiplier is non-negative.
//
// Postcondition: Returns nil iff all multipliers are >= 0.
func (tc TypeChart) Validate() error {
	for atk, row := range tc {
		for def, m := range row {
			if m < 0 {
				return fmt.Errorf("type chart: %s vs %s: multiplier must be >= 0, got %v", atk, def, m)
			}
		}
	}
	return nil
}

// LoadTypeChart reads a TypeChart from a YAML file.
//
// Precondition: path must be a readable YAML file.
// Postcondition: Returns a validated chart or an error.
func LoadTypeChart(path string) (TypeChart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading type chart %q: %w", path, err)
	}
	var tc TypeChart
	if err := yaml.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("parsing type chart YAML: %w", err)
	}
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	return tc, nil
}
