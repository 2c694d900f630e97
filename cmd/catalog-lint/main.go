// Package main provides a content linter: it loads the creature catalog,
// type chart, and opponent scripts exactly the way the server does, and
// reports every problem instead of stopping at the first.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/monduel/internal/game/battle"
	"github.com/cory-johannsen/monduel/internal/game/catalog"
	"github.com/cory-johannsen/monduel/internal/scripting"
)

func main() {
	contentDir := flag.String("content", "content", "path to the content directory")
	flag.Parse()

	start := time.Now()
	var problems []string
	report := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	creatures, err := catalog.LoadCreatures(filepath.Join(*contentDir, "creatures"))
	if err != nil {
		report("creatures: %v", err)
	}

	var registry *catalog.Registry
	if creatures != nil {
		registry, err = catalog.NewRegistry(creatures)
		if err != nil {
			report("registry: %v", err)
		}
	}

	chart, err := battle.LoadTypeChart(filepath.Join(*contentDir, "typechart.yaml"))
	if err != nil {
		report("typechart: %v", err)
	}

	// Cross-reference: every creature and move type should be a type the
	// chart knows about, otherwise its matchups silently resolve neutral.
	if registry != nil && chart != nil {
		known := make(map[string]bool)
		for attacking, row := range chart {
			known[attacking] = true
			for defending := range row {
				known[defending] = true
			}
		}
		for _, c := range registry.All() {
			for _, typ := range c.Types {
				if !known[typ] {
					report("creature %s: type %q not present in type chart", c.ID, typ)
				}
			}
			for _, m := range c.Moves {
				if !known[m.Type] {
					report("creature %s: move %q type %q not present in type chart", c.ID, m.Name, m.Type)
				}
			}
		}
	}

	scriptDir := filepath.Join(*contentDir, "scripts")
	if info, statErr := os.Stat(scriptDir); statErr == nil && info.IsDir() {
		scripts := scripting.NewManager(zap.NewNop())
		if err := scripts.LoadDir(scriptDir, scripting.DefaultInstructionLimit); err != nil {
			report("scripts: %v", err)
		}
		scripts.Close()
	}

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintln(os.Stderr, p)
		}
		fmt.Fprintf(os.Stderr, "%d problem(s) found\n", len(problems))
		os.Exit(1)
	}

	count := 0
	if registry != nil {
		count = registry.Count()
	}
	fmt.Printf("content ok: %d creature(s) [%s]\n", count, time.Since(start).Round(time.Millisecond))
}
