// Package main provides the battle server binary: HTTP API, WebSocket battle
// streams, and the authoritative battle engine over PostgreSQL.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/monduel/internal/api"
	"github.com/cory-johannsen/monduel/internal/auth"
	"github.com/cory-johannsen/monduel/internal/config"
	"github.com/cory-johannsen/monduel/internal/game/battle"
	"github.com/cory-johannsen/monduel/internal/game/catalog"
	"github.com/cory-johannsen/monduel/internal/game/rng"
	"github.com/cory-johannsen/monduel/internal/game/session"
	"github.com/cory-johannsen/monduel/internal/observability"
	"github.com/cory-johannsen/monduel/internal/scripting"
	"github.com/cory-johannsen/monduel/internal/server"
	"github.com/cory-johannsen/monduel/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	src := rng.NewCryptoSource()

	// Load the creature catalog and type chart.
	contentStart := time.Now()
	creatures, err := catalog.LoadCreatures(filepath.Join(cfg.Battle.ContentDir, "creatures"))
	if err != nil {
		logger.Fatal("loading creatures", zap.Error(err))
	}
	registry, err := catalog.NewRegistry(creatures)
	if err != nil {
		logger.Fatal("building creature registry", zap.Error(err))
	}
	chart, err := battle.LoadTypeChart(filepath.Join(cfg.Battle.ContentDir, "typechart.yaml"))
	if err != nil {
		logger.Fatal("loading type chart", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("creatures", registry.Count()),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	// Opponent behavior scripts are optional; the greedy policy covers
	// creatures without one.
	greedy := battle.GreedyPolicy{LowHealthRatio: cfg.Battle.LowHealthRatio}
	var policy battle.Policy = greedy
	scripts := scripting.NewManager(logger)
	defer scripts.Close()
	scriptDir := filepath.Join(cfg.Battle.ContentDir, "scripts")
	if info, statErr := os.Stat(scriptDir); statErr == nil && info.IsDir() {
		if err := scripts.LoadDir(scriptDir, cfg.Battle.ScriptInstructionLimit); err != nil {
			logger.Fatal("loading opponent scripts", zap.String("dir", scriptDir), zap.Error(err))
		}
		policy = &scripting.ScriptedPolicy{Scripts: scripts, Fallback: greedy, Logger: logger}
		logger.Info("opponent scripts loaded", zap.String("dir", scriptDir))
	}

	// Connect to PostgreSQL.
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	trainerRepo := postgres.NewTrainerRepository(pool.DB())
	battleRepo := postgres.NewBattleRepository(pool.DB())

	// Auth.
	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := auth.NewService(trainerRepo, issuer, logger)

	// Battle engine and session directory. The hub is created first so the
	// directory can fan updates out to WebSocket subscribers.
	engine := battle.NewEngine(registry, chart, policy)
	var directory *session.Directory
	hubDirectory := directoryRef{ref: &directory}
	hub := api.NewHub(hubDirectory, registry, logger)
	directory = session.NewDirectory(battleRepo, engine, src, trainerRepo, hub, cfg.Battle.TurnTimeout, logger)

	if err := directory.Resume(ctx); err != nil {
		logger.Fatal("resuming active battles", zap.Error(err))
	}

	handler := api.NewHandler(authService, directory, trainerRepo, registry, logger)
	httpServer := api.NewServer(cfg.Server, handler, hub, issuer, logger)

	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("http", httpServer)

	lifecycle.Add("battles", &server.FuncService{
		StartFn: func() error {
			select {} // timers run inside the directory
		},
		StopFn: func() {
			directory.Close()
			hub.Close()
		},
	})

	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func() error {
			for {
				time.Sleep(30 * time.Second)
				if err := pool.Health(ctx, 5*time.Second); err != nil {
					logger.Warn("database health check failed", zap.Error(err))
				}
			}
		},
		StopFn: func() {
			pool.Close()
		},
	})

	logger.Info("battle server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("http_addr", cfg.Server.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// directoryRef defers dereferencing until call time, breaking the
// construction cycle between the hub (which authorizes subscriptions through
// the directory) and the directory (which notifies the hub).
type directoryRef struct {
	ref **session.Directory
}

func (d directoryRef) StartBattle(ctx context.Context, address, creatureID string) (*battle.Battle, error) {
	return (*d.ref).StartBattle(ctx, address, creatureID)
}

func (d directoryRef) Get(ctx context.Context, requester, id string) (*battle.Battle, error) {
	return (*d.ref).Get(ctx, requester, id)
}

func (d directoryRef) List(ctx context.Context, address string) ([]*battle.Battle, error) {
	return (*d.ref).List(ctx, address)
}

func (d directoryRef) Attack(ctx context.Context, requester, id, moveName string) (*battle.Battle, error) {
	return (*d.ref).Attack(ctx, requester, id, moveName)
}

func (d directoryRef) Surrender(ctx context.Context, requester, id string) (*battle.Battle, error) {
	return (*d.ref).Surrender(ctx, requester, id)
}
