// Package session provides the battle directory: the single coordination
// point between transport handlers, the battle engine, persistence, turn
// timers, and notification fan-out. Handlers never touch the engine or the
// store directly; every battle operation flows through the Directory so that
// per-battle mutual exclusion holds across load, apply, and save.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/monduel/internal/game/battle"
	"github.com/cory-johannsen/monduel/internal/game/rng"
)

// maxUpdateRetries bounds the reload-and-reapply loop on version conflicts.
// Conflicts on a battle row require a writer outside this process; retrying
// forever would mask that misconfiguration.
const maxUpdateRetries = 3

// BattleStore is the persistence surface the Directory needs. The postgres
// BattleRepository satisfies it.
type BattleStore interface {
	Create(ctx context.Context, b *battle.Battle) error
	GetByID(ctx context.Context, id string) (*battle.Battle, error)
	ListByAddress(ctx context.Context, address string) ([]*battle.Battle, error)
	ListActive(ctx context.Context) ([]*battle.Battle, error)
	Update(ctx context.Context, b *battle.Battle) error
}

// StatsRecorder receives win/loss results for human trainers when battles
// finish. Recording failures are logged, never propagated: a battle outcome
// must not be blocked by a statistics write.
type StatsRecorder interface {
	RecordResult(ctx context.Context, address string, won bool) error
}

// Notifier receives battle snapshots after every state change. Delivery is
// fire-and-forget from the Directory's perspective; implementations must not
// block.
type Notifier interface {
	BattleUpdated(b *battle.Battle)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) BattleUpdated(*battle.Battle) {}

// battleLock is a refcounted mutex so the lock table shrinks back after a
// battle goes quiet.
type battleLock struct {
	mu   sync.Mutex
	refs int
}

// Directory owns all live battle coordination. All methods are safe for
// concurrent use; operations on the same battle serialize, operations on
// different battles run concurrently.
type Directory struct {
	store    BattleStore
	engine   *battle.Engine
	src      rng.Source
	stats    StatsRecorder
	notifier Notifier
	timeout  time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	locks  map[string]*battleLock
	timers map[string]*battle.TurnTimer
	closed bool
}

// NewDirectory creates a Directory.
//
// Precondition: store, engine, src, stats, notifier, and logger must be
// non-nil; timeout must be positive.
func NewDirectory(store BattleStore, engine *battle.Engine, src rng.Source, stats StatsRecorder, notifier Notifier, timeout time.Duration, logger *zap.Logger) *Directory {
	return &Directory{
		store:    store,
		engine:   engine,
		src:      src,
		stats:    stats,
		notifier: notifier,
		timeout:  timeout,
		logger:   logger,
		locks:    make(map[string]*battleLock),
		timers:   make(map[string]*battle.TurnTimer),
	}
}

// lockBattle acquires the per-battle mutex for id and returns its release
// function.
func (d *Directory) lockBattle(id string) func() {
	d.mu.Lock()
	bl, ok := d.locks[id]
	if !ok {
		bl = &battleLock{}
		d.locks[id] = bl
	}
	bl.refs++
	d.mu.Unlock()

	bl.mu.Lock()
	return func() {
		bl.mu.Unlock()
		d.mu.Lock()
		bl.refs--
		if bl.refs == 0 {
			delete(d.locks, id)
		}
		d.mu.Unlock()
	}
}

// StartBattle creates, persists, and announces a new battle for the trainer.
//
// Precondition: address must be a canonical trainer address; creatureID must
// name a catalog creature.
// Postcondition: The battle exists in the store with its turn timer armed
// (unless the computer's opening half-turn already finished it).
func (d *Directory) StartBattle(ctx context.Context, address, creatureID string) (*battle.Battle, error) {
	b, err := d.engine.CreateBattle(address, creatureID, d.src)
	if err != nil {
		return nil, err
	}
	if err := d.store.Create(ctx, b); err != nil {
		return nil, err
	}

	if b.Status == battle.StatusFinished {
		d.recordOutcome(ctx, b)
	} else {
		d.armTimer(b.ID)
	}
	d.notify(b)

	d.logger.Info("battle started",
		zap.String("battle", b.ID),
		zap.String("trainer", address),
		zap.String("creature", creatureID),
		zap.String("opponent", b.Sides[battle.SideB].CreatureID),
	)
	return b, nil
}

// Get loads a battle for one of its participants.
//
// Postcondition: Returns the battle, battle.ErrBattleNotFound, or
// battle.ErrForbidden when requester is not a participant.
func (d *Directory) Get(ctx context.Context, requester, id string) (*battle.Battle, error) {
	b, err := d.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.IsParticipant(requester) {
		return nil, battle.ErrForbidden
	}
	return b, nil
}

// List returns all battles the address participates in, newest first.
func (d *Directory) List(ctx context.Context, address string) ([]*battle.Battle, error) {
	return d.store.ListByAddress(ctx, address)
}

// Attack applies the requester's half-turn (with any chained computer
// response) under the battle's exclusion and persists the result.
//
// Postcondition: On success the returned battle reflects the stored state and
// observers were notified. On engine rejection the battle is unchanged.
func (d *Directory) Attack(ctx context.Context, requester, id, moveName string) (*battle.Battle, error) {
	return d.apply(ctx, id, func(b *battle.Battle) error {
		return d.engine.ApplyAttack(b, requester, moveName, d.src)
	})
}

// Surrender concedes the battle for the requester under the battle's
// exclusion and persists the result.
func (d *Directory) Surrender(ctx context.Context, requester, id string) (*battle.Battle, error) {
	return d.apply(ctx, id, func(b *battle.Battle) error {
		return d.engine.Surrender(b, requester)
	})
}

// apply runs mutate on the freshly loaded battle and saves it, holding the
// per-battle lock across the whole load-apply-save window. A version conflict
// reloads and reapplies, at most maxUpdateRetries times.
func (d *Directory) apply(ctx context.Context, id string, mutate func(*battle.Battle) error) (*battle.Battle, error) {
	release := d.lockBattle(id)
	defer release()

	var b *battle.Battle
	for attempt := 0; ; attempt++ {
		var err error
		b, err = d.store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := mutate(b); err != nil {
			return nil, err
		}
		err = d.store.Update(ctx, b)
		if err == nil {
			break
		}
		if !errors.Is(err, battle.ErrVersionConflict) {
			return nil, err
		}
		if attempt+1 >= maxUpdateRetries {
			return nil, fmt.Errorf("battle %s: giving up after %d conflicting updates: %w", id, maxUpdateRetries, err)
		}
		d.logger.Warn("battle update conflicted, retrying",
			zap.String("battle", id),
			zap.Int("attempt", attempt+1),
		)
	}

	if b.Status == battle.StatusFinished {
		d.stopTimer(id)
		d.recordOutcome(ctx, b)
	} else {
		d.armTimer(id)
	}
	d.notify(b)
	return b, nil
}

// Resume re-arms turn timers for every active battle. Called once at startup
// so battles orphaned by a restart still time out.
//
// Postcondition: Every active battle has a running timer.
func (d *Directory) Resume(ctx context.Context) error {
	active, err := d.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("listing active battles: %w", err)
	}
	for _, b := range active {
		d.armTimer(b.ID)
	}
	if len(active) > 0 {
		d.logger.Info("resumed battle timers", zap.Int("count", len(active)))
	}
	return nil
}

// Close stops all timers. In-flight operations finish; new timer arms are
// ignored.
func (d *Directory) Close() {
	d.mu.Lock()
	d.closed = true
	timers := make([]*battle.TurnTimer, 0, len(d.timers))
	for id, tt := range d.timers {
		timers = append(timers, tt)
		delete(d.timers, id)
	}
	d.mu.Unlock()

	for _, tt := range timers {
		tt.Stop()
	}
}

// armTimer starts or resets the idle timer for a battle.
func (d *Directory) armTimer(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	onFire := func() { d.timeoutBattle(id) }
	if tt, ok := d.timers[id]; ok {
		tt.Reset(d.timeout, onFire)
		return
	}
	d.timers[id] = battle.NewTurnTimer(d.timeout, onFire)
}

// stopTimer cancels and forgets a battle's timer.
func (d *Directory) stopTimer(id string) {
	d.mu.Lock()
	tt, ok := d.timers[id]
	delete(d.timers, id)
	d.mu.Unlock()
	if ok {
		tt.Stop()
	}
}

// timeoutBattle runs when a battle's idle timer fires: the side left waiting
// wins. A timer racing a normal finish loses cleanly via ErrAlreadyFinished.
func (d *Directory) timeoutBattle(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b, err := d.apply(ctx, id, func(b *battle.Battle) error {
		return d.engine.ForceTimeout(b)
	})
	if err != nil {
		if errors.Is(err, battle.ErrAlreadyFinished) || errors.Is(err, battle.ErrBattleNotFound) {
			d.stopTimer(id)
			return
		}
		d.logger.Error("battle timeout failed", zap.String("battle", id), zap.Error(err))
		return
	}

	winner := "none"
	if b.Winner != nil {
		winner = b.Winner.String()
	}
	d.logger.Info("battle timed out", zap.String("battle", id), zap.String("winner", winner))
}

// recordOutcome writes win/loss statistics for the human side of a finished
// battle.
//
// Precondition: b.Status == finished and b.Winner != nil.
func (d *Directory) recordOutcome(ctx context.Context, b *battle.Battle) {
	human := b.HumanSide()
	if b.ComputerControlled(human) {
		return
	}
	won := b.Winner != nil && *b.Winner == human
	if err := d.stats.RecordResult(ctx, b.Sides[human].Address, won); err != nil {
		d.logger.Warn("recording battle outcome failed",
			zap.String("battle", b.ID),
			zap.String("trainer", b.Sides[human].Address),
			zap.Error(err),
		)
	}
}

// notify hands a deep copy to the notifier so fan-out serialization never
// races engine mutation.
func (d *Directory) notify(b *battle.Battle) {
	d.notifier.BattleUpdated(b.Clone())
}
