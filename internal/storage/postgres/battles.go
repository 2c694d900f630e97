package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/monduel/internal/game/battle"
)

// BattleRepository provides battle persistence with optimistic concurrency.
// Every UPDATE carries the version the caller loaded; a stale version yields
// battle.ErrVersionConflict and the caller reloads and retries.
type BattleRepository struct {
	db *pgxpool.Pool
}

// NewBattleRepository creates a BattleRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewBattleRepository(db *pgxpool.Pool) *BattleRepository {
	return &BattleRepository{db: db}
}

// battleColumns is the scan order shared by every SELECT in this file.
const battleColumns = `id,
	side_a_address, side_a_creature, side_a_hp,
	side_b_address, side_b_creature, side_b_hp,
	current_turn, status, winner, battle_log, version, created_at, updated_at`

// Create inserts a new battle row.
//
// Precondition: b must have a unique ID and both sides populated.
// Postcondition: The row exists with version 1 and b.Version == 1.
func (r *BattleRepository) Create(ctx context.Context, b *battle.Battle) error {
	logJSON, err := json.Marshal(b.Log)
	if err != nil {
		return fmt.Errorf("marshalling battle log: %w", err)
	}

	var winner *int16
	if b.Winner != nil {
		w := int16(*b.Winner)
		winner = &w
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO battles
			(id, side_a_address, side_a_creature, side_a_hp,
			 side_b_address, side_b_creature, side_b_hp,
			 current_turn, status, winner, battle_log, version, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		b.ID,
		b.Sides[battle.SideA].Address, b.Sides[battle.SideA].CreatureID, b.Sides[battle.SideA].CurrentHP,
		b.Sides[battle.SideB].Address, b.Sides[battle.SideB].CreatureID, b.Sides[battle.SideB].CurrentHP,
		int16(b.CurrentTurn), string(b.Status), winner, logJSON, int64(1), b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting battle: %w", err)
	}
	b.Version = 1
	return nil
}

// GetByID retrieves a battle by its identifier.
//
// Precondition: id must be non-empty.
// Postcondition: Returns the Battle or battle.ErrBattleNotFound.
func (r *BattleRepository) GetByID(ctx context.Context, id string) (*battle.Battle, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+battleColumns+` FROM battles WHERE id = $1`, id)
	b, err := scanBattle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, battle.ErrBattleNotFound
		}
		return nil, fmt.Errorf("querying battle: %w", err)
	}
	return b, nil
}

// ListByAddress returns all battles the given address participates in,
// newest first.
//
// Precondition: address must be non-empty and lowercased.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *BattleRepository) ListByAddress(ctx context.Context, address string) ([]*battle.Battle, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+battleColumns+` FROM battles
		 WHERE side_a_address = $1 OR side_b_address = $1
		 ORDER BY created_at DESC`,
		address,
	)
	if err != nil {
		return nil, fmt.Errorf("listing battles: %w", err)
	}
	defer rows.Close()
	return collectBattles(rows)
}

// ListActive returns every battle still in the active status. The session
// directory uses this at startup to re-arm turn timers interrupted by a
// restart.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *BattleRepository) ListActive(ctx context.Context) ([]*battle.Battle, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+battleColumns+` FROM battles
		 WHERE status = $1
		 ORDER BY created_at ASC`,
		string(battle.StatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("listing active battles: %w", err)
	}
	defer rows.Close()
	return collectBattles(rows)
}

// Update persists the battle iff the stored version still equals b.Version.
//
// Precondition: b must have been loaded through GetByID so b.Version reflects
// a row that existed.
// Postcondition: On success the row's version is b.Version+1 and b.Version is
// bumped to match. Returns battle.ErrVersionConflict when another writer got
// there first, or battle.ErrBattleNotFound when the row vanished.
func (r *BattleRepository) Update(ctx context.Context, b *battle.Battle) error {
	logJSON, err := json.Marshal(b.Log)
	if err != nil {
		return fmt.Errorf("marshalling battle log: %w", err)
	}

	var winner *int16
	if b.Winner != nil {
		w := int16(*b.Winner)
		winner = &w
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE battles SET
			side_a_hp = $3, side_b_hp = $4,
			current_turn = $5, status = $6, winner = $7,
			battle_log = $8, version = version + 1, updated_at = $9
		 WHERE id = $1 AND version = $2`,
		b.ID, b.Version,
		b.Sides[battle.SideA].CurrentHP, b.Sides[battle.SideB].CurrentHP,
		int16(b.CurrentTurn), string(b.Status), winner, logJSON, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating battle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM battles WHERE id = $1)`, b.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("checking battle existence: %w", err)
		}
		if !exists {
			return battle.ErrBattleNotFound
		}
		return battle.ErrVersionConflict
	}
	b.Version++
	return nil
}

// scanBattle reads one battle row in battleColumns order.
func scanBattle(row pgx.Row) (*battle.Battle, error) {
	var (
		b           battle.Battle
		currentTurn int16
		status      string
		winner      *int16
		logJSON     []byte
	)
	err := row.Scan(
		&b.ID,
		&b.Sides[battle.SideA].Address, &b.Sides[battle.SideA].CreatureID, &b.Sides[battle.SideA].CurrentHP,
		&b.Sides[battle.SideB].Address, &b.Sides[battle.SideB].CreatureID, &b.Sides[battle.SideB].CurrentHP,
		&currentTurn, &status, &winner, &logJSON, &b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.CurrentTurn = battle.SideIndex(currentTurn)
	b.Status = battle.Status(status)
	if winner != nil {
		w := battle.SideIndex(*winner)
		b.Winner = &w
	}
	if err := json.Unmarshal(logJSON, &b.Log); err != nil {
		return nil, fmt.Errorf("unmarshalling battle log: %w", err)
	}
	return &b, nil
}

func collectBattles(rows pgx.Rows) ([]*battle.Battle, error) {
	battles := make([]*battle.Battle, 0)
	for rows.Next() {
		b, err := scanBattle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning battle row: %w", err)
		}
		battles = append(battles, b)
	}
	return battles, rows.Err()
}
