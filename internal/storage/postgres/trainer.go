package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Trainer represents a wallet-identified player in the database. Address is
// always stored lowercased so lookups are case-insensitive.
type Trainer struct {
	Address     string
	Nonce       string
	GamesPlayed int
	Wins        int
	Losses      int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ErrTrainerNotFound is returned when a trainer lookup yields no results.
var ErrTrainerNotFound = errors.New("trainer not found")

// TrainerRepository provides trainer persistence operations.
type TrainerRepository struct {
	db *pgxpool.Pool
}

// NewTrainerRepository creates a TrainerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewTrainerRepository(db *pgxpool.Pool) *TrainerRepository {
	return &TrainerRepository{db: db}
}

// UpsertNonce inserts the trainer if it does not exist and sets its current
// sign-in nonce either way. Issuing a nonce is the first contact a wallet has
// with the server, so this doubles as registration.
//
// Precondition: address must be non-empty and lowercased; nonce must be non-empty.
// Postcondition: Returns the trainer with the new nonce set.
func (r *TrainerRepository) UpsertNonce(ctx context.Context, address, nonce string) (Trainer, error) {
	var tr Trainer
	err := r.db.QueryRow(ctx,
		`INSERT INTO trainers (address, nonce)
		 VALUES ($1, $2)
		 ON CONFLICT (address)
		 DO UPDATE SET nonce = EXCLUDED.nonce, updated_at = NOW()
		 RETURNING address, nonce, games_played, wins, losses, created_at, updated_at`,
		address, nonce,
	).Scan(&tr.Address, &tr.Nonce, &tr.GamesPlayed, &tr.Wins, &tr.Losses, &tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		return Trainer{}, fmt.Errorf("upserting trainer nonce: %w", err)
	}
	return tr, nil
}

// GetByAddress retrieves a trainer by wallet address.
//
// Precondition: address must be non-empty and lowercased.
// Postcondition: Returns the Trainer or ErrTrainerNotFound.
func (r *TrainerRepository) GetByAddress(ctx context.Context, address string) (Trainer, error) {
	var tr Trainer
	err := r.db.QueryRow(ctx,
		`SELECT address, nonce, games_played, wins, losses, created_at, updated_at
		 FROM trainers WHERE address = $1`,
		address,
	).Scan(&tr.Address, &tr.Nonce, &tr.GamesPlayed, &tr.Wins, &tr.Losses, &tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Trainer{}, ErrTrainerNotFound
		}
		return Trainer{}, fmt.Errorf("querying trainer: %w", err)
	}
	return tr, nil
}

// RotateNonce replaces the trainer's nonce after a successful signature
// verification, closing the replay window.
//
// Precondition: address must reference an existing trainer; nonce must be fresh.
// Postcondition: Returns nil on success, ErrTrainerNotFound if no row updated.
func (r *TrainerRepository) RotateNonce(ctx context.Context, address, nonce string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE trainers SET nonce = $2, updated_at = NOW() WHERE address = $1`,
		address, nonce,
	)
	if err != nil {
		return fmt.Errorf("rotating trainer nonce: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTrainerNotFound
	}
	return nil
}

// RecordResult increments the trainer's game counters after a battle finishes.
//
// Precondition: address must reference an existing trainer.
// Postcondition: games_played grew by 1 and exactly one of wins/losses grew by 1,
// or ErrTrainerNotFound is returned.
func (r *TrainerRepository) RecordResult(ctx context.Context, address string, won bool) error {
	winInc, lossInc := 0, 1
	if won {
		winInc, lossInc = 1, 0
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE trainers
		 SET games_played = games_played + 1,
		     wins = wins + $2,
		     losses = losses + $3,
		     updated_at = NOW()
		 WHERE address = $1`,
		address, winInc, lossInc,
	)
	if err != nil {
		return fmt.Errorf("recording trainer result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTrainerNotFound
	}
	return nil
}
