package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/monduel/internal/storage/postgres"
	"github.com/cory-johannsen/monduel/internal/testutil"
)

func uniqueAddress(prefix string) string {
	return fmt.Sprintf("0x%s%d", prefix, time.Now().UnixNano())
}

func TestTrainerRepository_UpsertNonce_CreatesTrainer(t *testing.T) {
	repo := postgres.NewTrainerRepository(testutil.NewPool(t))
	ctx := context.Background()
	addr := uniqueAddress("aaa")

	tr, err := repo.UpsertNonce(ctx, addr, "nonce-1")
	require.NoError(t, err)

	assert.Equal(t, addr, tr.Address)
	assert.Equal(t, "nonce-1", tr.Nonce)
	assert.Zero(t, tr.GamesPlayed)
	assert.Zero(t, tr.Wins)
	assert.Zero(t, tr.Losses)
	assert.False(t, tr.CreatedAt.IsZero())
}

func TestTrainerRepository_UpsertNonce_ReplacesNonce(t *testing.T) {
	repo := postgres.NewTrainerRepository(testutil.NewPool(t))
	ctx := context.Background()
	addr := uniqueAddress("bbb")

	_, err := repo.UpsertNonce(ctx, addr, "nonce-1")
	require.NoError(t, err)

	tr, err := repo.UpsertNonce(ctx, addr, "nonce-2")
	require.NoError(t, err)
	assert.Equal(t, "nonce-2", tr.Nonce)

	// Still one row; counters untouched by the upsert.
	got, err := repo.GetByAddress(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, "nonce-2", got.Nonce)
	assert.Zero(t, got.GamesPlayed)
}

func TestTrainerRepository_GetByAddress_NotFound(t *testing.T) {
	repo := postgres.NewTrainerRepository(testutil.NewPool(t))

	_, err := repo.GetByAddress(context.Background(), uniqueAddress("zzz"))
	assert.ErrorIs(t, err, postgres.ErrTrainerNotFound)
}

func TestTrainerRepository_RotateNonce(t *testing.T) {
	repo := postgres.NewTrainerRepository(testutil.NewPool(t))
	ctx := context.Background()
	addr := uniqueAddress("ccc")

	_, err := repo.UpsertNonce(ctx, addr, "nonce-1")
	require.NoError(t, err)

	require.NoError(t, repo.RotateNonce(ctx, addr, "nonce-2"))

	tr, err := repo.GetByAddress(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, "nonce-2", tr.Nonce)
}

func TestTrainerRepository_RotateNonce_NotFound(t *testing.T) {
	repo := postgres.NewTrainerRepository(testutil.NewPool(t))

	err := repo.RotateNonce(context.Background(), uniqueAddress("yyy"), "nonce")
	assert.ErrorIs(t, err, postgres.ErrTrainerNotFound)
}

func TestTrainerRepository_RecordResult(t *testing.T) {
	repo := postgres.NewTrainerRepository(testutil.NewPool(t))
	ctx := context.Background()
	addr := uniqueAddress("ddd")

	_, err := repo.UpsertNonce(ctx, addr, "nonce")
	require.NoError(t, err)

	require.NoError(t, repo.RecordResult(ctx, addr, true))
	require.NoError(t, repo.RecordResult(ctx, addr, false))
	require.NoError(t, repo.RecordResult(ctx, addr, true))

	tr, err := repo.GetByAddress(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, 3, tr.GamesPlayed)
	assert.Equal(t, 2, tr.Wins)
	assert.Equal(t, 1, tr.Losses)
}

func TestTrainerRepository_RecordResult_NotFound(t *testing.T) {
	repo := postgres.NewTrainerRepository(testutil.NewPool(t))

	err := repo.RecordResult(context.Background(), uniqueAddress("xxx"), true)
	assert.ErrorIs(t, err, postgres.ErrTrainerNotFound)
}
