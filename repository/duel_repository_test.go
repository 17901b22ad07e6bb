package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"seatduel/models"
	"seatduel/repository/testutil"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuelRepository_Lifecycle(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewDuelRepository(testDB.DB)
	ctx := context.Background()

	alice := testDB.CreateTestUser(t, "alice", "Alice")
	bob := testDB.CreateTestUser(t, "bob", "Bob")
	seatID := testDB.CreateTestSeat(t, 1, 1, 1)

	duel := &models.Duel{
		InitiatorID: alice,
		OpponentID:  bob,
		SeatID:      seatID,
		Status:      models.DuelStatusPending,
	}

	t.Run("create assigns id and timestamps", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, duel))
		assert.NotZero(t, duel.ID)
		assert.False(t, duel.CreatedAt.IsZero())
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, duel.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, alice, got.InitiatorID)
		assert.Equal(t, models.DuelStatusPending, got.Status)
		assert.Nil(t, got.WinnerID)
		assert.Nil(t, got.CoinFlip)
	})

	t.Run("get by id returns nil for unknown duel", func(t *testing.T) {
		got, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("active lookups find the pending duel", func(t *testing.T) {
		got, err := repo.GetActiveBySeatForUpdate(ctx, seatID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, duel.ID, got.ID)

		got, err = repo.GetActiveByUser(ctx, bob)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, duel.ID, got.ID)
	})

	t.Run("update records winner and coin flip", func(t *testing.T) {
		flip := models.CoinFlipHeads
		duel.Status = models.DuelStatusCompleted
		duel.WinnerID = &alice
		duel.CoinFlip = &flip
		require.NoError(t, repo.Update(ctx, duel))

		got, err := repo.GetByID(ctx, duel.ID)
		require.NoError(t, err)
		assert.Equal(t, models.DuelStatusCompleted, got.Status)
		assert.Equal(t, alice, *got.WinnerID)
		assert.Equal(t, models.CoinFlipHeads, *got.CoinFlip)
	})

	t.Run("terminal duel is no longer active", func(t *testing.T) {
		got, err := repo.GetActiveBySeatForUpdate(ctx, seatID)
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = repo.GetActiveByUser(ctx, alice)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("update unknown duel", func(t *testing.T) {
		missing := &models.Duel{ID: 999999, Status: models.DuelStatusDeclined}
		err := repo.Update(ctx, missing)
		assert.ErrorIs(t, err, models.ErrDuelNotFound)
	})
}

func TestDuelRepository_OneActiveDuelPerSeat(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewDuelRepository(testDB.DB)
	ctx := context.Background()

	alice := testDB.CreateTestUser(t, "alice", "Alice")
	bob := testDB.CreateTestUser(t, "bob", "Bob")
	carol := testDB.CreateTestUser(t, "carol", "Carol")
	seatID := testDB.CreateTestSeat(t, 1, 1, 1)

	first := &models.Duel{InitiatorID: alice, OpponentID: bob, SeatID: seatID, Status: models.DuelStatusPending}
	require.NoError(t, repo.Create(ctx, first))

	// The partial unique index rejects a second active duel for the seat
	second := &models.Duel{InitiatorID: carol, OpponentID: bob, SeatID: seatID, Status: models.DuelStatusPending}
	err := repo.Create(ctx, second)
	require.Error(t, err)

	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "23505", pgErr.Code)

	// Once the first duel is terminal the seat is contestable again
	first.Status = models.DuelStatusDeclined
	require.NoError(t, repo.Update(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
}

func TestDuelRepository_ListPendingBefore(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewDuelRepository(testDB.DB)
	ctx := context.Background()

	alice := testDB.CreateTestUser(t, "alice", "Alice")
	bob := testDB.CreateTestUser(t, "bob", "Bob")
	seatID := testDB.CreateTestSeat(t, 1, 1, 1)

	duel := &models.Duel{InitiatorID: alice, OpponentID: bob, SeatID: seatID, Status: models.DuelStatusPending}
	require.NoError(t, repo.Create(ctx, duel))

	// Cutoff in the future catches the fresh duel
	expired, err := repo.ListPendingBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, duel.ID, expired[0].ID)

	// Cutoff in the past catches nothing
	expired, err = repo.ListPendingBefore(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, expired)

	// Terminal duels never show up regardless of age
	duel.Status = models.DuelStatusTimeout
	require.NoError(t, repo.Update(ctx, duel))
	expired, err = repo.ListPendingBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, expired)
}
