package service

import (
	"context"
	"testing"
	"time"

	"seatduel/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type duelServiceFixture struct {
	factory   *MockUnitOfWorkFactory
	uow       *MockUnitOfWork
	seats     *MockSeatRepository
	duels     *MockDuelRepository
	users     *MockUserRepository
	publisher *MockEventPublisher
	scheduler *MockTimeoutScheduler
	service   *duelService
}

func newDuelServiceFixture() *duelServiceFixture {
	f := &duelServiceFixture{
		factory:   new(MockUnitOfWorkFactory),
		uow:       new(MockUnitOfWork),
		seats:     new(MockSeatRepository),
		duels:     new(MockDuelRepository),
		users:     new(MockUserRepository),
		publisher: new(MockEventPublisher),
		scheduler: new(MockTimeoutScheduler),
	}
	f.uow.SetRepositories(f.seats, f.duels, f.users, f.publisher)
	f.factory.On("Create").Return(f.uow)

	runner := NewTxRunner(f.factory, 1, time.Millisecond)
	f.service = NewDuelService(runner, f.scheduler, time.Minute).(*duelService)
	return f
}

func (f *duelServiceFixture) assertExpectations(t *testing.T) {
	f.factory.AssertExpectations(t)
	f.uow.AssertExpectations(t)
	f.seats.AssertExpectations(t)
	f.duels.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
	f.scheduler.AssertExpectations(t)
}

func strPtr(s string) *string { return &s }

func occupiedSeat(id int64, occupant string) *models.Seat {
	return &models.Seat{
		ID:         id,
		RowNumber:  1,
		DeskNumber: 1,
		Variant:    1,
		OccupiedBy: strPtr(occupant),
		Status:     models.SeatStatusOccupied,
	}
}

func vacantSeat(id int64) *models.Seat {
	return &models.Seat{
		ID:         id,
		RowNumber:  1,
		DeskNumber: 1,
		Variant:    1,
		Status:     models.SeatStatusAvailable,
	}
}

func TestDuelService_RequestDuel_Success(t *testing.T) {
	ctx := context.Background()
	f := newDuelServiceFixture()

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Commit").Return(nil)

	f.users.On("GetByTelegramID", ctx, "alice").Return(&models.User{TelegramID: "alice"}, nil)
	f.users.On("GetByTelegramID", ctx, "bob").Return(&models.User{TelegramID: "bob"}, nil)
	f.seats.On("GetByIDForUpdate", ctx, int64(7)).Return(occupiedSeat(7, "bob"), nil)
	f.duels.On("GetActiveBySeatForUpdate", ctx, int64(7)).Return(nil, nil)
	f.duels.On("GetActiveByUser", ctx, "alice").Return(nil, nil)
	f.duels.On("GetActiveByUser", ctx, "bob").Return(nil, nil)
	f.duels.On("Create", ctx, mock.AnythingOfType("*models.Duel")).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Duel).ID = 42
	}).Return(nil)
	f.publisher.On("Publish", mock.AnythingOfType("events.DuelUpdatedEvent")).Return()
	f.scheduler.On("Schedule", int64(42)).Return()

	update, err := f.service.RequestDuel(ctx, "alice", "bob", 7)

	assert.NoError(t, err)
	assert.Equal(t, int64(42), update.Duel.ID)
	assert.Equal(t, models.DuelStatusPending, update.Duel.Status)
	assert.Equal(t, "alice", update.Duel.InitiatorID)
	assert.Equal(t, "bob", update.Duel.OpponentID)
	f.assertExpectations(t)
}

func TestDuelService_RequestDuel_ReturnsExistingDuel(t *testing.T) {
	ctx := context.Background()
	f := newDuelServiceFixture()

	existing := &models.Duel{ID: 9, InitiatorID: "carol", OpponentID: "bob", SeatID: 7, Status: models.DuelStatusPending}

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Commit").Return(nil)

	f.users.On("GetByTelegramID", ctx, "alice").Return(&models.User{TelegramID: "alice"}, nil)
	f.users.On("GetByTelegramID", ctx, "bob").Return(&models.User{TelegramID: "bob"}, nil)
	f.seats.On("GetByIDForUpdate", ctx, int64(7)).Return(occupiedSeat(7, "bob"), nil)
	f.duels.On("GetActiveBySeatForUpdate", ctx, int64(7)).Return(existing, nil)

	update, err := f.service.RequestDuel(ctx, "alice", "bob", 7)

	assert.NoError(t, err)
	assert.Equal(t, existing, update.Duel)
	f.duels.AssertNotCalled(t, "Create")
	f.scheduler.AssertNotCalled(t, "Schedule")
	f.publisher.AssertNotCalled(t, "Publish")
	f.assertExpectations(t)
}

func TestDuelService_RequestDuel_SelfDuel(t *testing.T) {
	ctx := context.Background()
	f := newDuelServiceFixture()

	update, err := f.service.RequestDuel(ctx, "alice", "alice", 7)

	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Nil(t, update)
	f.factory.AssertNotCalled(t, "Create")
}

func TestDuelService_RequestDuel_SeatNotOccupied(t *testing.T) {
	ctx := context.Background()
	f := newDuelServiceFixture()

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Rollback").Return(nil)

	f.users.On("GetByTelegramID", ctx, "alice").Return(&models.User{TelegramID: "alice"}, nil)
	f.users.On("GetByTelegramID", ctx, "bob").Return(&models.User{TelegramID: "bob"}, nil)
	f.seats.On("GetByIDForUpdate", ctx, int64(7)).Return(vacantSeat(7), nil)

	update, err := f.service.RequestDuel(ctx, "alice", "bob", 7)

	assert.ErrorIs(t, err, models.ErrSeatNotOccupied)
	assert.Nil(t, update)
	f.assertExpectations(t)
}

func TestDuelService_RequestDuel_PartyAlreadyDueling(t *testing.T) {
	ctx := context.Background()
	f := newDuelServiceFixture()

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Rollback").Return(nil)

	f.users.On("GetByTelegramID", ctx, "alice").Return(&models.User{TelegramID: "alice"}, nil)
	f.users.On("GetByTelegramID", ctx, "bob").Return(&models.User{TelegramID: "bob"}, nil)
	f.seats.On("GetByIDForUpdate", ctx, int64(7)).Return(occupiedSeat(7, "bob"), nil)
	f.duels.On("GetActiveBySeatForUpdate", ctx, int64(7)).Return(nil, nil)
	f.duels.On("GetActiveByUser", ctx, "alice").Return(&models.Duel{ID: 3, Status: models.DuelStatusAccepted}, nil)

	update, err := f.service.RequestDuel(ctx, "alice", "bob", 7)

	assert.ErrorIs(t, err, models.ErrUserDueling)
	assert.Nil(t, update)
	f.duels.AssertNotCalled(t, "Create")
	f.assertExpectations(t)
}

func TestDuelService_AcceptDuel_Success(t *testing.T) {
	ctx := context.Background()
	f := newDuelServiceFixture()

	now := time.Now()
	f.service.now = func() time.Time { return now }
	duel := &models.Duel{ID: 42, InitiatorID: "alice", OpponentID: "bob", SeatID: 7, Status: models.DuelStatusPending, CreatedAt: now.Add(-time.Second)}

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Commit").Return(nil)

	f.duels.On("GetByIDForUpdate", ctx, int64(42)).Return(duel, nil)
	f.duels.On("Update", ctx, mock.MatchedBy(func(d *models.Duel) bool {
		return d.ID == 42 && d.Status == models.DuelStatusAccepted
	})).Return(nil)
	f.users.On("SetDueling", ctx, []string{"alice", "bob"}, true).Return(nil)
	f.publisher.On("Publish", mock.AnythingOfType("events.DuelUpdatedEvent")).Return()

	update, err := f.service.AcceptDuel(ctx, 42)

	assert.NoError(t, err)
	assert.Equal(t, models.DuelStatusAccepted, update.Duel.Status)
	f.scheduler.AssertNotCalled(t, "Cancel")
	f.assertExpectations(t)
}

func TestDuelService_AcceptDuel_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newDuelServiceFixture()

	duel := &models.Duel{ID: 42, InitiatorID: "alice", OpponentID: "bob", SeatID: 7, Status: models.DuelStatusAccepted}

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Commit").Return(nil)
	f.duels.On("GetByIDForUpdate", ctx, int64(42)).Return(duel, nil)

	update, err := f.service.AcceptDuel(ctx, 42)

	assert.NoError(t, err)
	assert.Equal(t, duel, update.Duel)
	f.duels.AssertNotCalled(t, "Update")
	f.users.AssertNotCalled(t, "SetDueling")
	f.assertExpectations(t)
}

func TestDuelService_AcceptDuel_ExpiredForfeitsToInitiator(t *testing.T) {
	ctx := context.Background()
	f := newDuelServiceFixture()

	now := time.Now()
	f.service.now = func() time.Time { return now }
	// Created well past the accept window
	duel := &models.Duel{ID: 42, InitiatorID: "alice", OpponentID: "bob", SeatID: 7, Status: models.DuelStatusPending, CreatedAt: now.Add(-2 * time.Minute)}

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Commit").Return(nil)

	f.duels.On("GetByIDForUpdate", ctx, int64(42)).Return(duel, nil)
	f.seats.On("GetByIDForUpdate", ctx, int64(7)).Return(occupiedSeat(7, "bob"), nil)
	f.seats.On("Vacate", ctx, "alice").Return(nil, nil)
	f.seats.On("Vacate", ctx, "bob").Return(vacantSeat(7), nil)
	f.seats.On("GetByID", ctx, int64(7)).Return(vacantSeat(7), nil)
	f.seats.On("Assign", ctx, int64(7), "alice", models.SeatStatusOccupied).Return(occupiedSeat(7, "alice"), nil)
	f.users.On("SetCurrentSeat", ctx, "alice", mock.MatchedBy(func(id *int64) bool { return id != nil && *id == 7 })).Return(nil)
	f.users.On("SetCurrentSeat", ctx, "bob", (*int64)(nil)).Return(nil)
	f.duels.On("Update", ctx, mock.MatchedBy(func(d *models.Duel) bool {
		return d.ID == 42 && d.Status == models.DuelStatusTimeout
	})).Return(nil)
	f.users.On("SetDueling", ctx, []string{"alice", "bob"}, false).Return(nil)
	f.publisher.On("Publish", mock.AnythingOfType("events.DuelUpdatedEvent")).Return()
	f.scheduler.On("Cancel", int64(42)).Return()

	update, err := f.service.AcceptDuel(ctx, 42)

	assert.NoError(t, err)
	assert.Equal(t, models.DuelStatusTimeout, update.Duel.Status)
	assert.NotEmpty(t, update.Seats)
	f.assertExpectations(t)
}

func TestDuelService_AcceptDuel_InvalidTransition(t *testing.T) {
	ctx := context.Background()
	f := newDuelServiceFixture()

	duel := &models.Duel{ID: 42, Status: models.DuelStatusDeclined}

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Rollback").Return(nil)
	f.duels.On("GetByIDForUpdate", ctx, int64(42)).Return(duel, nil)

	update, err := f.service.AcceptDuel(ctx, 42)

	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.Nil(t, update)
	f.assertExpectations(t)
}

func TestDuelService_DeclineDuel_ForfeitAwardsInitiator(t *testing.T) {
	ctx := context.Background()
	f := newDuelServiceFixture()

	duel := &models.Duel{ID: 42, InitiatorID: "alice", OpponentID: "bob", SeatID: 7, Status: models.DuelStatusPending, CreatedAt: time.Now()}

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Commit").Return(nil)

	f.duels.On("GetByIDForUpdate", ctx, int64(42)).Return(duel, nil)
	f.seats.On("GetByIDForUpdate", ctx, int64(7)).Return(occupiedSeat(7, "bob"), nil)
	f.seats.On("Vacate", ctx, "alice").Return(nil, nil)
	f.seats.On("Vacate", ctx, "bob").Return(vacantSeat(7), nil)
	f.seats.On("GetByID", ctx, int64(7)).Return(vacantSeat(7), nil)
	f.seats.On("Assign", ctx, int64(7), "alice", models.SeatStatusOccupied).Return(occupiedSeat(7, "alice"), nil)
	f.users.On("SetCurrentSeat", ctx, "alice", mock.MatchedBy(func(id *int64) bool { return id != nil && *id == 7 })).Return(nil)
	f.users.On("SetCurrentSeat", ctx, "bob", (*int64)(nil)).Return(nil)
	f.duels.On("Update", ctx, mock.MatchedBy(func(d *models.Duel) bool {
		return d.ID == 42 && d.Status == models.DuelStatusDeclined
	})).Return(nil)
	f.users.On("SetDueling", ctx, []string{"alice", "bob"}, false).Return(nil)
	f.publisher.On("Publish", mock.AnythingOfType("events.DuelUpdatedEvent")).Return()
	f.scheduler.On("Cancel", int64(42)).Return()

	update, err := f.service.DeclineDuel(ctx, 42, false)

	assert.NoError(t, err)
	assert.Equal(t, models.DuelStatusDeclined, update.Duel.Status)
	f.assertExpectations(t)
}

func TestDuelService_DeclineDuel_IdempotentOnTerminal(t *testing.T) {
	ctx := context.Background()
	f := newDuelServiceFixture()

	winner := "alice"
	flip := models.CoinFlipHeads
	duel := &models.Duel{ID: 42, InitiatorID: "alice", OpponentID: "bob", SeatID: 7, Status: models.DuelStatusCompleted, WinnerID: &winner, CoinFlip: &flip}

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Commit").Return(nil)
	f.duels.On("GetByIDForUpdate", ctx, int64(42)).Return(duel, nil)
	f.scheduler.On("Cancel", int64(42)).Return()

	update, err := f.service.DeclineDuel(ctx, 42, true)

	assert.NoError(t, err)
	assert.Equal(t, duel, update.Duel)
	assert.Equal(t, models.DuelStatusCompleted, update.Duel.Status)
	f.duels.AssertNotCalled(t, "Update")
	f.publisher.AssertNotCalled(t, "Publish")
	f.assertExpectations(t)
}

func TestDuelService_CompleteDuel_InitiatorWins(t *testing.T) {
	ctx := context.Background()
	f := newDuelServiceFixture()
	f.service.randIntn = func(n int) int { return 0 }

	duel := &models.Duel{ID: 42, InitiatorID: "alice", OpponentID: "bob", SeatID: 7, Status: models.DuelStatusAccepted}

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Commit").Return(nil)

	f.duels.On("GetByIDForUpdate", ctx, int64(42)).Return(duel, nil)
	f.seats.On("GetByIDForUpdate", ctx, int64(7)).Return(occupiedSeat(7, "bob"), nil)
	f.seats.On("Vacate", ctx, "alice").Return(nil, nil)
	f.seats.On("Vacate", ctx, "bob").Return(vacantSeat(7), nil)
	f.seats.On("GetByID", ctx, int64(7)).Return(vacantSeat(7), nil)
	f.seats.On("Assign", ctx, int64(7), "alice", models.SeatStatusDueled).Return(occupiedSeat(7, "alice"), nil)
	f.users.On("SetCurrentSeat", ctx, "alice", mock.MatchedBy(func(id *int64) bool { return id != nil && *id == 7 })).Return(nil)
	f.users.On("SetCurrentSeat", ctx, "bob", (*int64)(nil)).Return(nil)
	f.duels.On("Update", ctx, mock.MatchedBy(func(d *models.Duel) bool {
		return d.Status == models.DuelStatusCompleted && d.WinnerID != nil && *d.WinnerID == "alice"
	})).Return(nil)
	f.users.On("SetDueling", ctx, []string{"alice", "bob"}, false).Return(nil)
	f.publisher.On("Publish", mock.AnythingOfType("events.DuelUpdatedEvent")).Return()
	f.scheduler.On("Cancel", int64(42)).Return()

	update, err := f.service.CompleteDuel(ctx, 42)

	assert.NoError(t, err)
	assert.Equal(t, models.DuelStatusCompleted, update.Duel.Status)
	assert.Equal(t, "alice", *update.Duel.WinnerID)
	assert.Equal(t, models.CoinFlipHeads, *update.Duel.CoinFlip)
	f.assertExpectations(t)
}

func TestDuelService_CompleteDuel_OpponentWins(t *testing.T) {
	ctx := context.Background()
	f := newDuelServiceFixture()
	f.service.randIntn = func(n int) int { return 1 }

	duel := &models.Duel{ID: 42, InitiatorID: "alice", OpponentID: "bob", SeatID: 7, Status: models.DuelStatusAccepted}

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Commit").Return(nil)

	f.duels.On("GetByIDForUpdate", ctx, int64(42)).Return(duel, nil)
	f.seats.On("GetByIDForUpdate", ctx, int64(7)).Return(occupiedSeat(7, "bob"), nil)
	f.seats.On("Vacate", ctx, "bob").Return(vacantSeat(7), nil)
	f.seats.On("Vacate", ctx, "alice").Return(nil, nil)
	f.seats.On("GetByID", ctx, int64(7)).Return(vacantSeat(7), nil)
	f.seats.On("Assign", ctx, int64(7), "bob", models.SeatStatusDueled).Return(occupiedSeat(7, "bob"), nil)
	f.users.On("SetCurrentSeat", ctx, "bob", mock.MatchedBy(func(id *int64) bool { return id != nil && *id == 7 })).Return(nil)
	f.users.On("SetCurrentSeat", ctx, "alice", (*int64)(nil)).Return(nil)
	f.duels.On("Update", ctx, mock.MatchedBy(func(d *models.Duel) bool {
		return d.Status == models.DuelStatusCompleted && d.WinnerID != nil && *d.WinnerID == "bob"
	})).Return(nil)
	f.users.On("SetDueling", ctx, []string{"alice", "bob"}, false).Return(nil)
	f.publisher.On("Publish", mock.AnythingOfType("events.DuelUpdatedEvent")).Return()
	f.scheduler.On("Cancel", int64(42)).Return()

	update, err := f.service.CompleteDuel(ctx, 42)

	assert.NoError(t, err)
	assert.Equal(t, "bob", *update.Duel.WinnerID)
	assert.Equal(t, models.CoinFlipTails, *update.Duel.CoinFlip)
	f.assertExpectations(t)
}

func TestDuelService_CompleteDuel_RequiresAccepted(t *testing.T) {
	ctx := context.Background()
	f := newDuelServiceFixture()

	duel := &models.Duel{ID: 42, Status: models.DuelStatusPending}

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Rollback").Return(nil)
	f.duels.On("GetByIDForUpdate", ctx, int64(42)).Return(duel, nil)

	update, err := f.service.CompleteDuel(ctx, 42)

	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.Nil(t, update)
	f.assertExpectations(t)
}

func TestDuelService_CompleteDuel_BystanderKeepsSeat(t *testing.T) {
	ctx := context.Background()
	f := newDuelServiceFixture()
	f.service.randIntn = func(n int) int { return 0 }

	duel := &models.Duel{ID: 42, InitiatorID: "alice", OpponentID: "bob", SeatID: 7, Status: models.DuelStatusAccepted}

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Commit").Return(nil)

	f.duels.On("GetByIDForUpdate", ctx, int64(42)).Return(duel, nil)
	f.seats.On("GetByIDForUpdate", ctx, int64(7)).Return(occupiedSeat(7, "carol"), nil)
	f.seats.On("Vacate", ctx, "alice").Return(nil, nil)
	f.seats.On("Vacate", ctx, "bob").Return(nil, nil)
	// A reset handed the seat to someone else mid-duel; they keep it
	f.seats.On("GetByID", ctx, int64(7)).Return(occupiedSeat(7, "carol"), nil)
	f.users.On("SetCurrentSeat", ctx, "alice", (*int64)(nil)).Return(nil)
	f.users.On("SetCurrentSeat", ctx, "bob", (*int64)(nil)).Return(nil)
	f.duels.On("Update", ctx, mock.AnythingOfType("*models.Duel")).Return(nil)
	f.users.On("SetDueling", ctx, []string{"alice", "bob"}, false).Return(nil)
	f.publisher.On("Publish", mock.AnythingOfType("events.DuelUpdatedEvent")).Return()
	f.scheduler.On("Cancel", int64(42)).Return()

	update, err := f.service.CompleteDuel(ctx, 42)

	assert.NoError(t, err)
	assert.Equal(t, models.DuelStatusCompleted, update.Duel.Status)
	f.seats.AssertNotCalled(t, "Assign")
	f.assertExpectations(t)
}

func TestDuelService_GetDuelByID_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newDuelServiceFixture()

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Rollback").Return(nil)
	f.duels.On("GetByID", ctx, int64(99)).Return(nil, nil)

	duel, err := f.service.GetDuelByID(ctx, 99)

	assert.ErrorIs(t, err, models.ErrDuelNotFound)
	assert.Nil(t, duel)
	f.assertExpectations(t)
}
