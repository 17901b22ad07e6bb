package service

import (
	"context"
	"time"

	"seatduel/events"
	"seatduel/models"

	"github.com/stretchr/testify/mock"
)

// MockSeatRepository is a mock implementation of SeatRepository
type MockSeatRepository struct {
	mock.Mock
}

func (m *MockSeatRepository) GetByID(ctx context.Context, id int64) (*models.Seat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Seat), args.Error(1)
}

func (m *MockSeatRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Seat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Seat), args.Error(1)
}

func (m *MockSeatRepository) GetByOccupant(ctx context.Context, telegramID string) (*models.Seat, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Seat), args.Error(1)
}

func (m *MockSeatRepository) Assign(ctx context.Context, seatID int64, telegramID string, status models.SeatStatus) (*models.Seat, error) {
	args := m.Called(ctx, seatID, telegramID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Seat), args.Error(1)
}

func (m *MockSeatRepository) Vacate(ctx context.Context, telegramID string) (*models.Seat, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Seat), args.Error(1)
}

func (m *MockSeatRepository) ResetAll(ctx context.Context) ([]*models.Seat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Seat), args.Error(1)
}

func (m *MockSeatRepository) List(ctx context.Context) ([]*models.Seat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Seat), args.Error(1)
}

func (m *MockSeatRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatRepository) DeleteAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSeatRepository) CreateBatch(ctx context.Context, seats []*models.Seat) error {
	args := m.Called(ctx, seats)
	return args.Error(0)
}

// MockDuelRepository is a mock implementation of DuelRepository
type MockDuelRepository struct {
	mock.Mock
}

func (m *MockDuelRepository) Create(ctx context.Context, duel *models.Duel) error {
	args := m.Called(ctx, duel)
	return args.Error(0)
}

func (m *MockDuelRepository) GetByID(ctx context.Context, id int64) (*models.Duel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Duel), args.Error(1)
}

func (m *MockDuelRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Duel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Duel), args.Error(1)
}

func (m *MockDuelRepository) GetActiveBySeatForUpdate(ctx context.Context, seatID int64) (*models.Duel, error) {
	args := m.Called(ctx, seatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Duel), args.Error(1)
}

func (m *MockDuelRepository) GetActiveByUser(ctx context.Context, telegramID string) (*models.Duel, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Duel), args.Error(1)
}

func (m *MockDuelRepository) Update(ctx context.Context, duel *models.Duel) error {
	args := m.Called(ctx, duel)
	return args.Error(0)
}

func (m *MockDuelRepository) ListBySeat(ctx context.Context, seatID int64) ([]*models.Duel, error) {
	args := m.Called(ctx, seatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Duel), args.Error(1)
}

func (m *MockDuelRepository) ListAll(ctx context.Context) ([]*models.Duel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Duel), args.Error(1)
}

func (m *MockDuelRepository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*models.Duel, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Duel), args.Error(1)
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByTelegramID(ctx context.Context, telegramID string) (*models.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, telegramID, name string, username *string) (*models.User, error) {
	args := m.Called(ctx, telegramID, name, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SetDueling(ctx context.Context, telegramIDs []string, dueling bool) error {
	args := m.Called(ctx, telegramIDs, dueling)
	return args.Error(0)
}

func (m *MockUserRepository) SetCurrentSeat(ctx context.Context, telegramID string, seatID *int64) error {
	args := m.Called(ctx, telegramID, seatID)
	return args.Error(0)
}

func (m *MockUserRepository) ClearAllCurrentSeats(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUserRepository) MarkRulesSeen(ctx context.Context, telegramID string) error {
	args := m.Called(ctx, telegramID)
	return args.Error(0)
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockTimeoutScheduler is a mock implementation of TimeoutScheduler
type MockTimeoutScheduler struct {
	mock.Mock
}

func (m *MockTimeoutScheduler) Schedule(duelID int64) {
	m.Called(duelID)
}

func (m *MockTimeoutScheduler) Cancel(duelID int64) {
	m.Called(duelID)
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
	seatRepo  SeatRepository
	duelRepo  DuelRepository
	userRepo  UserRepository
	publisher EventPublisher
}

// SetRepositories configures the repositories returned by this unit of work
func (m *MockUnitOfWork) SetRepositories(seats SeatRepository, duels DuelRepository, users UserRepository, publisher EventPublisher) {
	m.seatRepo = seats
	m.duelRepo = duels
	m.userRepo = users
	m.publisher = publisher
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) SeatRepository() SeatRepository {
	return m.seatRepo
}

func (m *MockUnitOfWork) DuelRepository() DuelRepository {
	return m.duelRepo
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	return m.userRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.publisher
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
