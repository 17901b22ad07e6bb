package service

import (
	"context"
	"time"

	"seatduel/events"
	"seatduel/models"
)

// SeatRepository defines the seat ledger: the only writer of seat
// occupancy. Mutations must be invoked with the seat row lock held for
// the duration of the enclosing transaction.
type SeatRepository interface {
	// GetByID retrieves a seat, or nil when it does not exist
	GetByID(ctx context.Context, id int64) (*models.Seat, error)

	// GetByIDForUpdate retrieves a seat with a row lock held until the
	// enclosing transaction resolves
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Seat, error)

	// GetByOccupant returns the seat held by the given user, or nil
	GetByOccupant(ctx context.Context, telegramID string) (*models.Seat, error)

	// Assign sets the seat's occupant and status; idempotent when already
	// held by the same occupant
	Assign(ctx context.Context, seatID int64, telegramID string, status models.SeatStatus) (*models.Seat, error)

	// Vacate clears the seat held by the given user, returning it or nil
	Vacate(ctx context.Context, telegramID string) (*models.Seat, error)

	// ResetAll vacates every seat and marks it available
	ResetAll(ctx context.Context) ([]*models.Seat, error)

	// List returns every seat ordered by position
	List(ctx context.Context) ([]*models.Seat, error)

	// Count returns the number of seats in the pool
	Count(ctx context.Context) (int, error)

	// DeleteAll removes every seat (pool initialization only)
	DeleteAll(ctx context.Context) error

	// CreateBatch inserts the given seats (pool initialization only)
	CreateBatch(ctx context.Context, seats []*models.Seat) error
}

// DuelRepository defines duel data access
type DuelRepository interface {
	// Create inserts a new pending duel
	Create(ctx context.Context, duel *models.Duel) error

	// GetByID retrieves a duel, or nil when it does not exist
	GetByID(ctx context.Context, id int64) (*models.Duel, error)

	// GetByIDForUpdate retrieves a duel with a row lock
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Duel, error)

	// GetActiveBySeatForUpdate returns the duel in {pending, accepted}
	// for a seat with a row lock, or nil
	GetActiveBySeatForUpdate(ctx context.Context, seatID int64) (*models.Duel, error)

	// GetActiveByUser returns the duel in {pending, accepted} the user is
	// a party to, or nil
	GetActiveByUser(ctx context.Context, telegramID string) (*models.Duel, error)

	// Update persists status, winner and coin flip changes
	Update(ctx context.Context, duel *models.Duel) error

	// ListBySeat returns all duels for a seat, newest first
	ListBySeat(ctx context.Context, seatID int64) ([]*models.Duel, error)

	// ListAll returns every duel, newest first
	ListAll(ctx context.Context) ([]*models.Duel, error)

	// ListPendingBefore returns pending duels created before the cutoff
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*models.Duel, error)
}

// UserRepository defines user data access. The duel engine writes only
// the dueling and current_seat fields, through the narrow setters.
type UserRepository interface {
	// GetByTelegramID retrieves a user, or nil when they do not exist
	GetByTelegramID(ctx context.Context, telegramID string) (*models.User, error)

	// Create inserts a new user
	Create(ctx context.Context, telegramID, name string, username *string) (*models.User, error)

	// SetDueling flips the dueling flag for the given users
	SetDueling(ctx context.Context, telegramIDs []string, dueling bool) error

	// SetCurrentSeat updates the user's seat reference; nil clears it
	SetCurrentSeat(ctx context.Context, telegramID string, seatID *int64) error

	// ClearAllCurrentSeats drops every user's seat reference
	ClearAllCurrentSeats(ctx context.Context) error

	// MarkRulesSeen records that the user dismissed the rules screen
	MarkRulesSeen(ctx context.Context, telegramID string) error

	// GetAll returns all users
	GetAll(ctx context.Context) ([]*models.User, error)
}

// EventPublisher defines the interface for publishing events inside a
// unit of work; publications flush only after the transaction commits
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork represents one serializable transaction with repository access
type UnitOfWork interface {
	// Begin starts the transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	SeatRepository() SeatRepository
	DuelRepository() DuelRepository
	UserRepository() UserRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// DuelService owns the duel state machine. It is the sole writer of duel
// rows and of the dueling/current-seat fields on users.
type DuelService interface {
	// RequestDuel creates a pending duel over an occupied seat. Returns
	// the existing duel when the seat already has an active one.
	RequestDuel(ctx context.Context, initiatorID, opponentID string, seatID int64) (*models.DuelUpdate, error)

	// AcceptDuel transitions pending -> accepted, or to timeout when the
	// accept window has already passed
	AcceptDuel(ctx context.Context, duelID int64) (*models.DuelUpdate, error)

	// DeclineDuel transitions an active duel to declined (or timeout when
	// timeoutInduced). Idempotent on terminal duels.
	DeclineDuel(ctx context.Context, duelID int64, timeoutInduced bool) (*models.DuelUpdate, error)

	// CompleteDuel resolves an accepted duel with a random winner and
	// reassigns the contested seat
	CompleteDuel(ctx context.Context, duelID int64) (*models.DuelUpdate, error)

	// GetDuelByID retrieves a duel
	GetDuelByID(ctx context.Context, duelID int64) (*models.Duel, error)

	// GetDuelsBySeat returns all duels for a seat, newest first
	GetDuelsBySeat(ctx context.Context, seatID int64) ([]*models.Duel, error)

	// GetActiveDuelForUser returns the duel in {pending, accepted} the
	// user is a party to, or nil
	GetActiveDuelForUser(ctx context.Context, telegramID string) (*models.Duel, error)

	// GetAllDuels returns every duel, newest first
	GetAllDuels(ctx context.Context) ([]*models.Duel, error)
}

// SeatService owns non-duel seat operations
type SeatService interface {
	// InitializeSeats ensures the fixed seat pool exists
	InitializeSeats(ctx context.Context) error

	// TakeSeat moves a user onto an available seat, vacating their
	// previous one in the same transaction
	TakeSeat(ctx context.Context, telegramID string, seatID int64) (*models.Seat, []*models.Seat, error)

	// ResetAllSeats vacates the whole pool
	ResetAllSeats(ctx context.Context) ([]*models.Seat, error)

	// GetSeat retrieves a seat
	GetSeat(ctx context.Context, seatID int64) (*models.Seat, error)

	// ListSeats returns every seat
	ListSeats(ctx context.Context) ([]*models.Seat, error)
}

// UserService owns user bookkeeping outside the duel engine
type UserService interface {
	// GetOrCreateUser retrieves an existing user or registers a new one
	GetOrCreateUser(ctx context.Context, telegramID, name string, username *string) (*models.User, error)

	// GetUser retrieves a user
	GetUser(ctx context.Context, telegramID string) (*models.User, error)

	// MarkRulesSeen records that the user dismissed the rules screen
	MarkRulesSeen(ctx context.Context, telegramID string) error

	// ListUsers returns all users
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// TimeoutScheduler arms one-shot timers that force stuck duels to a
// terminal state
type TimeoutScheduler interface {
	// Schedule arms a timer that times the duel out after the accept window
	Schedule(duelID int64)

	// Cancel disarms the timer for a duel that reached a terminal state
	Cancel(duelID int64)
}
