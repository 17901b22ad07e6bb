package repository

import (
	"context"
	"fmt"

	"seatduel/database"
	"seatduel/models"

	"github.com/jackc/pgx/v5"
)

const seatColumns = "id, row_number, desk_number, variant, occupied_by, status, created_at, updated_at"

// SeatRepository implements the seat ledger: the only writer of seat
// occupancy. Mutations must run inside the unit of work that holds the
// seat row lock for the duration of the transaction.
type SeatRepository struct {
	q queryable
}

// NewSeatRepository creates a new seat repository
func NewSeatRepository(db *database.DB) *SeatRepository {
	return &SeatRepository{q: db.Pool}
}

// newSeatRepositoryWithTx creates a new seat repository bound to a transaction
func newSeatRepositoryWithTx(tx queryable) *SeatRepository {
	return &SeatRepository{q: tx}
}

func scanSeat(row pgx.Row) (*models.Seat, error) {
	var seat models.Seat
	err := row.Scan(
		&seat.ID,
		&seat.RowNumber,
		&seat.DeskNumber,
		&seat.Variant,
		&seat.OccupiedBy,
		&seat.Status,
		&seat.CreatedAt,
		&seat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &seat, nil
}

// GetByID retrieves a seat by its ID, or nil when it does not exist
func (r *SeatRepository) GetByID(ctx context.Context, id int64) (*models.Seat, error) {
	query := fmt.Sprintf(`SELECT %s FROM seats WHERE id = $1`, seatColumns)

	seat, err := scanSeat(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seat %d: %w", id, err)
	}
	return seat, nil
}

// GetByIDForUpdate retrieves a seat with a row lock held until the
// enclosing transaction resolves. All transactions touching one seat are
// totally ordered by this lock.
func (r *SeatRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Seat, error) {
	query := fmt.Sprintf(`SELECT %s FROM seats WHERE id = $1 FOR UPDATE`, seatColumns)

	seat, err := scanSeat(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock seat %d: %w", id, err)
	}
	return seat, nil
}

// GetByOccupant returns the seat held by the given user, or nil
func (r *SeatRepository) GetByOccupant(ctx context.Context, telegramID string) (*models.Seat, error) {
	query := fmt.Sprintf(`SELECT %s FROM seats WHERE occupied_by = $1`, seatColumns)

	seat, err := scanSeat(r.q.QueryRow(ctx, query, telegramID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seat for occupant %s: %w", telegramID, err)
	}
	return seat, nil
}

// Assign sets the seat's occupant and status. Idempotent when the seat is
// already held by the same occupant; fails with ErrSeatOccupied when held
// by anyone else.
func (r *SeatRepository) Assign(ctx context.Context, seatID int64, telegramID string, status models.SeatStatus) (*models.Seat, error) {
	query := fmt.Sprintf(`
		UPDATE seats
		SET occupied_by = $2, status = $3, updated_at = NOW()
		WHERE id = $1 AND (occupied_by IS NULL OR occupied_by = $2)
		RETURNING %s
	`, seatColumns)

	seat, err := scanSeat(r.q.QueryRow(ctx, query, seatID, telegramID, status))
	if err == pgx.ErrNoRows {
		// Distinguish a missing seat from one held by someone else
		existing, getErr := r.GetByID(ctx, seatID)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, models.ErrSeatNotFound
		}
		return nil, models.ErrSeatOccupied
	}
	if err != nil {
		return nil, fmt.Errorf("failed to assign seat %d to %s: %w", seatID, telegramID, err)
	}
	return seat, nil
}

// Vacate clears the single seat (if any) held by the given user and
// returns the affected seat, or nil when the user held no seat
func (r *SeatRepository) Vacate(ctx context.Context, telegramID string) (*models.Seat, error) {
	query := fmt.Sprintf(`
		UPDATE seats
		SET occupied_by = NULL, status = 'available', updated_at = NOW()
		WHERE occupied_by = $1
		RETURNING %s
	`, seatColumns)

	seat, err := scanSeat(r.q.QueryRow(ctx, query, telegramID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to vacate seat of %s: %w", telegramID, err)
	}
	return seat, nil
}

// ResetAll vacates every seat and marks it available, returning the full
// pool. All-or-nothing within the enclosing transaction.
func (r *SeatRepository) ResetAll(ctx context.Context) ([]*models.Seat, error) {
	query := fmt.Sprintf(`
		UPDATE seats
		SET occupied_by = NULL, status = 'available', updated_at = NOW()
		RETURNING %s
	`, seatColumns)

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to reset seats: %w", err)
	}
	defer rows.Close()

	seats, err := collectSeats(rows)
	if err != nil {
		return nil, err
	}
	return seats, nil
}

// List returns every seat ordered by position
func (r *SeatRepository) List(ctx context.Context) ([]*models.Seat, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM seats
		ORDER BY row_number, desk_number, variant
	`, seatColumns)

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list seats: %w", err)
	}
	defer rows.Close()

	return collectSeats(rows)
}

// Count returns the number of seats in the pool
func (r *SeatRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM seats`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count seats: %w", err)
	}
	return count, nil
}

// DeleteAll removes every seat. Only used by pool initialization before
// recreating the fixed layout.
func (r *SeatRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM seats`); err != nil {
		return fmt.Errorf("failed to delete seats: %w", err)
	}
	return nil
}

// CreateBatch inserts the given seats, used by pool initialization
func (r *SeatRepository) CreateBatch(ctx context.Context, seats []*models.Seat) error {
	query := `
		INSERT INTO seats (row_number, desk_number, variant, status)
		VALUES ($1, $2, $3, $4)
	`
	for _, seat := range seats {
		if _, err := r.q.Exec(ctx, query, seat.RowNumber, seat.DeskNumber, seat.Variant, seat.Status); err != nil {
			return fmt.Errorf("failed to create seat %d/%d/%d: %w", seat.RowNumber, seat.DeskNumber, seat.Variant, err)
		}
	}
	return nil
}

func collectSeats(rows pgx.Rows) ([]*models.Seat, error) {
	var seats []*models.Seat
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan seat: %w", err)
		}
		seats = append(seats, seat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate seats: %w", err)
	}
	return seats, nil
}
