package repository

import (
	"context"
	"fmt"
	"time"

	"seatduel/database"
	"seatduel/models"

	"github.com/jackc/pgx/v5"
)

const duelColumns = "id, initiator_id, opponent_id, seat_id, status, winner_id, coin_flip, created_at, updated_at"

// DuelRepository implements duel data access. Duel rows are append-only:
// they are created by requestDuel and updated in place by transitions,
// never deleted.
type DuelRepository struct {
	q queryable
}

// NewDuelRepository creates a new duel repository
func NewDuelRepository(db *database.DB) *DuelRepository {
	return &DuelRepository{q: db.Pool}
}

// newDuelRepositoryWithTx creates a new duel repository bound to a transaction
func newDuelRepositoryWithTx(tx queryable) *DuelRepository {
	return &DuelRepository{q: tx}
}

func scanDuel(row pgx.Row) (*models.Duel, error) {
	var duel models.Duel
	err := row.Scan(
		&duel.ID,
		&duel.InitiatorID,
		&duel.OpponentID,
		&duel.SeatID,
		&duel.Status,
		&duel.WinnerID,
		&duel.CoinFlip,
		&duel.CreatedAt,
		&duel.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &duel, nil
}

// Create inserts a new pending duel
func (r *DuelRepository) Create(ctx context.Context, duel *models.Duel) error {
	query := `
		INSERT INTO duels (initiator_id, opponent_id, seat_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, duel.InitiatorID, duel.OpponentID, duel.SeatID, duel.Status).Scan(
		&duel.ID,
		&duel.CreatedAt,
		&duel.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create duel for seat %d: %w", duel.SeatID, err)
	}
	return nil
}

// GetByID retrieves a duel by its ID, or nil when it does not exist
func (r *DuelRepository) GetByID(ctx context.Context, id int64) (*models.Duel, error) {
	query := fmt.Sprintf(`SELECT %s FROM duels WHERE id = $1`, duelColumns)

	duel, err := scanDuel(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get duel %d: %w", id, err)
	}
	return duel, nil
}

// GetByIDForUpdate retrieves a duel with a row lock held until the
// enclosing transaction resolves
func (r *DuelRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Duel, error) {
	query := fmt.Sprintf(`SELECT %s FROM duels WHERE id = $1 FOR UPDATE`, duelColumns)

	duel, err := scanDuel(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock duel %d: %w", id, err)
	}
	return duel, nil
}

// GetActiveBySeatForUpdate returns the duel in {pending, accepted} for a
// seat with a row lock, or nil. The partial unique index guarantees at
// most one such row.
func (r *DuelRepository) GetActiveBySeatForUpdate(ctx context.Context, seatID int64) (*models.Duel, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM duels
		WHERE seat_id = $1 AND status IN ('pending', 'accepted')
		FOR UPDATE
	`, duelColumns)

	duel, err := scanDuel(r.q.QueryRow(ctx, query, seatID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active duel for seat %d: %w", seatID, err)
	}
	return duel, nil
}

// GetActiveByUser returns the duel in {pending, accepted} the user is a
// party to, or nil
func (r *DuelRepository) GetActiveByUser(ctx context.Context, telegramID string) (*models.Duel, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM duels
		WHERE (initiator_id = $1 OR opponent_id = $1)
		  AND status IN ('pending', 'accepted')
		LIMIT 1
	`, duelColumns)

	duel, err := scanDuel(r.q.QueryRow(ctx, query, telegramID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active duel for user %s: %w", telegramID, err)
	}
	return duel, nil
}

// Update persists status, winner and coin flip changes
func (r *DuelRepository) Update(ctx context.Context, duel *models.Duel) error {
	query := `
		UPDATE duels
		SET status = $2, winner_id = $3, coin_flip = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query, duel.ID, duel.Status, duel.WinnerID, duel.CoinFlip).Scan(&duel.UpdatedAt)
	if err == pgx.ErrNoRows {
		return models.ErrDuelNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update duel %d: %w", duel.ID, err)
	}
	return nil
}

// ListBySeat returns all duels for a seat, newest first
func (r *DuelRepository) ListBySeat(ctx context.Context, seatID int64) ([]*models.Duel, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM duels
		WHERE seat_id = $1
		ORDER BY created_at DESC
	`, duelColumns)

	rows, err := r.q.Query(ctx, query, seatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list duels for seat %d: %w", seatID, err)
	}
	defer rows.Close()

	return collectDuels(rows)
}

// ListAll returns every duel, newest first
func (r *DuelRepository) ListAll(ctx context.Context) ([]*models.Duel, error) {
	query := fmt.Sprintf(`SELECT %s FROM duels ORDER BY created_at DESC`, duelColumns)

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list duels: %w", err)
	}
	defer rows.Close()

	return collectDuels(rows)
}

// ListPendingBefore returns pending duels created before the cutoff.
// Used by the timeout sweep.
func (r *DuelRepository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*models.Duel, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM duels
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at
	`, duelColumns)

	rows, err := r.q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending duels before %s: %w", cutoff, err)
	}
	defer rows.Close()

	return collectDuels(rows)
}

func collectDuels(rows pgx.Rows) ([]*models.Duel, error) {
	var duels []*models.Duel
	for rows.Next() {
		duel, err := scanDuel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan duel: %w", err)
		}
		duels = append(duels, duel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate duels: %w", err)
	}
	return duels, nil
}
