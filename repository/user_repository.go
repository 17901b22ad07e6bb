package repository

import (
	"context"
	"fmt"

	"seatduel/database"
	"seatduel/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = "telegram_id, name, username, rules_seen, current_seat, dueling, created_at, updated_at"

// UserRepository implements user data access. The duel engine only writes
// the dueling and current_seat fields, through the narrow setters below.
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository bound to a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.TelegramID,
		&user.Name,
		&user.Username,
		&user.RulesSeen,
		&user.CurrentSeat,
		&user.Dueling,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByTelegramID retrieves a user, or nil when they do not exist
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE telegram_id = $1`, userColumns)

	user, err := scanUser(r.q.QueryRow(ctx, query, telegramID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", telegramID, err)
	}
	return user, nil
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, telegramID, name string, username *string) (*models.User, error) {
	query := fmt.Sprintf(`
		INSERT INTO users (telegram_id, name, username)
		VALUES ($1, $2, $3)
		RETURNING %s
	`, userColumns)

	user, err := scanUser(r.q.QueryRow(ctx, query, telegramID, name, username))
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", telegramID, err)
	}
	return user, nil
}

// SetDueling flips the dueling flag for the given users
func (r *UserRepository) SetDueling(ctx context.Context, telegramIDs []string, dueling bool) error {
	query := `
		UPDATE users
		SET dueling = $2, updated_at = NOW()
		WHERE telegram_id = ANY($1)
	`

	if _, err := r.q.Exec(ctx, query, telegramIDs, dueling); err != nil {
		return fmt.Errorf("failed to set dueling=%t for %v: %w", dueling, telegramIDs, err)
	}
	return nil
}

// SetCurrentSeat updates the user's seat reference; nil clears it
func (r *UserRepository) SetCurrentSeat(ctx context.Context, telegramID string, seatID *int64) error {
	query := `
		UPDATE users
		SET current_seat = $2, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.q.Exec(ctx, query, telegramID, seatID)
	if err != nil {
		return fmt.Errorf("failed to set current seat for %s: %w", telegramID, err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// ClearAllCurrentSeats drops every user's seat reference, used by the bulk
// seat reset
func (r *UserRepository) ClearAllCurrentSeats(ctx context.Context) error {
	query := `
		UPDATE users
		SET current_seat = NULL, updated_at = NOW()
		WHERE current_seat IS NOT NULL
	`

	if _, err := r.q.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to clear current seats: %w", err)
	}
	return nil
}

// MarkRulesSeen records that the user dismissed the rules screen
func (r *UserRepository) MarkRulesSeen(ctx context.Context, telegramID string) error {
	query := `
		UPDATE users
		SET rules_seen = TRUE, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.q.Exec(ctx, query, telegramID)
	if err != nil {
		return fmt.Errorf("failed to mark rules seen for %s: %w", telegramID, err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// GetAll returns all users
func (r *UserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY created_at DESC`, userColumns)

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}
