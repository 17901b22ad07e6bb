package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateTestUser inserts a user row and returns its telegram ID
func (td *TestDatabase) CreateTestUser(t *testing.T, telegramID, name string) string {
	_, err := td.DB.Pool.Exec(context.Background(),
		`INSERT INTO users (telegram_id, name) VALUES ($1, $2)`,
		telegramID, name)
	require.NoError(t, err)
	return telegramID
}

// CreateTestSeat inserts a seat row and returns its generated ID
func (td *TestDatabase) CreateTestSeat(t *testing.T, row, desk, variant int) int64 {
	var id int64
	err := td.DB.Pool.QueryRow(context.Background(),
		`INSERT INTO seats (row_number, desk_number, variant, status) VALUES ($1, $2, $3, 'available') RETURNING id`,
		row, desk, variant).Scan(&id)
	require.NoError(t, err)
	return id
}
