package models

import (
	"time"
)

// User represents a participant identified by their Telegram ID
type User struct {
	TelegramID  string    `db:"telegram_id" json:"telegramId"`
	Name        string    `db:"name" json:"name"`
	Username    *string   `db:"username" json:"username"`
	RulesSeen   bool      `db:"rules_seen" json:"rulesSeen"`
	CurrentSeat *int64    `db:"current_seat" json:"currentSeat"`
	Dueling     bool      `db:"dueling" json:"dueling"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
