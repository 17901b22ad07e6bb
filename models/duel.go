package models

import (
	"time"
)

// DuelStatus represents the state of a duel
type DuelStatus string

const (
	DuelStatusPending   DuelStatus = "pending"
	DuelStatusAccepted  DuelStatus = "accepted"
	DuelStatusCompleted DuelStatus = "completed"
	DuelStatusDeclined  DuelStatus = "declined"
	DuelStatusTimeout   DuelStatus = "timeout"
)

// CoinFlip records which side of the draw decided a completed duel.
// The initiator is always heads.
type CoinFlip string

const (
	CoinFlipHeads CoinFlip = "heads"
	CoinFlipTails CoinFlip = "tails"
)

// Duel represents a two-party contest over the occupancy of one seat
type Duel struct {
	ID          int64      `db:"id" json:"id"`
	InitiatorID string     `db:"initiator_id" json:"initiatorId"`
	OpponentID  string     `db:"opponent_id" json:"opponentId"`
	SeatID      int64      `db:"seat_id" json:"seatId"`
	Status      DuelStatus `db:"status" json:"status"`
	WinnerID    *string    `db:"winner_id" json:"winnerId"`
	CoinFlip    *CoinFlip  `db:"coin_flip" json:"coinFlip"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// IsActive reports whether the duel still blocks the seat (pending or accepted)
func (d *Duel) IsActive() bool {
	return d.Status == DuelStatusPending || d.Status == DuelStatusAccepted
}

// IsTerminal reports whether the duel reached a state that permits no
// further transitions
func (d *Duel) IsTerminal() bool {
	switch d.Status {
	case DuelStatusCompleted, DuelStatusDeclined, DuelStatusTimeout:
		return true
	}
	return false
}

// IsParticipant checks if a user is a party to the duel
func (d *Duel) IsParticipant(telegramID string) bool {
	return d.InitiatorID == telegramID || d.OpponentID == telegramID
}

// Opponent returns the other party's ID for a given participant
func (d *Duel) Opponent(telegramID string) string {
	if d.InitiatorID == telegramID {
		return d.OpponentID
	}
	if d.OpponentID == telegramID {
		return d.InitiatorID
	}
	return ""
}

// HasExpired reports whether the duel outlived the accept window at the
// given instant
func (d *Duel) HasExpired(window time.Duration, now time.Time) bool {
	return now.Sub(d.CreatedAt) > window
}

// DuelUpdate is the result of a duel state transition: the duel itself plus
// every seat mutated as part of the call, so the notification layer can
// broadcast a consistent snapshot.
type DuelUpdate struct {
	Duel  *Duel   `json:"duel"`
	Seats []*Seat `json:"seats"`
}
