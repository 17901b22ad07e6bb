package models

import (
	"time"
)

// SeatStatus represents the occupancy state of a seat
type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusOccupied  SeatStatus = "occupied"
	// SeatStatusDueled marks a seat whose occupancy was last decided by a
	// completed duel. The seat stays reassignable by a later duel or reset.
	SeatStatusDueled SeatStatus = "dueled"
)

// Seat represents a single slot in the fixed seat pool
type Seat struct {
	ID         int64      `db:"id" json:"id"`
	RowNumber  int        `db:"row_number" json:"rowNumber"`
	DeskNumber int        `db:"desk_number" json:"deskNumber"`
	Variant    int        `db:"variant" json:"variant"`
	OccupiedBy *string    `db:"occupied_by" json:"occupiedBy"`
	Status     SeatStatus `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
}

// IsOccupied reports whether the seat currently has an occupant
func (s *Seat) IsOccupied() bool {
	return s.OccupiedBy != nil
}

// IsOccupiedBy reports whether the seat is held by the given user
func (s *Seat) IsOccupiedBy(telegramID string) bool {
	return s.OccupiedBy != nil && *s.OccupiedBy == telegramID
}
