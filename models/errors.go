package models

import (
	"errors"
)

// Error taxonomy for engine operations. Services wrap these with
// fmt.Errorf("...: %w", err) and callers classify with errors.Is to map
// them onto transport responses.
var (
	// ErrValidation covers missing or malformed identifiers
	ErrValidation = errors.New("validation failed")

	// ErrSeatNotFound is returned when the referenced seat does not exist
	ErrSeatNotFound = errors.New("seat not found")

	// ErrDuelNotFound is returned when the referenced duel does not exist
	ErrDuelNotFound = errors.New("duel not found")

	// ErrUserNotFound is returned when the referenced user does not exist
	ErrUserNotFound = errors.New("user not found")

	// ErrSeatOccupied is returned when assigning a seat that is already
	// held by a different occupant
	ErrSeatOccupied = errors.New("seat already occupied")

	// ErrSeatNotOccupied is returned when requesting a duel over an empty seat
	ErrSeatNotOccupied = errors.New("seat is not occupied")

	// ErrUserDueling is returned when a party is already locked in an
	// active duel and may not move seats or start another duel
	ErrUserDueling = errors.New("user is in an active duel")

	// ErrInvalidTransition is returned for duel transitions that are
	// genuinely impossible, not merely redundant; redundant transitions
	// return the current duel instead
	ErrInvalidTransition = errors.New("invalid duel transition")

	// ErrContentionExhausted is returned when storage lock contention
	// survived every retry attempt. It is the only error class for which
	// the caller should retry the whole request.
	ErrContentionExhausted = errors.New("transaction contention retries exhausted")
)
