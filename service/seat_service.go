package service

import (
	"context"
	"fmt"

	"seatduel/events"
	"seatduel/models"

	log "github.com/sirupsen/logrus"
)

// SeatLayout describes the fixed seat pool created at initialization
type SeatLayout struct {
	Rows        int
	DesksPerRow int
	Variants    int
}

// Count returns the total pool size
func (l SeatLayout) Count() int {
	return l.Rows * l.DesksPerRow * l.Variants
}

type seatService struct {
	runner *TxRunner
	layout SeatLayout
}

// NewSeatService creates a new seat service
func NewSeatService(runner *TxRunner, layout SeatLayout) SeatService {
	return &seatService{
		runner: runner,
		layout: layout,
	}
}

// InitializeSeats ensures the fixed seat pool exists. When the pool is
// incomplete the table is wiped and recreated with the configured layout.
func (s *seatService) InitializeSeats(ctx context.Context) error {
	return s.runner.Do(ctx, func(uow UnitOfWork) error {
		count, err := uow.SeatRepository().Count(ctx)
		if err != nil {
			return err
		}
		if count >= s.layout.Count() {
			log.WithField("seats", count).Debug("Seat pool already initialized")
			return nil
		}

		if err := uow.SeatRepository().DeleteAll(ctx); err != nil {
			return err
		}

		seats := make([]*models.Seat, 0, s.layout.Count())
		for row := 1; row <= s.layout.Rows; row++ {
			for desk := 1; desk <= s.layout.DesksPerRow; desk++ {
				for variant := 1; variant <= s.layout.Variants; variant++ {
					seats = append(seats, &models.Seat{
						RowNumber:  row,
						DeskNumber: desk,
						Variant:    variant,
						Status:     models.SeatStatusAvailable,
					})
				}
			}
		}
		if err := uow.SeatRepository().CreateBatch(ctx, seats); err != nil {
			return err
		}

		log.WithField("seats", len(seats)).Info("Seat pool created")
		return nil
	})
}

// TakeSeat moves a user onto an available seat, vacating their previous
// seat within the same transaction so an occupant never holds two seats.
// Returns the taken seat and every seat that changed.
func (s *seatService) TakeSeat(ctx context.Context, telegramID string, seatID int64) (*models.Seat, []*models.Seat, error) {
	if telegramID == "" || seatID <= 0 {
		return nil, nil, fmt.Errorf("%w: user and seat are required", models.ErrValidation)
	}

	var taken *models.Seat
	var changed []*models.Seat
	err := s.runner.Do(ctx, func(uow UnitOfWork) error {
		taken, changed = nil, nil

		user, err := uow.UserRepository().GetByTelegramID(ctx, telegramID)
		if err != nil {
			return err
		}
		if user == nil {
			return models.ErrUserNotFound
		}

		// A party to an active duel may not move seats
		active, err := uow.DuelRepository().GetActiveByUser(ctx, telegramID)
		if err != nil {
			return err
		}
		if active != nil {
			return models.ErrUserDueling
		}

		seat, err := uow.SeatRepository().GetByIDForUpdate(ctx, seatID)
		if err != nil {
			return err
		}
		if seat == nil {
			return models.ErrSeatNotFound
		}
		if seat.IsOccupiedBy(telegramID) {
			taken = seat
			return nil
		}
		if seat.IsOccupied() {
			return models.ErrSeatOccupied
		}

		// Vacate before assigning: the occupant -> one seat invariant is
		// enforced procedurally, not by a unique index
		previous, err := uow.SeatRepository().Vacate(ctx, telegramID)
		if err != nil {
			return err
		}
		if previous != nil {
			changed = append(changed, previous)
		}

		taken, err = uow.SeatRepository().Assign(ctx, seatID, telegramID, models.SeatStatusOccupied)
		if err != nil {
			return err
		}
		changed = append(changed, taken)

		if err := uow.UserRepository().SetCurrentSeat(ctx, telegramID, &seatID); err != nil {
			return err
		}

		uow.EventBus().Publish(events.SeatsChangedEvent{Seats: changed})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	log.WithFields(log.Fields{
		"user":   telegramID,
		"seatID": seatID,
	}).Info("Seat taken")

	return taken, changed, nil
}

// ResetAllSeats vacates the whole pool and clears every user's seat
// reference. All-or-nothing.
func (s *seatService) ResetAllSeats(ctx context.Context) ([]*models.Seat, error) {
	var seats []*models.Seat
	err := s.runner.Do(ctx, func(uow UnitOfWork) error {
		var err error
		seats, err = uow.SeatRepository().ResetAll(ctx)
		if err != nil {
			return err
		}
		if err := uow.UserRepository().ClearAllCurrentSeats(ctx); err != nil {
			return err
		}

		uow.EventBus().Publish(events.SeatsResetEvent{Seats: seats})
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithField("seats", len(seats)).Info("All seats reset")
	return seats, nil
}

// GetSeat retrieves a seat
func (s *seatService) GetSeat(ctx context.Context, seatID int64) (*models.Seat, error) {
	var seat *models.Seat
	err := s.runner.DoRead(ctx, func(uow UnitOfWork) error {
		var err error
		seat, err = uow.SeatRepository().GetByID(ctx, seatID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if seat == nil {
		return nil, models.ErrSeatNotFound
	}
	return seat, nil
}

// ListSeats returns every seat ordered by position
func (s *seatService) ListSeats(ctx context.Context) ([]*models.Seat, error) {
	var seats []*models.Seat
	err := s.runner.DoRead(ctx, func(uow UnitOfWork) error {
		var err error
		seats, err = uow.SeatRepository().List(ctx)
		return err
	})
	return seats, err
}
