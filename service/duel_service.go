package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"seatduel/events"
	"seatduel/models"

	log "github.com/sirupsen/logrus"
)

type duelService struct {
	runner    *TxRunner
	scheduler TimeoutScheduler
	window    time.Duration

	// injectable for deterministic tests
	randIntn func(n int) int
	now      func() time.Time
}

// NewDuelService creates the duel state machine. It is the sole writer of
// duel rows and of the dueling/current-seat fields on users; every seat
// mutation it makes goes through the seat ledger under the seat row lock.
func NewDuelService(runner *TxRunner, scheduler TimeoutScheduler, window time.Duration) DuelService {
	return &duelService{
		runner:    runner,
		scheduler: scheduler,
		window:    window,
		randIntn:  rand.Intn,
		now:       time.Now,
	}
}

// seatChangeSet collects seats mutated during one transition, deduplicated
// by ID with the latest snapshot winning
type seatChangeSet struct {
	order []int64
	byID  map[int64]*models.Seat
}

func newSeatChangeSet() *seatChangeSet {
	return &seatChangeSet{byID: make(map[int64]*models.Seat)}
}

func (c *seatChangeSet) add(seat *models.Seat) {
	if seat == nil {
		return
	}
	if _, seen := c.byID[seat.ID]; !seen {
		c.order = append(c.order, seat.ID)
	}
	c.byID[seat.ID] = seat
}

func (c *seatChangeSet) list() []*models.Seat {
	seats := make([]*models.Seat, 0, len(c.order))
	for _, id := range c.order {
		seats = append(seats, c.byID[id])
	}
	return seats
}

// RequestDuel creates a pending duel over an occupied seat
func (s *duelService) RequestDuel(ctx context.Context, initiatorID, opponentID string, seatID int64) (*models.DuelUpdate, error) {
	if initiatorID == "" || opponentID == "" || seatID <= 0 {
		return nil, fmt.Errorf("%w: initiator, opponent and seat are required", models.ErrValidation)
	}
	if initiatorID == opponentID {
		return nil, fmt.Errorf("%w: cannot duel yourself", models.ErrValidation)
	}

	var result *models.DuelUpdate
	var created bool
	err := s.runner.Do(ctx, func(uow UnitOfWork) error {
		created = false
		for _, id := range []string{initiatorID, opponentID} {
			user, err := uow.UserRepository().GetByTelegramID(ctx, id)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %s: %w", id, models.ErrUserNotFound)
			}
		}

		// The seat row lock totally orders every transaction touching
		// this seat, including the seat-take path.
		seat, err := uow.SeatRepository().GetByIDForUpdate(ctx, seatID)
		if err != nil {
			return err
		}
		if seat == nil {
			return models.ErrSeatNotFound
		}
		if !seat.IsOccupied() {
			return models.ErrSeatNotOccupied
		}

		// A retried request finds the duel it already created; return it
		// rather than erroring so duplicate client requests are safe.
		existing, err := uow.DuelRepository().GetActiveBySeatForUpdate(ctx, seatID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = &models.DuelUpdate{Duel: existing}
			return nil
		}

		// Neither party may already be locked in a duel over another seat
		for _, id := range []string{initiatorID, opponentID} {
			active, err := uow.DuelRepository().GetActiveByUser(ctx, id)
			if err != nil {
				return err
			}
			if active != nil {
				return fmt.Errorf("user %s: %w", id, models.ErrUserDueling)
			}
		}

		duel := &models.Duel{
			InitiatorID: initiatorID,
			OpponentID:  opponentID,
			SeatID:      seatID,
			Status:      models.DuelStatusPending,
		}
		if err := uow.DuelRepository().Create(ctx, duel); err != nil {
			return err
		}

		created = true
		result = &models.DuelUpdate{Duel: duel}
		uow.EventBus().Publish(events.DuelUpdatedEvent{Duel: duel})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Arm the one-shot timer only for a freshly created duel; the sweep
	// covers duels whose timer was lost to a restart.
	if created && s.scheduler != nil {
		s.scheduler.Schedule(result.Duel.ID)
	}

	log.WithFields(log.Fields{
		"duelID":    result.Duel.ID,
		"initiator": initiatorID,
		"opponent":  opponentID,
		"seatID":    seatID,
	}).Info("Duel requested")

	return result, nil
}

// AcceptDuel transitions a pending duel to accepted, or straight to
// timeout when the accept window already passed
func (s *duelService) AcceptDuel(ctx context.Context, duelID int64) (*models.DuelUpdate, error) {
	var result *models.DuelUpdate
	err := s.runner.Do(ctx, func(uow UnitOfWork) error {
		duel, err := uow.DuelRepository().GetByIDForUpdate(ctx, duelID)
		if err != nil {
			return err
		}
		if duel == nil {
			return models.ErrDuelNotFound
		}

		if duel.Status == models.DuelStatusAccepted {
			result = &models.DuelUpdate{Duel: duel}
			return nil
		}
		if duel.Status != models.DuelStatusPending {
			return fmt.Errorf("cannot accept duel in %s status: %w", duel.Status, models.ErrInvalidTransition)
		}

		// A late accept racing an overdue duel loses to the clock
		if duel.HasExpired(s.window, s.now()) {
			result, err = s.resolveForfeit(ctx, uow, duel, models.DuelStatusTimeout)
			return err
		}

		duel.Status = models.DuelStatusAccepted
		if err := uow.DuelRepository().Update(ctx, duel); err != nil {
			return err
		}
		if err := uow.UserRepository().SetDueling(ctx, []string{duel.InitiatorID, duel.OpponentID}, true); err != nil {
			return err
		}

		result = &models.DuelUpdate{Duel: duel}
		uow.EventBus().Publish(events.DuelUpdatedEvent{Duel: duel})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Duel.IsTerminal() && s.scheduler != nil {
		s.scheduler.Cancel(duelID)
	}

	log.WithFields(log.Fields{
		"duelID": duelID,
		"status": result.Duel.Status,
	}).Info("Duel accept processed")

	return result, nil
}

// DeclineDuel transitions an active duel to declined, or to timeout when
// invoked by the timeout subsystem. Idempotent: a duel that already
// reached a terminal state is returned unchanged.
func (s *duelService) DeclineDuel(ctx context.Context, duelID int64, timeoutInduced bool) (*models.DuelUpdate, error) {
	var result *models.DuelUpdate
	err := s.runner.Do(ctx, func(uow UnitOfWork) error {
		duel, err := uow.DuelRepository().GetByIDForUpdate(ctx, duelID)
		if err != nil {
			return err
		}
		if duel == nil {
			return models.ErrDuelNotFound
		}

		if duel.IsTerminal() {
			result = &models.DuelUpdate{Duel: duel}
			return nil
		}

		status := models.DuelStatusDeclined
		if timeoutInduced {
			status = models.DuelStatusTimeout
		}
		result, err = s.resolveForfeit(ctx, uow, duel, status)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.scheduler != nil {
		s.scheduler.Cancel(duelID)
	}

	log.WithFields(log.Fields{
		"duelID":         duelID,
		"status":         result.Duel.Status,
		"timeoutInduced": timeoutInduced,
	}).Info("Duel decline processed")

	return result, nil
}

// CompleteDuel resolves an accepted duel: a uniform coin flip picks the
// winner, who takes the contested seat
func (s *duelService) CompleteDuel(ctx context.Context, duelID int64) (*models.DuelUpdate, error) {
	var result *models.DuelUpdate
	err := s.runner.Do(ctx, func(uow UnitOfWork) error {
		duel, err := uow.DuelRepository().GetByIDForUpdate(ctx, duelID)
		if err != nil {
			return err
		}
		if duel == nil {
			return models.ErrDuelNotFound
		}

		if duel.Status == models.DuelStatusCompleted {
			result = &models.DuelUpdate{Duel: duel}
			return nil
		}
		if duel.Status != models.DuelStatusAccepted {
			return fmt.Errorf("cannot complete duel in %s status: %w", duel.Status, models.ErrInvalidTransition)
		}

		// The random draw is the entire duel. Initiator is heads.
		initiatorWins := s.randIntn(2) == 0
		winnerID, loserID := duel.InitiatorID, duel.OpponentID
		flip := models.CoinFlipHeads
		if !initiatorWins {
			winnerID, loserID = duel.OpponentID, duel.InitiatorID
			flip = models.CoinFlipTails
		}

		seat, err := uow.SeatRepository().GetByIDForUpdate(ctx, duel.SeatID)
		if err != nil {
			return err
		}

		changes := newSeatChangeSet()
		update, err := s.reassignSeat(ctx, uow, seat, winnerID, loserID, models.SeatStatusDueled, changes)
		if err != nil {
			return err
		}

		duel.Status = models.DuelStatusCompleted
		duel.WinnerID = &winnerID
		duel.CoinFlip = &flip
		if err := uow.DuelRepository().Update(ctx, duel); err != nil {
			return err
		}
		if err := uow.UserRepository().SetDueling(ctx, []string{duel.InitiatorID, duel.OpponentID}, false); err != nil {
			return err
		}

		result = &models.DuelUpdate{Duel: duel, Seats: update}
		uow.EventBus().Publish(events.DuelUpdatedEvent{Duel: duel, Seats: update})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.scheduler != nil {
		s.scheduler.Cancel(duelID)
	}

	winner := ""
	if result.Duel.WinnerID != nil {
		winner = *result.Duel.WinnerID
	}
	log.WithFields(log.Fields{
		"duelID": duelID,
		"status": result.Duel.Status,
		"winner": winner,
	}).Info("Duel complete processed")

	return result, nil
}

// resolveForfeit applies the decline/timeout resolution policy: the
// initiator keeps or takes the contested seat and the opponent is vacated
// from any seat they hold. Declining forfeits the opponent's claim.
func (s *duelService) resolveForfeit(ctx context.Context, uow UnitOfWork, duel *models.Duel, status models.DuelStatus) (*models.DuelUpdate, error) {
	seat, err := uow.SeatRepository().GetByIDForUpdate(ctx, duel.SeatID)
	if err != nil {
		return nil, err
	}

	changes := newSeatChangeSet()
	seats, err := s.reassignSeat(ctx, uow, seat, duel.InitiatorID, duel.OpponentID, models.SeatStatusOccupied, changes)
	if err != nil {
		return nil, err
	}

	duel.Status = status
	if err := uow.DuelRepository().Update(ctx, duel); err != nil {
		return nil, err
	}
	if err := uow.UserRepository().SetDueling(ctx, []string{duel.InitiatorID, duel.OpponentID}, false); err != nil {
		return nil, err
	}

	update := &models.DuelUpdate{Duel: duel, Seats: seats}
	uow.EventBus().Publish(events.DuelUpdatedEvent{Duel: duel, Seats: seats})
	return update, nil
}

// reassignSeat vacates both parties and hands the contested seat to the
// taker with the given status, keeping user seat references in sync. Both
// parties end dueling-free; the other party ends seatless.
func (s *duelService) reassignSeat(ctx context.Context, uow UnitOfWork, seat *models.Seat, takerID, otherID string, status models.SeatStatus, changes *seatChangeSet) ([]*models.Seat, error) {
	vacated, err := uow.SeatRepository().Vacate(ctx, takerID)
	if err != nil {
		return nil, err
	}
	changes.add(vacated)

	vacated, err = uow.SeatRepository().Vacate(ctx, otherID)
	if err != nil {
		return nil, err
	}
	changes.add(vacated)

	var takerSeat *int64
	if seat != nil {
		// A bulk reset can hand the seat to a bystander while the duel is
		// still open; in that case the bystander keeps it.
		current, err := uow.SeatRepository().GetByID(ctx, seat.ID)
		if err != nil {
			return nil, err
		}
		if current != nil && !current.IsOccupied() {
			assigned, err := uow.SeatRepository().Assign(ctx, seat.ID, takerID, status)
			if err != nil {
				return nil, err
			}
			changes.add(assigned)
			takerSeat = &seat.ID
		}
	}

	if err := uow.UserRepository().SetCurrentSeat(ctx, takerID, takerSeat); err != nil {
		return nil, err
	}
	if err := uow.UserRepository().SetCurrentSeat(ctx, otherID, nil); err != nil {
		return nil, err
	}

	return changes.list(), nil
}

// GetDuelByID retrieves a duel
func (s *duelService) GetDuelByID(ctx context.Context, duelID int64) (*models.Duel, error) {
	var duel *models.Duel
	err := s.runner.DoRead(ctx, func(uow UnitOfWork) error {
		var err error
		duel, err = uow.DuelRepository().GetByID(ctx, duelID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if duel == nil {
		return nil, models.ErrDuelNotFound
	}
	return duel, nil
}

// GetDuelsBySeat returns all duels for a seat, newest first
func (s *duelService) GetDuelsBySeat(ctx context.Context, seatID int64) ([]*models.Duel, error) {
	var duels []*models.Duel
	err := s.runner.DoRead(ctx, func(uow UnitOfWork) error {
		var err error
		duels, err = uow.DuelRepository().ListBySeat(ctx, seatID)
		return err
	})
	return duels, err
}

// GetActiveDuelForUser returns the duel in {pending, accepted} the user
// is a party to, or nil
func (s *duelService) GetActiveDuelForUser(ctx context.Context, telegramID string) (*models.Duel, error) {
	var duel *models.Duel
	err := s.runner.DoRead(ctx, func(uow UnitOfWork) error {
		var err error
		duel, err = uow.DuelRepository().GetActiveByUser(ctx, telegramID)
		return err
	})
	return duel, err
}

// getExpiredPending returns pending duels created before the cutoff, for
// the timeout sweep
func (s *duelService) getExpiredPending(ctx context.Context, cutoff time.Time) ([]*models.Duel, error) {
	var duels []*models.Duel
	err := s.runner.DoRead(ctx, func(uow UnitOfWork) error {
		var err error
		duels, err = uow.DuelRepository().ListPendingBefore(ctx, cutoff)
		return err
	})
	return duels, err
}

// GetAllDuels returns every duel, newest first
func (s *duelService) GetAllDuels(ctx context.Context) ([]*models.Duel, error) {
	var duels []*models.Duel
	err := s.runner.DoRead(ctx, func(uow UnitOfWork) error {
		var err error
		duels, err = uow.DuelRepository().ListAll(ctx)
		return err
	})
	return duels, err
}
