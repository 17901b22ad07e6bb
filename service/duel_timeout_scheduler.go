package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"seatduel/models"

	log "github.com/sirupsen/logrus"
)

// duelDecliner is the slice of the duel service the scheduler needs
type duelDecliner interface {
	DeclineDuel(ctx context.Context, duelID int64, timeoutInduced bool) (*models.DuelUpdate, error)
	getExpiredPending(ctx context.Context, cutoff time.Time) ([]*models.Duel, error)
}

// DuelTimeoutScheduler forces stuck duels to a terminal state through two
// redundant mechanisms: a one-shot timer per duel (low latency, lost on
// restart) and a periodic sweep over persisted created_at timestamps
// (coarse, survives restarts). Both funnel into the same idempotent
// DeclineDuel call, so double firing is harmless.
type DuelTimeoutScheduler struct {
	window        time.Duration
	sweepInterval time.Duration

	mu       sync.Mutex
	decliner duelDecliner
	timers   map[int64]*time.Timer
}

// NewDuelTimeoutScheduler creates a scheduler with the given accept
// window and sweep interval
func NewDuelTimeoutScheduler(window, sweepInterval time.Duration) *DuelTimeoutScheduler {
	return &DuelTimeoutScheduler{
		window:        window,
		sweepInterval: sweepInterval,
		timers:        make(map[int64]*time.Timer),
	}
}

// Schedule arms a one-shot timer that times the duel out after the accept
// window. A no-op before Start binds the scheduler to the duel service;
// the sweep covers any duel created in that gap.
func (s *DuelTimeoutScheduler) Schedule(duelID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.decliner == nil {
		log.WithField("duelID", duelID).Warn("Timeout scheduler not started, relying on sweep")
		return
	}
	if _, armed := s.timers[duelID]; armed {
		return
	}

	s.timers[duelID] = time.AfterFunc(s.window, func() {
		s.fire(duelID)
	})
}

// Cancel disarms the timer for a duel that reached a terminal state
func (s *DuelTimeoutScheduler) Cancel(duelID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, armed := s.timers[duelID]; armed {
		timer.Stop()
		delete(s.timers, duelID)
	}
}

func (s *DuelTimeoutScheduler) fire(duelID int64) {
	s.mu.Lock()
	decliner := s.decliner
	delete(s.timers, duelID)
	s.mu.Unlock()

	if decliner == nil {
		return
	}

	// Timers outlive the request that armed them, so run detached
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := decliner.DeclineDuel(ctx, duelID, true); err != nil && !errors.Is(err, models.ErrDuelNotFound) {
		log.WithFields(log.Fields{
			"duelID": duelID,
			"error":  err,
		}).Error("Failed to time out duel")
		return
	}

	log.WithField("duelID", duelID).Info("Duel timer fired")
}

// Start binds the scheduler to the duel service and launches the periodic
// sweep. Returns a cleanup function to stop the worker gracefully.
func (s *DuelTimeoutScheduler) Start(ctx context.Context, svc DuelService) func() {
	decliner, ok := svc.(duelDecliner)
	if !ok {
		panic("duel service does not expose the timeout sweep queries")
	}

	s.mu.Lock()
	s.decliner = decliner
	s.mu.Unlock()

	ticker := time.NewTicker(s.sweepInterval)
	stopChan := make(chan struct{})

	go func() {
		log.Info("Duel timeout sweep started")

		// Run immediately on startup to recover duels whose timers were
		// lost to a restart
		s.sweep(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Info("Duel timeout sweep shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Duel timeout sweep shutting down (stop requested)...")
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}

// sweep scans for pending duels older than the accept window and funnels
// each through the idempotent timeout transition
func (s *DuelTimeoutScheduler) sweep(ctx context.Context) {
	s.mu.Lock()
	decliner := s.decliner
	s.mu.Unlock()

	cutoff := time.Now().Add(-s.window)
	expired, err := decliner.getExpiredPending(ctx, cutoff)
	if err != nil {
		log.WithField("error", err).Error("Timeout sweep query failed")
		return
	}

	for _, duel := range expired {
		if _, err := decliner.DeclineDuel(ctx, duel.ID, true); err != nil {
			log.WithFields(log.Fields{
				"duelID": duel.ID,
				"error":  err,
			}).Error("Timeout sweep failed to time out duel")
			continue
		}
		log.WithField("duelID", duel.ID).Info("Duel timed out by sweep")
	}
}
