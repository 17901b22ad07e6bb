package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// StartSeatResetWorker resets the whole seat pool at the configured
// weekday "HH:MM" marks (period boundaries). Returns a cleanup function
// to stop the worker gracefully.
func StartSeatResetWorker(ctx context.Context, seats SeatService, marks []string) func() {
	ticker := time.NewTicker(time.Minute)
	stopChan := make(chan struct{})

	fireAt := make(map[string]bool, len(marks))
	for _, mark := range marks {
		fireAt[mark] = true
	}

	go func() {
		log.WithField("marks", marks).Info("Seat reset worker started")

		var lastFired string
		for {
			select {
			case <-ctx.Done():
				log.Info("Seat reset worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Seat reset worker shutting down (stop requested)...")
				return
			case now := <-ticker.C:
				weekday := now.Weekday()
				if weekday == time.Saturday || weekday == time.Sunday {
					continue
				}
				mark := now.Format("15:04")
				minute := now.Format("2006-01-02 15:04")
				if !fireAt[mark] || minute == lastFired {
					continue
				}
				lastFired = minute

				if _, err := seats.ResetAllSeats(ctx); err != nil {
					log.WithFields(log.Fields{
						"mark":  mark,
						"error": err,
					}).Error("Scheduled seat reset failed")
					continue
				}
				log.WithField("mark", mark).Info("Scheduled seat reset completed")
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}
