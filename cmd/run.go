package cmd

import (
	"context"
	"fmt"
	"time"

	"seatduel/api"
	"seatduel/config"
	"seatduel/database"
	"seatduel/events"
	"seatduel/repository"
	"seatduel/service"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting seat duel server...")

	cfg := config.Get()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	runner := service.NewTxRunner(uowFactory, cfg.TxMaxAttempts, cfg.TxRetryBaseDelay)

	userService := service.NewUserService(runner)
	seatService := service.NewSeatService(runner, service.SeatLayout{
		Rows:        cfg.SeatRows,
		DesksPerRow: cfg.DesksPerRow,
		Variants:    cfg.SeatVariants,
	})
	scheduler := service.NewDuelTimeoutScheduler(cfg.DuelTimeout, cfg.SweepInterval)
	duelService := service.NewDuelService(runner, scheduler, cfg.DuelTimeout)

	log.Info("Ensuring seat pool exists...")
	if err := seatService.InitializeSeats(ctx); err != nil {
		return fmt.Errorf("failed to initialize seats: %w", err)
	}

	stopScheduler := scheduler.Start(ctx, duelService)
	defer stopScheduler()

	if cfg.SeatResetEnabled && len(cfg.SeatResetTimes) > 0 {
		stopResetWorker := service.StartSeatResetWorker(ctx, seatService, cfg.SeatResetTimes)
		defer stopResetWorker()
	}

	hub := api.NewHub(eventBus)
	server := api.NewServer(cfg.HTTPAddr, userService, seatService, duelService, hub)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Run()
	}()

	log.WithField("environment", cfg.Environment).Info("Server is running")

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithField("error", err).Error("Error shutting down HTTP server")
	}
	hub.Close()

	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return nil
}
