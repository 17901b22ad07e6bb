package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// HTTP configuration
	HTTPAddr string

	// Database configuration
	DatabaseURL string

	// Seat pool layout (rows x desks x variants seats are created on startup)
	SeatRows     int
	DesksPerRow  int
	SeatVariants int

	// Duel configuration
	DuelTimeout      time.Duration // window an opponent has to accept
	SweepInterval    time.Duration // how often the pending-duel sweep runs
	TxMaxAttempts    int           // transaction retry attempts on lock contention
	TxRetryBaseDelay time.Duration // delay grows linearly with attempt number

	// Seat reset schedule
	SeatResetTimes   []string // weekday "HH:MM" marks at which all seats reset
	SeatResetEnabled bool

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		HTTPAddr:    os.Getenv("HTTP_ADDR"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Seat pool defaults: 3 rows of 6 desks with 2 seats each
		SeatRows:     3,
		DesksPerRow:  6,
		SeatVariants: 2,

		DuelTimeout:      60 * time.Second,
		SweepInterval:    time.Minute,
		TxMaxAttempts:    5,
		TxRetryBaseDelay: 500 * time.Millisecond,

		SeatResetEnabled: os.Getenv("SEAT_RESET_ENABLED") == "true",

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if config.HTTPAddr == "" {
		config.HTTPAddr = ":3000"
	}

	// Override defaults if environment variables are set
	if rows := os.Getenv("SEAT_ROWS"); rows != "" {
		if parsed, err := strconv.Atoi(rows); err == nil && parsed > 0 {
			config.SeatRows = parsed
		}
	}
	if desks := os.Getenv("DESKS_PER_ROW"); desks != "" {
		if parsed, err := strconv.Atoi(desks); err == nil && parsed > 0 {
			config.DesksPerRow = parsed
		}
	}
	if variants := os.Getenv("SEAT_VARIANTS"); variants != "" {
		if parsed, err := strconv.Atoi(variants); err == nil && parsed > 0 {
			config.SeatVariants = parsed
		}
	}
	if timeout := os.Getenv("DUEL_TIMEOUT_SECONDS"); timeout != "" {
		if parsed, err := strconv.Atoi(timeout); err == nil && parsed > 0 {
			config.DuelTimeout = time.Duration(parsed) * time.Second
		}
	}
	if interval := os.Getenv("SWEEP_INTERVAL_SECONDS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.SweepInterval = time.Duration(parsed) * time.Second
		}
	}
	if attempts := os.Getenv("TX_MAX_ATTEMPTS"); attempts != "" {
		if parsed, err := strconv.Atoi(attempts); err == nil && parsed > 0 {
			config.TxMaxAttempts = parsed
		}
	}
	if delay := os.Getenv("TX_RETRY_BASE_MS"); delay != "" {
		if parsed, err := strconv.Atoi(delay); err == nil && parsed > 0 {
			config.TxRetryBaseDelay = time.Duration(parsed) * time.Millisecond
		}
	}

	// Comma-separated weekday "HH:MM" marks, e.g. "07:35,09:25,10:15"
	if resetTimes := os.Getenv("SEAT_RESET_TIMES"); resetTimes != "" {
		for _, mark := range strings.Split(resetTimes, ",") {
			mark = strings.TrimSpace(mark)
			if mark == "" {
				continue
			}
			if _, err := time.Parse("15:04", mark); err != nil {
				return nil, fmt.Errorf("invalid SEAT_RESET_TIMES entry %q: %w", mark, err)
			}
			config.SeatResetTimes = append(config.SeatResetTimes, mark)
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}

// SeatCount returns the total size of the fixed seat pool
func (c *Config) SeatCount() int {
	return c.SeatRows * c.DesksPerRow * c.SeatVariants
}
