package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Runner holds the runtime options of the simd binary. Session content
// (instruments, roster) stays in code or files; these are the knobs an
// operator flips per run.
type Runner struct {
	Port            int
	LogLevel        string
	Seed            int64
	TickInterval    time.Duration
	PreOpenTicks    int
	ContinuousTicks int
	ClosingTicks    int
	ShutdownTimeout time.Duration
}

// LoadRunner reads runner options from environment variables, applies
// defaults, and validates values.
func LoadRunner() (*Runner, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	seed, err := getInt64("SEED", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid SEED: %w", err)
	}

	tickInterval, err := getDuration("TICK_INTERVAL", 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
	}

	preOpen, err := getInt("PRE_OPEN_TICKS", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid PRE_OPEN_TICKS: %w", err)
	}
	continuous, err := getInt("CONTINUOUS_TICKS", 5000)
	if err != nil {
		return nil, fmt.Errorf("invalid CONTINUOUS_TICKS: %w", err)
	}
	closing, err := getInt("CLOSING_TICKS", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid CLOSING_TICKS: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Runner{
		Port:            port,
		LogLevel:        logLevel,
		Seed:            seed,
		TickInterval:    tickInterval,
		PreOpenTicks:    preOpen,
		ContinuousTicks: continuous,
		ClosingTicks:    closing,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
