// Package config reads checker settings from the environment. A .env file
// is loaded first so that settings can live next to a project's programs.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/roach88/subcalc/internal/engine"
)

// Environment variables.
const (
	EnvFile     = "SUBCALC_ENV"
	EnvMaxLimit = "SUBCALC_MAX_LIMIT"
	EnvLogLevel = "SUBCALC_LOG_LEVEL"
	EnvWorkers  = "SUBCALC_WORKERS"
)

// Load reads the .env file named by SUBCALC_ENV (or .env by default).
// Variables already set in the environment win over the file. A missing
// default file is not an error; a missing named file is.
func Load() error {
	envFile := os.Getenv(EnvFile)
	if envFile == "" {
		if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}
	return nil
}

// MaxLimit returns the hard cap of the justification fixpoint.
// Defaults to engine.DefaultMaxLimit if unset or not a positive integer.
func MaxLimit() uint32 {
	n, err := strconv.ParseUint(os.Getenv(EnvMaxLimit), 10, 32)
	if err != nil || n == 0 {
		return engine.DefaultMaxLimit
	}
	return uint32(n)
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to warn, so that only problems reach stderr.
func LogLevel() slog.Level {
	level, err := ParseLogLevel(os.Getenv(EnvLogLevel))
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

// ParseLogLevel parses a level name. The empty string is warn.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("unknown log level %q (expected debug, info, warn or error)", s)
	}
}

// Workers returns how many program files are checked in parallel.
// Defaults to the number of CPUs.
func Workers() int {
	n, err := strconv.Atoi(os.Getenv(EnvWorkers))
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}
