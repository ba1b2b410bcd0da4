// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config reads the server's environment-variable
// configuration, logging the source of each value (environment or
// default) for observability.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/hlsgate/internal/log"
	"github.com/rs/zerolog"
)

// ParseString reads a string from an environment variable, or returns
// defaultValue.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		lowerKey := strings.ToLower(key)
		switch {
		case strings.Contains(lowerKey, "key") || strings.Contains(lowerKey, "token") || strings.Contains(lowerKey, "password"):
			logger.Debug().Str("key", key).Str("source", "environment").Bool("sensitive", true).Msg("using environment variable")
		case value == "":
			logger.Debug().Str("key", key).Str("default", defaultValue).Str("source", "default").Msg("using default value (environment variable is empty)")
			return defaultValue
		default:
			logger.Debug().Str("key", key).Str("value", value).Str("source", "environment").Msg("using environment variable")
		}
		return value
	}
	logger.Debug().Str("key", key).Str("default", defaultValue).Str("source", "default").Msg("using default value")
	return defaultValue
}

// ParseInt reads an integer from an environment variable, falling
// back to defaultValue on parse errors or absence.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().Str("key", key).Int("default", defaultValue).Str("source", "default").Msg("using default value")
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Int("default", defaultValue).Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Int("value", i).Str("source", "environment").Msg("using environment variable")
	return i
}

// ParseFloat reads a float64 from an environment variable, falling
// back to defaultValue on parse errors or absence.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().Str("key", key).Float64("default", defaultValue).Str("source", "default").Msg("using default value")
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Float64("default", defaultValue).Msg("invalid float in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Float64("value", f).Str("source", "environment").Msg("using environment variable")
	return f
}

// ParseDuration reads a Go-syntax duration (e.g. "30s") from an
// environment variable, falling back to defaultValue on parse errors
// or absence.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().Str("key", key).Dur("default", defaultValue).Str("source", "default").Msg("using default value")
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Dur("default", defaultValue).Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Dur("value", d).Str("source", "environment").Msg("using environment variable")
	return d
}

// ParseBool reads "true"/"false"/"1"/"0"/"yes"/"no" (case-insensitive)
// from an environment variable, falling back to defaultValue on parse
// errors or absence.
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().Str("key", key).Bool("default", defaultValue).Str("source", "default").Msg("using default value")
		return defaultValue
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		logger.Debug().Str("key", key).Bool("value", true).Str("source", "environment").Msg("using environment variable")
		return true
	case "false", "0", "no":
		logger.Debug().Str("key", key).Bool("value", false).Str("source", "environment").Msg("using environment variable")
		return false
	default:
		logger.Warn().Str("key", key).Str("value", v).Bool("default", defaultValue).Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
}
