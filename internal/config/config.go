// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"encoding/hex"
	"time"

	"github.com/ManuGH/hlsgate/internal/log"
)

// ServerConfig is the fully resolved server configuration, loaded
// once at startup from the process environment.
type ServerConfig struct {
	Host               string
	Port               int
	ExternalHost       string
	ExternalScheme     string
	CORSAllowedOrigin  string
	SigningKey         []byte
	LogLevel           string
	Environment        string
	OTelEnabled        bool
	OTelExporterType   string
	OTelEndpoint       string
	OTelSamplingRate   float64
	InitCacheCapacity  int
	UpstreamTimeout    time.Duration
	UpstreamMaxConc    int64
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load resolves ServerConfig from the environment, logging the
// source of every value through internal/log.
func Load() ServerConfig {
	cfg := ServerConfig{
		Host:              ParseString("HOST", "0.0.0.0"),
		Port:              ParseInt("PORT", 8080),
		ExternalHost:      ParseString("EXTERNAL_HOST", ""),
		ExternalScheme:    ParseString("EXTERNAL_SCHEME", "http"),
		CORSAllowedOrigin: ParseString("CORS_ALLOWED_ORIGIN", "*"),
		LogLevel:          ParseString("LOG_LEVEL", "info"),
		Environment:       ParseString("ENVIRONMENT", "development"),
		OTelEnabled:       ParseBool("OTEL_ENABLED", false),
		OTelExporterType:  ParseString("OTEL_EXPORTER_TYPE", "grpc"),
		OTelEndpoint:      ParseString("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
		OTelSamplingRate:  ParseFloat("OTEL_SAMPLING_RATE", 1.0),
		InitCacheCapacity: ParseInt("INIT_CACHE_CAPACITY", 100),
		UpstreamTimeout:   time.Duration(ParseInt("UPSTREAM_TIMEOUT_SECONDS", 30)) * time.Second,
		UpstreamMaxConc:   int64(ParseInt("UPSTREAM_MAX_CONCURRENCY", 64)),
		RateLimitRPS:      ParseFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst:    ParseInt("RATE_LIMIT_BURST", 0),
	}

	rawKey := ParseString("SIGNING_KEY", "")
	switch {
	case rawKey == "":
		compLog := log.WithComponent("config")
		compLog.Warn().Msg("SIGNING_KEY not set, URL signature verification is disabled")
	default:
		if decoded, err := hex.DecodeString(rawKey); err == nil {
			cfg.SigningKey = decoded
		} else {
			cfg.SigningKey = []byte(rawKey)
		}
	}

	return cfg
}
