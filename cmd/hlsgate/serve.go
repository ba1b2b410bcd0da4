package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/hlsgate/internal/config"
	"github.com/ManuGH/hlsgate/internal/httpserver"
	"github.com/ManuGH/hlsgate/internal/initcache"
	xglog "github.com/ManuGH/hlsgate/internal/log"
	"github.com/ManuGH/hlsgate/internal/proxyclient"
	"github.com/ManuGH/hlsgate/internal/signing"
	"github.com/ManuGH/hlsgate/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HLS proxy HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: "hlsgate",
		Version: version,
	})
	logger := xglog.WithComponent("serve")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.OTelEnabled,
		ServiceName:    "hlsgate",
		ServiceVersion: version,
		Environment:    cfg.Environment,
		ExporterType:   cfg.OTelExporterType,
		Endpoint:       cfg.OTelEndpoint,
		SamplingRate:   cfg.OTelSamplingRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer provider shutdown failed")
		}
	}()

	serverBase := cfg.ExternalScheme + "://" + cfg.ExternalHost
	if cfg.ExternalHost == "" {
		serverBase = fmt.Sprintf("%s://localhost:%d", cfg.ExternalScheme, cfg.Port)
	}

	client := proxyclient.New(proxyclient.Config{
		Timeout:            cfg.UpstreamTimeout,
		MaxConcurrency:     cfg.UpstreamMaxConc,
		RateLimitPerSecond: cfg.RateLimitRPS,
	})

	fetcher := httpserver.ProxyClientAdapter{Client: client}
	initCache := initcache.New(cfg.InitCacheCapacity, httpserver.InitFetcherAdapter{Client: client})
	signer := signing.New(cfg.SigningKey)

	router := httpserver.NewRouter(httpserver.Dependencies{
		ServerBase:     serverBase,
		ServiceName:    "hlsgate",
		SigningKey:     signer,
		Fetcher:        fetcher,
		InitCache:      initCache,
		Version:        version,
		CORSOrigin:     cfg.CORSAllowedOrigin,
		RateLimitRPS:   int(cfg.RateLimitRPS),
		RateLimitBurst: cfg.RateLimitBurst,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
