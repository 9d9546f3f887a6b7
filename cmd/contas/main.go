package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"contas/internal/backend"
	"contas/internal/cache"
	"contas/internal/cli"
	apphttp "contas/internal/http"
	"contas/internal/log"
	"contas/internal/middleware/ratelimit"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Methods:           ratelimit.DefaultConfig().Methods,
	})
	opts := apphttp.Options{Ledger: result.Ledger, Logger: logger, Limiter: limiter}
	if result.Listings != nil {
		opts.Listings = result.Listings
	}
	srv := apphttp.NewServer(":"+cfg.Port, opts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return limiter.Run(gctx) })
	if result.Listings != nil {
		janitor := cache.NewJanitor(cfg.CacheTTL, logger.WithComponent(log.ComponentCache).Logger)
		janitor.Register(result.Listings)
		g.Go(func() error { return janitor.Run(gctx) })
	}

	logger.Info("Starting contas server", "port", cfg.Port, "backend", cfg.DataBackend, "timezone", cfg.Timezone)
	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
