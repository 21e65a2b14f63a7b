package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brightroot/academy/internal/buildinfo"
	"github.com/brightroot/academy/internal/client/cli"
	"github.com/brightroot/academy/internal/client/client"
	"github.com/brightroot/academy/internal/client/config"
	"github.com/brightroot/academy/internal/client/session"
	"github.com/brightroot/academy/internal/client/storage"
	"github.com/brightroot/academy/internal/httpclient"
	"github.com/brightroot/academy/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "client stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}

	// Mock tokens are signed with a per-process key, so a restarted mock
	// backend cannot vouch for them.
	verify := cfg.VerifyOnBootstrap && !cfg.UseMock

	store := session.New(newRemote(cfg, logger), st,
		session.WithLogger(logger),
		session.WithRequestTimeout(cfg.RequestTimeout),
		session.WithBootstrapVerification(verify),
	)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error(ctx, "failed to close session store", "error", err)
		}
	}()

	store.Bootstrap(ctx)

	cli.NewApp(store, logger, cfg.SessionCheckInterval, os.Stdin, os.Stdout).Run(ctx)
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.StoragePath == "" {
		return storage.NewMemoryStorage(), nil
	}
	st, err := storage.OpenSQLite(ctx, cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing storage: %w", err)
	}
	return st, nil
}

func newRemote(cfg *config.Config, logger logging.Logger) client.Client {
	if cfg.UseMock {
		logger.Info(context.Background(), "using built-in mock backend")
		return client.NewMockClient()
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.RequestTimeout

	breaker := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig("auth-backend"),
		logger,
	)
	return client.NewHTTPClient(cfg.ServerBaseURL, breaker)
}
