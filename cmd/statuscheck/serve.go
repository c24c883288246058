package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hamed0406/statuschecker/internal/config"
	"github.com/hamed0406/statuschecker/internal/httpapi"
	apimw "github.com/hamed0406/statuschecker/internal/httpapi/middleware"
	"github.com/hamed0406/statuschecker/internal/logging"
	"github.com/hamed0406/statuschecker/internal/probe"
	"github.com/hamed0406/statuschecker/internal/repo"
	"github.com/hamed0406/statuschecker/internal/repo/memory"
	"github.com/hamed0406/statuschecker/internal/repo/postgres"
	"github.com/hamed0406/statuschecker/internal/runner"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var origins []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an HTTP API that runs checks on demand",
		Long: `Start the HTTP API.

  POST /api/runs          run a check ({"urls": [...]}), admin key
  GET  /api/runs/latest   last run, public or admin key
  GET  /api/runs/{id}     run by id, public or admin key

Settings come from the environment: ADDR, LOG_DIR, DATABASE_URL,
PUBLIC_API_KEYS, ADMIN_API_KEYS, PUBLIC_RPM, PUBLIC_BURST,
STATUS_WORKERS, STATUS_TIMEOUT_S, STATUS_RETRIES.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(config.FromEnv(), origins)
		},
	}
	cmd.Flags().StringSliceVar(&origins, "allowed-origin", nil, "CORS origin allowed to call the API; repeatable (default: any)")
	return cmd
}

func runServe(cfg config.Server, origins []string) error {
	logger, err := logging.NewLogger(cfg.LogDir, zapcore.InfoLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store repo.RunStore = memory.New()
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		store = pg
	}

	rn := runner.New(logger, probe.NewClient(), store, nil)
	api := httpapi.NewServer(logger, rn, store, cfg.Run)
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.Router(httpapi.RouterOptions{
			Keys:           apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys},
			AllowedOrigins: origins,
			RPM:            cfg.PublicRPM,
			Burst:          cfg.PublicBurst,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown_timeout", zap.Error(err))
		return nil
	}
	logger.Info("shutdown_complete")
	return nil
}
