package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hamed0406/statuschecker/internal/config"
	"github.com/hamed0406/statuschecker/internal/domain"
	"github.com/hamed0406/statuschecker/internal/logging"
	"github.com/hamed0406/statuschecker/internal/probe"
	"github.com/hamed0406/statuschecker/internal/repo"
	"github.com/hamed0406/statuschecker/internal/repo/postgres"
	"github.com/hamed0406/statuschecker/internal/runner"
)

type checkFlags struct {
	files       []string
	workers     string
	timeout     string
	retries     string
	output      string
	logDir      string
	databaseURL string
	dnsDiagnose bool
	verbose     bool
}

func newCheckCmd() *cobra.Command {
	f := &checkFlags{}
	cmd := &cobra.Command{
		Use:   "statuscheck [URL ...]",
		Short: "Check the status of HTTP endpoints concurrently",
		Long: `statuscheck sends a GET request to every URL, retrying transport
failures, and prints one line per endpoint as soon as it completes:

  [<seconds>] <url> => <status code>
  [<seconds>] <url> => ERROR: <reason>

When all endpoints are done the full result set is written as JSON
(status.json by default). Any HTTP response counts as reachable; only
network errors and timeouts are reported as errors.

Positional arguments are taken as URLs, except a first argument named
like a subcommand (serve, version), which runs that subcommand, and
arguments starting with "-", which are parsed as flags (unknown ones
are an error). Put such URLs after "--":

  statuscheck -o out.json -- version --weird-but-valid-host

Exit codes:
  0 - run completed (individual endpoints may have failed)
  1 - the report could not be written
  2 - no URLs were given`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, f, args)
		},
	}

	fl := cmd.Flags()
	fl.StringArrayVar(&f.files, "file", nil, "read URLs from `path` (one per line, or a .yaml list); repeatable")
	// numeric flags are strings so bad values can fall back to defaults
	fl.StringVar(&f.workers, "workers", "", "number of concurrent workers (default: CPU count)")
	fl.StringVar(&f.timeout, "timeout", "", "per-request timeout in seconds (default 5)")
	fl.StringVar(&f.retries, "retries", "", "extra attempts after a transport failure (default 0)")
	fl.StringVarP(&f.output, "output", "o", config.Defaults().Output, "report `path`")
	fl.StringVar(&f.logDir, "log-dir", "", "write structured logs to this directory")
	fl.StringVar(&f.databaseURL, "database-url", "", "also save the run to this Postgres database")
	fl.BoolVar(&f.dnsDiagnose, "dns-diagnose", false, "log a DNS diagnosis for every failed endpoint")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "log every probe at debug level")
	return cmd
}

func (f *checkFlags) runConfig(cmd *cobra.Command, args []string) domain.RunConfig {
	cfg := config.Defaults()
	cfg.URLs = append([]string(nil), args...)
	for _, path := range f.files {
		urls, err := config.LoadURLs(path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipping %s: %v\n", path, err)
			continue
		}
		cfg.URLs = append(cfg.URLs, urls...)
	}
	cfg.Workers = config.Workers(f.workers, cfg.Workers)
	cfg.Timeout = config.Timeout(f.timeout, cfg.Timeout)
	cfg.Retries = config.Retries(f.retries, cfg.Retries)
	if f.output != "" {
		cfg.Output = f.output
	}
	return cfg
}

func runCheck(cmd *cobra.Command, f *checkFlags, args []string) error {
	cfg := f.runConfig(cmd, args)
	if len(cfg.URLs) == 0 {
		return domain.ErrNoURLs
	}

	level := zapcore.InfoLevel
	if f.verbose {
		level = zapcore.DebugLevel
	}
	logger, err := logging.NewLogger(f.logDir, level)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// no run-level cancellation: every URL gets an outcome
	ctx := context.Background()

	var store repo.RunStore
	if f.databaseURL != "" {
		pg, err := postgres.New(ctx, f.databaseURL, logger)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		store = pg
	}

	rn := runner.New(logger, probe.NewClient(), store, cmd.OutOrStdout())
	rn.DNSDiagnose = f.dnsDiagnose

	run, err := rn.Execute(ctx, cfg)
	if err != nil {
		return err
	}
	if err := rn.Persist(ctx, run, cfg.Output); err != nil {
		return err
	}
	logger.Debug("check_done", zap.String("run_id", run.ID), zap.String("output", cfg.Output))
	return nil
}
