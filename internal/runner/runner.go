// Package runner wires a single check run together: it fills the job queue,
// drains it with the worker pool, collects outcomes and persists the report.
package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/statuschecker/internal/collector"
	"github.com/hamed0406/statuschecker/internal/domain"
	"github.com/hamed0406/statuschecker/internal/pool"
	"github.com/hamed0406/statuschecker/internal/probe"
	"github.com/hamed0406/statuschecker/internal/queue"
	"github.com/hamed0406/statuschecker/internal/repo"
	"github.com/hamed0406/statuschecker/internal/report"
)

type Runner struct {
	Logger   *zap.Logger
	Client   probe.Doer    // shared by every worker of a run
	Store    repo.RunStore // optional
	Progress io.Writer     // receives one line per outcome; nil discards

	// DNSDiagnose logs a DNS classification for every failed URL.
	DNSDiagnose bool
}

func New(logger *zap.Logger, client probe.Doer, store repo.RunStore, progress io.Writer) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = probe.NewClient()
	}
	return &Runner{Logger: logger, Client: client, Store: store, Progress: progress}
}

// Execute probes every URL of cfg and returns the run with its outcomes in
// completion order. It only fails when cfg is invalid.
func (r *Runner) Execute(ctx context.Context, cfg domain.RunConfig) (*domain.Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	run := &domain.Run{ID: uuid.NewString(), StartedAt: time.Now().UTC()}
	log := r.Logger.With(zap.String("run_id", run.ID))
	log.Info("run_started",
		zap.Int("urls", len(cfg.URLs)),
		zap.Int("workers", cfg.Workers),
		zap.Duration("timeout", cfg.Timeout),
		zap.Int("retries", cfg.Retries),
	)

	prober := probe.NewProber(r.Client, cfg.Timeout, cfg.Retries)
	if cfg.Backoff > 0 {
		prober.Backoff = cfg.Backoff
	}
	workers := pool.New(log, prober, cfg.Workers)

	sink := make(chan domain.Outcome, workers.Workers)
	var poolErr error
	go func() {
		poolErr = workers.Run(ctx, queue.New(cfg.URLs), sink)
		close(sink)
	}()
	run.Outcomes = collector.New(r.Progress, log).Collect(sink)
	run.FinishedAt = time.Now().UTC()
	if poolErr != nil {
		log.Warn("run_interrupted", zap.Error(poolErr))
	}

	if r.DNSDiagnose {
		r.diagnose(ctx, log, run.Outcomes)
	}

	s := collector.Summarize(run.Outcomes)
	log.Info("run_finished",
		zap.Int("total", s.Total),
		zap.Int("ok", s.OK),
		zap.Int("failed", s.Failed),
		zap.Duration("took", run.FinishedAt.Sub(run.StartedAt)),
	)
	return run, nil
}

// Persist writes the report to path (skipped when empty) and saves the run in
// the store when one is configured. Both are attempted; their errors are
// combined.
func (r *Runner) Persist(ctx context.Context, run *domain.Run, path string) error {
	var err error
	if path != "" {
		if werr := report.WriteFile(path, run.Outcomes); werr != nil {
			err = multierr.Append(err, werr)
		} else {
			r.Logger.Info("report_written", zap.String("run_id", run.ID), zap.String("path", path))
		}
	}
	if r.Store != nil {
		if serr := r.Store.Save(ctx, run); serr != nil {
			err = multierr.Append(err, fmt.Errorf("save run: %w", serr))
		}
	}
	if err != nil {
		r.Logger.Error("persist_failed", zap.String("run_id", run.ID), zap.Error(err))
	}
	return err
}

func (r *Runner) diagnose(ctx context.Context, log *zap.Logger, outcomes []domain.Outcome) {
	for _, o := range outcomes {
		if o.Result.OK() {
			continue
		}
		dns := probe.CheckDNS(ctx, probe.HostOf(o.URL))
		log.Info("dns_check",
			zap.String("url", o.URL),
			zap.String("host", dns.Host),
			zap.String("class", dns.Class),
			zap.Strings("addrs", dns.Addrs),
			zap.Strings("nameservers", dns.Nameservers),
			zap.String("cname", dns.CNAME),
			zap.String("resolver_error", dns.ResolverError),
		)
	}
}
