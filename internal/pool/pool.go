package pool

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/statuschecker/internal/domain"
)

// Source hands out pending URLs; ok=false means nothing is left.
type Source interface {
	Take() (url string, ok bool)
}

type Prober interface {
	Probe(ctx context.Context, target string) domain.Outcome
}

// Pool drains a Source with a fixed number of workers.
type Pool struct {
	Logger  *zap.Logger
	Prober  Prober
	Workers int
}

func New(logger *zap.Logger, prober Prober, workers int) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &Pool{Logger: logger, Prober: prober, Workers: workers}
}

// Run starts the workers and blocks until every one of them found the source
// empty. Each outcome is sent to sink exactly once; sink is left open so the
// caller can close it after Run returns. Cancelling ctx does not drop URLs:
// the remaining ones still yield (failed) outcomes, and Run then reports
// ctx's error.
func (p *Pool) Run(ctx context.Context, src Source, sink chan<- domain.Outcome) error {
	var g errgroup.Group
	for i := 0; i < p.Workers; i++ {
		id := i
		g.Go(func() error {
			return p.work(ctx, id, src, sink)
		})
	}
	return g.Wait()
}

func (p *Pool) work(ctx context.Context, id int, src Source, sink chan<- domain.Outcome) error {
	done := 0
	for {
		target, ok := src.Take()
		if !ok {
			p.Logger.Debug("worker_idle", zap.Int("worker", id), zap.Int("probed", done))
			return ctx.Err()
		}
		out := p.Prober.Probe(ctx, target)
		p.Logger.Debug("probe_done",
			zap.Int("worker", id),
			zap.String("url", out.URL),
			zap.Bool("ok", out.Result.OK()),
			zap.Uint16("status", out.Result.StatusCode()),
			zap.String("error", out.Result.Message()),
			zap.Int("attempts", out.Attempts),
			zap.Duration("elapsed", out.Elapsed),
		)
		sink <- out
		done++
	}
}
