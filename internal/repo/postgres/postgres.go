package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/statuschecker/internal/domain"
	"github.com/hamed0406/statuschecker/internal/repo"
)

var _ repo.RunStore = (*Store)(nil)

// Schema creates the tables used by Store. It is safe to apply repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
  id          TEXT PRIMARY KEY,
  started_at  TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS outcomes (
  run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  seq         INTEGER NOT NULL,
  url         TEXT NOT NULL,
  ok          BOOLEAN NOT NULL,
  status_code INTEGER NULL,
  message     TEXT NULL,
  elapsed_ms  BIGINT NOT NULL,
  attempts    INTEGER NOT NULL,
  observed_at TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs (finished_at DESC);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Save writes the run and all of its outcomes in one transaction.
func (s *Store) Save(ctx context.Context, r *domain.Run) (err error) {
	finished := r.FinishedAt
	if finished.IsZero() {
		finished = time.Now().UTC()
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx,
		`INSERT INTO runs (id, started_at, finished_at) VALUES ($1, $2, $3)`,
		r.ID, r.StartedAt, finished,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	rows := make([][]any, 0, len(r.Outcomes))
	for i, o := range r.Outcomes {
		var (
			code *int32
			msg  *string
		)
		if o.Result.OK() {
			c := int32(o.Result.StatusCode())
			code = &c
		} else {
			m := o.Result.Message()
			msg = &m
		}
		rows = append(rows, []any{
			r.ID, int32(i), o.URL, o.Result.OK(), code, msg,
			o.Elapsed.Milliseconds(), int32(o.Attempts), o.ObservedAt,
		})
	}
	if _, err = tx.CopyFrom(ctx,
		pgx.Identifier{"outcomes"},
		[]string{"run_id", "seq", "url", "ok", "status_code", "message", "elapsed_ms", "attempts", "observed_at"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("insert outcomes: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Debug("run_saved", zap.String("run_id", r.ID), zap.Int("outcomes", len(r.Outcomes)))
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Run, error) {
	var r domain.Run
	err := s.pool.QueryRow(ctx,
		`SELECT id, started_at, finished_at FROM runs WHERE id = $1`, id,
	).Scan(&r.ID, &r.StartedAt, &r.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if r.Outcomes, err = s.outcomes(ctx, id); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) Latest(ctx context.Context) (*domain.Run, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM runs ORDER BY finished_at DESC, id DESC LIMIT 1`,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *Store) outcomes(ctx context.Context, runID string) ([]domain.Outcome, error) {
	rows, err := s.pool.Query(ctx, `
SELECT url, ok, status_code, message, elapsed_ms, attempts, observed_at
  FROM outcomes
 WHERE run_id = $1
 ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var out []domain.Outcome
	for rows.Next() {
		var (
			o         domain.Outcome
			ok        bool
			code      sql.NullInt32
			msg       sql.NullString
			elapsedMS int64
			attempts  int32
		)
		if err := rows.Scan(&o.URL, &ok, &code, &msg, &elapsedMS, &attempts, &o.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if ok {
			o.Result = domain.Succeeded(uint16(code.Int32))
		} else {
			o.Result = domain.Failed(msg.String)
		}
		o.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		o.Attempts = int(attempts)
		out = append(out, o)
	}
	return out, rows.Err()
}
