package runner

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statuschecker/internal/domain"
	"github.com/hamed0406/statuschecker/internal/probe"
	"github.com/hamed0406/statuschecker/internal/repo/memory"
	"github.com/hamed0406/statuschecker/internal/report"
)

// closedURL returns an http URL nothing is listening on.
func closedURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return "http://" + addr
}

// countingDoer counts attempts per URL on top of a real client.
type countingDoer struct {
	inner probe.Doer
	n     atomic.Int32
}

func (c *countingDoer) Do(req *http.Request) (*http.Response, error) {
	c.n.Add(1)
	return c.inner.Do(req)
}

func testConfig(urls ...string) domain.RunConfig {
	return domain.RunConfig{
		URLs:    urls,
		Workers: 2,
		Timeout: 2 * time.Second,
		Retries: 1,
		Backoff: 10 * time.Millisecond,
	}
}

func TestExecuteAndPersist_EndToEnd(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer up.Close()
	down := closedURL(t)

	doer := &countingDoer{inner: probe.NewClient()}
	var progress bytes.Buffer
	store := memory.New()
	r := New(zap.NewNop(), doer, store, &progress)

	run, err := r.Execute(context.Background(), testConfig(up.URL, down))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if run.ID == "" || run.FinishedAt.Before(run.StartedAt) {
		t.Fatalf("bad run metadata %+v", run)
	}
	if len(run.Outcomes) != 2 {
		t.Fatalf("want 2 outcomes, got %d", len(run.Outcomes))
	}
	// 1 attempt for the live server, 2 for the refused one
	if got := doer.n.Load(); got != 3 {
		t.Fatalf("want 3 attempts in total, got %d", got)
	}

	lines := strings.Split(strings.TrimSpace(progress.String()), "\n")
	sort.Strings(lines)
	if len(lines) != 2 {
		t.Fatalf("want 2 progress lines, got %q", progress.String())
	}
	var sawOK, sawErr bool
	for _, l := range lines {
		sawOK = sawOK || strings.HasSuffix(l, up.URL+" => 418")
		sawErr = sawErr || strings.Contains(l, down+" => ERROR: ")
	}
	if !sawOK || !sawErr {
		t.Fatalf("unexpected progress lines %q", lines)
	}

	path := filepath.Join(t.TempDir(), "status.json")
	if err := r.Persist(context.Background(), run, path); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	recs, err := report.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	byURL := map[string]report.Record{}
	for _, rec := range recs {
		byURL[rec.URL] = rec
	}
	if len(byURL) != 2 {
		t.Fatalf("want 2 distinct records, got %+v", recs)
	}
	if ok := byURL[up.URL].ActionStatus.Ok; ok == nil || *ok != 418 {
		t.Fatalf("live record wrong: %+v", byURL[up.URL])
	}
	if e := byURL[down].ActionStatus.Err; e == nil || *e == "" {
		t.Fatalf("down record wrong: %+v", byURL[down])
	}

	saved, err := store.Latest(context.Background())
	if err != nil || saved == nil || saved.ID != run.ID {
		t.Fatalf("store latest %+v err=%v", saved, err)
	}
}

func TestExecute_DuplicateURLsEachProbed(t *testing.T) {
	var hits atomic.Int32
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer s.Close()

	r := New(nil, nil, nil, nil)
	cfg := testConfig(s.URL, s.URL, s.URL)
	cfg.Workers = 8
	run, err := r.Execute(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(run.Outcomes) != 3 || hits.Load() != 3 {
		t.Fatalf("want 3 outcomes and 3 hits, got %d/%d", len(run.Outcomes), hits.Load())
	}
}

func TestExecute_NoURLs(t *testing.T) {
	r := New(nil, nil, nil, nil)
	_, err := r.Execute(context.Background(), testConfig())
	if !errors.Is(err, domain.ErrNoURLs) {
		t.Fatalf("want ErrNoURLs, got %v", err)
	}
}

type failingStore struct{ memory.Store }

func (f *failingStore) Save(ctx context.Context, r *domain.Run) error {
	return errors.New("db down")
}

func TestPersist_CombinesErrors(t *testing.T) {
	r := New(nil, nil, &failingStore{}, nil)
	run := &domain.Run{ID: "x", Outcomes: []domain.Outcome{{URL: "u", Result: domain.Succeeded(200)}}}

	bad := filepath.Join(t.TempDir(), "missing", "status.json")
	err := r.Persist(context.Background(), run, bad)
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "db down") || !strings.Contains(msg, "report") {
		t.Fatalf("both failures should be reported, got %q", msg)
	}
	if _, statErr := os.Stat(bad); !os.IsNotExist(statErr) {
		t.Fatalf("report must not exist")
	}
}

func TestExecute_ManyWorkersOneSlowHostAllSucceed(t *testing.T) {
	const n = 20
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(400 * time.Millisecond)
	}))
	defer s.Close()

	urls := make([]string, n)
	for i := range urls {
		urls[i] = s.URL
	}
	cfg := testConfig(urls...)
	cfg.Workers = n
	cfg.Timeout = 700 * time.Millisecond
	cfg.Retries = 0

	r := New(nil, probe.NewClient(), nil, nil)
	run, err := r.Execute(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(run.Outcomes) != n {
		t.Fatalf("want %d outcomes, got %d", n, len(run.Outcomes))
	}
	for _, o := range run.Outcomes {
		if !o.Result.OK() {
			t.Fatalf("slow but healthy host reported as failed: %q", o.Result.Message())
		}
	}
}
