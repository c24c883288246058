package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/statuschecker/internal/domain"
	"github.com/hamed0406/statuschecker/internal/probe"
	"github.com/hamed0406/statuschecker/internal/report"
)

const (
	DefaultTimeoutSeconds = 5
	DefaultRetries        = 0
	DefaultLogDir         = "logs"
)

// Defaults returns the run settings used when nothing overrides them.
// Host parallelism is read here, once, and nowhere else.
func Defaults() domain.RunConfig {
	return domain.RunConfig{
		Workers: runtime.NumCPU(),
		Timeout: DefaultTimeoutSeconds * time.Second,
		Retries: DefaultRetries,
		Backoff: probe.DefaultBackoff,
		Output:  report.DefaultPath,
	}
}

// Server is the configuration of the `serve` command.
type Server struct {
	Addr          string // API bind address, e.g. "127.0.0.1:8080" or ":8080" in Docker
	LogDir        string
	DatabaseURL   string // empty means in-memory run store
	PublicAPIKeys []string
	AdminAPIKeys  []string
	PublicRPM     int
	PublicBurst   int
	Run           domain.RunConfig // defaults for runs requested over the API
}

func FromEnv() Server {
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = DefaultLogDir
	}

	run := Defaults()
	run.Workers = IntOr(os.Getenv("STATUS_WORKERS"), run.Workers, positive)
	run.Timeout = SecondsOr(os.Getenv("STATUS_TIMEOUT_S"), run.Timeout)
	run.Retries = IntOr(os.Getenv("STATUS_RETRIES"), run.Retries, nonNegative)

	return Server{
		Addr:          addr,
		LogDir:        logDir,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		PublicAPIKeys: splitList(os.Getenv("PUBLIC_API_KEYS")),
		AdminAPIKeys:  splitList(os.Getenv("ADMIN_API_KEYS")),
		PublicRPM:     IntOr(os.Getenv("PUBLIC_RPM"), 120, nonNegative),
		PublicBurst:   IntOr(os.Getenv("PUBLIC_BURST"), 60, positive),
		Run:           run,
	}
}

// IntOr parses v, returning def when v is empty, malformed or rejected by ok.
func IntOr(v string, def int, ok func(int) bool) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || (ok != nil && !ok(n)) {
		return def
	}
	return n
}

// SecondsOr parses v as a positive whole number of seconds.
func SecondsOr(v string, def time.Duration) time.Duration {
	n := IntOr(v, 0, positive)
	if n == 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

func positive(n int) bool    { return n > 0 }
func nonNegative(n int) bool { return n >= 0 }

// Workers, Timeout and Retries apply one flag value on top of cur.
func Workers(v string, cur int) int { return IntOr(v, cur, positive) }

func Timeout(v string, cur time.Duration) time.Duration { return SecondsOr(v, cur) }

func Retries(v string, cur int) int { return IntOr(v, cur, nonNegative) }

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
