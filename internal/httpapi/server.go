package httpapi

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/statuschecker/internal/domain"
	apimw "github.com/hamed0406/statuschecker/internal/httpapi/middleware"
	"github.com/hamed0406/statuschecker/internal/repo"
	"github.com/hamed0406/statuschecker/internal/report"
	"github.com/hamed0406/statuschecker/internal/runner"
)

// maxRunURLs bounds a single API-triggered run.
const maxRunURLs = 500

// maxRunBodyBytes caps the POST /api/runs payload.
const maxRunBodyBytes = 1 << 20

type Server struct {
	Logger   *zap.Logger
	Runner   *runner.Runner
	Runs     repo.RunStore
	Defaults domain.RunConfig
}

func NewServer(l *zap.Logger, rn *runner.Runner, runs repo.RunStore, defaults domain.RunConfig) *Server {
	return &Server{Logger: l, Runner: rn, Runs: runs, Defaults: defaults}
}

type RouterOptions struct {
	Keys           apimw.Keys
	AllowedOrigins []string // empty allows all
	RPM            int
	Burst          int
}

func (s *Server) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	if len(opts.AllowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/runs", func(r chi.Router) {
		r.Use(apimw.RateLimit(opts.RPM, opts.Burst))
		r.With(apimw.RequireAdmin(opts.Keys)).Post("/", s.handleCreateRun)
		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireAny(opts.Keys))
			r.Get("/latest", s.handleLatestRun)
			r.Get("/{id}", s.handleGetRun)
		})
	})

	return r
}

type runPayload struct {
	URLs           []string `json:"urls"`
	Workers        int      `json:"workers"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	Retries        *int     `json:"retries"`
}

type runResponse struct {
	ID         string          `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Report     []report.Record `json:"report"`
}

func toResponse(run *domain.Run) runResponse {
	return runResponse{
		ID:         run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Report:     report.Records(run.Outcomes),
	}
}

// runConfig applies the payload on top of the server defaults; values that
// are out of range keep the default.
func (s *Server) runConfig(p runPayload) domain.RunConfig {
	cfg := s.Defaults
	cfg.URLs = p.URLs
	cfg.Output = ""
	if p.Workers > 0 {
		cfg.Workers = p.Workers
	}
	if p.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(p.TimeoutSeconds) * time.Second
	}
	if p.Retries != nil && *p.Retries >= 0 {
		cfg.Retries = *p.Retries
	}
	return cfg
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRunBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	var p runPayload
	if err := sonic.ConfigStd.Unmarshal(body, &p); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if len(p.URLs) > maxRunURLs {
		http.Error(w, "too many urls", http.StatusBadRequest)
		return
	}
	for i, u := range p.URLs {
		p.URLs[i] = strings.TrimSpace(u)
		if !isValidHTTPURL(p.URLs[i]) {
			http.Error(w, "invalid url: "+u, http.StatusBadRequest)
			return
		}
	}

	run, err := s.Runner.Execute(r.Context(), s.runConfig(p))
	if errors.Is(err, domain.ErrNoURLs) {
		http.Error(w, "no urls", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "bad run config", http.StatusBadRequest)
		return
	}
	if err := s.Runner.Persist(r.Context(), run, ""); err != nil {
		s.Logger.Warn("api_run_not_saved", zap.String("run_id", run.ID), zap.Error(err))
	}

	s.Logger.Info("api_run",
		zap.String("run_id", run.ID),
		zap.Int("urls", len(run.Outcomes)),
	)
	s.writeJSON(w, http.StatusOK, toResponse(run))
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.Runs.Latest(r.Context())
	s.respondRun(w, run, err)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.Runs.Get(r.Context(), chi.URLParam(r, "id"))
	s.respondRun(w, run, err)
}

func (s *Server) respondRun(w http.ResponseWriter, run *domain.Run, err error) {
	if err != nil {
		s.Logger.Warn("run_lookup_error", zap.Error(err))
		http.Error(w, "lookup error", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, toResponse(run))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		s.Logger.Error("encode_response", zap.Error(err))
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func isValidHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}
