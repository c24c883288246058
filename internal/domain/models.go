package domain

import (
	"errors"
	"time"
)

// ErrNoURLs is returned when a run is requested without any target.
var ErrNoURLs = errors.New("no urls to check")

// Result is the terminal result of a probe: either a status code or an
// error message, never both.
type Result struct {
	statusCode uint16
	message    string
	ok         bool
}

func Succeeded(code uint16) Result { return Result{statusCode: code, ok: true} }

func Failed(message string) Result { return Result{message: message} }

// OK reports whether the probe got an HTTP response.
func (r Result) OK() bool { return r.ok }

// StatusCode is only meaningful when OK() is true.
func (r Result) StatusCode() uint16 { return r.statusCode }

// Message is only meaningful when OK() is false.
func (r Result) Message() string { return r.message }

// Outcome is the record produced for one URL once all its attempts are done.
type Outcome struct {
	URL        string
	Result     Result
	Elapsed    time.Duration // from first attempt start to final attempt end
	ObservedAt time.Time
	Attempts   int
}

// RunConfig is built once at startup and never mutated.
type RunConfig struct {
	URLs    []string
	Workers int
	Timeout time.Duration
	Retries int
	Backoff time.Duration
	Output  string
}

func (c RunConfig) Validate() error {
	if len(c.URLs) == 0 {
		return ErrNoURLs
	}
	if c.Workers < 1 {
		return errors.New("workers must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Retries < 0 {
		return errors.New("retries must not be negative")
	}
	return nil
}

// Run is one completed check over a RunConfig, as kept by a run store.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcomes   []Outcome `json:"-"`
}
