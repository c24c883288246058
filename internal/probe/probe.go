package probe

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hamed0406/statuschecker/internal/domain"
)

// DefaultBackoff is the pause between two attempts on the same URL.
const DefaultBackoff = 100 * time.Millisecond

// bodies are drained (up to this size) so connections can be reused
const maxDrainBytes = 64 << 10

// Doer is the part of *http.Client the prober needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Prober runs the attempt sequence for a single URL: one GET, then up to
// Retries more on transport errors. Any HTTP response counts as success.
type Prober struct {
	Client  Doer
	Timeout time.Duration // per attempt
	Retries int           // additional attempts after the first
	Backoff time.Duration
}

func NewProber(client Doer, timeout time.Duration, retries int) *Prober {
	if retries < 0 {
		retries = 0
	}
	return &Prober{
		Client:  client,
		Timeout: timeout,
		Retries: retries,
		Backoff: DefaultBackoff,
	}
}

func (p *Prober) Probe(ctx context.Context, target string) domain.Outcome {
	start := time.Now()
	for attempt := 0; ; attempt++ {
		code, done, err := p.attempt(ctx, target)
		if err == nil {
			return p.outcome(target, domain.Succeeded(code), done.Sub(start), attempt+1)
		}
		if attempt >= p.Retries {
			return p.outcome(target, domain.Failed(describeError(err)), done.Sub(start), attempt+1)
		}
		sleep(ctx, p.Backoff)
	}
}

func (p *Prober) outcome(target string, r domain.Result, elapsed time.Duration, attempts int) domain.Outcome {
	return domain.Outcome{
		URL:        target,
		Result:     r,
		Elapsed:    elapsed,
		ObservedAt: time.Now(),
		Attempts:   attempts,
	}
}

// attempt issues one GET. done is taken as soon as the response headers (or
// the error) arrive, before the body is drained for connection reuse.
func (p *Prober) attempt(ctx context.Context, target string) (code uint16, done time.Time, err error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, time.Now(), err
	}
	resp, err := p.Client.Do(req)
	done = time.Now()
	if err != nil {
		return 0, done, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	return uint16(resp.StatusCode), done, nil
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// describeError drops the `Get "<url>":` wrapper added by net/http so the
// message starts with the actual cause.
func describeError(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		err = ue.Err
	}
	if isTimeout(err) {
		return "timeout: " + err.Error()
	}
	return err.Error()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
