// Package collector gathers probe outcomes in the order they complete and
// prints one progress line for each.
package collector

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/hamed0406/statuschecker/internal/domain"
)

const unknownError = "Unknown error"

type Collector struct {
	out io.Writer
	log *zap.Logger
}

func New(out io.Writer, log *zap.Logger) *Collector {
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{out: out, log: log}
}

// Collect reads until in is closed and returns the outcomes in arrival order.
func (c *Collector) Collect(in <-chan domain.Outcome) []domain.Outcome {
	var all []domain.Outcome
	for o := range in {
		if _, err := io.WriteString(c.out, Line(o)+"\n"); err != nil {
			c.log.Warn("progress_write_error", zap.String("url", o.URL), zap.Error(err))
		}
		all = append(all, o)
	}
	return all
}

// Line formats the console line for one outcome.
func Line(o domain.Outcome) string {
	secs := int64(o.Elapsed.Seconds())
	if o.Result.OK() {
		return fmt.Sprintf("[%d] %s => %d", secs, o.URL, o.Result.StatusCode())
	}
	return fmt.Sprintf("[%d] %s => ERROR: %s", secs, o.URL, ShortError(o.Result.Message()))
}

// ShortError keeps the text before the first ':' of msg.
func ShortError(msg string) string {
	head, _, found := strings.Cut(msg, ":")
	if !found {
		return unknownError
	}
	return strings.TrimSpace(head)
}

type Summary struct {
	Total  int
	OK     int
	Failed int
}

func Summarize(outcomes []domain.Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		if o.Result.OK() {
			s.OK++
		} else {
			s.Failed++
		}
	}
	return s
}
