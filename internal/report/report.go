// Package report persists the outcomes of a run as a JSON document.
//
// The document is an array of records in collection order:
//
//	[
//	  {
//	    "url": "https://example.com",
//	    "action_status": {"Ok": 200},
//	    "response_time_ms": 87,
//	    "timestamp": "1760000000"
//	  }
//	]
//
// A failed probe carries {"Err": "<message>"} instead of {"Ok": <code>}.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"github.com/hamed0406/statuschecker/internal/domain"
)

// DefaultPath is where the CLI writes the report unless told otherwise.
const DefaultPath = "status.json"

var epoch = time.Unix(0, 0)

// ActionStatus has exactly one of Ok or Err set.
type ActionStatus struct {
	Ok  *uint16 `json:"Ok,omitempty"`
	Err *string `json:"Err,omitempty"`
}

type Record struct {
	URL            string       `json:"url"`
	ActionStatus   ActionStatus `json:"action_status"`
	ResponseTimeMS int64        `json:"response_time_ms"`
	Timestamp      string       `json:"timestamp"`
}

func FromOutcome(o domain.Outcome) Record {
	var st ActionStatus
	if o.Result.OK() {
		code := o.Result.StatusCode()
		st.Ok = &code
	} else {
		msg := o.Result.Message()
		st.Err = &msg
	}
	ms := o.Elapsed.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return Record{
		URL:            o.URL,
		ActionStatus:   st,
		ResponseTimeMS: ms,
		Timestamp:      unixSeconds(o.ObservedAt),
	}
}

// Records converts outcomes keeping their order. The result is never nil so
// an empty run encodes as [].
func Records(outcomes []domain.Outcome) []Record {
	out := make([]Record, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, FromOutcome(o))
	}
	return out
}

func unixSeconds(t time.Time) string {
	if t.Before(epoch) {
		return "0"
	}
	return strconv.FormatInt(t.Unix(), 10)
}

func Encode(outcomes []domain.Outcome) ([]byte, error) {
	b, err := sonic.ConfigStd.MarshalIndent(Records(outcomes), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return append(b, '\n'), nil
}

func Decode(data []byte) ([]Record, error) {
	var recs []Record
	if err := sonic.ConfigStd.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	for i, r := range recs {
		if (r.ActionStatus.Ok == nil) == (r.ActionStatus.Err == nil) {
			return nil, fmt.Errorf("decode report: record %d (%s): action_status needs exactly one of Ok/Err", i, r.URL)
		}
	}
	return recs, nil
}

// WriteFile replaces path with the encoded report. The file is first written
// to a temporary sibling and renamed, so readers never observe a partial
// report and a failed run leaves any previous report untouched.
func WriteFile(path string, outcomes []domain.Outcome) (err error) {
	data, err := Encode(outcomes)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".status-*.json")
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync report: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod report: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

// ReadFile loads a report written by WriteFile.
func ReadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("read report: empty file")
	}
	return Decode(data)
}
