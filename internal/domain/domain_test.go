package domain

import (
	"errors"
	"testing"
	"time"
)

func TestResult_Variants(t *testing.T) {
	ok := Succeeded(503)
	if !ok.OK() || ok.StatusCode() != 503 || ok.Message() != "" {
		t.Fatalf("unexpected success variant: %+v", ok)
	}
	bad := Failed("dial tcp: refused")
	if bad.OK() || bad.StatusCode() != 0 || bad.Message() != "dial tcp: refused" {
		t.Fatalf("unexpected failure variant: %+v", bad)
	}
}

func TestRunConfig_Validate(t *testing.T) {
	good := RunConfig{
		URLs:    []string{"https://example.com"},
		Workers: 2,
		Timeout: 5 * time.Second,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	empty := good
	empty.URLs = nil
	if err := empty.Validate(); !errors.Is(err, ErrNoURLs) {
		t.Fatalf("want ErrNoURLs, got %v", err)
	}

	cases := []RunConfig{
		{URLs: good.URLs, Workers: 0, Timeout: time.Second},
		{URLs: good.URLs, Workers: 1, Timeout: 0},
		{URLs: good.URLs, Workers: 1, Timeout: time.Second, Retries: -1},
	}
	for _, c := range cases {
		if err := c.Validate(); err == nil {
			t.Fatalf("expected error for %+v", c)
		}
	}
}
