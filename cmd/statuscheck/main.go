// Command statuscheck probes a list of HTTP endpoints concurrently and
// writes a JSON report of their status codes and response times.
//
// Usage:
//
//	statuscheck [--file sites.txt] [URL ...] [--workers N] [--timeout S] [--retries N]
//	statuscheck serve      # HTTP API for triggering runs
//	statuscheck version
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hamed0406/statuschecker/internal/domain"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: statuscheck [--file sites.txt] [URL ...] [--workers N] [--timeout S] [--retries N]"

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func newRootCmd() *cobra.Command {
	root := newCheckCmd()
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "statuscheck %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}

// run executes the CLI and maps the outcome to a process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, domain.ErrNoURLs):
		fmt.Fprintln(stderr, usage)
		return exitUsage
	default:
		fmt.Fprintln(stderr, "error:", err)
		return exitError
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
