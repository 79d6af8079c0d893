// Package main is the entry point for the volley CLI.
//
// Volley can be run either as a library (SDK) or as a standalone binary.
// This CLI sends a fixed number of HTTP requests through a worker pool and
// prints a report of how they went.
//
// Usage:
//
//	volley -n 1000 -e https://api.example.com/health   # one endpoint
//	volley -f requests.txt -p 50 -o json               # script of requests
//	volley validate -f requests.txt                    # check a script
//	volley version                                     # show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// newRootCmd builds the command tree. The root command runs a load test;
// subcommands validate scripts and print the version.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volley",
		Short: "Send a volley of HTTP requests and report the outcome",
		Long: `Volley is a small HTTP load generator.

It sends every iteration of every request through a fixed-size worker pool
and counts each response as a success (2xx), a failure (any other status),
or an error (the request could not be built or sent).

Requests come from the command line or from a script file. Scripts are
pipe-delimited text, CSV, JSON or YAML, chosen by extension:

  # ITERATIONS|METHOD|ENDPOINT|HEADERS|SLEEP_MS
  100|GET|https://api.example.com/items|Accept:application/json|0
  10|POST|https://api.example.com/items/RANDOM|Authorization=Bearer ${TOKEN}|50

Send SIGUSR1 for an interim report. SIGINT or SIGTERM stops the run and
prints what was counted so far.

Every flag can also be set with a VOLLEY_ environment variable, for example
VOLLEY_POOL_SIZE=50 or VOLLEY_METRICS_ADDR=:9090.`,
		Example: `  volley -n 1000 -e https://api.example.com/health
  volley -n 50 -e https://api.example.com/items -m POST -x "Content-Type: application/json"
  volley -f requests.txt -p 200 -o summary
  volley -f requests.yaml --metrics-addr :9090 -o json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	bindRunFlags(cmd)
	cmd.AddCommand(newValidateCmd(), newVersionCmd())
	return cmd
}

// newVersionCmd prints version information.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of this volley binary.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "volley %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}
