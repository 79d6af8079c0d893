package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/volley/config"
)

// newValidateCmd validates a script file without sending any requests.
func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a script file",
		Long: `Validate a volley script without sending any requests.

This command parses the script, applies the command-line defaults, expands
environment variables, and checks every header. It's useful for CI/CD
pipelines or pre-run checks.

Exit codes:
  0 - Script is valid
  1 - Script is invalid (error details printed to stderr)

Example:
  volley validate -f requests.txt
  volley validate -f requests.yaml -e https://fallback.example.com`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runValidate,
	}

	cmd.Flags().StringP(flagScript, "f", "", "path to script file (required)")
	cmd.Flags().StringP(flagEndpoint, "e", "", "default endpoint for entries without one")
	cmd.Flags().IntP(flagIterations, "n", 1, "default iterations for entries without a count")
	_ = cmd.MarkFlagRequired(flagScript)
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	script, _ := cmd.Flags().GetString(flagScript)
	endpoint, _ := cmd.Flags().GetString(flagEndpoint)
	iterations, _ := cmd.Flags().GetInt(flagIterations)

	descs, err := config.Load(script, config.Defaults{Endpoint: endpoint, Iterations: iterations})
	if err != nil {
		return fmt.Errorf("invalid script: %w", err)
	}
	if _, err := config.BuildJobs(descs); err != nil {
		return fmt.Errorf("invalid script: %w", err)
	}
	// A run would count these as errors; validation is stricter.
	for _, d := range descs {
		if len(d.InvalidHeaders) > 0 {
			return fmt.Errorf("invalid script: %s:%d: %w: %q", script, d.Line, config.ErrInvalidHeader, d.InvalidHeaders)
		}
	}

	methods := make(map[string]int)
	for _, d := range descs {
		methods[d.Method] += d.Iterations
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Script is valid!\n")
	fmt.Fprintf(out, "  Entries:  %d\n", len(descs))
	fmt.Fprintf(out, "  Requests: %d\n", config.Requests(descs))
	fmt.Fprintf(out, "  Methods:  %s\n", formatMethods(methods))
	return nil
}

// formatMethods renders request counts per method in a stable order.
func formatMethods(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%d", k, counts[k])
	}
	return b.String()
}
