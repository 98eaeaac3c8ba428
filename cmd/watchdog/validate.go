package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hamed0406/httpwatchdog/internal/config"
)

// validateCmd checks a requirement file without probing anything.
var validateCmd = &cobra.Command{
	Use:   "validate <requirement-file>",
	Short: "Validate a requirement file",
	Long: `Parse and validate a requirement file without starting the watchdog.

Exit codes:
  0 - file is valid (warnings may still be printed)
  1 - file is invalid (error details printed to stderr)`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := config.LoadRequirements(args[0], config.Overrides{})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Requirement file is valid!\n")
	fmt.Fprintf(out, "  Port:           %d\n", s.Port)
	fmt.Fprintf(out, "  Probe interval: %s\n", s.ProbeInterval)
	fmt.Fprintf(out, "  Timeout:        %s\n", s.Timeout)
	fmt.Fprintf(out, "  Pages:          %d\n", len(s.Pages))
	for _, p := range s.Pages {
		fmt.Fprintf(out, "    %s (%d patterns)\n", p.URL, len(p.Patterns))
	}
	for _, w := range s.Warnings {
		fmt.Fprintf(out, "WARNING: %s\n", w)
	}
	return nil
}
