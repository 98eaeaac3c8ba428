// Command httpwatchdog watches a list of web pages and serves a report of
// their state.
//
// Usage:
//
//	httpwatchdog run requirements.yaml [--port 8080] [--probe-interval 60]
//	httpwatchdog validate requirements.yaml
//	httpwatchdog version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "httpwatchdog",
	Short: "Monitor web pages for availability and expected content",
	Long: `httpwatchdog periodically fetches the pages listed in a requirement
file, checks that every page answers 200 OK and contains all of its
patterns, and serves an HTML report of the latest results.

Example requirement file:
  probe-interval: 60
  port: 8080
  pages:
    - url: https://example.com/
      patterns: ['</html>', 'Example Domain']`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "httpwatchdog %s (commit %s)\n", version, commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
