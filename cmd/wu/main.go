package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬ ┬┬ ┬
  │││││ │
  └┴┘└─┘
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "wu",
		Short: "One dev server for every micro-frontend",
		Long: `wu serves a whole microfrontend project from a single process.

Point it at a directory of micro-apps and it serves all of them from
one port, with:

  • Just-in-time TypeScript and JSX compilation
  • npm module resolution served under /@modules/
  • CommonJS packages wrapped for the browser
  • Hot reload over WebSocket with SSE fallback
  • A two-level compile cache under .wu-cache/`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		devCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the wu ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
