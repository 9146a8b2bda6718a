package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes of the CLI surface.
const (
	exitOK      = 0
	exitCompile = 1
	exitRuntime = 2
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "mythos",
	Short: "Mythos interpreter and bytecode compiler",
	Long: `go-mythos is a Go implementation of the Mythos scripting language.

Mythos is a small dynamically-typed language with functions, closures,
classes with inheritance, exceptions and match statements. Programs are
compiled to bytecode and executed on a stack-based virtual machine.

Host functionality (graphics, web, AI, physics) is reachable only
through the builtin-function registry; the core itself performs no I/O
beyond print and input.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command, mapping failures to exit codes:
// 0 success, 1 compile error, 2 runtime error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if code, ok := err.(*exitError); ok {
			os.Exit(code.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCompile)
	}
}

// exitError carries a specific process exit code through cobra.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
