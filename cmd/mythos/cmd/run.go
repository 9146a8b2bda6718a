package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mythos-lang/go-mythos/internal/bytecode"
	"github.com/mythos-lang/go-mythos/pkg/mythos"
	"github.com/spf13/cobra"
)

var (
	evalExpr string
	dumpAST  bool
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a Mythos file or expression",
	Long: `Execute a Mythos program from a file or inline expression.

Examples:
  # Run a script file
  mythos run game.mythos

  # Evaluate an inline expression
  mythos run -e "print(6 * 7)"

  # Run with AST dump (for debugging)
  mythos run --dump-ast game.mythos`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "evaluate inline code instead of reading from file")
	runCmd.Flags().BoolVar(&dumpAST, "dump-ast", false, "dump the parsed AST (for debugging)")
}

func runScript(_ *cobra.Command, args []string) error {
	source, filename, err := readInput(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return &exitError{code: exitCompile}
	}

	if dumpAST {
		if err := dumpProgram(source, filename); err != nil {
			return err
		}
	}

	chunk, err := mythos.Compile(source, filename)
	if err != nil {
		printCompileError(err)
		return &exitError{code: exitCompile}
	}

	engine := mythos.New(
		mythos.WithOutput(os.Stdout),
		mythos.WithInput(os.Stdin),
	)
	if _, err := engine.Run(chunk); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Runtime error: %v\n", err)
		return &exitError{code: exitRuntime}
	}
	return nil
}

// readInput resolves the script source from -e or a file argument.
func readInput(args []string) (source, filename string, err error) {
	if evalExpr != "" {
		return evalExpr, "<eval>", nil
	}
	if len(args) != 1 {
		return "", "", fmt.Errorf("either provide a file path or use -e flag for inline code")
	}
	content, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	return string(content), args[0], nil
}

// printCompileError renders lex/parse errors with carets and emission
// errors plainly.
func printCompileError(err error) {
	if ce, ok := err.(*mythos.CompileErrors); ok {
		fmt.Fprintln(os.Stderr, ce.Format(true))
		return
	}
	if ce, ok := err.(*bytecode.CompileError); ok {
		fmt.Fprintln(os.Stderr, ce.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
