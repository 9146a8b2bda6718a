package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/mythos-lang/go-mythos/pkg/mythos"
	"github.com/spf13/cobra"
)

var (
	yellowColor = color.New(color.FgYellow)
	redColor    = color.New(color.FgRed)
	cyanColor   = color.New(color.FgCyan)
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive Mythos session",
	Long: `Start a read-evaluate-print loop. Expressions echo their result;
globals persist across lines. Exit with .exit or Ctrl+D.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runRepl(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runRepl(writer io.Writer) error {
	cyanColor.Fprintf(writer, "mythos %s (type .exit to quit)\n", Version)

	rl, err := readline.New(">>> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	engine := mythos.New(
		mythos.WithOutput(writer),
		mythos.WithInput(os.Stdin),
	)

	for {
		line, err := rl.Readline()
		if err != nil { // EOF or interrupt
			fmt.Fprintln(writer, "bye")
			return nil
		}
		if line == "" {
			continue
		}
		if line == ".exit" {
			fmt.Fprintln(writer, "bye")
			return nil
		}
		rl.SaveHistory(line)

		result, err := engine.Eval(line)
		if err != nil {
			if ce, ok := err.(*mythos.CompileErrors); ok {
				redColor.Fprintln(writer, ce.Format(false))
			} else {
				redColor.Fprintf(writer, "%v\n", err)
			}
			continue
		}
		if !result.IsNull() {
			yellowColor.Fprintf(writer, "%s\n", result.String())
		}
	}
}
