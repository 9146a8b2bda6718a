package cmd

import (
	"fmt"
	"os"

	"github.com/mythos-lang/go-mythos/internal/lexer"
	"github.com/mythos-lang/go-mythos/internal/parser"
	"github.com/mythos-lang/go-mythos/pkg/mythos"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a Mythos file and dump the AST",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read file %s: %v\n", args[0], err)
			return &exitError{code: exitCompile}
		}
		return dumpProgram(string(content), args[0])
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

// dumpProgram parses and prints the program's source-form AST.
func dumpProgram(source, filename string) error {
	p := parser.New(lexer.New(source))
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		ce := &mythos.CompileErrors{Errors: p.Errors(), Source: source, File: filename}
		fmt.Fprintln(os.Stderr, ce.Format(true))
		return &exitError{code: exitCompile}
	}
	fmt.Println(program.String())
	return nil
}
