package cmd

import (
	"fmt"
	"os"

	"github.com/mythos-lang/go-mythos/internal/lexer"
	"github.com/mythos-lang/go-mythos/pkg/token"
	"github.com/spf13/cobra"
)

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Tokenize a Mythos file and dump the token stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read file %s: %v\n", args[0], err)
			return &exitError{code: exitCompile}
		}

		l := lexer.New(string(content))
		for _, tok := range l.Tokenize() {
			if tok.Type == token.NEWLINE {
				fmt.Printf("%4d:%-3d NEWLINE\n", tok.Pos.Line, tok.Pos.Column)
				continue
			}
			fmt.Printf("%4d:%-3d %-10s %q\n", tok.Pos.Line, tok.Pos.Column, tok.Type, tok.Lexeme)
		}

		if errs := l.Errors(); len(errs) > 0 {
			for _, lexErr := range errs {
				fmt.Fprintln(os.Stderr, lexErr.Error())
			}
			return &exitError{code: exitCompile}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lexCmd)
}
