package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/mythos-lang/go-mythos/internal/bytecode"
	"github.com/mythos-lang/go-mythos/pkg/mythos"
	"github.com/spf13/cobra"
)

var (
	outputFile  string
	disassemble bool
)

var buildCmd = &cobra.Command{
	Use:   "build [file]",
	Short: "Compile a Mythos file to bytecode",
	Long: `Compile a Mythos program and save the serialised code object as a
.mybc file. The compiled form loads and runs without reparsing, which
suits production deployments and frequently run scripts.

Examples:
  # Compile a script to bytecode
  mythos build game.mythos

  # Compile with custom output file
  mythos build game.mythos -o build/game.mybc

  # Compile and show the disassembled bytecode
  mythos build game.mythos --disassemble`,
	Args: cobra.ExactArgs(1),
	RunE: buildScript,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: <input>.mybc)")
	buildCmd.Flags().BoolVar(&disassemble, "disassemble", false, "show disassembled bytecode after compilation")
}

func buildScript(_ *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read file %s: %v\n", filename, err)
		return &exitError{code: exitCompile}
	}

	chunk, err := mythos.Compile(string(content), filename)
	if err != nil {
		printCompileError(err)
		return &exitError{code: exitCompile}
	}

	if disassemble {
		fmt.Print(bytecode.Disassemble(chunk))
	}

	data, err := bytecode.NewSerializer().SerializeChunk(chunk)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: serialization failed: %v\n", err)
		return &exitError{code: exitCompile}
	}

	out := outputFile
	if out == "" {
		out = strings.TrimSuffix(filename, ".mythos") + ".mybc"
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write %s: %v\n", out, err)
		return &exitError{code: exitCompile}
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes)\n", out, len(data))
	}
	return nil
}

var execCmd = &cobra.Command{
	Use:   "exec [file.mybc]",
	Short: "Run a compiled .mybc bytecode file",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read file %s: %v\n", args[0], err)
			return &exitError{code: exitCompile}
		}
		chunk, err := bytecode.NewSerializer().DeserializeChunk(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load bytecode: %v\n", err)
			return &exitError{code: exitCompile}
		}
		engine := mythos.New(
			mythos.WithOutput(os.Stdout),
			mythos.WithInput(os.Stdin),
		)
		if _, err := engine.Run(chunk); err != nil {
			fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
			return &exitError{code: exitRuntime}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
}
