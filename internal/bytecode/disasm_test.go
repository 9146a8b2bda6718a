package bytecode

import (
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

func TestDisassembleContainsMnemonics(t *testing.T) {
	chunk := compileSource(t, "x = 1\nprint(x + 2)")
	listing := Disassemble(chunk)

	for _, want := range []string{"LOAD_CONST", "STORE_GLOBAL", "LOAD_GLOBAL", "ADD", "CALL", "HALT"} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %s:\n%s", want, listing)
		}
	}
}

func TestDisassembleNestedFunctions(t *testing.T) {
	chunk := compileSource(t, "function f(a) { return a * 2 }")
	listing := Disassemble(chunk)
	if !strings.Contains(listing, "== f ==") {
		t.Errorf("listing should include the nested function chunk:\n%s", listing)
	}
	if !strings.Contains(listing, "params: a") {
		t.Errorf("listing should name the parameters:\n%s", listing)
	}
}

// TestDisassembleSnapshots pins the listing format for representative
// programs.
func TestDisassembleSnapshots(t *testing.T) {
	programs := map[string]string{
		"arithmetic": "x = 1 + y\nprint(x)",
		"control":    "if x > 0 { print(\"pos\") } else { print(\"neg\") }",
		"loop":       "for i in range(3) { print(i) }",
		"closure":    "function mk(x) { return (y) -> x + y }",
		"exceptions": "try { boom() } catch (e) { print(e) } finally { print(\"done\") }",
		"class":      "class P { function constructor(n) { this.n = n } }",
	}

	for name, source := range programs {
		t.Run(name, func(t *testing.T) {
			chunk := compileSource(t, source)
			snaps.MatchSnapshot(t, Disassemble(chunk))
		})
	}
}
