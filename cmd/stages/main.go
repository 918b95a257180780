// Command stages runs each compiler stage by hand and prints what it
// produced: tokens, tree, symbol table and code.
package main

import (
	"fmt"
	"os"

	"pinapl/pkg/compiler"
	"pinapl/pkg/tac"
	"pinapl/pkg/utils"
)

const testSource = `x := 10;
y : int = 20;
sum :: (a: int, b: int) -> int { a + b; }
z := sum(x, y) * 2;
`

func main() {
	src := []byte(testSource)
	name := ""
	if len(os.Args) > 1 {
		var err error
		name, src, err = utils.ReadSource(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
	}
	cfg := compiler.ConfigFromEnv()
	diags := compiler.NewDiagnostics(src, name, cfg.MaxErrors)

	fmt.Printf("Source:\n%s\n", src)

	tokens := compiler.Lex(src)
	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Printf("  %s  %q\n", tok, tok.Text(src))
	}
	fmt.Println()

	tree, err := compiler.Parse(src, compiler.NewArena("tree", cfg.TreeCapacity), diags)
	if err != nil {
		fmt.Fprint(os.Stderr, diags.Report())
		os.Exit(1)
	}

	resolver := compiler.NewResolver(src, compiler.NewArena("scope", cfg.ScopeCapacity), diags)
	if !resolver.Resolve(tree, compiler.NewScope(nil)) {
		fmt.Fprint(os.Stderr, diags.Report())
		os.Exit(1)
	}

	fmt.Println("AST")
	if err := compiler.DumpTree(os.Stdout, tree, src); err != nil {
		fmt.Fprintln(os.Stderr, "dump error:", err)
		os.Exit(1)
	}
	fmt.Println()
	fmt.Print(resolver)
	fmt.Println()

	code := tac.NewBuffer(cfg.InstrCapacity, cfg.LabelCapacity)
	if err := compiler.Lower(src, tree, resolver.SymbolCount(), code, diags); err != nil {
		fmt.Fprint(os.Stderr, diags.Report())
		os.Exit(1)
	}
	fmt.Println("Code")
	fmt.Print(code.Program())
}
