package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/xyproto/env/v2"

	"pinapl/pkg/compiler"
	"pinapl/pkg/tac"
	"pinapl/pkg/utils"
	"pinapl/pkg/vm"
)

func main() {
	inPath := flag.String("in", "", "input source file path (or pass it as the first argument)")
	showTokens := flag.Bool("tokens", false, "print the token stream")
	showAST := flag.Bool("ast", false, "print the resolved syntax tree")
	showSymbols := flag.Bool("symbols", false, "print the symbol table")
	showIR := flag.Bool("ir", true, "print the three-address code listing")
	runProgram := flag.Bool("run", false, "interpret the generated code and print global registers")
	steps := flag.Int("steps", vm.DefaultStepLimit, "instruction limit for -run")
	verbose := flag.Bool("v", false, "trace each compilation stage")
	noColor := flag.Bool("no-color", false, "disable coloured diagnostics")
	flag.Parse()

	path := *inPath
	if path == "" && flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -in <file>")
		flag.Usage()
		os.Exit(2)
	}

	name, src, err := utils.ReadSource(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read input file %q: %v\n", path, err)
		os.Exit(1)
	}

	cfg := compiler.ConfigFromEnv()
	cfg.Filename = name
	if *verbose {
		cfg.Logger = log.New(os.Stderr, "pinapl: ", 0)
	}
	useColor := !*noColor && !env.Bool("PINAPL_NO_COLOR") && utils.IsTerminal(os.Stderr)

	if *showTokens {
		for _, tok := range compiler.Lex(src) {
			fmt.Printf("%-8s %-14s %q\n", tok.Loc, tok.Type, tok.Text(src))
		}
	}

	res, err := compiler.Compile(src, cfg)
	fmt.Fprint(os.Stderr, res.Diags.Format(useColor))

	switch res.Status {
	case compiler.StatusNotRecognized:
		fmt.Println("Language is not recognized!")
		os.Exit(1)
	case compiler.StatusCheckBad:
		fmt.Println("Language recognized!")
		fmt.Println("Check is bad")
		os.Exit(1)
	}
	fmt.Println("Language recognized!")
	fmt.Println("Check is good")

	if *showAST {
		if err := compiler.DumpTree(os.Stdout, res.Tree, src); err != nil {
			log.Fatalf("dump: %v", err)
		}
	}
	if *showSymbols {
		printSymbols(os.Stdout, res)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "compilation failed: %v\n", err)
		os.Exit(1)
	}
	if *showIR {
		if err := tac.Format(os.Stdout, res.Program); err != nil {
			log.Fatalf("listing: %v", err)
		}
	}

	if *runProgram {
		m := vm.NewMachine(res.Program)
		m.StepLimit = *steps
		if err := m.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
			os.Exit(1)
		}
		printGlobals(os.Stdout, res, m.Regs)
	}
}

func printSymbols(w io.Writer, res *compiler.Result) {
	for _, sym := range res.Symbols {
		reg := "-"
		if r, ok := res.Regs[sym.ID]; ok {
			reg = fmt.Sprintf("r%d", r)
		}
		fmt.Fprintf(w, "%4d  %-16s depth %d  %-5s %s\n", sym.ID, sym.Name, sym.Depth, reg, sym.Decl.Name.Loc)
	}
}

func printGlobals(w io.Writer, res *compiler.Result, regs map[int32]int32) {
	var globals []compiler.Symbol
	for _, sym := range res.Symbols {
		if sym.Depth == 0 && !sym.IsFunc {
			globals = append(globals, sym)
		}
	}
	sort.Slice(globals, func(i, j int) bool { return globals[i].ID < globals[j].ID })
	for _, sym := range globals {
		var v int32
		if r, ok := res.Regs[sym.ID]; ok {
			v = regs[r]
		}
		fmt.Fprintf(w, "%s = %d\n", sym.Name, v)
	}
}
