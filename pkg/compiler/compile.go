package compiler

import (
	"fmt"

	"pinapl/pkg/tac"
)

// Status is the outcome of a compilation as the driver reports it.
type Status int

const (
	StatusNotRecognized Status = iota // parse failed
	StatusCheckBad                    // resolution failed
	StatusCheckGood                   // all stages succeeded
)

func (s Status) String() string {
	switch s {
	case StatusNotRecognized:
		return "language not recognized"
	case StatusCheckBad:
		return "check is bad"
	case StatusCheckGood:
		return "language recognized, check good"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result holds everything one compilation produced.
type Result struct {
	Status  Status
	Tree    Node
	Symbols []Symbol
	Program *tac.Program // nil unless every stage succeeded
	Diags   *Diagnostics

	// Regs maps each symbol that received a register during lowering
	// to that register.
	Regs map[SymbolID]int32
}

// Compile runs lexing, parsing, scope resolution and lowering over src.
//
// A parse or resolution failure is not an error: it is reported through
// Status and Diags. The returned error is non-nil only when lowering
// fails, in which case no partial program is returned.
func Compile(src []byte, cfg Config) (*Result, error) {
	diags := NewDiagnostics(src, cfg.Filename, cfg.MaxErrors)
	res := &Result{Status: StatusNotRecognized, Diags: diags}

	treeArena := NewArena("tree", cfg.TreeCapacity)
	tree, err := Parse(src, treeArena, diags)
	if err != nil {
		cfg.logf("parse: %v", err)
		return res, nil
	}
	res.Tree = tree
	cfg.logf("parse: %d node(s)", treeArena.Used())

	scopeArena := NewArena("scope", cfg.ScopeCapacity)
	resolver := NewResolver(src, scopeArena, diags)
	good := resolver.Resolve(tree, NewScope(nil))
	res.Symbols = resolver.Symbols()
	if !good {
		res.Status = StatusCheckBad
		cfg.logf("resolve: failed with %d error(s)", len(diags.Errors()))
		return res, nil
	}
	cfg.logf("resolve: %d symbol(s), %d scope(s)", len(res.Symbols), scopeArena.Used())

	res.Status = StatusCheckGood
	code := tac.NewBuffer(cfg.InstrCapacity, cfg.LabelCapacity)
	lowerer := NewLowerer(src, code, resolver.SymbolCount(), diags)
	if err := lowerer.Lower(tree); err != nil {
		cfg.logf("lower: %v", err)
		return res, fmt.Errorf("lowering: %w", err)
	}
	cfg.logf("lower: %d instruction(s), %d label(s)", code.Len(), code.LabelCount())

	res.Program = code.Program()
	res.Regs = lowerer.symRegs
	return res, nil
}
