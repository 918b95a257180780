package compiler

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// Scope maps names to symbol ids and links to its enclosing scope.
type Scope struct {
	parent *Scope
	names  map[string]SymbolID
	depth  int
}

// NewScope returns an empty scope nested in parent (nil for the root).
func NewScope(parent *Scope) *Scope {
	s := &Scope{}
	s.init(parent)
	return s
}

func (s *Scope) init(parent *Scope) {
	s.parent = parent
	s.names = make(map[string]SymbolID)
	if parent != nil {
		s.depth = parent.depth + 1
	}
}

// Lookup searches this scope and then each enclosing scope.
func (s *Scope) Lookup(name string) (SymbolID, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if id, ok := sc.names[name]; ok {
			return id, true
		}
	}
	return NoSymbol, false
}

// Define binds name in this scope. It reports false, and leaves the
// existing binding alone, if name is already bound here.
func (s *Scope) Define(name string, id SymbolID) bool {
	if _, ok := s.names[name]; ok {
		return false
	}
	s.names[name] = id
	return true
}

// Parent returns the enclosing scope.
func (s *Scope) Parent() *Scope { return s.parent }

// Depth is 0 for the root scope.
func (s *Scope) Depth() int { return s.depth }

// Symbol describes one declaration bound during resolution.
type Symbol struct {
	ID     SymbolID
	Name   string
	Decl   *VarDecl
	Depth  int  // depth of the declaring scope
	IsFunc bool // initialised with a function definition
	IsArg  bool // function parameter
}

// Resolver is the rename stage: it binds every identifier use to a
// declaration and numbers declarations with fresh symbol ids.
type Resolver struct {
	src     []byte
	scopes  *Pool[Scope]
	diags   *Diagnostics
	current *Scope
	symbols []Symbol
	ok      bool
	fatal   error
}

// NewResolver returns a resolver allocating scopes from arena.
func NewResolver(src []byte, arena *Arena, diags *Diagnostics) *Resolver {
	return &Resolver{
		src:    src,
		scopes: NewPool[Scope](arena),
		diags:  diags,
	}
}

// Resolve walks root with global as the outermost scope. It keeps going
// after an unresolved or duplicate name so every problem gets reported,
// and returns false if any was found. A capacity failure stops the walk.
func (r *Resolver) Resolve(root Node, global *Scope) bool {
	r.current = global
	r.ok = true
	r.walk(root)
	return r.ok && r.fatal == nil
}

// Err returns the capacity error that aborted resolution, if any.
func (r *Resolver) Err() error { return r.fatal }

// SymbolCount is the next unassigned symbol id.
func (r *Resolver) SymbolCount() int32 {
	n, err := safecast.Conv[int32](len(r.symbols))
	if err != nil {
		return -1
	}
	return n
}

// Symbols returns every bound symbol indexed by id.
func (r *Resolver) Symbols() []Symbol { return r.symbols }

func (r *Resolver) walk(n Node) {
	if r.fatal != nil {
		return
	}
	switch n := n.(type) {
	case nil, *EmptyList, *IntLiteral:

	case *GlobalList:
		for c := n; c != nil; c = c.Next {
			r.walk(c.Decl)
		}

	case *StmtList:
		for c := n; c != nil; c = c.Next {
			r.walk(c.Stmt)
		}

	case *Block:
		if !r.push() {
			return
		}
		if n.Stmts != nil {
			r.walk(n.Stmts)
		}
		r.pop()

	case *FuncDef:
		// Parameters and the body's top-level statements share one scope.
		if !r.push() {
			return
		}
		for _, param := range n.Params {
			r.declare(param, false, true)
		}
		if n.Body != nil && n.Body.Stmts != nil {
			r.walk(n.Body.Stmts)
		}
		r.pop()

	case *VarDecl:
		// A function may refer to itself; any other initializer sees the
		// binding that was visible before the declaration.
		if _, isFunc := n.Init.(*FuncDef); isFunc {
			r.declare(n, true, false)
			r.walk(n.Init)
			return
		}
		r.walk(n.Init)
		r.declare(n, false, false)

	case *VarRef:
		n.Symbol = r.lookup(n.Name)

	case *FuncCall:
		n.Symbol = r.lookup(n.Name)
		for _, arg := range n.Args {
			r.walk(arg)
		}

	case *BinaryOp:
		r.walk(n.Left)
		r.walk(n.Right)

	default:
		panic(fmt.Sprintf("resolver: unhandled node %T", n))
	}
}

func (r *Resolver) push() bool {
	s, err := r.scopes.New()
	if err != nil {
		r.fatal = err
		r.diags.Add(&Diagnostic{Kind: CapacityExceeded, Severity: SeverityError, Message: err.Error()})
		return false
	}
	s.init(r.current)
	r.current = s
	return true
}

// pop detaches the current scope from the active chain. Its storage stays
// in the arena.
func (r *Resolver) pop() {
	r.current = r.current.parent
}

func (r *Resolver) declare(d *VarDecl, isFunc, isArg bool) {
	id, err := safecast.Conv[int32](len(r.symbols))
	if err != nil {
		r.fatal = err
		r.diags.Errorf(CapacityExceeded, d.Name, "too many symbols: %v", err)
		return
	}
	d.Symbol = SymbolID(id)

	name := string(d.Name.Text(r.src))
	r.symbols = append(r.symbols, Symbol{
		ID:     d.Symbol,
		Name:   name,
		Decl:   d,
		Depth:  r.current.depth,
		IsFunc: isFunc,
		IsArg:  isArg,
	})

	if !r.current.Define(name, d.Symbol) {
		prev, _ := r.current.Lookup(name)
		diag := r.diags.Errorf(RedeclarationError, d.Name, "%q is already declared in this scope", name)
		if prev >= 0 && int(prev) < len(r.symbols) {
			diag.Message += fmt.Sprintf(" (first declared at %s)", r.symbols[prev].Decl.Name.Loc)
		}
		r.ok = false
	}
}

func (r *Resolver) lookup(name Token) SymbolID {
	text := string(name.Text(r.src))
	id, ok := r.current.Lookup(text)
	if !ok {
		r.diags.Errorf(UnresolvedIdentifier, name, "undeclared identifier %q", text)
		r.ok = false
	}
	return id
}

// String returns the symbol table ordered by id.
func (r *Resolver) String() string {
	var sb strings.Builder
	if len(r.symbols) == 0 {
		sb.WriteString("Symbols: (empty)\n")
		return sb.String()
	}
	sb.WriteString("Symbols:\n")
	for _, sym := range r.symbols {
		kind := "var"
		switch {
		case sym.IsFunc:
			kind = "func"
		case sym.IsArg:
			kind = "arg"
		case sym.Decl.Constant:
			kind = "const"
		}
		fmt.Fprintf(&sb, "  %-4d %-20s %-5s depth %d  %s\n", sym.ID, sym.Name, kind, sym.Depth, sym.Decl.Name.Loc)
	}
	return sb.String()
}
