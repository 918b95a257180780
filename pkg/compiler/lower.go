package compiler

import (
	"errors"
	"fmt"
	"math"

	"pinapl/pkg/tac"
)

// Lowerer is the flatten stage: it walks a resolved tree and emits
// three-address code into a fixed-capacity buffer.
//
// Virtual registers share the symbol id namespace: numbering starts at the
// resolver's symbol count and never repeats within one pass.
type Lowerer struct {
	src   []byte
	code  *tac.Buffer
	diags *Diagnostics

	next    int32
	symRegs map[SymbolID]int32 // register currently holding each symbol
	owned   map[int32]bool     // registers bound to some symbol
	funcs   map[SymbolID]funcInfo
}

type funcInfo struct {
	entry  int32
	params int
}

// NewLowerer returns a lowerer whose first register is symbolCount.
func NewLowerer(src []byte, code *tac.Buffer, symbolCount int32, diags *Diagnostics) *Lowerer {
	return &Lowerer{
		src:     src,
		code:    code,
		diags:   diags,
		next:    symbolCount,
		symRegs: make(map[SymbolID]int32),
		owned:   make(map[int32]bool),
		funcs:   make(map[SymbolID]funcInfo),
	}
}

// Lower flattens root into code. root must have been resolved without
// errors. Any failure, including a full buffer, aborts lowering.
func Lower(src []byte, root Node, symbolCount int32, code *tac.Buffer, diags *Diagnostics) error {
	return NewLowerer(src, code, symbolCount, diags).Lower(root)
}

// Lower flattens root.
func (l *Lowerer) Lower(root Node) error {
	switch n := root.(type) {
	case *EmptyList:
		return nil
	case *GlobalList:
		for c := n; c != nil; c = c.Next {
			if _, err := l.lowerStmt(c.Decl); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := l.lowerStmt(root)
	return err
}

// Registers reports how many register ids have been handed out so far,
// including the range reserved for symbol ids.
func (l *Lowerer) Registers() int32 { return l.next }

// SymbolRegister returns the register bound to sym, if any.
func (l *Lowerer) SymbolRegister(sym SymbolID) (int32, bool) {
	r, ok := l.symRegs[sym]
	return r, ok
}

// fail records err at pos. Capacity errors are reported as such.
func (l *Lowerer) fail(pos Loc, err error) error {
	kind := LoweringError
	var ce *tac.CapacityError
	if errors.As(err, &ce) {
		kind = CapacityExceeded
	}
	d := &Diagnostic{Kind: kind, Severity: SeverityError, Loc: pos, Message: err.Error(), Err: err}
	l.diags.Add(d)
	return d
}

func (l *Lowerer) newReg(pos Loc) (int32, error) {
	if l.next == math.MaxInt32 {
		return tac.NoReg, l.fail(pos, errors.New("virtual register space exhausted"))
	}
	r := l.next
	l.next++
	return r, nil
}

func (l *Lowerer) emit(pos Loc, in tac.Instr) error {
	if err := l.code.Emit(in); err != nil {
		return l.fail(pos, err)
	}
	return nil
}

// symReg returns the register for sym, allocating one on first use.
func (l *Lowerer) symReg(pos Loc, sym SymbolID) (int32, error) {
	if r, ok := l.symRegs[sym]; ok {
		return r, nil
	}
	r, err := l.newReg(pos)
	if err != nil {
		return tac.NoReg, err
	}
	l.bind(sym, r)
	return r, nil
}

func (l *Lowerer) bind(sym SymbolID, r int32) {
	l.symRegs[sym] = r
	l.owned[r] = true
}

// lowerStmt lowers one statement and returns the register holding its
// value, or tac.NoReg if it has none.
func (l *Lowerer) lowerStmt(n Node) (int32, error) {
	switch n := n.(type) {
	case *VarDecl:
		return tac.NoReg, l.lowerDecl(n)
	case *Block:
		if n.Stmts == nil {
			return tac.NoReg, nil
		}
		_, err := l.lowerList(n.Stmts)
		return tac.NoReg, err
	case *StmtList:
		return l.lowerList(n)
	}
	return l.lowerExpr(n)
}

// lowerList lowers a statement chain. Only the final statement's value
// survives; earlier expression results are discarded.
func (l *Lowerer) lowerList(list *StmtList) (int32, error) {
	last := tac.NoReg
	for c := list; c != nil; c = c.Next {
		r, err := l.lowerStmt(c.Stmt)
		if err != nil {
			return tac.NoReg, err
		}
		last = r
	}
	return last, nil
}

func (l *Lowerer) lowerDecl(d *VarDecl) error {
	if fn, ok := d.Init.(*FuncDef); ok {
		return l.lowerFunc(d, fn)
	}
	if d.Init == nil {
		// Bound lazily on first reference.
		return nil
	}

	r, err := l.lowerExpr(d.Init)
	if err != nil {
		return err
	}
	if l.owned[r] {
		// The value lives in another symbol's register; give this
		// symbol its own copy.
		dst, err := l.newReg(d.Pos())
		if err != nil {
			return err
		}
		if err := l.emit(d.Pos(), tac.Instr{Op: tac.OpMOVREG, Dst: dst, Lhs: r, Rhs: tac.NoReg}); err != nil {
			return err
		}
		r = dst
	}
	l.bind(d.Symbol, r)
	return nil
}

// lowerFunc emits a function body in place, guarded by a jump over it:
//
//	jmp Lend
//	Lentry:
//	arg rP, #i      for each parameter
//	...body...
//	ret [rLast]
//	Lend:
func (l *Lowerer) lowerFunc(d *VarDecl, fn *FuncDef) error {
	pos := d.Pos()
	entry, err := l.code.NewLabel()
	if err != nil {
		return l.fail(pos, err)
	}
	end, err := l.code.NewLabel()
	if err != nil {
		return l.fail(pos, err)
	}
	l.funcs[d.Symbol] = funcInfo{entry: entry, params: len(fn.Params)}

	if err := l.emit(pos, tac.Instr{Op: tac.OpJMP, Dst: tac.NoReg, Lhs: end, Rhs: tac.NoReg}); err != nil {
		return err
	}
	if err := l.code.Bind(entry); err != nil {
		return l.fail(pos, err)
	}

	for i, param := range fn.Params {
		r, err := l.newReg(param.Pos())
		if err != nil {
			return err
		}
		l.bind(param.Symbol, r)
		if err := l.emit(param.Pos(), tac.Instr{Op: tac.OpARG, Dst: r, Lhs: int32(i), Rhs: tac.NoReg}); err != nil {
			return err
		}
	}

	last := tac.NoReg
	if fn.Body != nil && fn.Body.Stmts != nil {
		if last, err = l.lowerList(fn.Body.Stmts); err != nil {
			return err
		}
	}
	if err := l.emit(pos, tac.Instr{Op: tac.OpRET, Dst: tac.NoReg, Lhs: last, Rhs: tac.NoReg}); err != nil {
		return err
	}
	if err := l.code.Bind(end); err != nil {
		return l.fail(pos, err)
	}
	return nil
}

// need estimates how many registers evaluating n occupies at once.
func need(n Node) int {
	switch n := n.(type) {
	case *BinaryOp:
		lhs, rhs := need(n.Left), need(n.Right)
		if lhs == rhs {
			return lhs + 1
		}
		return max(lhs, rhs)
	case *FuncCall:
		most := 0
		for _, arg := range n.Args {
			most = max(most, need(arg))
		}
		return most + 1
	}
	return 1
}

var arithOps = map[TokenType]tac.Opcode{
	PLUS:  tac.OpADD,
	MINUS: tac.OpSUB,
	STAR:  tac.OpMUL,
	SLASH: tac.OpDIV,
}

func (l *Lowerer) lowerExpr(n Node) (int32, error) {
	switch n := n.(type) {
	case *IntLiteral:
		r, err := l.newReg(n.Pos())
		if err != nil {
			return tac.NoReg, err
		}
		return r, l.emit(n.Pos(), tac.Instr{Op: tac.OpMOVINT, Dst: r, Lhs: n.Value, Rhs: tac.NoReg})

	case *VarRef:
		return l.symReg(n.Pos(), n.Symbol)

	case *BinaryOp:
		op, ok := arithOps[n.Op.Type]
		if !ok {
			return tac.NoReg, l.fail(n.Op.Loc, fmt.Errorf("no instruction for operator %s", describe(n.Op.Type)))
		}
		// The operand needing more registers goes first; ties keep
		// source order.
		var lhs, rhs int32
		var err error
		if need(n.Right) > need(n.Left) {
			if rhs, err = l.lowerExpr(n.Right); err != nil {
				return tac.NoReg, err
			}
			if lhs, err = l.lowerExpr(n.Left); err != nil {
				return tac.NoReg, err
			}
		} else {
			if lhs, err = l.lowerExpr(n.Left); err != nil {
				return tac.NoReg, err
			}
			if rhs, err = l.lowerExpr(n.Right); err != nil {
				return tac.NoReg, err
			}
		}
		dst, err := l.newReg(n.Op.Loc)
		if err != nil {
			return tac.NoReg, err
		}
		return dst, l.emit(n.Op.Loc, tac.Instr{Op: op, Dst: dst, Lhs: lhs, Rhs: rhs})

	case *FuncCall:
		return l.lowerCall(n)

	case *Block, *VarDecl, *StmtList:
		return l.lowerStmt(n)
	}
	return tac.NoReg, l.fail(n.Pos(), fmt.Errorf("cannot lower %T as an expression", n))
}

func (l *Lowerer) lowerCall(c *FuncCall) (int32, error) {
	name := string(c.Name.Text(l.src))
	fn, ok := l.funcs[c.Symbol]
	if !ok {
		return tac.NoReg, l.fail(c.Pos(), fmt.Errorf("%q is not a function", name))
	}
	if len(c.Args) != fn.params {
		return tac.NoReg, l.fail(c.Pos(), fmt.Errorf("%q takes %d argument(s), got %d", name, fn.params, len(c.Args)))
	}

	regs := make([]int32, 0, len(c.Args))
	for _, arg := range c.Args {
		r, err := l.lowerExpr(arg)
		if err != nil {
			return tac.NoReg, err
		}
		regs = append(regs, r)
	}
	for _, r := range regs {
		if err := l.emit(c.Pos(), tac.Instr{Op: tac.OpPARAM, Dst: tac.NoReg, Lhs: r, Rhs: tac.NoReg}); err != nil {
			return tac.NoReg, err
		}
	}

	dst, err := l.newReg(c.Pos())
	if err != nil {
		return tac.NoReg, err
	}
	argc := int32(len(c.Args))
	return dst, l.emit(c.Pos(), tac.Instr{Op: tac.OpCALL, Dst: dst, Lhs: fn.entry, Rhs: argc})
}
