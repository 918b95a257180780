package compiler

// SymbolID identifies a declaration after scope resolution.
type SymbolID int32

// NoSymbol marks a node that has not been resolved yet.
const NoSymbol SymbolID = -1

// Node is implemented by every syntax tree node. The set of node types is
// closed; consumers switch over the concrete types below.
type Node interface {
	node()
	// Pos is the location of the token that starts the node.
	Pos() Loc
}

// EmptyList is a program or statement list with nothing in it.
type EmptyList struct {
	At Loc
}

// BinaryOp represents Left Op Right.
//
//	a + 1
//	^ ^ ^
//	| | Right
//	| Op
//	Left
type BinaryOp struct {
	Op    Token
	Left  Node
	Right Node
}

// VarRef is a read of a named variable.
type VarRef struct {
	Name   Token
	Symbol SymbolID
}

// IntLiteral is an integer constant.
type IntLiteral struct {
	Tok   Token
	Value int32
}

// VarDecl covers every declaration form:
//
//	a := 1;         mutable, no type
//	a : int = 1;    mutable, typed
//	N :: 10;        constant
//	N : int : 10;   constant, typed
//	a : int;        mutable, no initializer
//
// Type.Type is INVALID when no type annotation was written.
// Function parameters are VarDecls without an initializer.
type VarDecl struct {
	Name     Token
	Type     Token
	Constant bool
	Init     Node // nil when absent
	Symbol   SymbolID
}

// Block represents { statement; ... }. Stmts is nil for an empty block.
type Block struct {
	Open  Token
	Stmts *StmtList
}

// FuncDef represents (params) -> type { body }.
// Return.Type is INVALID when no return type was written.
type FuncDef struct {
	Open   Token
	Params []*VarDecl
	Return Token
	Body   *Block
}

// FuncCall represents name(args).
type FuncCall struct {
	Name   Token
	Args   []Node
	Symbol SymbolID
}

// StmtList is one cell of a block's statement chain.
type StmtList struct {
	Stmt Node
	Next *StmtList
}

// GlobalList is one cell of the top-level declaration chain.
type GlobalList struct {
	Decl Node
	Next *GlobalList
}

func (*EmptyList) node()  {}
func (*BinaryOp) node()   {}
func (*VarRef) node()     {}
func (*IntLiteral) node() {}
func (*VarDecl) node()    {}
func (*Block) node()      {}
func (*FuncDef) node()    {}
func (*FuncCall) node()   {}
func (*StmtList) node()   {}
func (*GlobalList) node() {}

func (n *EmptyList) Pos() Loc  { return n.At }
func (n *BinaryOp) Pos() Loc   { return n.Left.Pos() }
func (n *VarRef) Pos() Loc     { return n.Name.Loc }
func (n *IntLiteral) Pos() Loc { return n.Tok.Loc }
func (n *VarDecl) Pos() Loc    { return n.Name.Loc }
func (n *Block) Pos() Loc      { return n.Open.Loc }
func (n *FuncDef) Pos() Loc    { return n.Open.Loc }
func (n *FuncCall) Pos() Loc   { return n.Name.Loc }
func (n *StmtList) Pos() Loc   { return n.Stmt.Pos() }
func (n *GlobalList) Pos() Loc { return n.Decl.Pos() }

// nodeAlloc hands out tree nodes from one Arena.
type nodeAlloc struct {
	empty    *Pool[EmptyList]
	binary   *Pool[BinaryOp]
	varRef   *Pool[VarRef]
	literal  *Pool[IntLiteral]
	decl     *Pool[VarDecl]
	block    *Pool[Block]
	funcDef  *Pool[FuncDef]
	funcCall *Pool[FuncCall]
	stmts    *Pool[StmtList]
	globals  *Pool[GlobalList]
}

func newNodeAlloc(a *Arena) *nodeAlloc {
	return &nodeAlloc{
		empty:    NewPool[EmptyList](a),
		binary:   NewPool[BinaryOp](a),
		varRef:   NewPool[VarRef](a),
		literal:  NewPool[IntLiteral](a),
		decl:     NewPool[VarDecl](a),
		block:    NewPool[Block](a),
		funcDef:  NewPool[FuncDef](a),
		funcCall: NewPool[FuncCall](a),
		stmts:    NewPool[StmtList](a),
		globals:  NewPool[GlobalList](a),
	}
}
