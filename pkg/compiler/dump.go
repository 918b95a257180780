package compiler

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DumpTree writes a readable rendering of the tree rooted at n. Resolved
// names carry their symbol id in parentheses.
func DumpTree(w io.Writer, n Node, src []byte) error {
	bw := bufio.NewWriter(w)
	d := dumper{w: bw, src: src}
	d.node(n, 0)
	return bw.Flush()
}

type dumper struct {
	w   *bufio.Writer
	src []byte
}

func (d *dumper) text(t Token) string { return string(t.Text(d.src)) }

func (d *dumper) indent(depth int) {
	d.w.WriteString(strings.Repeat("  ", depth))
}

func (d *dumper) node(n Node, depth int) {
	switch n := n.(type) {
	case nil, *EmptyList:

	case *BinaryOp:
		d.w.WriteString("(")
		d.node(n.Left, depth)
		fmt.Fprintf(d.w, " %s ", d.text(n.Op))
		d.node(n.Right, depth)
		d.w.WriteString(")")

	case *VarRef:
		fmt.Fprintf(d.w, "%s(%d)", d.text(n.Name), n.Symbol)

	case *IntLiteral:
		fmt.Fprintf(d.w, "%d", n.Value)

	case *VarDecl:
		fmt.Fprintf(d.w, "VAR(%d) {%s:", n.Symbol, d.text(n.Name))
		if n.Type.Type != INVALID {
			d.w.WriteString(d.text(n.Type))
		}
		if n.Init != nil {
			if n.Constant {
				d.w.WriteString(":")
			} else {
				d.w.WriteString("=")
			}
			d.node(n.Init, depth)
		}
		d.w.WriteString("}")

	case *Block:
		d.w.WriteString("{\n")
		if n.Stmts != nil {
			d.node(n.Stmts, depth+1)
		}
		d.indent(depth)
		d.w.WriteString("}")

	case *FuncDef:
		d.w.WriteString("(")
		for i, p := range n.Params {
			if i > 0 {
				d.w.WriteString(", ")
			}
			d.node(p, depth)
		}
		d.w.WriteString(")")
		if n.Return.Type != INVALID {
			fmt.Fprintf(d.w, " -> %s", d.text(n.Return))
		}
		d.w.WriteString(" ")
		if n.Body != nil {
			d.node(n.Body, depth)
		}

	case *FuncCall:
		fmt.Fprintf(d.w, "%s(%d)(", d.text(n.Name), n.Symbol)
		for i, arg := range n.Args {
			if i > 0 {
				d.w.WriteString(", ")
			}
			d.node(arg, depth)
		}
		d.w.WriteString(")")

	case *StmtList:
		for c := n; c != nil; c = c.Next {
			d.indent(depth)
			d.node(c.Stmt, depth)
			if _, isBlock := c.Stmt.(*Block); !isBlock {
				d.w.WriteString(";")
			}
			d.w.WriteString("\n")
		}

	case *GlobalList:
		for c := n; c != nil; c = c.Next {
			d.node(c.Decl, depth)
			d.w.WriteString("\n")
		}
	}
}
