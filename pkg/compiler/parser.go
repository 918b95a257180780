package compiler

import (
	"errors"
	"fmt"
)

// Parser consumes the Lexer's token stream and builds a syntax tree whose
// nodes come from an Arena.
//
// Grammar:
//
//	program    = globalDecl* EOF
//	globalDecl = IDENTIFIER decl
//	decl       = ( "::" init
//	             | ":" [IDENTIFIER] ( "=" init | ":" init | ε ) )
//	init       = funcDef | expression
//	funcDef    = "(" [param ("," param)*] ")" ["->" IDENTIFIER] block
//	param      = IDENTIFIER ":" IDENTIFIER
//	block      = "{" statement* "}"
//	statement  = block | IDENTIFIER decl | expression        (non-blocks end in ";")
//	expression = primary (binop primary)*                    (precedence climbing)
//	primary    = INTEGER | IDENTIFIER | call | "(" expression ")"
//	call       = IDENTIFIER "(" [expression ("," expression)*] ")"
//
// The ";" after a declaration whose initializer is a function definition
// is optional.
type Parser struct {
	lex   *Lexer
	src   []byte
	nodes *nodeAlloc
	diags *Diagnostics
}

// NewParser returns a parser over src. Nodes are charged against arena and
// errors are recorded in diags.
func NewParser(src []byte, arena *Arena, diags *Diagnostics) *Parser {
	return &Parser{
		lex:   NewLexer(src),
		src:   src,
		nodes: newNodeAlloc(arena),
		diags: diags,
	}
}

// Parse parses a whole program. It stops at the first error, which is both
// recorded in diags and returned.
func Parse(src []byte, arena *Arena, diags *Diagnostics) (Node, error) {
	return NewParser(src, arena, diags).ParseProgram()
}

const eofDesc = "end of file"

// IsIncomplete reports whether err is a syntax error caused by running out
// of input, i.e. more text could still make the program valid.
func IsIncomplete(err error) bool {
	var d *Diagnostic
	return errors.As(err, &d) && d.Kind == SyntaxError && d.Found == eofDesc
}

func (p *Parser) peek() Token    { return p.lex.Peek() }
func (p *Parser) advance() Token { return p.lex.Advance() }

// describe names a token kind the way error messages show it.
func describe(tt TokenType) string {
	switch tt {
	case IDENTIFIER:
		return "identifier"
	case INTEGER:
		return "integer literal"
	case DOUBLE_COLON:
		return "'::'"
	case ARROW:
		return "'->'"
	case KW_RETURN:
		return "keyword 'return'"
	case EOF:
		return eofDesc
	case INVALID:
		return "NUL byte"
	}
	if tt > 0 && tt < 256 {
		return fmt.Sprintf("'%c'", rune(tt))
	}
	return tt.String()
}

// describeToken is describe plus the token text for identifiers and literals.
func (p *Parser) describeToken(tok Token) string {
	switch tok.Type {
	case IDENTIFIER, INTEGER:
		return fmt.Sprintf("%s %q", describe(tok.Type), tok.Text(p.src))
	}
	return describe(tok.Type)
}

// fail records a syntax error at tok and returns it.
func (p *Parser) fail(tok Token, expected string, format string, args ...any) error {
	if tok.Type < 256 && !tok.Type.IsKnownPunct() {
		p.diags.Warnf(LexicalAmbiguity, tok, "unrecognised character %s", describe(tok.Type))
	}
	d := p.diags.Errorf(SyntaxError, tok, format, args...)
	d.Expected = expected
	d.Found = p.describeToken(tok)
	return d
}

// expect consumes the current token if it matches tt, otherwise fails.
func (p *Parser) expect(tt TokenType, context string) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.fail(tok, describe(tt), "expected %s %s, found %s", describe(tt), context, p.describeToken(tok))
	}
	return p.advance(), nil
}

// alloc takes a zeroed node from pool, recording CapacityExceeded on failure.
func alloc[T any](p *Parser, pool *Pool[T]) (*T, error) {
	n, err := pool.New()
	if err != nil {
		d := p.diags.Errorf(CapacityExceeded, p.peek(), "%v", err)
		d.Err = err
		return nil, d
	}
	return n, nil
}

// ParseProgram parses declarations until end of file.
func (p *Parser) ParseProgram() (Node, error) {
	var head *GlobalList
	tail := &head
	for p.peek().Type != EOF {
		decl, err := p.parseGlobalDecl()
		if err != nil {
			return nil, err
		}
		cell, err := alloc(p, p.nodes.globals)
		if err != nil {
			return nil, err
		}
		cell.Decl = decl
		*tail = cell
		tail = &cell.Next
	}
	if head == nil {
		empty, err := alloc(p, p.nodes.empty)
		if err != nil {
			return nil, err
		}
		empty.At = p.peek().Loc
		return empty, nil
	}
	return head, nil
}

func (p *Parser) parseGlobalDecl() (Node, error) {
	name, err := p.expect(IDENTIFIER, "at start of declaration")
	if err != nil {
		return nil, err
	}
	decl, err := p.parseDecl(name)
	if err != nil {
		return nil, err
	}
	if err := p.terminator(decl, "after declaration"); err != nil {
		return nil, err
	}
	return decl, nil
}

// terminator consumes the ";" after stmt. It is required unless stmt is a
// block or a function declaration, where it is optional.
func (p *Parser) terminator(stmt Node, context string) error {
	if !needsTerminator(stmt) {
		if _, isBlock := stmt.(*Block); !isBlock && p.peek().Type == SEMICOLON {
			p.advance()
		}
		return nil
	}
	_, err := p.expect(SEMICOLON, context)
	return err
}

// needsTerminator reports whether a ";" must follow the statement.
// Function declarations may still take one.
func needsTerminator(n Node) bool {
	switch n := n.(type) {
	case *Block:
		return false
	case *VarDecl:
		_, isFunc := n.Init.(*FuncDef)
		return !isFunc
	}
	return true
}

// parseDecl parses the rest of a declaration after its name.
func (p *Parser) parseDecl(name Token) (*VarDecl, error) {
	decl, err := alloc(p, p.nodes.decl)
	if err != nil {
		return nil, err
	}
	decl.Name = name
	decl.Symbol = NoSymbol

	sep := p.peek()
	switch sep.Type {
	case DOUBLE_COLON:
		p.advance()
		decl.Constant = true
	case COLON:
		p.advance()
		if p.peek().Type == IDENTIFIER {
			decl.Type = p.advance()
		}
		switch p.peek().Type {
		case ASSIGN:
			p.advance()
		case COLON:
			p.advance()
			decl.Constant = true
		default:
			if decl.Type.Type == INVALID {
				tok := p.peek()
				return nil, p.fail(tok, "type name, '=' or ':'", "declaration of %q needs a type or an initializer, found %s",
					name.Text(p.src), p.describeToken(tok))
			}
			return decl, nil
		}
	default:
		return nil, p.fail(sep, "':' or '::'", "expected ':' or '::' after %q, found %s", name.Text(p.src), p.describeToken(sep))
	}

	decl.Init, err = p.parseInit()
	if err != nil {
		return nil, err
	}
	return decl, nil
}

// parseInit parses a declaration initializer: a function definition or an
// expression. Both may start with "(", so the choice is made once the token
// after an identifier inside the parentheses is visible.
func (p *Parser) parseInit() (Node, error) {
	if p.peek().Type != LPAREN {
		return p.parseExpression(0)
	}
	open := p.advance()

	switch p.peek().Type {
	case RPAREN:
		return p.parseFuncDef(open, nil)
	case IDENTIFIER:
		ident := p.advance()
		if t := p.peek().Type; t == COLON {
			return p.parseFuncDef(open, &ident)
		}
		prim, err := p.identPrimary(ident)
		if err != nil {
			return nil, err
		}
		inner, err := p.climb(prim, 0)
		if err != nil {
			return nil, err
		}
		return p.closeParen(inner)
	}

	inner, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	return p.closeParen(inner)
}

// closeParen finishes a parenthesised expression whose "(" was already
// consumed and keeps climbing with it as the left operand.
func (p *Parser) closeParen(inner Node) (Node, error) {
	if _, err := p.expect(RPAREN, "to close parenthesised expression"); err != nil {
		return nil, err
	}
	return p.climb(inner, 0)
}

// parseFuncDef parses a function definition after its "(". first is the
// already consumed name of the first parameter, if any.
func (p *Parser) parseFuncDef(open Token, first *Token) (Node, error) {
	fn, err := alloc(p, p.nodes.funcDef)
	if err != nil {
		return nil, err
	}
	fn.Open = open

	if first != nil {
		name := *first
		for {
			param, err := p.parseParam(name)
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, param)
			if p.peek().Type != COMMA {
				break
			}
			p.advance()
			if name, err = p.expect(IDENTIFIER, "as parameter name"); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(RPAREN, "to close parameter list"); err != nil {
		return nil, err
	}

	if p.peek().Type == ARROW {
		p.advance()
		if fn.Return, err = p.expect(IDENTIFIER, "as return type"); err != nil {
			return nil, err
		}
	}

	if fn.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return fn, nil
}

func (p *Parser) parseParam(name Token) (*VarDecl, error) {
	if _, err := p.expect(COLON, "after parameter name"); err != nil {
		return nil, err
	}
	typ, err := p.expect(IDENTIFIER, "as parameter type")
	if err != nil {
		return nil, err
	}
	param, err := alloc(p, p.nodes.decl)
	if err != nil {
		return nil, err
	}
	param.Name = name
	param.Type = typ
	param.Symbol = NoSymbol
	return param, nil
}

func (p *Parser) parseBlock() (*Block, error) {
	open, err := p.expect(LBRACE, "to open block")
	if err != nil {
		return nil, err
	}
	block, err := alloc(p, p.nodes.block)
	if err != nil {
		return nil, err
	}
	block.Open = open

	tail := &block.Stmts
	for t := p.peek().Type; t != RBRACE && t != EOF; t = p.peek().Type {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if err := p.terminator(stmt, "after statement"); err != nil {
			return nil, err
		}
		cell, err := alloc(p, p.nodes.stmts)
		if err != nil {
			return nil, err
		}
		cell.Stmt = stmt
		*tail = cell
		tail = &cell.Next
	}

	if _, err := p.expect(RBRACE, "to close block"); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) parseStatement() (Node, error) {
	switch p.peek().Type {
	case LBRACE:
		return p.parseBlock()
	case IDENTIFIER:
		name := p.advance()
		if t := p.peek().Type; t == COLON || t == DOUBLE_COLON {
			return p.parseDecl(name)
		}
		prim, err := p.identPrimary(name)
		if err != nil {
			return nil, err
		}
		return p.climb(prim, 0)
	}
	return p.parseExpression(0)
}

// precedence returns the binding power of a binary operator, 0 if tt is
// not one.
func precedence(tt TokenType) int {
	switch tt {
	case STAR, SLASH:
		return 2
	case PLUS, MINUS:
		return 1
	}
	return 0
}

// parseExpression parses a primary and then every binary operator that
// binds tighter than minPrec.
func (p *Parser) parseExpression(minPrec int) (Node, error) {
	lhs, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.climb(lhs, minPrec)
}

// climb extends lhs with operators whose precedence is strictly greater
// than minPrec. The right operand only absorbs strictly tighter operators,
// which makes every level left-associative.
func (p *Parser) climb(lhs Node, minPrec int) (Node, error) {
	for {
		op := p.peek()
		prec := precedence(op.Type)
		if prec == 0 || prec <= minPrec {
			return lhs, nil
		}
		p.advance()

		rhs, err := p.parseExpression(prec)
		if err != nil {
			return nil, err
		}
		bin, err := alloc(p, p.nodes.binary)
		if err != nil {
			return nil, err
		}
		bin.Op = op
		bin.Left = lhs
		bin.Right = rhs
		lhs = bin
	}
}

func (p *Parser) parsePrimary() (Node, error) {
	tok := p.peek()
	switch tok.Type {
	case IDENTIFIER:
		p.advance()
		return p.identPrimary(tok)

	case INTEGER:
		p.advance()
		if tok.Overflow {
			return nil, p.fail(tok, "32-bit integer", "integer literal %s does not fit in 32 bits", tok.Text(p.src))
		}
		lit, err := alloc(p, p.nodes.literal)
		if err != nil {
			return nil, err
		}
		lit.Tok = tok
		lit.Value = tok.Value
		return lit, nil

	case LPAREN:
		p.advance()
		inner, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN, "to close parenthesised expression"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, p.fail(tok, "expression", "expected expression, found %s", p.describeToken(tok))
}

// identPrimary builds a variable reference or, when "(" follows, a call.
func (p *Parser) identPrimary(name Token) (Node, error) {
	if p.peek().Type != LPAREN {
		ref, err := alloc(p, p.nodes.varRef)
		if err != nil {
			return nil, err
		}
		ref.Name = name
		ref.Symbol = NoSymbol
		return ref, nil
	}
	p.advance()

	call, err := alloc(p, p.nodes.funcCall)
	if err != nil {
		return nil, err
	}
	call.Name = name
	call.Symbol = NoSymbol

	if p.peek().Type != RPAREN {
		for {
			arg, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(RPAREN, "to close argument list"); err != nil {
		return nil, err
	}
	return call, nil
}
