package compiler

import (
	"math"

	"fortio.org/safecast"
)

// Lexer holds all mutable state for a single scanning pass over src.
// It keeps at most one token of lookahead.
type Lexer struct {
	src    []byte
	pos    int // index of the next byte to consume
	line   int // current 1-based source line
	column int // current 1-based source column

	next      Token
	nextValid bool
}

// NewLexer returns a lexer positioned at the start of src.
// The lexer never copies or modifies src.
func NewLexer(src []byte) *Lexer {
	return &Lexer{src: src, line: 1, column: 1}
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() Token {
	if !l.nextValid {
		l.next = l.scan()
		l.nextValid = true
	}
	return l.next
}

// Advance returns the current lookahead token and consumes it.
func (l *Lexer) Advance() Token {
	tok := l.Peek()
	l.nextValid = false
	return tok
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isAlpha(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentHead(c byte) bool {
	return c == '_' || isAlpha(c)
}

func isIdentBody(c byte) bool {
	return c == '_' || isAlpha(c) || isDigit(c)
}

// peekByte returns the byte at the current position, or 0 at end of input.
func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// eatByte consumes one byte and keeps line/column in step.
func (l *Lexer) eatByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && isWhitespace(l.src[l.pos]) {
		l.eatByte()
	}
}

// scan produces the next token from the current position.
func (l *Lexer) scan() Token {
	l.skipWhitespace()

	tok := Token{
		Span: Span{Offset: l.pos},
		Loc:  Loc{Line: l.line, Column: l.column},
	}

	if l.pos >= len(l.src) {
		tok.Type = EOF
		return tok
	}

	c := l.peekByte()
	switch {
	case isIdentHead(c):
		for l.pos < len(l.src) && isIdentBody(l.src[l.pos]) {
			l.eatByte()
		}
		tok.Type = IDENTIFIER
		tok.Span.Length = l.pos - tok.Span.Offset
		if kw, ok := keywords[string(tok.Text(l.src))]; ok {
			tok.Type = kw
		}

	case isDigit(c):
		l.scanInteger(&tok)

	case c == ':':
		l.eatByte()
		tok.Type = COLON
		if l.peekByte() == ':' {
			l.eatByte()
			tok.Type = DOUBLE_COLON
		}
		tok.Span.Length = l.pos - tok.Span.Offset

	case c == '-':
		l.eatByte()
		tok.Type = MINUS
		if l.peekByte() == '>' {
			l.eatByte()
			tok.Type = ARROW
		}
		tok.Span.Length = l.pos - tok.Span.Offset

	default:
		l.eatByte()
		tok.Type = TokenType(c)
		tok.Span.Length = 1
	}
	return tok
}

// scanInteger decodes a maximal run of decimal digits.
//
// Accumulation happens in 64 bits and stops growing once the value no longer
// fits in an int32; such a literal is flagged Overflow and its Value clamps
// to math.MaxInt32. The digits are always consumed.
func (l *Lexer) scanInteger(tok *Token) {
	var acc int64
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		d := int64(l.eatByte() - '0')
		if acc <= math.MaxInt32 {
			acc = acc*10 + d
		}
	}
	tok.Type = INTEGER
	tok.Span.Length = l.pos - tok.Span.Offset

	v, err := safecast.Conv[int32](acc)
	if err != nil {
		tok.Overflow = true
		v = math.MaxInt32
	}
	tok.Value = v
}

// Lex tokenises src and returns all tokens including the final EOF token.
func Lex(src []byte) []Token {
	l := NewLexer(src)
	var tokens []Token
	for {
		tok := l.Advance()
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens
		}
	}
}
