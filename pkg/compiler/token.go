package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
//
// Single-character punctuation uses the byte value itself as its TokenType,
// so any byte the lexer does not otherwise recognise still gets a kind.
type TokenType int

const (
	INVALID TokenType = 0 // zero value, never produced by the lexer

	// Punctuation (kind == byte value)
	LPAREN    TokenType = '('
	RPAREN    TokenType = ')'
	LBRACKET  TokenType = '['
	RBRACKET  TokenType = ']'
	LBRACE    TokenType = '{'
	RBRACE    TokenType = '}'
	ASSIGN    TokenType = '='
	COLON     TokenType = ':'
	SEMICOLON TokenType = ';'
	COMMA     TokenType = ','
	PLUS      TokenType = '+'
	MINUS     TokenType = '-'
	STAR      TokenType = '*'
	SLASH     TokenType = '/'

	// Literals
	IDENTIFIER TokenType = 256 // variable / function / type name
	INTEGER    TokenType = 257 // decimal integer literal

	// Two-character operators
	DOUBLE_COLON TokenType = 270 // ::
	ARROW        TokenType = 271 // ->

	// Keywords
	KW_RETURN TokenType = 300 // "return" (reserved)

	EOF TokenType = 500 // sentinel: end of input
)

var tokenNames = map[TokenType]string{
	INVALID:      "INVALID",
	LPAREN:       "LPAREN",
	RPAREN:       "RPAREN",
	LBRACKET:     "LBRACKET",
	RBRACKET:     "RBRACKET",
	LBRACE:       "LBRACE",
	RBRACE:       "RBRACE",
	ASSIGN:       "ASSIGN",
	COLON:        "COLON",
	SEMICOLON:    "SEMICOLON",
	COMMA:        "COMMA",
	PLUS:         "PLUS",
	MINUS:        "MINUS",
	STAR:         "STAR",
	SLASH:        "SLASH",
	IDENTIFIER:   "IDENTIFIER",
	INTEGER:      "INTEGER",
	DOUBLE_COLON: "DOUBLE_COLON",
	ARROW:        "ARROW",
	KW_RETURN:    "KW_RETURN",
	EOF:          "EOF",
}

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"return": KW_RETURN,
}

func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	if tt > 0 && tt < 256 {
		return fmt.Sprintf("%q", rune(tt))
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// IsKnownPunct reports whether tt is a punctuation kind the grammar uses.
// Any other byte-valued kind came from an unrecognised source character.
func (tt TokenType) IsKnownPunct() bool {
	if tt <= 0 || tt >= 256 {
		return false
	}
	_, ok := tokenNames[tt]
	return ok
}

// Span is a non-owning view into the source buffer.
type Span struct {
	Offset int
	Length int
}

// Loc is a 1-based source position.
type Loc struct {
	Line   int
	Column int
}

func (l Loc) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type TokenType
	Span Span
	Loc  Loc

	// Value holds the decoded literal for INTEGER tokens.
	Value int32
	// Overflow is set when the literal does not fit in 32 bits.
	Overflow bool
}

// Text returns the bytes of src the token views. The result aliases src.
func (t Token) Text(src []byte) []byte {
	end := t.Span.Offset + t.Span.Length
	if t.Span.Offset < 0 || end > len(src) {
		return nil
	}
	return src[t.Span.Offset:end]
}

func (t Token) String() string {
	return fmt.Sprintf("%-12s @%d+%d  %s", t.Type, t.Span.Offset, t.Span.Length, t.Loc)
}
