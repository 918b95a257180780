// Package compiler provides the pinapl lexer, parser, scope resolver and
// three-address-code lowering.
//
// Pipeline: source bytes → Lexer → Parse → Resolve → Lower → tac.Program
package compiler
