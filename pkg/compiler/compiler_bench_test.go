package compiler

import (
	"fmt"
	"strings"
	"testing"
)

// simpleSource is a minimal program used for benchmarking the fast path.
const simpleSource = `
add :: (a: int, b: int) -> int {
	a + b;
}

x := add(3, 4);
`

// complexSource repeats a block of functions and nested scopes many times.
var complexSource = func() string {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&sb, "f%d :: (a: int, b: int) -> int {\n", i)
		sb.WriteString("\tt := a * b + (a - b) / 2;\n")
		sb.WriteString("\t{ u := t * 3; u + a; }\n")
		sb.WriteString("\tt - 1;\n}\n")
		fmt.Fprintf(&sb, "g%d := f%d(%d, %d) + 1 * 2 - 3;\n", i, i, i, i+1)
	}
	return sb.String()
}()

func BenchmarkLex(b *testing.B) {
	src := []byte(complexSource)
	b.SetBytes(int64(len(src)))
	for i := 0; i < b.N; i++ {
		Lex(src)
	}
}

func BenchmarkCompileSimple(b *testing.B) {
	src := []byte(simpleSource)
	cfg := DefaultConfig()
	for i := 0; i < b.N; i++ {
		if _, err := Compile(src, cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompileComplex(b *testing.B) {
	src := []byte(complexSource)
	cfg := DefaultConfig()
	b.SetBytes(int64(len(src)))
	for i := 0; i < b.N; i++ {
		res, err := Compile(src, cfg)
		if err != nil {
			b.Fatal(err)
		}
		if res.Status != StatusCheckGood {
			b.Fatalf("status %s:\n%s", res.Status, res.Diags.Report())
		}
	}
}
