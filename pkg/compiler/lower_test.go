package compiler

import (
	"errors"
	"strings"
	"testing"

	"pinapl/pkg/tac"
)

type lowered struct {
	code  *tac.Buffer
	l     *Lowerer
	diags *Diagnostics
	err   error
}

func lowerSource(t *testing.T, src string, codeCap, labelCap int) lowered {
	t.Helper()
	res := resolveSource(t, src, 64)
	if !res.ok {
		t.Fatalf("Resolve(%q) failed:\n%s", src, res.diags.Report())
	}
	code := tac.NewBuffer(codeCap, labelCap)
	l := NewLowerer([]byte(src), code, res.resolver.SymbolCount(), res.diags)
	err := l.Lower(res.root)
	return lowered{code: code, l: l, diags: res.diags, err: err}
}

func TestLower(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"Empty",
			"",
			"",
		},
		{
			"Heavier Operand First",
			"a := 1 + 2 * 3;",
			"  mov r1, #2\n  mov r2, #3\n  mul r3, r1, r2\n  mov r4, #1\n  add r5, r4, r3\n",
		},
		{
			"Ties Keep Source Order",
			"a := 1 - 2;",
			"  mov r1, #1\n  mov r2, #2\n  sub r3, r1, r2\n",
		},
		{
			"Copy Between Symbols",
			"a := 1; b := a;",
			"  mov r2, #1\n  mov r3, r2\n",
		},
		{
			"Uninitialised Global",
			"a : int; b := a + 1;",
			"  mov r3, #1\n  add r4, r2, r3\n",
		},
		{
			"Function And Call",
			"f :: (x: int) -> int { x + 1; } y := f(2);",
			"  jmp L1\nL0:\n  arg r3, #0\n  mov r4, #1\n  add r5, r3, r4\n  ret r5\nL1:\n  mov r6, #2\n  param r6\n  call r7, L0, #1\n",
		},
		{
			"Empty Function",
			"f :: () { }",
			"  jmp L1\nL0:\n  ret\nL1:\n",
		},
		{
			"Block Has No Value",
			"f :: () { { 1; } }",
			"  jmp L1\nL0:\n  mov r1, #1\n  ret\nL1:\n",
		},
		{
			"Division",
			"a := 8 / 2;",
			"  mov r1, #8\n  mov r2, #2\n  div r3, r1, r2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lowerSource(t, tt.input, 64, 8)
			if got.err != nil {
				t.Fatalf("Lower(%q): %v", tt.input, got.err)
			}
			if listing := got.code.Program().String(); listing != tt.expected {
				t.Errorf("Lower(%q):\n got\n%s\n want\n%s", tt.input, listing, tt.expected)
			}
		})
	}
}

func TestLowerBindsSymbols(t *testing.T) {
	got := lowerSource(t, "a := 1 + 2 * 3; b := a;", 64, 8)
	if got.err != nil {
		t.Fatal(got.err)
	}
	if r, ok := got.l.SymbolRegister(0); !ok || r != 6 {
		t.Errorf("a bound to r%d (%v), want r6", r, ok)
	}
	if r, ok := got.l.SymbolRegister(1); !ok || r != 7 {
		t.Errorf("b bound to r%d (%v), want r7", r, ok)
	}
	if got.l.Registers() != 8 {
		t.Errorf("Registers() = %d, want 8", got.l.Registers())
	}
}

func TestLowerRegistersAboveSymbols(t *testing.T) {
	got := lowerSource(t, "a := 1; b := 2; c := a + b;", 64, 8)
	if got.err != nil {
		t.Fatal(got.err)
	}
	for _, in := range got.code.Code() {
		if in.Dst >= 0 && in.Dst < 3 {
			t.Errorf("%s writes into the symbol id range", tac.FormatInstr(in))
		}
	}
}

func TestLowerErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		codeCap  int
		labelCap int
		kind     DiagKind
	}{
		{"Not A Function", "a := 1; b := a(2);", 64, 8, LoweringError},
		{"Too Few Arguments", "f :: (x: int) { x; } y := f();", 64, 8, LoweringError},
		{"Too Many Arguments", "f :: () { } y := f(1);", 64, 8, LoweringError},
		{"Instruction Buffer Full", "a := 1 + 2 * 3;", 2, 8, CapacityExceeded},
		{"Label Table Full", "f :: () { }", 64, 1, CapacityExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lowerSource(t, tt.input, tt.codeCap, tt.labelCap)
			if got.err == nil {
				t.Fatalf("Lower(%q) succeeded, want error", tt.input)
			}
			var d *Diagnostic
			if !errors.As(got.err, &d) {
				t.Fatalf("error %v is not a *Diagnostic", got.err)
			}
			if d.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", d.Kind, tt.kind)
			}
			if n := strings.Count(got.err.Error(), d.Message); n != 1 {
				t.Errorf("error %q repeats its message %d times", got.err, n)
			}
			if tt.kind == CapacityExceeded {
				var ce *tac.CapacityError
				if !errors.As(got.err, &ce) {
					t.Errorf("error %v does not wrap *tac.CapacityError", got.err)
				}
				if got.code.Len() > tt.codeCap {
					t.Errorf("buffer grew past its capacity: %d", got.code.Len())
				}
			}
		})
	}
}

func TestNeed(t *testing.T) {
	tests := []struct {
		src  string
		want int
	}{
		{"a := 1;", 1},
		{"a := 1 + 2;", 2},
		{"a := 1 + 2 * 3;", 2},
		{"a := (1 + 2) * (3 + 4);", 3},
	}
	for _, tt := range tests {
		root, _, err := parseSource(t, tt.src)
		if err != nil {
			t.Fatal(err)
		}
		init := root.(*GlobalList).Decl.(*VarDecl).Init
		if got := need(init); got != tt.want {
			t.Errorf("need(%q) = %d, want %d", tt.src, got, tt.want)
		}
	}
}
