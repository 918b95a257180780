package main

import (
	"errors"
	"testing"

	"pinapl/pkg/compiler"
	"pinapl/pkg/tac"
	"pinapl/pkg/utils"
	"pinapl/pkg/vm"
)

// globals compiles src, runs it and returns every global variable's value.
func globals(t *testing.T, src []byte) map[string]int32 {
	t.Helper()
	res, err := compiler.Compile(src, compiler.DefaultConfig())
	if res.Status != compiler.StatusCheckGood {
		t.Fatalf("status %s:\n%s", res.Status, res.Diags.Report())
	}
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	t.Logf("Generated code:\n%s", res.Program)

	m := vm.NewMachine(res.Program)
	if err := m.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	out := make(map[string]int32)
	for _, sym := range res.Symbols {
		if sym.Depth != 0 || sym.IsFunc {
			continue
		}
		var v int32
		if r, ok := res.Regs[sym.ID]; ok {
			v = m.Regs[r]
		}
		out[sym.Name] = v
	}
	return out
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   map[string]int32
	}{
		{
			"Precedence",
			"a := 1 + 2 * 3;",
			map[string]int32{"a": 7},
		},
		{
			"Left Associative",
			"a := 20 - 5 - 3; b := 100 / 10 / 5;",
			map[string]int32{"a": 12, "b": 2},
		},
		{
			"Parentheses",
			"a := (1 + 2) * (3 + 4);",
			map[string]int32{"a": 21},
		},
		{
			"Copies",
			"a := 5; b := a; c := b * a;",
			map[string]int32{"a": 5, "b": 5, "c": 25},
		},
		{
			"Uninitialised",
			"a : int; b := a + 1;",
			map[string]int32{"a": 0, "b": 1},
		},
		{
			"Constants",
			"N :: 6; M : int : 7; a := N * M;",
			map[string]int32{"N": 6, "M": 7, "a": 42},
		},
		{
			"Function",
			"sq :: (x: int) -> int { x * x; } a := sq(3) + sq(4);",
			map[string]int32{"a": 25},
		},
		{
			"Nested Calls",
			"double :: (x: int) -> int { x + x; } quad :: (y: int) -> int { double(double(y)); } a := quad(5);",
			map[string]int32{"a": 20},
		},
		{
			"Function Reads Global",
			"k :: 10; addk :: (x: int) -> int { x + k; } a := addk(5);",
			map[string]int32{"k": 10, "a": 15},
		},
		{
			"Shadowing",
			"a := 1; f :: () -> int { a := a + 10; a; } b := f(); c := a;",
			map[string]int32{"a": 1, "b": 11, "c": 1},
		},
		{
			"Inner Block",
			"f :: (x: int) -> int { { y := x * 2; } x + 1; } a := f(4);",
			map[string]int32{"a": 5},
		},
		{
			"Argument Order",
			"sub :: (x: int, y: int) -> int { x - y; } a := sub(10, 3); b := sub(3, 10);",
			map[string]int32{"a": 7, "b": -7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := globals(t, []byte(tt.source))
			for name, want := range tt.want {
				if got[name] != want {
					t.Errorf("%s = %d, want %d", name, got[name], want)
				}
			}
		})
	}
}

func TestProgramFile(t *testing.T) {
	_, src, err := utils.ReadSource("testdata/arith.pnl")
	if err != nil {
		t.Fatal(err)
	}
	got := globals(t, src)
	want := map[string]int32{"scale": 3, "w": 4, "h": 5, "a": 60, "p": 18, "mean": 39}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %d, want %d", name, got[name], v)
		}
	}
}

func TestDivideByZeroAtRuntime(t *testing.T) {
	res, err := compiler.Compile([]byte("z := 0; a := 1 / z;"), compiler.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	_, err = vm.Run(res.Program)
	if !errors.Is(err, vm.ErrDivideByZero) {
		t.Errorf("expected division by zero, got %v", err)
	}
}

func TestListingRoundTripRuns(t *testing.T) {
	res, err := compiler.Compile([]byte("f :: (x: int) -> int { x * 3; } a := f(7);"), compiler.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	prog, err := tac.Parse(res.Program.String())
	if err != nil {
		t.Fatalf("listing does not parse back: %v\n%s", err, res.Program)
	}
	regs, err := vm.Run(prog)
	if err != nil {
		t.Fatal(err)
	}
	if r := res.Regs[2]; regs[r] != 21 {
		t.Errorf("a = %d, want 21", regs[r])
	}
}

func TestRejectedPrograms(t *testing.T) {
	tests := []struct {
		source string
		status compiler.Status
	}{
		{"a := 1", compiler.StatusNotRecognized},
		{"a := return;", compiler.StatusNotRecognized},
		{"a := b;", compiler.StatusCheckBad},
		{"f :: (x: int) { y; }", compiler.StatusCheckBad},
	}
	for _, tt := range tests {
		res, _ := compiler.Compile([]byte(tt.source), compiler.DefaultConfig())
		if res.Status != tt.status {
			t.Errorf("%q: status %s, want %s", tt.source, res.Status, tt.status)
		}
	}
}
