package compiler

import (
	"errors"
	"strings"
	"testing"
)

func parseSource(t *testing.T, src string) (Node, *Diagnostics, error) {
	t.Helper()
	diags := NewDiagnostics([]byte(src), "", 0)
	root, err := Parse([]byte(src), NewArena("tree", 1024), diags)
	return root, diags, err
}

func dumpSource(t *testing.T, src string) string {
	t.Helper()
	root, diags, err := parseSource(t, src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v\n%s", src, err, diags.Report())
	}
	var sb strings.Builder
	if err := DumpTree(&sb, root, []byte(src)); err != nil {
		t.Fatal(err)
	}
	return sb.String()
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Precedence", "a := 1 + 2 * 3;", "VAR(-1) {a:=(1 + (2 * 3))}\n"},
		{"Left Assoc Additive", "a := 1 - 2 - 3;", "VAR(-1) {a:=((1 - 2) - 3)}\n"},
		{"Left Assoc Multiplicative", "a := 8 / 4 * 2;", "VAR(-1) {a:=((8 / 4) * 2)}\n"},
		{"Mixed", "a := 1 * 2 + 3 * 4 - 5;", "VAR(-1) {a:=(((1 * 2) + (3 * 4)) - 5)}\n"},
		{"Parenthesised Literal", "a := (1 + 2) * 3;", "VAR(-1) {a:=((1 + 2) * 3)}\n"},
		{"Parenthesised Identifier", "a := (b + 1) * 2;", "VAR(-1) {a:=((b(-1) + 1) * 2)}\n"},
		{"Lone Parenthesised Identifier", "a := (b);", "VAR(-1) {a:=b(-1)}\n"},
		{"Nested Parentheses", "a := ((1));", "VAR(-1) {a:=1}\n"},
		{"Typed", "a : int = 5;", "VAR(-1) {a:int=5}\n"},
		{"No Initializer", "a : int;", "VAR(-1) {a:int}\n"},
		{"Constant", "N :: 10;", "VAR(-1) {N::10}\n"},
		{"Typed Constant", "N : int : 10;", "VAR(-1) {N:int:10}\n"},
		{"Call", "y := f(1, 2 + 3);", "VAR(-1) {y:=f(-1)(1, (2 + 3))}\n"},
		{"Call No Args", "y := f();", "VAR(-1) {y:=f(-1)()}\n"},
		{"Call In Expression", "y := 2 * f(x) + 1;", "VAR(-1) {y:=((2 * f(-1)(x(-1))) + 1)}\n"},
		{"Empty Function", "f :: () { }", "VAR(-1) {f::() {\n}}\n"},
		{
			"Function",
			"f :: (x: int, y: int) -> int { x + y; }",
			"VAR(-1) {f::(VAR(-1) {x:int}, VAR(-1) {y:int}) -> int {\n  (x(-1) + y(-1));\n}}\n",
		},
		{
			"Function Body Statements",
			"f :: () { a := 1; { b := a; } a * 2; }",
			"VAR(-1) {f::() {\n  VAR(-1) {a:=1};\n  {\n    VAR(-1) {b:=a(-1)};\n  }\n  (a(-1) * 2);\n}}\n",
		},
		{
			"Terminated Function Declaration",
			"f :: () { 1; };",
			"VAR(-1) {f::() {\n  1;\n}}\n",
		},
		{
			"Terminated Nested Function Declaration",
			"f :: () { g :: () { 1; }; g(); }",
			"VAR(-1) {f::() {\n  VAR(-1) {g::() {\n    1;\n  }};\n  g(-1)();\n}}\n",
		},
		{
			"Unterminated Nested Function Declaration",
			"f :: () { g :: () { 1; } g(); }",
			"VAR(-1) {f::() {\n  VAR(-1) {g::() {\n    1;\n  }};\n  g(-1)();\n}}\n",
		},
		{
			"Several Globals",
			"a := 1;\nb := a;\n",
			"VAR(-1) {a:=1}\nVAR(-1) {b:=a(-1)}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dumpSource(t, tt.input); got != tt.expected {
				t.Errorf("Parse(%q):\n got  %q\n want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseEmptyProgram(t *testing.T) {
	for _, src := range []string{"", "   \n\t "} {
		root, _, err := parseSource(t, src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
		if _, ok := root.(*EmptyList); !ok {
			t.Errorf("Parse(%q) = %T, want *EmptyList", src, root)
		}
	}
}

func TestParseGlobalListOrder(t *testing.T) {
	src := "a := 1; b := 2; c := 3;"
	root, _, err := parseSource(t, src)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for c := root.(*GlobalList); c != nil; c = c.Next {
		names = append(names, string(c.Decl.(*VarDecl).Name.Text([]byte(src))))
	}
	if strings.Join(names, ",") != "a,b,c" {
		t.Errorf("globals out of order: %v", names)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		loc        Loc
		expected   string
		found      string
		incomplete bool
	}{
		{"Missing Semicolon", "a := 1", Loc{1, 7}, "';'", "end of file", true},
		{"Missing Initializer", "a := ;", Loc{1, 6}, "expression", "';'", false},
		{"Literal Name", "1 := 2;", Loc{1, 1}, "identifier", `integer literal "1"`, false},
		{"Assign Without Colon", "a = 1;", Loc{1, 3}, "':' or '::'", "'='", false},
		{"Reserved Keyword", "x := return;", Loc{1, 6}, "expression", "keyword 'return'", false},
		{"Unknown Character", "a := 1 @ 2;", Loc{1, 8}, "';'", "'@'", false},
		{"Overflow", "a := 99999999999;", Loc{1, 6}, "32-bit integer", `integer literal "99999999999"`, false},
		{"Statement Needs Semicolon", "f :: () { x + 1 }", Loc{1, 17}, "';'", "'}'", false},
		{"Unclosed Block", "f :: () { x;", Loc{1, 13}, "'}'", "end of file", true},
		{"Untyped Parameter", "f :: (x) { }", Loc{1, 10}, "';'", "'{'", false},
		{"Second Error Never Reached", "a := ; b := ;", Loc{1, 6}, "expression", "';'", false},
		{"Missing Type And Init", "a : ;", Loc{1, 5}, "type name, '=' or ':'", "';'", false},
		{"Open Call", "a := f(1,", Loc{1, 10}, "expression", "end of file", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, diags, err := parseSource(t, tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.input)
			}
			if root != nil {
				t.Errorf("failed parse returned a tree: %T", root)
			}
			var d *Diagnostic
			if !errors.As(err, &d) {
				t.Fatalf("error %v is not a *Diagnostic", err)
			}
			if d.Kind != SyntaxError {
				t.Errorf("kind = %s, want syntax error", d.Kind)
			}
			if d.Loc != tt.loc {
				t.Errorf("loc = %s, want %s", d.Loc, tt.loc)
			}
			if d.Expected != tt.expected || d.Found != tt.found {
				t.Errorf("expected/found = %q/%q, want %q/%q", d.Expected, d.Found, tt.expected, tt.found)
			}
			if got := IsIncomplete(err); got != tt.incomplete {
				t.Errorf("IsIncomplete = %v, want %v", got, tt.incomplete)
			}
			if n := len(diags.Errors()); n != 1 {
				t.Errorf("parser should stop at the first error, recorded %d", n)
			}
		})
	}
}

func TestParseUnknownCharacterWarns(t *testing.T) {
	_, diags, err := parseSource(t, "a := 1 @ 2;")
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	warns := diags.Warnings()
	if len(warns) != 1 || warns[0].Kind != LexicalAmbiguity {
		t.Fatalf("expected one lexical ambiguity warning, got %v", warns)
	}
	if warns[0].Loc != (Loc{1, 8}) {
		t.Errorf("warning at %s, want 1:8", warns[0].Loc)
	}
}

func TestParseCapacity(t *testing.T) {
	src := "a := 1 + 2;"
	diags := NewDiagnostics([]byte(src), "", 0)
	_, err := Parse([]byte(src), NewArena("tree", 3), diags)
	if err == nil {
		t.Fatal("expected capacity failure")
	}
	var ce *CapacityError
	if !errors.As(err, &ce) {
		t.Fatalf("error %v does not wrap *CapacityError", err)
	}
	if ce.Region != "tree" || ce.Capacity != 3 {
		t.Errorf("unexpected capacity error %+v", ce)
	}
	errs := diags.Errors()
	if len(errs) != 1 || errs[0].Kind != CapacityExceeded {
		t.Errorf("expected one CapacityExceeded diagnostic, got %v", errs)
	}
	if n := strings.Count(err.Error(), ce.Error()); n != 1 {
		t.Errorf("error %q repeats its cause %d times", err, n)
	}
}

func TestParseDoubleTerminatorAfterFunction(t *testing.T) {
	_, _, err := parseSource(t, "f :: () { 1; };;")
	if err == nil {
		t.Fatal("a second ';' after a function declaration should not parse")
	}
}
