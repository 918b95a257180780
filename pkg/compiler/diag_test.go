package compiler

import (
	"strings"
	"testing"
)

func TestDiagnosticsFormat(t *testing.T) {
	src := []byte("a := 1;\nb := c + 1;\n")
	ds := NewDiagnostics(src, "prog.pnl", 0)
	tok := Token{Type: IDENTIFIER, Span: Span{13, 1}, Loc: Loc{2, 6}}
	d := ds.Errorf(UnresolvedIdentifier, tok, "undeclared identifier %q", "c")

	if got := d.Error(); got != `2:6: unresolved identifier: undeclared identifier "c"` {
		t.Errorf("Error() = %q", got)
	}

	want := "error: unresolved identifier: undeclared identifier \"c\"\n" +
		"  --> prog.pnl:2:6\n" +
		"  |\n" +
		"2 | b := c + 1;\n" +
		"  |      ^\n"
	if got := ds.Report(); got != want {
		t.Errorf("Report():\n%s\nwant:\n%s", got, want)
	}
	if colored := ds.Format(true); !strings.Contains(colored, "\033[") {
		t.Error("Format(true) should contain colour escapes")
	}
}

func TestDiagnosticsExpectedFound(t *testing.T) {
	src := []byte("a := 1")
	ds := NewDiagnostics(src, "", 0)
	d := ds.Errorf(SyntaxError, Token{Type: EOF, Span: Span{6, 0}, Loc: Loc{1, 7}}, "missing ';'")
	d.Expected, d.Found = "';'", "end of file"
	if !strings.Contains(ds.Report(), "expected ';', found end of file") {
		t.Errorf("report lacks expected/found line:\n%s", ds.Report())
	}
}

func TestDiagnosticsLimit(t *testing.T) {
	ds := NewDiagnostics(nil, "", 2)
	for i := 0; i < 5; i++ {
		ds.Errorf(SyntaxError, Token{}, "e%d", i)
	}
	ds.Warnf(LexicalAmbiguity, Token{}, "w")
	if len(ds.Errors()) != 2 {
		t.Errorf("kept %d errors, want 2", len(ds.Errors()))
	}
	if len(ds.Warnings()) != 1 {
		t.Errorf("kept %d warnings, want 1", len(ds.Warnings()))
	}
	if !ds.HasErrors() {
		t.Error("HasErrors should be true")
	}
	if !strings.Contains(ds.Report(), "and 3 more error(s)") {
		t.Errorf("report should count dropped errors:\n%s", ds.Report())
	}
}

func TestDiagnosticsWarningsOnly(t *testing.T) {
	ds := NewDiagnostics(nil, "", 0)
	ds.Warnf(LexicalAmbiguity, Token{}, "odd byte")
	if ds.HasErrors() {
		t.Error("warnings must not count as errors")
	}
}
