package compiler

import (
	"bytes"
	"fmt"
	"strings"
)

// DiagKind classifies a diagnostic.
type DiagKind int

const (
	LexicalAmbiguity DiagKind = iota
	SyntaxError
	UnresolvedIdentifier
	RedeclarationError
	CapacityExceeded
	LoweringError
)

func (k DiagKind) String() string {
	switch k {
	case LexicalAmbiguity:
		return "lexical ambiguity"
	case SyntaxError:
		return "syntax error"
	case UnresolvedIdentifier:
		return "unresolved identifier"
	case RedeclarationError:
		return "redeclaration"
	case CapacityExceeded:
		return "capacity exceeded"
	case LoweringError:
		return "lowering error"
	default:
		return "unknown"
	}
}

// Severity indicates how a diagnostic affects the compilation.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one reported problem. It implements error so a failing
// stage can return the diagnostic it recorded.
type Diagnostic struct {
	Kind     DiagKind
	Severity Severity
	Loc      Loc
	Length   int // length of the offending span, 0 if unknown
	Expected string
	Found    string
	Message  string
	Err      error // underlying cause, if any
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Loc, d.Kind, d.Message)
}

func (d *Diagnostic) Unwrap() error { return d.Err }

// Diagnostics accumulates the report for one compilation.
type Diagnostics struct {
	src       []byte
	filename  string
	errors    []*Diagnostic
	warnings  []*Diagnostic
	maxErrors int
	dropped   int
}

// NewDiagnostics returns an empty sink. maxErrors <= 0 means 10.
func NewDiagnostics(src []byte, filename string, maxErrors int) *Diagnostics {
	if maxErrors <= 0 {
		maxErrors = 10
	}
	return &Diagnostics{src: src, filename: filename, maxErrors: maxErrors}
}

// Add records d. Errors past maxErrors are counted but not retained.
func (ds *Diagnostics) Add(d *Diagnostic) {
	if d.Severity == SeverityWarning {
		ds.warnings = append(ds.warnings, d)
		return
	}
	if len(ds.errors) >= ds.maxErrors {
		ds.dropped++
		return
	}
	ds.errors = append(ds.errors, d)
}

// Errorf records an error of the given kind at tok and returns it.
func (ds *Diagnostics) Errorf(kind DiagKind, tok Token, format string, args ...any) *Diagnostic {
	d := &Diagnostic{
		Kind:     kind,
		Severity: SeverityError,
		Loc:      tok.Loc,
		Length:   tok.Span.Length,
		Message:  fmt.Sprintf(format, args...),
	}
	ds.Add(d)
	return d
}

// Warnf records a warning at tok.
func (ds *Diagnostics) Warnf(kind DiagKind, tok Token, format string, args ...any) {
	ds.Add(&Diagnostic{
		Kind:     kind,
		Severity: SeverityWarning,
		Loc:      tok.Loc,
		Length:   tok.Span.Length,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (ds *Diagnostics) HasErrors() bool { return len(ds.errors) > 0 || ds.dropped > 0 }

func (ds *Diagnostics) Errors() []*Diagnostic { return ds.errors }

func (ds *Diagnostics) Warnings() []*Diagnostic { return ds.warnings }

// sourceLine returns the 1-based line n of the source, without its newline.
func (ds *Diagnostics) sourceLine(n int) string {
	if n <= 0 {
		return ""
	}
	rest := ds.src
	for i := 1; i < n; i++ {
		nl := bytes.IndexByte(rest, '\n')
		if nl < 0 {
			return ""
		}
		rest = rest[nl+1:]
	}
	if nl := bytes.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimRight(string(rest), "\r")
}

func (ds *Diagnostics) location(loc Loc) string {
	if ds.filename == "" {
		return loc.String()
	}
	return ds.filename + ":" + loc.String()
}

// Report returns the accumulated text without colour.
func (ds *Diagnostics) Report() string {
	return ds.Format(false)
}

// Format renders every warning and error with the offending source line
// and a caret underline.
func (ds *Diagnostics) Format(useColor bool) string {
	var sb strings.Builder
	for _, d := range ds.warnings {
		ds.formatOne(&sb, d, useColor)
	}
	for _, d := range ds.errors {
		ds.formatOne(&sb, d, useColor)
	}
	if ds.dropped > 0 {
		fmt.Fprintf(&sb, "... and %d more error(s)\n", ds.dropped)
	}
	return sb.String()
}

func (ds *Diagnostics) formatOne(sb *strings.Builder, d *Diagnostic, useColor bool) {
	paint := func(code, s string) string {
		if !useColor {
			return s
		}
		return "\033[" + code + "m" + s + "\033[0m"
	}

	head := "1;31"
	if d.Severity == SeverityWarning {
		head = "1;33"
	}
	fmt.Fprintf(sb, "%s %s\n", paint(head, d.Severity.String()+": "+d.Kind.String()+":"), d.Message)
	fmt.Fprintf(sb, "  %s %s\n", paint("1;34", "-->"), ds.location(d.Loc))
	if d.Expected != "" || d.Found != "" {
		fmt.Fprintf(sb, "  expected %s, found %s\n", d.Expected, d.Found)
	}

	line := ds.sourceLine(d.Loc.Line)
	if line == "" {
		return
	}
	num := fmt.Sprintf("%d", d.Loc.Line)
	pad := strings.Repeat(" ", len(num)+1)
	fmt.Fprintf(sb, "%s|\n%s | %s\n%s| ", pad, num, line, pad)
	if d.Loc.Column > 0 {
		sb.WriteString(strings.Repeat(" ", d.Loc.Column-1))
	}
	width := d.Length
	if width <= 0 {
		width = 1
	}
	sb.WriteString(paint("1;31", strings.Repeat("^", width)))
	sb.WriteString("\n")
}
