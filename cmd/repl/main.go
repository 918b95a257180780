// Command repl is an interactive pinapl session. Every accepted input is
// appended to a session buffer; each new input recompiles the whole buffer
// and runs it, then prints the globals that input declared.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"pinapl/pkg/compiler"
	"pinapl/pkg/tac"
	"pinapl/pkg/vm"
)

const (
	historyFile = ".pinapl_history"
	promptMain  = "pinapl> "
	promptCont  = "...     "
)

const banner = "pinapl REPL\nCtrl+C cancels input, Ctrl+D exits. Type :help for commands."

const helpText = `REPL commands:
  :ir       Print the code for the session so far
  :symbols  Print the session's symbol table
  :reset    Forget every declaration
  :quit     Exit the REPL
`

func red(s string) string { return "\x1b[31m" + s + "\x1b[0m" }

// session holds the accepted source and the last good compilation of it.
type session struct {
	cfg    compiler.Config
	source string
	last   *compiler.Result
}

// submit compiles the session plus input. On success input becomes part
// of the session and the globals it declared are returned as "name = v"
// lines.
func (s *session) submit(input string) ([]string, error) {
	candidate := s.source + input + "\n"
	src := []byte(candidate)

	res, err := compiler.Compile(src, s.cfg)
	if res.Status != compiler.StatusCheckGood {
		return nil, errors.New(strings.TrimRight(res.Diags.Report(), "\n"))
	}
	if err != nil {
		return nil, err
	}

	m := vm.NewMachine(res.Program)
	if err := m.Run(); err != nil {
		return nil, err
	}

	start := len(s.source)
	var out []string
	for _, sym := range res.Symbols {
		if sym.Depth != 0 || sym.IsFunc || sym.Decl.Name.Span.Offset < start {
			continue
		}
		var v int32
		if r, ok := res.Regs[sym.ID]; ok {
			v = m.Regs[r]
		}
		out = append(out, fmt.Sprintf("%s = %d", sym.Name, v))
	}

	s.source = candidate
	s.last = res
	return out, nil
}

func (s *session) command(w io.Writer, cmd string) bool {
	switch cmd {
	case ":quit", ":q":
		return false
	case ":help":
		fmt.Fprint(w, helpText)
	case ":reset":
		s.source, s.last = "", nil
	case ":ir":
		if s.last != nil {
			_ = tac.Format(w, s.last.Program)
		}
	case ":symbols":
		if s.last != nil {
			for _, sym := range s.last.Symbols {
				fmt.Fprintf(w, "%4d  %-16s depth %d\n", sym.ID, sym.Name, sym.Depth)
			}
		}
	default:
		fmt.Fprintln(w, "unknown command. Type :help for a list.")
	}
	return true
}

// readByParseProbe keeps reading lines while the accumulated text only
// fails to parse because it ends early.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		diags := compiler.NewDiagnostics([]byte(src), "", 1)
		_, perr := compiler.Parse([]byte(src), compiler.NewArena("probe", 1<<16), diags)
		if perr != nil && compiler.IsIncomplete(perr) && strings.TrimSpace(src) != "" {
			continue
		}
		return src, true
	}
}

func main() {
	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	s := &session{cfg: compiler.ConfigFromEnv()}
	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			break
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if !s.command(os.Stdout, strings.ToLower(trimmed)) {
				return
			}
			continue
		}

		lines, err := s.submit(code)
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			continue
		}
		for _, l := range lines {
			fmt.Println(l)
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}
}
