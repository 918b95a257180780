package tac

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// FormatInstr renders one instruction in listing syntax.
func FormatInstr(in Instr) string {
	switch in.Op {
	case OpNOP:
		return "nop"
	case OpMOVREG:
		return fmt.Sprintf("mov r%d, r%d", in.Dst, in.Lhs)
	case OpMOVINT:
		return fmt.Sprintf("mov r%d, #%d", in.Dst, in.Lhs)
	case OpADD, OpSUB, OpMUL, OpDIV:
		return fmt.Sprintf("%s r%d, r%d, r%d", in.Op, in.Dst, in.Lhs, in.Rhs)
	case OpJMP:
		return fmt.Sprintf("jmp L%d", in.Lhs)
	case OpARG:
		return fmt.Sprintf("arg r%d, #%d", in.Dst, in.Lhs)
	case OpPARAM:
		return fmt.Sprintf("param r%d", in.Lhs)
	case OpCALL:
		return fmt.Sprintf("call r%d, L%d, #%d", in.Dst, in.Lhs, in.Rhs)
	case OpRET:
		if in.Lhs < 0 {
			return "ret"
		}
		return fmt.Sprintf("ret r%d", in.Lhs)
	}
	return fmt.Sprintf("<bad opcode %d>", in.Op)
}

// Format writes prog as a listing: one instruction per line, each bound
// label on its own line ("L3:") before the instruction it addresses.
func Format(w io.Writer, prog *Program) error {
	byAddr := make(map[int32][]int32)
	for _, l := range prog.Labels {
		if l.Bound() {
			byAddr[l.Addr] = append(byAddr[l.Addr], l.ID)
		}
	}
	for _, ids := range byAddr {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	bw := bufio.NewWriter(w)
	for i := 0; i <= len(prog.Code); i++ {
		for _, id := range byAddr[int32(i)] {
			fmt.Fprintf(bw, "L%d:\n", id)
		}
		if i < len(prog.Code) {
			fmt.Fprintf(bw, "  %s\n", FormatInstr(prog.Code[i]))
		}
	}
	return bw.Flush()
}

// String returns the listing of prog.
func (prog *Program) String() string {
	var sb strings.Builder
	_ = Format(&sb, prog)
	return sb.String()
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

// Parse reads a listing produced by Format back into a Program.
// Comments start with ";" or "//".
func Parse(text string) (*Program, error) {
	var prog Program
	labelAddr := make(map[int32]int32)
	maxLabel := int32(-1)

	note := func(id int32) {
		if id > maxLabel {
			maxLabel = id
		}
	}

	for i, raw := range strings.Split(text, "\n") {
		p, err := parseLine(raw, i+1)
		if err != nil {
			return nil, err
		}
		for _, lbl := range p.labels {
			id, err := parseLabelRef(lbl, p.lineNo)
			if err != nil {
				return nil, err
			}
			if _, dup := labelAddr[id]; dup {
				return nil, fmt.Errorf("duplicate label '%s' on line %d", lbl, p.lineNo)
			}
			labelAddr[id] = int32(len(prog.Code))
			note(id)
		}
		if p.mnemonic == "" {
			continue
		}
		in, err := decode(p)
		if err != nil {
			return nil, err
		}
		if in.Op == OpJMP || in.Op == OpCALL {
			note(in.Lhs)
		}
		prog.Code = append(prog.Code, in)
	}

	// Lowering reserves two labels per function and emits at least two
	// instructions for each, so larger ids cannot come from a real listing.
	if limit := 2*len(prog.Code) + len(labelAddr); int(maxLabel) >= limit {
		return nil, fmt.Errorf("label L%d out of range for %d instruction(s)", maxLabel, len(prog.Code))
	}

	for id := int32(0); id <= maxLabel; id++ {
		addr, ok := labelAddr[id]
		if !ok {
			addr = -1
		}
		prog.Labels = append(prog.Labels, Label{ID: id, Addr: addr})
	}
	return &prog, nil
}

func decode(p parsedLine) (Instr, error) {
	in := Instr{Dst: NoReg, Lhs: NoReg, Rhs: NoReg}
	want := func(n int) error {
		if len(p.operands) != n {
			return fmt.Errorf("%s expects %d operand(s), got %d on line %d", p.mnemonic, n, len(p.operands), p.lineNo)
		}
		return nil
	}
	var err error

	switch p.mnemonic {
	case "nop":
		in.Op = OpNOP
		return in, want(0)

	case "mov":
		if err = want(2); err != nil {
			return in, err
		}
		if in.Dst, err = parseRegister(p.operands[0], p.lineNo); err != nil {
			return in, err
		}
		if strings.HasPrefix(p.operands[1], "#") {
			in.Op = OpMOVINT
			in.Lhs, err = parseImmediate(p.operands[1], p.lineNo)
		} else {
			in.Op = OpMOVREG
			in.Lhs, err = parseRegister(p.operands[1], p.lineNo)
		}
		return in, err

	case "add", "sub", "mul", "div":
		in.Op = map[string]Opcode{"add": OpADD, "sub": OpSUB, "mul": OpMUL, "div": OpDIV}[p.mnemonic]
		if err = want(3); err != nil {
			return in, err
		}
		if in.Dst, err = parseRegister(p.operands[0], p.lineNo); err != nil {
			return in, err
		}
		if in.Lhs, err = parseRegister(p.operands[1], p.lineNo); err != nil {
			return in, err
		}
		in.Rhs, err = parseRegister(p.operands[2], p.lineNo)
		return in, err

	case "jmp":
		in.Op = OpJMP
		if err = want(1); err != nil {
			return in, err
		}
		in.Lhs, err = parseLabelRef(p.operands[0], p.lineNo)
		return in, err

	case "arg":
		in.Op = OpARG
		if err = want(2); err != nil {
			return in, err
		}
		if in.Dst, err = parseRegister(p.operands[0], p.lineNo); err != nil {
			return in, err
		}
		in.Lhs, err = parseImmediate(p.operands[1], p.lineNo)
		return in, err

	case "param":
		in.Op = OpPARAM
		if err = want(1); err != nil {
			return in, err
		}
		in.Lhs, err = parseRegister(p.operands[0], p.lineNo)
		return in, err

	case "call":
		in.Op = OpCALL
		if err = want(3); err != nil {
			return in, err
		}
		if in.Dst, err = parseRegister(p.operands[0], p.lineNo); err != nil {
			return in, err
		}
		if in.Lhs, err = parseLabelRef(p.operands[1], p.lineNo); err != nil {
			return in, err
		}
		in.Rhs, err = parseImmediate(p.operands[2], p.lineNo)
		return in, err

	case "ret":
		in.Op = OpRET
		if len(p.operands) == 0 {
			return in, nil
		}
		if err = want(1); err != nil {
			return in, err
		}
		in.Lhs, err = parseRegister(p.operands[0], p.lineNo)
		return in, err
	}
	return in, fmt.Errorf("unknown mnemonic '%s' on line %d", p.mnemonic, p.lineNo)
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	for {
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			break
		}
		label := strings.TrimSpace(line[:colon])
		if label == "" || strings.ContainsAny(label, " \t,") {
			return p, fmt.Errorf("invalid label on line %d", lineNo)
		}
		p.labels = append(p.labels, label)
		line = strings.TrimSpace(line[colon+1:])
	}
	if line == "" {
		return p, nil
	}

	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
	p.mnemonic = strings.ToLower(fields[0])
	p.operands = fields[1:]
	return p, nil
}

func stripComments(line string) string {
	cut := -1
	if i := strings.Index(line, ";"); i >= 0 {
		cut = i
	}
	if i := strings.Index(line, "//"); i >= 0 && (cut == -1 || i < cut) {
		cut = i
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

func parseNumber(s, what, token string, lineNo int) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s' on line %d", what, token, lineNo)
	}
	return int32(v), nil
}

func parseRegister(token string, lineNo int) (int32, error) {
	if len(token) < 2 || (token[0] != 'r' && token[0] != 'R') {
		return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
	}
	v, err := parseNumber(token[1:], "register", token, lineNo)
	if err == nil && v < 0 {
		return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
	}
	return v, err
}

func parseImmediate(token string, lineNo int) (int32, error) {
	if !strings.HasPrefix(token, "#") {
		return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
	}
	return parseNumber(token[1:], "immediate", token, lineNo)
}

func parseLabelRef(token string, lineNo int) (int32, error) {
	if len(token) < 2 || (token[0] != 'L' && token[0] != 'l') {
		return 0, fmt.Errorf("invalid label '%s' on line %d", token, lineNo)
	}
	v, err := parseNumber(token[1:], "label", token, lineNo)
	if err == nil && v < 0 {
		return 0, fmt.Errorf("invalid label '%s' on line %d", token, lineNo)
	}
	return v, err
}
