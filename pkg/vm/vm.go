// Package vm interprets tac programs. It exists to check lowering output by
// running it, not to be fast.
package vm

import (
	"errors"
	"fmt"

	"pinapl/pkg/tac"
)

// DefaultStepLimit bounds Run when Machine.StepLimit is zero.
const DefaultStepLimit = 1 << 20

var (
	ErrDivideByZero = errors.New("division by zero")
	ErrStepLimit    = errors.New("step limit reached")
)

// Fault is a runtime error tied to the instruction that raised it.
type Fault struct {
	PC    int
	Instr tac.Instr
	Err   error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("pc %d (%s): %v", f.PC, tac.FormatInstr(f.Instr), f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

type frame struct {
	ret  int
	dst  int32
	args []int32
}

// Machine runs one program. Registers are a single flat file shared by
// every frame; a register never written reads as zero.
type Machine struct {
	Regs map[int32]int32
	PC   int

	Halted bool
	Steps  int

	// StepLimit caps Run; zero means DefaultStepLimit.
	StepLimit int

	prog   *tac.Program
	frames []frame
	params []int32
}

func NewMachine(prog *tac.Program) *Machine {
	return &Machine{
		Regs: make(map[int32]int32),
		prog: prog,
	}
}

// Depth is the current call depth.
func (m *Machine) Depth() int { return len(m.frames) }

func (m *Machine) fault(in tac.Instr, err error) error {
	m.Halted = true
	return &Fault{PC: m.PC, Instr: in, Err: err}
}

func (m *Machine) label(id int32) (int, error) {
	if id < 0 || int(id) >= len(m.prog.Labels) {
		return 0, fmt.Errorf("unknown label L%d", id)
	}
	l := m.prog.Labels[id]
	if !l.Bound() {
		return 0, fmt.Errorf("label L%d is not placed", id)
	}
	return int(l.Addr), nil
}

// Step executes one instruction. Running off the end of the code halts
// the machine.
func (m *Machine) Step() error {
	if m.Halted {
		return nil
	}
	if m.PC < 0 || m.PC >= len(m.prog.Code) {
		if len(m.frames) > 0 {
			return m.fault(tac.Instr{Op: tac.OpNOP}, errors.New("fell off the end inside a call"))
		}
		m.Halted = true
		return nil
	}

	in := m.prog.Code[m.PC]
	m.Steps++
	next := m.PC + 1

	switch in.Op {
	case tac.OpNOP:

	case tac.OpMOVINT:
		m.Regs[in.Dst] = in.Lhs

	case tac.OpMOVREG:
		m.Regs[in.Dst] = m.Regs[in.Lhs]

	case tac.OpADD:
		m.Regs[in.Dst] = m.Regs[in.Lhs] + m.Regs[in.Rhs]

	case tac.OpSUB:
		m.Regs[in.Dst] = m.Regs[in.Lhs] - m.Regs[in.Rhs]

	case tac.OpMUL:
		m.Regs[in.Dst] = m.Regs[in.Lhs] * m.Regs[in.Rhs]

	case tac.OpDIV:
		divisor := m.Regs[in.Rhs]
		if divisor == 0 {
			return m.fault(in, ErrDivideByZero)
		}
		m.Regs[in.Dst] = m.Regs[in.Lhs] / divisor

	case tac.OpJMP:
		target, err := m.label(in.Lhs)
		if err != nil {
			return m.fault(in, err)
		}
		next = target

	case tac.OpARG:
		if len(m.frames) == 0 {
			return m.fault(in, errors.New("arg outside a call"))
		}
		args := m.frames[len(m.frames)-1].args
		if in.Lhs < 0 || int(in.Lhs) >= len(args) {
			return m.fault(in, fmt.Errorf("argument %d not passed", in.Lhs))
		}
		m.Regs[in.Dst] = args[in.Lhs]

	case tac.OpPARAM:
		m.params = append(m.params, m.Regs[in.Lhs])

	case tac.OpCALL:
		target, err := m.label(in.Lhs)
		if err != nil {
			return m.fault(in, err)
		}
		argc := int(in.Rhs)
		if argc < 0 || argc > len(m.params) {
			return m.fault(in, fmt.Errorf("call wants %d argument(s), %d pushed", argc, len(m.params)))
		}
		split := len(m.params) - argc
		args := append([]int32(nil), m.params[split:]...)
		m.params = m.params[:split]
		m.frames = append(m.frames, frame{ret: next, dst: in.Dst, args: args})
		next = target

	case tac.OpRET:
		if len(m.frames) == 0 {
			return m.fault(in, errors.New("ret outside a call"))
		}
		top := m.frames[len(m.frames)-1]
		m.frames = m.frames[:len(m.frames)-1]
		var v int32
		if in.Lhs >= 0 {
			v = m.Regs[in.Lhs]
		}
		m.Regs[top.dst] = v
		next = top.ret

	default:
		return m.fault(in, fmt.Errorf("bad opcode %d", in.Op))
	}

	m.PC = next
	return nil
}

// Run steps until the machine halts, faults or exhausts its step limit.
func (m *Machine) Run() error {
	limit := m.StepLimit
	if limit == 0 {
		limit = DefaultStepLimit
	}
	for !m.Halted {
		if m.Steps >= limit {
			in := tac.Instr{Op: tac.OpNOP}
			if m.PC >= 0 && m.PC < len(m.prog.Code) {
				in = m.prog.Code[m.PC]
			}
			return m.fault(in, ErrStepLimit)
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Run executes prog on a fresh machine and returns its final registers.
func Run(prog *tac.Program) (map[int32]int32, error) {
	m := NewMachine(prog)
	err := m.Run()
	return m.Regs, err
}
