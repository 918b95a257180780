// Package tac defines the three-address instruction set produced by the
// lowering stage, the fixed-capacity buffers that hold it, and a textual
// listing format.
package tac

import (
	"fmt"

	"fortio.org/safecast"
)

// Opcode selects an instruction's operation.
type Opcode uint8

const (
	OpNOP    Opcode = iota // nop
	OpMOVREG               // mov  dst, rLhs
	OpMOVINT               // mov  dst, #Lhs
	OpADD                  // add  dst, rLhs, rRhs
	OpSUB                  // sub  dst, rLhs, rRhs
	OpMUL                  // mul  dst, rLhs, rRhs
	OpDIV                  // div  dst, rLhs, rRhs
	OpJMP                  // jmp  L(Lhs)
	OpARG                  // arg  dst, #Lhs       load incoming argument Lhs
	OpPARAM                // param rLhs            push outgoing argument
	OpCALL                 // call dst, L(Lhs), #Rhs
	OpRET                  // ret  [rLhs]           Lhs < 0: no value
)

var opNames = [...]string{
	OpNOP:    "nop",
	OpMOVREG: "mov",
	OpMOVINT: "mov",
	OpADD:    "add",
	OpSUB:    "sub",
	OpMUL:    "mul",
	OpDIV:    "div",
	OpJMP:    "jmp",
	OpARG:    "arg",
	OpPARAM:  "param",
	OpCALL:   "call",
	OpRET:    "ret",
}

func (op Opcode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// IsArith reports whether op takes two register sources.
func (op Opcode) IsArith() bool {
	return op == OpADD || op == OpSUB || op == OpMUL || op == OpDIV
}

// NoReg marks an unused register operand.
const NoReg int32 = -1

// Instr is one three-address instruction. Operand meaning depends on Op;
// see the opcode table.
type Instr struct {
	Op  Opcode
	Dst int32
	Lhs int32
	Rhs int32
}

// Label is a reserved instruction address. Addr is -1 until bound.
type Label struct {
	ID   int32
	Addr int32
}

// Bound reports whether the label has been placed.
func (l Label) Bound() bool { return l.Addr >= 0 }

// CapacityError reports an emit past a buffer's fixed capacity.
type CapacityError struct {
	Buffer   string
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s buffer full (capacity %d)", e.Buffer, e.Capacity)
}

// Program is the finished output of lowering.
type Program struct {
	Code   []Instr
	Labels []Label
}

// Buffer is an append-only instruction stream plus a parallel label table.
// Both are sized at creation and never grow.
type Buffer struct {
	code   []Instr
	labels []Label
}

// NewBuffer preallocates room for codeCap instructions and labelCap labels.
func NewBuffer(codeCap, labelCap int) *Buffer {
	return &Buffer{
		code:   make([]Instr, 0, codeCap),
		labels: make([]Label, 0, labelCap),
	}
}

// Emit appends in, failing once the instruction capacity is used up.
func (b *Buffer) Emit(in Instr) error {
	if len(b.code) == cap(b.code) {
		return &CapacityError{Buffer: "instruction", Capacity: cap(b.code)}
	}
	b.code = append(b.code, in)
	return nil
}

// NewLabel reserves an unbound label and returns its id.
func (b *Buffer) NewLabel() (int32, error) {
	if len(b.labels) == cap(b.labels) {
		return -1, &CapacityError{Buffer: "label", Capacity: cap(b.labels)}
	}
	id, err := safecast.Conv[int32](len(b.labels))
	if err != nil {
		return -1, err
	}
	b.labels = append(b.labels, Label{ID: id, Addr: -1})
	return id, nil
}

// Bind places label id at the next instruction to be emitted.
func (b *Buffer) Bind(id int32) error {
	if id < 0 || int(id) >= len(b.labels) {
		return fmt.Errorf("bind: unknown label L%d", id)
	}
	if b.labels[id].Bound() {
		return fmt.Errorf("bind: label L%d already placed at %d", id, b.labels[id].Addr)
	}
	addr, err := safecast.Conv[int32](len(b.code))
	if err != nil {
		return err
	}
	b.labels[id].Addr = addr
	return nil
}

// Len is the number of emitted instructions.
func (b *Buffer) Len() int { return len(b.code) }

// LabelCount is the number of reserved labels.
func (b *Buffer) LabelCount() int { return len(b.labels) }

// Code returns the emitted instructions.
func (b *Buffer) Code() []Instr { return b.code }

// Labels returns the label table.
func (b *Buffer) Labels() []Label { return b.labels }

// Program snapshots the buffer contents.
func (b *Buffer) Program() *Program {
	return &Program{Code: b.code, Labels: b.labels}
}
