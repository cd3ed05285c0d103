package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Memory map.
const (
	MemorySize = 0x10000

	TextVRAMBase = 0xF000
	TextVRAMSize = 32 * 32
	TextCols     = 32

	PortChar    = 0xFF00 // store: print low byte as a character
	PortDecimal = 0xFF01 // store: print value in decimal
	PortKey     = 0xFF04 // load: next key code, 0 when empty
)

// StackDepth is the number of cells in each of the data and return stacks.
const StackDepth = 256

const (
	True  uint16 = 0xFFFF
	False uint16 = 0
)

var (
	ErrStackOverflow   = errors.New("stack overflow")
	ErrStackUnderflow  = errors.New("stack underflow")
	ErrInvalidOpcode   = errors.New("invalid opcode")
	ErrGasExhausted    = errors.New("instruction budget exhausted")
	ErrProgramTooLarge = errors.New("program too large for memory")
)

// Stack is a fixed-depth stack of 16-bit cells.
type Stack struct {
	Cells [StackDepth]uint16
	Depth int
}

func (s *Stack) Push(v uint16) error {
	if s.Depth >= StackDepth {
		return ErrStackOverflow
	}
	s.Cells[s.Depth] = v
	s.Depth++
	return nil
}

func (s *Stack) Pop() (uint16, error) {
	if s.Depth == 0 {
		return 0, ErrStackUnderflow
	}
	s.Depth--
	return s.Cells[s.Depth], nil
}

// Peek returns the cell n entries below the top without removing it.
func (s *Stack) Peek(n int) (uint16, error) {
	if n >= s.Depth {
		return 0, ErrStackUnderflow
	}
	return s.Cells[s.Depth-1-n], nil
}

// Slice returns the live cells, bottom first.
func (s *Stack) Slice() []uint16 {
	out := make([]uint16, s.Depth)
	copy(out, s.Cells[:s.Depth])
	return out
}

// Machine executes images produced by the compiler.
type Machine struct {
	Memory [MemorySize]byte

	PC     uint16
	Data   Stack
	Return Stack

	Halted bool
	Cycles uint64

	KeyBuffer []byte

	// Output receives console port writes. If nil, os.Stdout is used.
	Output io.Writer
}

// New returns a machine with img loaded at address 0.
func New(img []byte) (*Machine, error) {
	m := &Machine{}
	if err := m.Load(img); err != nil {
		return nil, err
	}
	return m, nil
}

// Load copies img to address 0 and resets the registers and stacks.
func (m *Machine) Load(img []byte) error {
	if len(img) > MemorySize {
		return fmt.Errorf("%w: %d bytes > %d bytes", ErrProgramTooLarge, len(img), MemorySize)
	}
	m.Memory = [MemorySize]byte{}
	copy(m.Memory[:], img)
	m.Reset()
	return nil
}

// Reset clears registers and stacks but keeps memory.
func (m *Machine) Reset() {
	m.PC = 0
	m.Data = Stack{}
	m.Return = Stack{}
	m.Halted = false
	m.Cycles = 0
}

func (m *Machine) PushKey(k byte) {
	m.KeyBuffer = append(m.KeyBuffer, k)
}

func (m *Machine) outputSink() io.Writer {
	if m.Output != nil {
		return m.Output
	}
	return os.Stdout
}

// ReadByte reads addr with port interception.
func (m *Machine) ReadByte(addr uint16) byte {
	if addr == PortKey {
		if len(m.KeyBuffer) == 0 {
			return 0
		}
		k := m.KeyBuffer[0]
		m.KeyBuffer = m.KeyBuffer[1:]
		return k
	}
	return m.Memory[addr]
}

// WriteByte writes addr with port interception.
func (m *Machine) WriteByte(addr uint16, val byte) {
	switch addr {
	case PortChar:
		fmt.Fprintf(m.outputSink(), "%c", val)
		return
	case PortDecimal:
		fmt.Fprintf(m.outputSink(), "%d", val)
		return
	}
	m.Memory[addr] = val
}

// Read16 reads a big-endian cell.
func (m *Machine) Read16(addr uint16) uint16 {
	if addr == PortKey {
		return uint16(m.ReadByte(addr))
	}
	return uint16(m.Memory[addr])<<8 | uint16(m.Memory[addr+1])
}

// Write16 writes a big-endian cell.
func (m *Machine) Write16(addr uint16, val uint16) {
	switch addr {
	case PortChar:
		fmt.Fprintf(m.outputSink(), "%c", byte(val))
		return
	case PortDecimal:
		fmt.Fprintf(m.outputSink(), "%d", val)
		return
	}
	m.Memory[addr] = byte(val >> 8)
	m.Memory[addr+1] = byte(val)
}

// TextVRAM returns a copy of the character grid.
func (m *Machine) TextVRAM() []byte {
	out := make([]byte, TextVRAMSize)
	copy(out, m.Memory[TextVRAMBase:TextVRAMBase+TextVRAMSize])
	return out
}

func boolCell(b bool) uint16 {
	if b {
		return True
	}
	return False
}

func (m *Machine) fetch16() uint16 {
	v := uint16(m.Memory[m.PC])<<8 | uint16(m.Memory[m.PC+1])
	m.PC += 2
	return v
}

// pop2 pops b then a, so that a is the deeper cell.
func (m *Machine) pop2() (a, b uint16, err error) {
	if b, err = m.Data.Pop(); err != nil {
		return
	}
	a, err = m.Data.Pop()
	return
}

// Step executes one instruction.
func (m *Machine) Step() error {
	if m.Halted {
		return nil
	}

	at := m.PC
	op := Opcode(m.Memory[m.PC])
	m.PC++
	m.Cycles++

	if err := m.exec(op, at); err != nil {
		m.Halted = true
		return fmt.Errorf("%s at 0x%04X: %w", op, at, err)
	}
	return nil
}

func (m *Machine) exec(op Opcode, at uint16) error {
	d := &m.Data

	switch op {
	case OpNop:

	case OpHalt:
		m.Halted = true

	case OpPush:
		return d.Push(m.fetch16())

	case OpDup:
		v, err := d.Peek(0)
		if err != nil {
			return err
		}
		return d.Push(v)

	case OpOver:
		v, err := d.Peek(1)
		if err != nil {
			return err
		}
		return d.Push(v)

	case OpPop:
		_, err := d.Pop()
		return err

	case OpNip:
		_, b, err := m.pop2()
		if err != nil {
			return err
		}
		return d.Push(b)

	case OpSwap:
		a, b, err := m.pop2()
		if err != nil {
			return err
		}
		d.Push(b)
		return d.Push(a)

	case OpRot:
		c, err := d.Pop()
		if err != nil {
			return err
		}
		a, b, err := m.pop2()
		if err != nil {
			return err
		}
		d.Push(b)
		d.Push(c)
		return d.Push(a)

	case OpLoad:
		addr, err := d.Pop()
		if err != nil {
			return err
		}
		return d.Push(m.Read16(addr))

	case OpStore:
		val, addr, err := m.pop2()
		if err != nil {
			return err
		}
		m.Write16(addr, val)

	case OpLoadByte:
		addr, err := d.Pop()
		if err != nil {
			return err
		}
		return d.Push(uint16(m.ReadByte(addr)))

	case OpStoreByte:
		val, addr, err := m.pop2()
		if err != nil {
			return err
		}
		m.WriteByte(addr, byte(val))

	case OpAdd:
		a, b, err := m.pop2()
		if err != nil {
			return err
		}
		return d.Push(a + b)

	case OpSub:
		a, b, err := m.pop2()
		if err != nil {
			return err
		}
		return d.Push(a - b)

	case OpAddCarry:
		a, b, err := m.pop2()
		if err != nil {
			return err
		}
		sum := uint32(a) + uint32(b)
		d.Push(uint16(sum))
		return d.Push(uint16(sum >> 16))

	case OpSubCarry:
		a, b, err := m.pop2()
		if err != nil {
			return err
		}
		var borrow uint16
		if a < b {
			borrow = 1
		}
		d.Push(a - b)
		return d.Push(borrow)

	case OpShl:
		x, n, err := m.pop2()
		if err != nil {
			return err
		}
		return d.Push(x << n)

	case OpShr:
		x, n, err := m.pop2()
		if err != nil {
			return err
		}
		return d.Push(x >> n)

	case OpBitNand:
		a, b, err := m.pop2()
		if err != nil {
			return err
		}
		return d.Push(^(a & b))

	case OpNand:
		a, b, err := m.pop2()
		if err != nil {
			return err
		}
		return d.Push(boolCell(!(a != 0 && b != 0)))

	case OpEqual:
		a, b, err := m.pop2()
		if err != nil {
			return err
		}
		return d.Push(boolCell(a == b))

	case OpMore:
		a, b, err := m.pop2()
		if err != nil {
			return err
		}
		return d.Push(boolCell(a > b))

	case OpLess:
		a, b, err := m.pop2()
		if err != nil {
			return err
		}
		return d.Push(boolCell(a < b))

	case OpJump:
		m.PC = m.fetch16()

	case OpBranch:
		disp := int8(m.Memory[m.PC])
		m.PC = at + uint16(int16(disp))

	case OpBranchIfZero, OpBranchIfNotZero:
		disp := int8(m.Memory[m.PC])
		m.PC++
		flag, err := d.Pop()
		if err != nil {
			return err
		}
		if (flag == 0) == (op == OpBranchIfZero) {
			m.PC = at + uint16(int16(disp))
		}

	case OpCall:
		target := m.fetch16()
		if err := m.Return.Push(m.PC); err != nil {
			return err
		}
		m.PC = target

	case OpReturn:
		if m.Return.Depth == 0 {
			m.Halted = true
			return nil
		}
		ret, _ := m.Return.Pop()
		m.PC = ret

	default:
		return ErrInvalidOpcode
	}
	return nil
}

// Run executes until the machine halts, fails, or gas instructions have run.
// A gas of zero or less means no limit.
func (m *Machine) Run(gas int) error {
	for !m.Halted {
		if gas > 0 && m.Cycles >= uint64(gas) {
			return ErrGasExhausted
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}
