package asm

import (
	"fmt"
	"strings"

	"forthc/pkg/vm"
)

// Instruction is one decoded instruction of an image.
type Instruction struct {
	Addr    uint16
	Op      vm.Opcode
	Operand uint16 // immediate, or absolute target for branches
	Length  int
	Valid   bool // false for unknown opcodes and truncated operands
}

// Text renders the instruction in the syntax Assemble accepts.
func (in Instruction) Text(img []byte) string {
	if !in.Valid {
		return fmt.Sprintf(".BYTE 0x%02X", img[in.Addr])
	}
	switch operandOf(in.Op) {
	case operandWord, operandBranch:
		return fmt.Sprintf("%-6s 0x%04X", in.Op, in.Operand)
	}
	return in.Op.String()
}

// Decode reads the instruction at addr.
func Decode(img []byte, addr uint16) Instruction {
	in := Instruction{Addr: addr, Op: vm.Opcode(img[addr]), Length: 1}
	if !in.Op.Valid() {
		return in
	}

	n := in.Op.Length()
	if int(addr)+n > len(img) {
		return in
	}
	in.Length = n
	in.Valid = true

	switch operandOf(in.Op) {
	case operandWord:
		in.Operand = uint16(img[addr+1])<<8 | uint16(img[addr+2])
	case operandBranch:
		in.Operand = addr + uint16(int16(int8(img[addr+1])))
	}
	return in
}

// Disassemble lists every instruction of img, one per line, prefixed with
// its address. Stripping the address column yields text Assemble accepts.
func Disassemble(img []byte) string {
	var sb strings.Builder
	for addr := 0; addr < len(img); {
		in := Decode(img, uint16(addr))
		fmt.Fprintf(&sb, "%04X  %s\n", addr, in.Text(img))
		addr += in.Length
	}
	return sb.String()
}
