package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"forthc/pkg/vm"
)

// Operand shapes of the stack ISA.
type operandKind int

const (
	operandNone   operandKind = iota
	operandWord               // 16-bit big-endian immediate or label address
	operandBranch             // label or address, encoded as a signed displacement
)

func operandOf(op vm.Opcode) operandKind {
	switch op {
	case vm.OpPush, vm.OpJump, vm.OpCall:
		return operandWord
	case vm.OpBranch, vm.OpBranchIfZero, vm.OpBranchIfNotZero:
		return operandBranch
	default:
		return operandNone
	}
}

type Assembler struct {
	labels map[string]uint16
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]uint16),
	}
}

// Assemble translates mnemonic text into an image and a map from image
// address to source line.
func Assemble(code string) ([]byte, map[uint16]int, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) ([]byte, map[uint16]int, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, nil, err
	}

	return a.pass2(lines)
}

// Labels returns the address of every label seen by the last Assemble.
func (a *Assembler) Labels() map[string]uint16 {
	out := make(map[string]uint16, len(a.labels))
	for k, v := range a.labels {
		out[k] = v
	}
	return out
}

func (a *Assembler) pass1(lines []string) error {
	var address uint32

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if address > 0xFFFF {
				return fmt.Errorf("label '%s' on line %d points past addressable memory", lbl, lineNo)
			}
			key := normalizeLabel(lbl)
			if _, exists := a.labels[key]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[key] = uint16(address)
		}

		if p.mnemonic == "" {
			continue
		}

		var length uint32
		switch p.mnemonic {
		case ".STRING":
			length = uint32(len(p.operands[0]) + 1)
		case ".BYTE":
			length = uint32(len(p.operands))
		case ".WORD":
			length = uint32(len(p.operands) * 2)
		case ".ORG":
			target, err := parseOrg(p.operands, lineNo)
			if err != nil {
				return err
			}
			if uint32(target) < address {
				return fmt.Errorf("cannot move origin backward on line %d", lineNo)
			}
			address = uint32(target)
			continue
		default:
			op, ok := vm.LookupMnemonic(p.mnemonic)
			if !ok {
				return fmt.Errorf("unknown instruction on line %d: %s", lineNo, p.mnemonic)
			}
			length = uint32(op.Length())
		}

		if address+length > vm.MemorySize {
			return fmt.Errorf("program too large near line %d", lineNo)
		}
		address += length
	}

	return nil
}

func (a *Assembler) pass2(lines []string) ([]byte, map[uint16]int, error) {
	program := make([]byte, 0)
	sourceMap := make(map[uint16]int)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, nil, err
		}

		if p.mnemonic == "" {
			continue
		}

		sourceMap[uint16(len(program))] = lineNo
		ops := p.operands

		switch p.mnemonic {
		case ".STRING":
			program = append(program, ops[0]...)
			program = append(program, 0x00)
			continue

		case ".BYTE":
			for _, tok := range ops {
				v, err := a.parseImmediate(tok, lineNo)
				if err != nil {
					return nil, nil, err
				}
				if v > 0xFF {
					return nil, nil, fmt.Errorf("byte out of range on line %d: %s", lineNo, tok)
				}
				program = append(program, byte(v))
			}
			continue

		case ".WORD":
			for _, tok := range ops {
				v, err := a.parseImmediate(tok, lineNo)
				if err != nil {
					return nil, nil, err
				}
				program = append(program, byte(v>>8), byte(v))
			}
			continue

		case ".ORG":
			target, _ := parseOrg(ops, lineNo)
			if padding := int(target) - len(program); padding > 0 {
				program = append(program, make([]byte, padding)...)
			}
			continue
		}

		op, _ := vm.LookupMnemonic(p.mnemonic)
		kind := operandOf(op)

		want := 1
		if kind == operandNone {
			want = 0
		}
		if len(ops) != want {
			return nil, nil, fmt.Errorf("%s expects %d operand(s) on line %d", p.mnemonic, want, lineNo)
		}

		at := uint16(len(program))
		program = append(program, byte(op))

		switch kind {
		case operandWord:
			imm, err := a.parseImmediate(ops[0], lineNo)
			if err != nil {
				return nil, nil, err
			}
			program = append(program, byte(imm>>8), byte(imm))

		case operandBranch:
			target, err := a.parseImmediate(ops[0], lineNo)
			if err != nil {
				return nil, nil, err
			}
			disp := int(target) - int(at)
			if disp < -128 || disp > 127 {
				return nil, nil, fmt.Errorf("branch target '%s' out of range on line %d (displacement %d)", ops[0], lineNo, disp)
			}
			program = append(program, byte(int8(disp)))
		}
	}

	return program, sourceMap, nil
}

func parseOrg(ops []string, lineNo int) (uint16, error) {
	target, err := strconv.ParseUint(ops[0], 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid .ORG value on line %d: %s", lineNo, ops[0])
	}
	if target > 0xFFFF {
		return 0, fmt.Errorf(".ORG out of range on line %d: %s", lineNo, ops[0])
	}
	return uint16(target), nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	// .STRING keeps its quoted operand verbatim, comments included.
	if idx := strings.Index(strings.ToUpper(raw), ".STRING"); idx != -1 {
		if colonIdx := strings.Index(raw[:idx], ":"); colonIdx != -1 {
			label := strings.TrimSpace(raw[:colonIdx])
			if label != "" {
				p.labels = append(p.labels, label)
			}
		}

		opening := strings.Index(raw, "\"")
		closing := strings.LastIndex(raw, "\"")
		if opening == -1 || opening == closing {
			return p, fmt.Errorf("invalid string literal on line %d", lineNo)
		}
		p.mnemonic = ".STRING"
		content := raw[opening+1 : closing]
		if unquoted, err := strconv.Unquote(`"` + content + `"`); err == nil {
			content = unquoted
		}
		p.operands = []string{content}
		return p, nil
	}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}
		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}

	switch p.mnemonic {
	case ".ORG":
		if len(p.operands) != 1 {
			return p, fmt.Errorf(".ORG expects exactly one operand on line %d", lineNo)
		}
	case ".BYTE", ".WORD":
		if len(p.operands) == 0 {
			return p, fmt.Errorf("%s expects at least one operand on line %d", p.mnemonic, lineNo)
		}
	}

	return p, nil
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

func (a *Assembler) parseImmediate(token string, lineNo int) (uint16, error) {
	if value, err := strconv.ParseUint(token, 0, 32); err == nil {
		if value > 0xFFFF {
			return 0, fmt.Errorf("immediate out of range on line %d: %s", lineNo, token)
		}
		return uint16(value), nil
	}

	if addr, ok := a.labels[normalizeLabel(token)]; ok {
		return addr, nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}

	return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

func normalizeLabel(label string) string {
	return strings.ToUpper(label)
}
